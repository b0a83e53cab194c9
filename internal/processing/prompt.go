package processing

import (
	"fmt"
	"strings"

	"github.com/coding-vasu/devdose-sub000/internal/domain"
)

// SystemPrompt is the fixed instruction sent with every snippet.
var SystemPrompt = fmt.Sprintf(`You turn raw frontend code into bite-sized learning cards for developers scrolling on their phone.

Rules:
- Keep the code between 3 and 15 lines. Do not add boilerplate.
- Write a title of at most %d characters that makes the reader curious.
- Write an explanation of 2-3 sentences (%d-%d words) that says what the code does and why it matters.
- Pick difficulty from: beginner, intermediate, advanced.
- Pick exactly one category from: %s.
- Give 3-5 short lowercase tags.
- Rate the educational value from 1 to 100 as qualityScore.

Answer with one JSON object only:
{"title": "...", "explanation": "...", "difficulty": "...", "category": "...", "tags": ["..."], "qualityScore": 0}`,
	domain.MaxTitleLength, domain.MinExplanationWords, domain.MaxExplanationWords, categoryList())

// VerifySystemPrompt asks the model to re-check a published card and correct it only if needed.
var VerifySystemPrompt = SystemPrompt + `

You are reviewing a card that was already published. Keep every field that is correct.
Fix factual mistakes in the explanation, a misleading title or a wrong category.
If the code itself has a bug, return the corrected code in a "code" field; otherwise omit "code".`

func categoryList() string {
	labels := make([]string, len(domain.Categories))
	for i, c := range domain.Categories {
		labels[i] = `"` + string(c) + `"`
	}
	return strings.Join(labels, ", ")
}

// Input is one snippet as presented to the model.
type Input struct {
	Code           string
	Language       string
	SourceContext  string
	RepositoryName string
}

// InputFromSnippet builds the prompt input for an extracted snippet.
func InputFromSnippet(s domain.CodeSnippet) Input {
	ctx := s.Metadata.Context
	if s.Metadata.FilePath != "" {
		if ctx != "" {
			ctx += " (" + s.Metadata.FilePath + ")"
		} else {
			ctx = s.Metadata.FilePath
		}
	}
	return Input{
		Code:           s.Code,
		Language:       s.Language,
		SourceContext:  ctx,
		RepositoryName: s.Metadata.SourceName,
	}
}

// UserPrompt embeds the code fence and its context.
func UserPrompt(in Input) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Create a learning card from this %s snippet taken from %s.\n", in.Language, in.RepositoryName)
	if in.SourceContext != "" {
		fmt.Fprintf(&b, "Context: %s\n", in.SourceContext)
	}
	fmt.Fprintf(&b, "\n```%s\n%s\n```\n", in.Language, strings.TrimRight(in.Code, "\n"))
	return b.String()
}

// VerifyPrompt presents a published post for review.
func VerifyPrompt(p domain.DatabasePost) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Review this published card from %s.\n\n", p.SourceName)
	fmt.Fprintf(&b, "Title: %s\n", p.Title)
	fmt.Fprintf(&b, "Explanation: %s\n", p.Explanation)
	fmt.Fprintf(&b, "Difficulty: %s\n", p.Difficulty)
	fmt.Fprintf(&b, "Category: %s\n", p.Category)
	fmt.Fprintf(&b, "Tags: %s\n", strings.Join(p.Tags, ", "))
	fmt.Fprintf(&b, "\n```%s\n%s\n```\n", p.Language, strings.TrimRight(p.Code, "\n"))
	return b.String()
}
