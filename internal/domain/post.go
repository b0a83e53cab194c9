package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// ErrInvalidOutput marks model output that failed the schema gate.
var ErrInvalidOutput = errors.New("invalid model output")

const (
	MaxTitleLength      = 60
	MinExplanationWords = 10
	MaxExplanationWords = 120
	MinQualityScore     = 1
	MaxQualityScore     = 100
)

// Difficulty is the audience level of a post.
type Difficulty string

const (
	DifficultyBeginner     Difficulty = "beginner"
	DifficultyIntermediate Difficulty = "intermediate"
	DifficultyAdvanced     Difficulty = "advanced"
)

// Valid reports whether d is one of the known levels.
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyBeginner, DifficultyIntermediate, DifficultyAdvanced:
		return true
	}
	return false
}

// Category is one of the fixed content labels.
type Category string

const (
	CategoryModernJS    Category = "Modern JavaScript"
	CategoryReact       Category = "React Patterns"
	CategoryCSS         Category = "CSS Tricks"
	CategoryWebAPIs     Category = "Web APIs"
	CategoryPerformance Category = "Performance & Tooling"
)

// Categories lists the labels in prompt order.
var Categories = []Category{
	CategoryModernJS,
	CategoryReact,
	CategoryCSS,
	CategoryWebAPIs,
	CategoryPerformance,
}

// Valid reports whether c is one of the fixed labels.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// ProcessingOutput is the structured object the completion model must return.
type ProcessingOutput struct {
	Title        string     `json:"title"`
	Explanation  string     `json:"explanation"`
	Difficulty   Difficulty `json:"difficulty"`
	Category     Category   `json:"category"`
	Tags         []string   `json:"tags"`
	QualityScore int        `json:"qualityScore"`
	Code         string     `json:"code,omitempty"`
}

// Validate applies the schema gate. All violations are reported together.
func (o ProcessingOutput) Validate() error {
	var errs []error

	title := strings.TrimSpace(o.Title)
	if title == "" {
		errs = append(errs, fmt.Errorf("title is empty"))
	} else if utf8.RuneCountInString(title) > MaxTitleLength {
		errs = append(errs, fmt.Errorf("title longer than %d characters", MaxTitleLength))
	}

	words := len(strings.Fields(o.Explanation))
	if words < MinExplanationWords || words > MaxExplanationWords {
		errs = append(errs, fmt.Errorf("explanation has %d words, want %d-%d", words, MinExplanationWords, MaxExplanationWords))
	}

	if !o.Difficulty.Valid() {
		errs = append(errs, fmt.Errorf("unknown difficulty %q", o.Difficulty))
	}
	if !o.Category.Valid() {
		errs = append(errs, fmt.Errorf("unknown category %q", o.Category))
	}

	nonEmpty := 0
	for _, tag := range o.Tags {
		if strings.TrimSpace(tag) != "" {
			nonEmpty++
		}
	}
	if nonEmpty == 0 {
		errs = append(errs, fmt.Errorf("tags are empty"))
	}

	if o.QualityScore < MinQualityScore || o.QualityScore > MaxQualityScore {
		errs = append(errs, fmt.Errorf("quality score %d out of range", o.QualityScore))
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidOutput, errors.Join(errs...))
}

// ProcessedPost is model output merged with its originating snippet.
type ProcessedPost struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Explanation  string     `json:"explanation"`
	Difficulty   Difficulty `json:"difficulty"`
	Category     Category   `json:"category"`
	Tags         []string   `json:"tags"`
	QualityScore int        `json:"qualityScore"`
	Code         string     `json:"code"`
	Language     string     `json:"language"`
	SourceName   string     `json:"sourceName"`
	SourceURL    string     `json:"sourceUrl"`
	SourceType   SourceType `json:"sourceType"`
	SnippetHash  string     `json:"snippetHash,omitempty"`
	ProcessedAt  time.Time  `json:"processedAt"`
}

// Output projects the model-generated fields back for re-validation.
func (p ProcessedPost) Output() ProcessingOutput {
	return ProcessingOutput{
		Title:        p.Title,
		Explanation:  p.Explanation,
		Difficulty:   p.Difficulty,
		Category:     p.Category,
		Tags:         p.Tags,
		QualityScore: p.QualityScore,
	}
}

// Validate re-runs the schema gate and checks the merged snippet fields.
func (p ProcessedPost) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("post has no id")
	}
	if strings.TrimSpace(p.Code) == "" {
		return fmt.Errorf("post %s has no code", p.ID)
	}
	if err := p.Output().Validate(); err != nil {
		return fmt.Errorf("post %s: %w", p.ID, err)
	}
	return nil
}

// ValidationResult is the outcome of static code validation.
type ValidationResult struct {
	IsValid  bool     `json:"isValid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// ScoreBreakdown holds the weighted components of a quality score.
type ScoreBreakdown struct {
	CodeQuality        int `json:"codeQuality"`
	ExplanationQuality int `json:"explanationQuality"`
	SourceReputation   int `json:"sourceReputation"`
	Uniqueness         int `json:"uniqueness"`
}

// QualityScore is the deterministic total with its breakdown.
type QualityScore struct {
	Total     int            `json:"total"`
	Breakdown ScoreBreakdown `json:"breakdown"`
}

// Tier is the approval classification of a scored post.
type Tier string

const (
	TierAutoApprove  Tier = "auto_approve"
	TierManualReview Tier = "manual_review"
	TierAutoReject   Tier = "auto_reject"
)

// ScoredPost pairs a post with its score and validation outcome.
type ScoredPost struct {
	Post             ProcessedPost    `json:"post"`
	QualityScore     QualityScore     `json:"qualityScore"`
	ValidationResult ValidationResult `json:"validationResult"`
	Tier             Tier             `json:"tier"`
	Approved         bool             `json:"approved"`
}

// EnrichedPost is an approved post with derived metadata.
type EnrichedPost struct {
	Post               ProcessedPost `json:"post"`
	QualityScore       QualityScore  `json:"qualityScore"`
	ExtractedTags      []string      `json:"extractedTags"`
	ReadingTimeSeconds int           `json:"readingTimeSeconds"`
	Prerequisites      []string      `json:"prerequisites"`
	RelatedPostIDs     []string      `json:"relatedPostIds"`
	UpdatedAt          time.Time     `json:"updatedAt"`
}

// AllTags returns declared tags followed by extracted ones, without repeats.
func (e EnrichedPost) AllTags() []string {
	return MergeTags(e.Post.Tags, e.ExtractedTags)
}

// DatabasePost is the persisted row; CodeHash is the upsert conflict key.
type DatabasePost struct {
	ID                 string     `json:"id"`
	Title              string     `json:"title"`
	Code               string     `json:"code"`
	Language           string     `json:"language"`
	Explanation        string     `json:"explanation"`
	Tags               []string   `json:"tags"`
	Difficulty         Difficulty `json:"difficulty"`
	Category           Category   `json:"category"`
	SourceURL          string     `json:"source_url"`
	SourceName         string     `json:"source_name"`
	SourceType         SourceType `json:"source_type"`
	QualityScore       int        `json:"quality_score"`
	ReadingTimeSeconds int        `json:"reading_time_seconds"`
	Prerequisites      []string   `json:"prerequisites"`
	CodeHash           string     `json:"code_hash"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// MergeTags unions tag lists case-insensitively, keeping first spelling and order.
func MergeTags(lists ...[]string) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, list := range lists {
		for _, tag := range list {
			tag = strings.TrimSpace(tag)
			if tag == "" {
				continue
			}
			key := strings.ToLower(tag)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, tag)
		}
	}
	return out
}
