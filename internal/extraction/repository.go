package extraction

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/coding-vasu/devdose-sub000/internal/dedup"
	"github.com/coding-vasu/devdose-sub000/internal/domain"
	"github.com/coding-vasu/devdose-sub000/internal/logging"
	"github.com/coding-vasu/devdose-sub000/internal/ports"
	"github.com/coding-vasu/devdose-sub000/internal/retry"
	"github.com/coding-vasu/devdose-sub000/internal/scanner"
)

const defaultMaxExampleFiles = 5

var exampleDirs = []string{"examples", "example"}

// RepositoryScanner pulls fenced blocks from a README and whole files from the examples directory.
type RepositoryScanner struct {
	host            ports.CodeHost
	policy          retry.Policy
	maxExampleFiles int
	markdown        goldmark.Markdown
	logger          *slog.Logger
}

var _ scanner.Scanner = (*RepositoryScanner)(nil)

// NewRepositoryScanner wires the code host. maxExampleFiles defaults to 5.
func NewRepositoryScanner(host ports.CodeHost, policy retry.Policy, maxExampleFiles int, log *slog.Logger) *RepositoryScanner {
	if maxExampleFiles <= 0 {
		maxExampleFiles = defaultMaxExampleFiles
	}
	return &RepositoryScanner{
		host:            host,
		policy:          policy,
		maxExampleFiles: maxExampleFiles,
		markdown:        goldmark.New(),
		logger:          logging.Or(log).With("component", "repository_scanner"),
	}
}

// Name identifies the strategy inside the registry.
func (r *RepositoryScanner) Name() string {
	return "repository"
}

// Scan extracts README blocks first, then example files.
func (r *RepositoryScanner) Scan(ctx context.Context, src domain.Source, filter scanner.Filter) ([]domain.CodeSnippet, error) {
	if src.GitHub == nil || src.GitHub.Owner == "" || src.GitHub.Repo == "" {
		return nil, fmt.Errorf("source %s has no repository coordinates", src.Name)
	}
	owner, repo := src.GitHub.Owner, src.GitHub.Repo

	var snippets []domain.CodeSnippet

	readme, err := retry.Value(ctx, r.policy, func(ctx context.Context) (ports.Readme, error) {
		return r.host.Readme(ctx, owner, repo)
	})
	switch {
	case errors.Is(err, ports.ErrNotFound):
		r.logger.Debug("no readme", "repo", src.FullName())
	case err != nil:
		return nil, fmt.Errorf("readme %s: %w", src.FullName(), err)
	default:
		for _, block := range r.FencedBlocks(readme.Content) {
			if !filter.Accept(block.Language, block.Code) {
				continue
			}
			lines := block.Lines
			snippets = append(snippets, newSnippet(src, block.Code, block.Language, readme.Path, block.Heading, &lines))
		}
	}

	examples, err := r.exampleSnippets(ctx, src, filter)
	if err != nil {
		return nil, err
	}
	snippets = append(snippets, examples...)

	r.logger.Debug("repository scanned", "repo", src.FullName(), "snippets", len(snippets))
	return snippets, nil
}

func (r *RepositoryScanner) exampleSnippets(ctx context.Context, src domain.Source, filter scanner.Filter) ([]domain.CodeSnippet, error) {
	owner, repo := src.GitHub.Owner, src.GitHub.Repo

	for _, dir := range exampleDirs {
		entries, err := retry.Value(ctx, r.policy, func(ctx context.Context) ([]ports.ContentEntry, error) {
			return r.host.ListDirectory(ctx, owner, repo, dir)
		})
		if errors.Is(err, ports.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("list %s/%s: %w", src.FullName(), dir, err)
		}

		var out []domain.CodeSnippet
		scanned := 0
		for _, entry := range entries {
			if scanned >= r.maxExampleFiles {
				break
			}
			if entry.Type != "file" {
				continue
			}
			lang := scanner.LanguageFromPath(entry.Name)
			if !filter.Allows(lang) {
				continue
			}
			scanned++

			content, err := retry.Value(ctx, r.policy, func(ctx context.Context) (string, error) {
				return r.host.FileContent(ctx, owner, repo, entry.Path)
			})
			if err != nil {
				r.logger.Warn("example file skipped", "repo", src.FullName(), "path", entry.Path, "error", err)
				continue
			}
			if !filter.Accept(lang, content) {
				continue
			}
			lines := domain.LineRange{Start: 1, End: scanner.CountLines(content)}
			label := "Example file " + path.Base(entry.Path)
			out = append(out, newSnippet(src, content, lang, entry.Path, label, &lines))
		}
		return out, nil
	}
	return nil, nil
}

// Block is one fenced code block of a markdown document.
type Block struct {
	Code     string
	Language string
	Heading  string
	Lines    domain.LineRange
}

// FencedBlocks parses markdown and returns fenced blocks with the nearest preceding heading.
// Untagged blocks get a detected language, which may be empty.
func (r *RepositoryScanner) FencedBlocks(markdown string) []Block {
	src := []byte(markdown)
	doc := r.markdown.Parser().Parse(text.NewReader(src))

	var (
		blocks  []Block
		heading string
	)
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Heading:
			heading = strings.TrimSpace(plainText(node, src))
			return ast.WalkSkipChildren, nil
		case *ast.FencedCodeBlock:
			lines := node.Lines()
			if lines.Len() == 0 {
				return ast.WalkSkipChildren, nil
			}
			var code bytes.Buffer
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				code.Write(seg.Value(src))
			}
			lang := scanner.NormalizeLanguage(string(node.Language(src)))
			if lang == "" {
				lang = scanner.DetectLanguage(code.String())
			}
			first := bytes.Count(src[:lines.At(0).Start], []byte("\n")) + 1
			blocks = append(blocks, Block{
				Code:     code.String(),
				Language: lang,
				Heading:  heading,
				Lines:    domain.LineRange{Start: first, End: first + lines.Len() - 1},
			})
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return blocks
}

func plainText(n ast.Node, src []byte) string {
	var b strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if entering {
			if t, ok := c.(*ast.Text); ok {
				b.Write(t.Segment.Value(src))
			}
		}
		return ast.WalkContinue, nil
	})
	return b.String()
}

func newSnippet(src domain.Source, code, lang, filePath, label string, lines *domain.LineRange) domain.CodeSnippet {
	return domain.CodeSnippet{
		Code:     code,
		Language: lang,
		Metadata: domain.SnippetMetadata{
			SourceName:  src.Name,
			SourceURL:   src.URL,
			SourceType:  src.Type,
			FilePath:    filePath,
			Context:     label,
			LineNumbers: lines,
		},
		Hash: dedup.Hash(code),
	}
}
