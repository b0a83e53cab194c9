package scanner

import (
	"context"
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/coding-vasu/devdose-sub000/internal/domain"
)

// Filter carries the size and language bounds every scanner applies to a block.
type Filter struct {
	MinLines  int
	MaxLines  int
	Languages []string
}

// Accept reports whether code in lang passes the allow-list and the line bounds.
func (f Filter) Accept(lang, code string) bool {
	if !f.Allows(lang) {
		return false
	}
	n := CountLines(code)
	return n >= f.MinLines && n <= f.MaxLines
}

// Allows reports whether lang is on the allow-list.
func (f Filter) Allows(lang string) bool {
	if lang == "" {
		return false
	}
	for _, l := range f.Languages {
		if strings.EqualFold(l, lang) {
			return true
		}
	}
	return false
}

// Scanner extracts candidate snippets from one kind of source (repositories, docs pages).
type Scanner interface {
	Name() string
	Scan(ctx context.Context, src domain.Source, filter Filter) ([]domain.CodeSnippet, error)
}

// Registry keeps a mapping from source types to the scanner that handles them.
type Registry struct {
	scanners map[domain.SourceType]Scanner
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{scanners: map[domain.SourceType]Scanner{}}
}

// Register binds scanner to each of the given source types, replacing earlier bindings.
func (r *Registry) Register(scanner Scanner, types ...domain.SourceType) {
	if r.scanners == nil {
		r.scanners = map[domain.SourceType]Scanner{}
	}
	for _, t := range types {
		r.scanners[t] = scanner
	}
}

// Resolve returns the scanner for a source type or an error if it is absent.
func (r *Registry) Resolve(t domain.SourceType) (Scanner, error) {
	if scanner, ok := r.scanners[t]; ok {
		return scanner, nil
	}
	return nil, fmt.Errorf("no scanner registered for source type %s", t)
}

// CountLines counts lines ignoring a single trailing newline.
func CountLines(code string) int {
	trimmed := strings.TrimRight(code, "\n")
	if trimmed == "" {
		return 0
	}
	return strings.Count(trimmed, "\n") + 1
}

var aliases = map[string]string{
	"js":         "javascript",
	"javascript": "javascript",
	"mjs":        "javascript",
	"cjs":        "javascript",
	"es6":        "javascript",
	"node":       "javascript",
	"ts":         "typescript",
	"typescript": "typescript",
	"jsx":        "jsx",
	"tsx":        "tsx",
	"css":        "css",
	"scss":       "scss",
	"html":       "html",
	"htm":        "html",
	"vue":        "vue",
	"svelte":     "svelte",
	"json":       "json",
	"sh":         "bash",
	"bash":       "bash",
	"shell":      "bash",
}

// NormalizeLanguage maps fence tags, class suffixes and extensions to canonical names.
// Unknown tags are returned lowercased.
func NormalizeLanguage(tag string) string {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if i := strings.IndexAny(tag, " {"); i >= 0 {
		tag = tag[:i]
	}
	if canon, ok := aliases[tag]; ok {
		return canon
	}
	return tag
}

// LanguageFromPath derives a language from a file extension.
func LanguageFromPath(p string) string {
	ext := strings.TrimPrefix(path.Ext(p), ".")
	return aliases[strings.ToLower(ext)]
}

var (
	htmlExpr  = regexp.MustCompile(`(?s)^\s*<(!doctype|html|div|span|section|template|button|ul|form|p)\b`)
	cssExpr   = regexp.MustCompile(`(?m)^\s*[.#:\w\-\[\]="*>, ]+\{\s*$|^\s*[\w-]+\s*:\s*[^;{}]+;\s*$`)
	jsxExpr   = regexp.MustCompile(`<[A-Z][\w.]*[\s/>]|return\s*\(\s*<|=>\s*\(?\s*<\w`)
	tsExpr    = regexp.MustCompile(`\b(interface|type)\s+\w+\s*[={<]|:\s*(string|number|boolean|void|unknown)\b|\bas\s+const\b`)
	jsExpr    = regexp.MustCompile(`\b(const|let|var|function|import|export|return|async|await)\b|=>`)
	shellExpr = regexp.MustCompile(`^\s*(\$ |npm |npx |yarn |pnpm )`)
)

// DetectLanguage guesses the language of an untagged block. It returns "" when unsure.
func DetectLanguage(code string) string {
	switch {
	case shellExpr.MatchString(code):
		return "bash"
	case htmlExpr.MatchString(code):
		return "html"
	case jsxExpr.MatchString(code) && tsExpr.MatchString(code):
		return "tsx"
	case jsxExpr.MatchString(code):
		return "jsx"
	case tsExpr.MatchString(code):
		return "typescript"
	case jsExpr.MatchString(code):
		return "javascript"
	case cssExpr.MatchString(code):
		return "css"
	}
	return ""
}
