package scanner

import (
	"context"
	"testing"

	"github.com/coding-vasu/devdose-sub000/internal/domain"
)

type stubScanner struct{ name string }

func (s stubScanner) Name() string { return s.name }

func (s stubScanner) Scan(context.Context, domain.Source, Filter) ([]domain.CodeSnippet, error) {
	return nil, nil
}

func TestRegistryResolvesByType(t *testing.T) {
	t.Parallel()

	reg := NewRegistry()
	reg.Register(stubScanner{name: "repo"}, domain.SourceGitHub, domain.SourceAwesome)
	reg.Register(stubScanner{name: "docs"}, domain.SourceDocs)

	s, err := reg.Resolve(domain.SourceAwesome)
	if err != nil || s.Name() != "repo" {
		t.Fatalf("expected repo scanner, got %v %v", s, err)
	}
	if _, err := reg.Resolve(domain.SourceBlog); err == nil {
		t.Fatalf("expected error for unregistered type")
	}
}

func TestFilterAccept(t *testing.T) {
	t.Parallel()

	f := Filter{MinLines: 3, MaxLines: 5, Languages: []string{"javascript", "css"}}
	cases := []struct {
		lang string
		code string
		want bool
	}{
		{"javascript", "a\nb\nc\n", true},
		{"javascript", "a\nb\n", false},
		{"javascript", "1\n2\n3\n4\n5\n6", false},
		{"CSS", "a\nb\nc", true},
		{"python", "a\nb\nc", false},
		{"", "a\nb\nc", false},
	}
	for _, tc := range cases {
		if got := f.Accept(tc.lang, tc.code); got != tc.want {
			t.Fatalf("Accept(%q, %q)=%v want %v", tc.lang, tc.code, got, tc.want)
		}
	}
}

func TestNormalizeAndDetect(t *testing.T) {
	t.Parallel()

	if got := NormalizeLanguage("JS"); got != "javascript" {
		t.Fatalf("NormalizeLanguage(JS)=%q", got)
	}
	if got := NormalizeLanguage("ts {1,3}"); got != "typescript" {
		t.Fatalf("NormalizeLanguage with meta=%q", got)
	}
	if got := LanguageFromPath("examples/App.tsx"); got != "tsx" {
		t.Fatalf("LanguageFromPath=%q", got)
	}
	if got := LanguageFromPath("examples/README.md"); got != "" {
		t.Fatalf("LanguageFromPath(md)=%q", got)
	}

	detect := []struct {
		code string
		want string
	}{
		{"const x = await fetch(url);\nconsole.log(x);", "javascript"},
		{"interface Props {\n  name: string;\n}", "typescript"},
		{"function App() {\n  return (<Button label=\"hi\" />);\n}", "jsx"},
		{".grid {\n  display: grid;\n}", "css"},
		{"<div class=\"card\">\n  <p>hi</p>\n</div>", "html"},
		{"npm install react", "bash"},
		{"just prose", ""},
	}
	for _, tc := range detect {
		if got := DetectLanguage(tc.code); got != tc.want {
			t.Fatalf("DetectLanguage(%q)=%q want %q", tc.code, got, tc.want)
		}
	}
}
