package catalog

import (
	"testing"

	"github.com/coding-vasu/devdose-sub000/internal/domain"
)

func TestCuratedSourcesAreValid(t *testing.T) {
	t.Parallel()

	seen := map[string]bool{}
	for _, src := range Curated() {
		if err := src.Validate(); err != nil {
			t.Fatalf("curated source invalid: %v", err)
		}
		if seen[src.Key()] {
			t.Fatalf("duplicate curated source %s", src.Key())
		}
		seen[src.Key()] = true
	}
}

func TestMergeAppendsExtra(t *testing.T) {
	t.Parallel()

	extra := domain.Source{Type: domain.SourceDocs, Name: "x", URL: "https://x.dev", Priority: 5}
	merged := Merge([]domain.Source{extra})
	if merged[len(merged)-1].Name != "x" || len(merged) != len(Curated())+1 {
		t.Fatalf("extra source not appended")
	}
}

func TestMergeDropsRepeatedSources(t *testing.T) {
	t.Parallel()

	dup := domain.Source{
		Type:     domain.SourceGitHub,
		Name:     "React again",
		Priority: 3,
		GitHub:   &domain.GitHubInfo{Owner: "Facebook", Repo: "React"},
	}
	extra := domain.Source{Type: domain.SourceDocs, Name: "x", URL: "https://x.dev", Priority: 5}
	merged := Merge([]domain.Source{dup, extra, extra})
	if len(merged) != len(Curated())+1 {
		t.Fatalf("expected only one extra source, got %d total", len(merged))
	}
	for _, s := range merged {
		if s.Name == "React again" {
			t.Fatalf("repeat of a curated repository was kept")
		}
	}
}

func TestNamesKeepsOrder(t *testing.T) {
	t.Parallel()

	names := Names(Curated())
	if len(names) != len(Curated()) || names[0] != "facebook/react" {
		t.Fatalf("unexpected names %v", names)
	}
}
