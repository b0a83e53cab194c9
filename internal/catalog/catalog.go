package catalog

import (
	"github.com/coding-vasu/devdose-sub000/internal/domain"
)

// CuratedPriority is the fixed priority of hand-picked repositories.
const CuratedPriority = 10

func repo(owner, name string, tags ...string) domain.Source {
	return domain.Source{
		Type:     domain.SourceGitHub,
		Name:     owner + "/" + name,
		URL:      "https://github.com/" + owner + "/" + name,
		Tags:     tags,
		Priority: CuratedPriority,
		GitHub: &domain.GitHubInfo{
			Owner:       owner,
			Repo:        name,
			HasGoodDocs: true,
		},
	}
}

func docs(name, url string, priority int, tags ...string) domain.Source {
	return domain.Source{
		Type:     domain.SourceDocs,
		Name:     name,
		URL:      url,
		Tags:     tags,
		Priority: priority,
	}
}

// Curated returns the built-in sources. The slice is fresh on every call.
func Curated() []domain.Source {
	return []domain.Source{
		repo("facebook", "react", "react", "javascript"),
		repo("vuejs", "core", "vue", "javascript"),
		repo("angular", "angular", "angular", "typescript"),
		repo("microsoft", "TypeScript", "typescript"),
		repo("sveltejs", "svelte", "svelte", "javascript"),
		repo("vercel", "next.js", "react", "nextjs"),
		repo("TanStack", "query", "react", "data-fetching"),
		docs("React Docs", "https://react.dev/reference/react/hooks", 9, "react", "hooks"),
		docs("MDN JavaScript Guide", "https://developer.mozilla.org/en-US/docs/Web/JavaScript/Guide/Using_promises", 9, "javascript", "async"),
		docs("MDN CSS Grid", "https://developer.mozilla.org/en-US/docs/Web/CSS/CSS_grid_layout/Basic_concepts_of_grid_layout", 8, "css", "grid"),
		docs("web.dev Learn CSS", "https://web.dev/learn/css/flexbox", 8, "css", "flexbox"),
	}
}

// Merge appends extra sources configured by the operator after the built-ins.
// An extra source repeating an earlier one is dropped.
func Merge(extra []domain.Source) []domain.Source {
	out := Curated()
	seen := make(map[string]bool, len(out)+len(extra))
	for _, s := range out {
		seen[s.Key()] = true
	}
	for _, s := range extra {
		if seen[s.Key()] {
			continue
		}
		seen[s.Key()] = true
		out = append(out, s)
	}
	return out
}

// Names lists source names in order. Scoring uses it as the official allow-list.
func Names(sources []domain.Source) []string {
	names := make([]string, 0, len(sources))
	for _, s := range sources {
		names = append(names, s.Name)
	}
	return names
}
