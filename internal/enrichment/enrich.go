package enrichment

import (
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/coding-vasu/devdose-sub000/internal/domain"
	"github.com/coding-vasu/devdose-sub000/internal/logging"
)

const (
	wordsPerMinute  = 200
	secondsPerLine  = 2
	maxRelatedPosts = 3
)

// ReadingTime estimates seconds to read the explanation and the code, rounded up.
func ReadingTime(explanation, code string) int {
	words := len(strings.Fields(explanation))
	lines := 0
	if trimmed := strings.TrimRight(code, "\n"); trimmed != "" {
		lines = strings.Count(trimmed, "\n") + 1
	}
	seconds := float64(words*60)/wordsPerMinute + float64(lines*secondsPerLine)
	return max(int(math.Ceil(seconds)), 1)
}

type prerequisiteRule struct {
	tag        string
	always     []string
	advanced   []string
	notForBase bool
}

var prerequisiteRules = []prerequisiteRule{
	{tag: "react", always: []string{"JavaScript", "React basics"}, advanced: []string{"React Hooks"}},
	{tag: "vue", always: []string{"JavaScript", "Vue basics"}, advanced: []string{"Composition API"}},
	{tag: "angular", always: []string{"TypeScript", "Angular basics"}, advanced: []string{"RxJS"}},
	{tag: "typescript", always: []string{"JavaScript"}, advanced: []string{"TypeScript generics"}},
	{tag: "async", always: []string{"Promises"}, advanced: []string{"Event loop"}},
	{tag: "css-grid", always: []string{"CSS basics"}},
	{tag: "flexbox", always: []string{"CSS basics"}},
	{tag: "container-queries", always: []string{"CSS basics", "Media queries"}},
	{tag: "classes", always: []string{"JavaScript objects"}, notForBase: true},
}

// Prerequisites looks tags and difficulty up in the rule table.
func Prerequisites(tags []string, language string, difficulty domain.Difficulty) []string {
	has := map[string]bool{strings.ToLower(language): true}
	for _, t := range tags {
		has[strings.ToLower(t)] = true
	}

	var out []string
	for _, rule := range prerequisiteRules {
		if !has[rule.tag] {
			continue
		}
		if rule.notForBase && difficulty == domain.DifficultyBeginner {
			continue
		}
		out = append(out, rule.always...)
		if difficulty == domain.DifficultyAdvanced {
			out = append(out, rule.advanced...)
		}
	}
	return domain.MergeTags(out)
}

// RelatedPosts links each post to up to three others by shared tag count, using an
// inverted tag index. Ties keep input order; posts sharing no tag are never linked.
func RelatedPosts(ids []string, tags [][]string) [][]string {
	index := map[string][]int{}
	for i, list := range tags {
		for _, tag := range domain.MergeTags(list) {
			key := strings.ToLower(tag)
			index[key] = append(index[key], i)
		}
	}

	related := make([][]string, len(ids))
	for i, list := range tags {
		overlap := map[int]int{}
		for _, tag := range domain.MergeTags(list) {
			for _, j := range index[strings.ToLower(tag)] {
				if j != i {
					overlap[j]++
				}
			}
		}
		candidates := make([]int, 0, len(overlap))
		for j := range overlap {
			candidates = append(candidates, j)
		}
		sort.Slice(candidates, func(a, b int) bool {
			ca, cb := candidates[a], candidates[b]
			if overlap[ca] != overlap[cb] {
				return overlap[ca] > overlap[cb]
			}
			return ca < cb
		})
		if len(candidates) > maxRelatedPosts {
			candidates = candidates[:maxRelatedPosts]
		}
		out := make([]string, 0, len(candidates))
		for _, j := range candidates {
			out = append(out, ids[j])
		}
		related[i] = out
	}
	return related
}

// Enricher derives tags, reading time and prerequisites, then links related posts.
type Enricher struct {
	logger *slog.Logger
	now    func() time.Time
}

// NewEnricher builds the enrichment stage.
func NewEnricher(log *slog.Logger) *Enricher {
	return &Enricher{
		logger: logging.Or(log).With("component", "enrichment"),
		now:    time.Now,
	}
}

// Enrich runs in two phases: every post individually, then related-post linking over the batch.
func (e *Enricher) Enrich(posts []domain.ScoredPost) domain.EnrichmentResult {
	now := e.now().UTC()
	enriched := make([]domain.EnrichedPost, len(posts))
	stats := domain.EnrichmentStats{Total: len(posts)}

	for i, sp := range posts {
		extracted := ExtractTags(sp.Post.Code)
		all := domain.MergeTags(sp.Post.Tags, extracted)
		enriched[i] = domain.EnrichedPost{
			Post:               sp.Post,
			QualityScore:       sp.QualityScore,
			ExtractedTags:      extracted,
			ReadingTimeSeconds: ReadingTime(sp.Post.Explanation, sp.Post.Code),
			Prerequisites:      Prerequisites(all, sp.Post.Language, sp.Post.Difficulty),
			UpdatedAt:          now,
		}
		stats.ExtractedTags += len(extracted)
	}

	ids := make([]string, len(enriched))
	tags := make([][]string, len(enriched))
	for i, ep := range enriched {
		ids[i] = ep.Post.ID
		tags[i] = ep.AllTags()
	}
	related := RelatedPosts(ids, tags)

	totalReading := 0
	for i := range enriched {
		enriched[i].RelatedPostIDs = related[i]
		if len(related[i]) > 0 {
			stats.WithRelated++
		}
		totalReading += enriched[i].ReadingTimeSeconds
	}
	if len(enriched) > 0 {
		stats.AverageReadingTime = float64(totalReading) / float64(len(enriched))
	}

	e.logger.Info("enrichment done", "total", stats.Total, "with_related", stats.WithRelated, "extracted_tags", stats.ExtractedTags)
	return domain.EnrichmentResult{Posts: enriched, Stats: stats}
}
