package discovery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/coding-vasu/devdose-sub000/internal/config"
	"github.com/coding-vasu/devdose-sub000/internal/domain"
	"github.com/coding-vasu/devdose-sub000/internal/logging"
	"github.com/coding-vasu/devdose-sub000/internal/ports"
	"github.com/coding-vasu/devdose-sub000/internal/retry"
)

// GoodDocsBytes is the README size from which a repository counts as well documented.
const GoodDocsBytes = 1000

var examplePaths = []string{"examples", "example"}

// Discoverer searches the code host per topic and merges the hits with curated sources.
type Discoverer struct {
	host    ports.CodeHost
	curated []domain.Source
	cfg     config.DiscoveryConfig
	policy  retry.Policy
	logger  *slog.Logger
	now     func() time.Time
}

// NewDiscoverer wires the code host with the curated catalog.
func NewDiscoverer(host ports.CodeHost, curated []domain.Source, cfg config.DiscoveryConfig, policy retry.Policy, log *slog.Logger) *Discoverer {
	return &Discoverer{
		host:    host,
		curated: curated,
		cfg:     cfg,
		policy:  policy,
		logger:  logging.Or(log).With("component", "discovery"),
		now:     time.Now,
	}
}

type search struct {
	topic   string
	query   string
	srcType domain.SourceType
}

// Query builds the repository search for one topic.
func Query(topic string, minStars int, cutoff time.Time) string {
	return fmt.Sprintf("topic:%s stars:>%d pushed:>%s", topic, minStars, cutoff.Format("2006-01-02"))
}

// Priority scores a repository from popularity and content signals, 1..10.
func Priority(stars int, hasGoodDocs, hasExamples bool) int {
	p := 5
	switch {
	case stars > 50000:
		p += 3
	case stars > 10000:
		p += 2
	case stars > 5000:
		p++
	}
	if hasGoodDocs {
		p++
	}
	if hasExamples {
		p++
	}
	if p > 10 {
		p = 10
	}
	return p
}

// Discover runs every topic search concurrently. A failing topic contributes nothing.
func (d *Discoverer) Discover(ctx context.Context) (domain.DiscoveryResult, error) {
	cutoff := d.now().AddDate(0, -d.cfg.ActivityMonths, 0)

	var searches []search
	for _, topic := range d.cfg.Topics {
		searches = append(searches, search{topic: topic, query: Query(topic, d.cfg.MinStars, cutoff), srcType: domain.SourceGitHub})
		if d.cfg.IncludeAwesomeLists {
			searches = append(searches, search{
				topic:   topic,
				query:   fmt.Sprintf("awesome-%s in:name stars:>%d", topic, d.cfg.MinStars),
				srcType: domain.SourceAwesome,
			})
		}
	}

	found := make([][]domain.Source, len(searches))
	var (
		mu     sync.Mutex
		failed = map[string]bool{}
	)

	g, gctx := errgroup.WithContext(ctx)
	for i, s := range searches {
		g.Go(func() error {
			sources, err := d.searchTopic(gctx, s)
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return err
				}
				d.logger.Warn("topic search failed", "topic", s.topic, "query", s.query, "error", err)
				mu.Lock()
				failed[s.topic] = true
				mu.Unlock()
				return nil
			}
			found[i] = sources
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return domain.DiscoveryResult{}, fmt.Errorf("discover: %w", err)
	}

	stats := domain.DiscoveryStats{
		TopicsSearched: len(d.cfg.Topics),
		TopicsFailed:   len(failed),
		ByTopic:        map[string]int{},
	}

	seen := map[string]bool{}
	var merged []domain.Source
	for _, src := range d.curated {
		key := strings.ToLower(src.FullName())
		if seen[key] {
			stats.Duplicates++
			continue
		}
		seen[key] = true
		merged = append(merged, src)
		stats.Curated++
	}
	for i, sources := range found {
		for _, src := range sources {
			key := strings.ToLower(src.FullName())
			if seen[key] {
				stats.Duplicates++
				continue
			}
			seen[key] = true
			merged = append(merged, src)
			stats.Discovered++
			stats.ByTopic[searches[i].topic]++
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Priority > merged[j].Priority
	})
	stats.Total = len(merged)

	d.logger.Info("discovery done",
		"curated", stats.Curated,
		"discovered", stats.Discovered,
		"duplicates", stats.Duplicates,
		"topics_failed", stats.TopicsFailed)

	return domain.DiscoveryResult{Sources: merged, Stats: stats}, nil
}

func (d *Discoverer) searchTopic(ctx context.Context, s search) ([]domain.Source, error) {
	repos, err := retry.Value(ctx, d.policy, func(ctx context.Context) ([]domain.Repository, error) {
		return d.host.SearchRepositories(ctx, s.query, d.cfg.MaxResultsPerTopic)
	})
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", s.query, err)
	}

	d.logger.Debug("topic searched", "topic", s.topic, "repos", len(repos))

	sources := make([]domain.Source, 0, len(repos))
	for _, repo := range repos {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		sources = append(sources, d.annotate(ctx, s, repo))
	}
	return sources, nil
}

func (d *Discoverer) annotate(ctx context.Context, s search, repo domain.Repository) domain.Source {
	goodDocs := d.hasGoodDocs(ctx, repo)
	examples := d.hasExamples(ctx, repo)
	now := d.now()

	return domain.Source{
		Type:        s.srcType,
		Name:        repo.FullName,
		URL:         repo.HTMLURL,
		Tags:        domain.MergeTags([]string{s.topic}, repo.Topics),
		Priority:    Priority(repo.Stars, goodDocs, examples),
		LastChecked: &now,
		GitHub: &domain.GitHubInfo{
			Owner:       repo.Owner,
			Repo:        repo.Name,
			Stars:       repo.Stars,
			Forks:       repo.Forks,
			Language:    repo.Language,
			LastPushed:  repo.PushedAt,
			HasExamples: examples,
			HasGoodDocs: goodDocs,
		},
	}
}

func (d *Discoverer) hasGoodDocs(ctx context.Context, repo domain.Repository) bool {
	readme, err := retry.Value(ctx, d.policy, func(ctx context.Context) (ports.Readme, error) {
		return d.host.Readme(ctx, repo.Owner, repo.Name)
	})
	if err != nil {
		if !errors.Is(err, ports.ErrNotFound) {
			d.logger.Debug("readme check failed", "repo", repo.FullName, "error", err)
		}
		return false
	}
	size := readme.Size
	if size == 0 {
		size = len(readme.Content)
	}
	return size >= GoodDocsBytes
}

func (d *Discoverer) hasExamples(ctx context.Context, repo domain.Repository) bool {
	for _, path := range examplePaths {
		entries, err := retry.Value(ctx, d.policy, func(ctx context.Context) ([]ports.ContentEntry, error) {
			return d.host.ListDirectory(ctx, repo.Owner, repo.Name, path)
		})
		if err == nil && len(entries) > 0 {
			return true
		}
		if err != nil && !errors.Is(err, ports.ErrNotFound) {
			d.logger.Debug("examples check failed", "repo", repo.FullName, "path", path, "error", err)
		}
	}
	return false
}
