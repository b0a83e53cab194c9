package app

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/coding-vasu/devdose-sub000/internal/checkpoint"
	"github.com/coding-vasu/devdose-sub000/internal/config"
	"github.com/coding-vasu/devdose-sub000/internal/domain"
	"github.com/coding-vasu/devdose-sub000/internal/logging"
)

const cloneState = `function cloneState(original) {
  const copy = structuredClone(original);
  copy.meta = {
    clonedAt: new Date(),
    source: 'state',
  };
  copy.items = copy.items.map((item) => ({
    ...item,
    selected: false,
  }));
  return copy;
}`

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg, err := config.Parse(nil)
	if err != nil {
		t.Fatalf("parse defaults: %v", err)
	}
	dir := t.TempDir()
	cfg.Checkpoints.Dir = filepath.Join(dir, "checkpoints")
	cfg.Database.Driver = "sqlite"
	cfg.Database.DSN = filepath.Join(dir, "devdose.db")
	cfg.GitHub.Token = ""
	cfg.LLM.APIKey = ""
	return cfg
}

func TestStagesRefuseToRunWithoutCredentials(t *testing.T) {
	t.Parallel()

	a := New(testConfig(t), logging.Discard())
	defer a.Close()

	if _, err := a.RunStage(context.Background(), checkpoint.StageDiscovery); err == nil || !strings.Contains(err.Error(), "GITHUB_TOKEN") {
		t.Fatalf("expected github precondition failure, got %v", err)
	}
	if _, err := a.RunStage(context.Background(), checkpoint.StageProcessing); err == nil || !strings.Contains(err.Error(), "LLM_API_KEY") {
		t.Fatalf("expected llm precondition failure, got %v", err)
	}
}

func TestScoringAndEnrichmentRunOffline(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	store, err := checkpoint.NewStore(cfg.Checkpoints.Dir)
	if err != nil {
		t.Fatalf("checkpoint store: %v", err)
	}

	post := domain.ProcessedPost{
		ID:           "p1",
		Title:        "Pro Tip: structuredClone",
		Explanation:  "structuredClone copies nested objects, maps and dates without the pitfalls of JSON round trips.",
		Difficulty:   domain.DifficultyIntermediate,
		Category:     domain.CategoryWebAPIs,
		Tags:         []string{"javascript", "web-apis"},
		QualityScore: 85,
		Code:         cloneState,
		Language:     "javascript",
		SourceName:   "facebook/react",
		SourceType:   domain.SourceGitHub,
		ProcessedAt:  time.Now().UTC(),
	}
	if err := checkpoint.Save(store, checkpoint.StageProcessing, domain.ProcessingResult{Posts: []domain.ProcessedPost{post}}); err != nil {
		t.Fatalf("seed checkpoint: %v", err)
	}

	a := New(cfg, logging.Discard())
	defer a.Close()

	sum, err := a.RunStage(context.Background(), checkpoint.StageScoring)
	if err != nil {
		t.Fatalf("scoring: %v", err)
	}
	if sum.Scoring == nil || sum.Scoring.Total != 1 || sum.Scoring.AutoApproved != 1 {
		t.Fatalf("unexpected scoring stats %+v", sum.Scoring)
	}

	sum, err = a.RunStage(context.Background(), checkpoint.StageEnrichment)
	if err != nil {
		t.Fatalf("enrichment: %v", err)
	}
	if sum.Enrichment == nil || sum.Enrichment.Total != 1 {
		t.Fatalf("unexpected enrichment stats %+v", sum.Enrichment)
	}
}

func TestMigrateAndPublishToSQLite(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	a := New(cfg, logging.Discard())
	defer a.Close()

	if err := a.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	store, err := checkpoint.NewStore(cfg.Checkpoints.Dir)
	if err != nil {
		t.Fatalf("checkpoint store: %v", err)
	}
	ep := domain.EnrichedPost{
		Post: domain.ProcessedPost{
			ID:           "p1",
			Title:        "Array.at",
			Explanation:  "Array.prototype.at accepts negative indexes so the last element is simply items.at(-1).",
			Difficulty:   domain.DifficultyBeginner,
			Category:     domain.CategoryModernJS,
			Tags:         []string{"javascript"},
			QualityScore: 90,
			Code:         "const last = items.at(-1);",
			Language:     "javascript",
		},
		QualityScore:       domain.QualityScore{Total: 88},
		ReadingTimeSeconds: 8,
	}
	if err := checkpoint.Save(store, checkpoint.StageEnrichment, domain.EnrichmentResult{Posts: []domain.EnrichedPost{ep}}); err != nil {
		t.Fatalf("seed checkpoint: %v", err)
	}

	sum, err := a.RunStage(context.Background(), checkpoint.StagePublishing)
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if sum.Publishing == nil || sum.Publishing.Published != 1 {
		t.Fatalf("unexpected publish result %+v", sum.Publishing)
	}
}
