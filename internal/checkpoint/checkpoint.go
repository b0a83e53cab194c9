package checkpoint

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Stage names a pipeline step; each stage owns exactly one checkpoint.
type Stage string

const (
	StageDiscovery  Stage = "discovery"
	StageExtraction Stage = "extraction"
	StageProcessing Stage = "processing"
	StageScoring    Stage = "scoring"
	StageEnrichment Stage = "enrichment"
	StagePublishing Stage = "publishing"
)

// Order is the strict stage sequence.
var Order = []Stage{
	StageDiscovery,
	StageExtraction,
	StageProcessing,
	StageScoring,
	StageEnrichment,
	StagePublishing,
}

// Previous returns the stage whose checkpoint feeds s.
func (s Stage) Previous() (Stage, bool) {
	for i, st := range Order {
		if st == s && i > 0 {
			return Order[i-1], true
		}
	}
	return "", false
}

// ParseStage resolves a stage name.
func ParseStage(name string) (Stage, error) {
	for _, st := range Order {
		if string(st) == name {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown stage %q", name)
}

// Version is bumped whenever a payload shape changes incompatibly.
const Version = 1

// ErrMissing is returned when a stage has no checkpoint yet.
var ErrMissing = errors.New("checkpoint missing")

// Validator is implemented by every stage payload.
type Validator interface {
	Validate() error
}

type envelope struct {
	Stage     Stage           `json:"stage"`
	Version   int             `json:"version"`
	CreatedAt time.Time       `json:"createdAt"`
	Payload   json.RawMessage `json:"payload"`
}

// Store keeps one JSON file per stage under dir.
type Store struct {
	dir string
	now func() time.Time
}

// NewStore creates dir if needed.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		dir = "data/checkpoints"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create checkpoint dir: %w", err)
	}
	return &Store{dir: dir, now: time.Now}, nil
}

// Path is the default file for stage.
func (s *Store) Path(stage Stage) string {
	return filepath.Join(s.dir, string(stage)+".json")
}

// Save writes the stage payload to its default path.
func Save[T Validator](s *Store, stage Stage, payload T) error {
	return WriteFile(s.Path(stage), stage, payload, s.now())
}

// Load reads and validates the stage payload from its default path.
func Load[T Validator](s *Store, stage Stage) (T, error) {
	return ReadFile[T](s.Path(stage), stage)
}

// WriteFile atomically writes payload wrapped in a stage envelope.
func WriteFile[T Validator](path string, stage Stage, payload T, createdAt time.Time) error {
	if err := payload.Validate(); err != nil {
		return fmt.Errorf("refuse to write invalid %s checkpoint: %w", stage, err)
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", stage, err)
	}
	data, err := json.MarshalIndent(envelope{
		Stage:     stage,
		Version:   Version,
		CreatedAt: createdAt.UTC(),
		Payload:   raw,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s envelope: %w", stage, err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create checkpoint dir: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename %s: %w", tmp, err)
	}
	return nil
}

// ReadFile decodes a checkpoint, rejecting a foreign stage, version, or invalid payload.
func ReadFile[T Validator](path string, stage Stage) (T, error) {
	var zero T

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return zero, fmt.Errorf("%s checkpoint %s: %w", stage, path, ErrMissing)
		}
		return zero, fmt.Errorf("read %s: %w", path, err)
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return zero, fmt.Errorf("decode %s: %w", path, err)
	}
	if env.Stage != stage {
		return zero, fmt.Errorf("%s holds a %q checkpoint, want %q", path, env.Stage, stage)
	}
	if env.Version != Version {
		return zero, fmt.Errorf("%s checkpoint version %d, want %d", stage, env.Version, Version)
	}

	var payload T
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		return zero, fmt.Errorf("decode %s payload: %w", stage, err)
	}
	if err := payload.Validate(); err != nil {
		return zero, fmt.Errorf("invalid %s checkpoint: %w", stage, err)
	}
	return payload, nil
}
