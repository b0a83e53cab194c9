package domain

import "fmt"

// DiscoveryStats summarizes a discovery run.
type DiscoveryStats struct {
	TopicsSearched int            `json:"topicsSearched"`
	TopicsFailed   int            `json:"topicsFailed"`
	Curated        int            `json:"curated"`
	Discovered     int            `json:"discovered"`
	Duplicates     int            `json:"duplicates"`
	Total          int            `json:"total"`
	ByTopic        map[string]int `json:"byTopic"`
}

// DiscoveryResult is the discovery checkpoint payload.
type DiscoveryResult struct {
	Sources []Source       `json:"sources"`
	Stats   DiscoveryStats `json:"stats"`
}

// Validate checks every source at the stage boundary.
func (r DiscoveryResult) Validate() error {
	for i, src := range r.Sources {
		if err := src.Validate(); err != nil {
			return fmt.Errorf("sources[%d]: %w", i, err)
		}
	}
	return nil
}

// ExtractionStats summarizes an extraction run.
type ExtractionStats struct {
	Sources       int            `json:"sources"`
	SourcesFailed int            `json:"sourcesFailed"`
	Extracted     int            `json:"extracted"`
	Duplicates    int            `json:"duplicates"`
	Unique        int            `json:"unique"`
	ByLanguage    map[string]int `json:"byLanguage"`
}

// ExtractionResult is the extraction checkpoint payload.
type ExtractionResult struct {
	Snippets []CodeSnippet   `json:"snippets"`
	Stats    ExtractionStats `json:"stats"`
}

// Validate checks every snippet at the stage boundary.
func (r ExtractionResult) Validate() error {
	for i, s := range r.Snippets {
		if err := s.Validate(); err != nil {
			return fmt.Errorf("snippets[%d]: %w", i, err)
		}
	}
	return nil
}

// ProcessingStats summarizes a processing run.
type ProcessingStats struct {
	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Batches   int `json:"batches"`
}

// ProcessingResult is the processing checkpoint payload.
type ProcessingResult struct {
	Posts []ProcessedPost `json:"posts"`
	Stats ProcessingStats `json:"stats"`
}

// Validate re-applies the schema gate to every post.
func (r ProcessingResult) Validate() error {
	for i, p := range r.Posts {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("posts[%d]: %w", i, err)
		}
	}
	return nil
}

// ScoringStats summarizes a scoring run.
type ScoringStats struct {
	Total        int     `json:"total"`
	AutoApproved int     `json:"autoApproved"`
	ManualReview int     `json:"manualReview"`
	AutoRejected int     `json:"autoRejected"`
	InvalidCode  int     `json:"invalidCode"`
	AverageScore float64 `json:"averageScore"`
}

// ScoringResult is the scoring checkpoint payload. Rejected posts are kept for audit.
type ScoringResult struct {
	Posts []ScoredPost `json:"posts"`
	Stats ScoringStats `json:"stats"`
}

// Approved returns the posts at or above the manual review threshold.
func (r ScoringResult) Approved() []ScoredPost {
	var out []ScoredPost
	for _, p := range r.Posts {
		if p.Approved {
			out = append(out, p)
		}
	}
	return out
}

// Validate checks posts and score bounds.
func (r ScoringResult) Validate() error {
	for i, sp := range r.Posts {
		if err := sp.Post.Validate(); err != nil {
			return fmt.Errorf("posts[%d]: %w", i, err)
		}
		if sp.QualityScore.Total < 0 || sp.QualityScore.Total > 100 {
			return fmt.Errorf("posts[%d]: total %d out of range", i, sp.QualityScore.Total)
		}
	}
	return nil
}

// EnrichmentStats summarizes an enrichment run.
type EnrichmentStats struct {
	Total              int     `json:"total"`
	WithRelated        int     `json:"withRelated"`
	AverageReadingTime float64 `json:"averageReadingTime"`
	ExtractedTags      int     `json:"extractedTags"`
}

// EnrichmentResult is the enrichment checkpoint payload.
type EnrichmentResult struct {
	Posts []EnrichedPost  `json:"posts"`
	Stats EnrichmentStats `json:"stats"`
}

// Validate checks every enriched post.
func (r EnrichmentResult) Validate() error {
	for i, ep := range r.Posts {
		if err := ep.Post.Validate(); err != nil {
			return fmt.Errorf("posts[%d]: %w", i, err)
		}
		if ep.ReadingTimeSeconds <= 0 {
			return fmt.Errorf("posts[%d]: reading time not computed", i)
		}
	}
	return nil
}

// PublishResult counts the outcome of a publish run.
type PublishResult struct {
	Published  int `json:"published"`
	Failed     int `json:"failed"`
	Duplicates int `json:"duplicates"`
}

// Validate accepts any counts; publishing is the terminal stage.
func (r PublishResult) Validate() error {
	if r.Published < 0 || r.Failed < 0 || r.Duplicates < 0 {
		return fmt.Errorf("negative publish counters")
	}
	return nil
}
