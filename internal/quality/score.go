package quality

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/coding-vasu/devdose-sub000/internal/domain"
	"github.com/coding-vasu/devdose-sub000/internal/logging"
)

const (
	MaxCodeQuality        = 40
	MaxExplanationQuality = 30
	MaxSourceReputation   = 20
	Uniqueness            = 10

	baseReputation = 10
)

var engagement = regexp.MustCompile(`(?i)\b(vs|hidden|pro tips?|secrets?|tricks?)\b`)

// Reputation holds the official allow-list and the secondary high-quality markers.
type Reputation struct {
	Official  []string
	Secondary []string
}

// DefaultSecondary are substrings of well-regarded community sources.
var DefaultSecondary = []string{
	"developer.mozilla.org",
	"web.dev",
	"css-tricks",
	"javascript.info",
	"kentcdodds",
	"joshwcomeau",
	"smashingmagazine",
	"patterns.dev",
}

// Score computes the deterministic weighted score of a post.
func (r Reputation) Score(post domain.ProcessedPost, v domain.ValidationResult) domain.QualityScore {
	b := domain.ScoreBreakdown{
		CodeQuality:        CodeQuality(post.Code, v),
		ExplanationQuality: ExplanationQuality(post.Title, post.Explanation),
		SourceReputation:   r.SourceReputation(post.SourceName, post.SourceURL),
		Uniqueness:         Uniqueness,
	}
	return domain.QualityScore{
		Total:     b.CodeQuality + b.ExplanationQuality + b.SourceReputation + b.Uniqueness,
		Breakdown: b,
	}
}

// CodeQuality starts at 40 and subtracts for invalid syntax, warnings and size.
func CodeQuality(code string, v domain.ValidationResult) int {
	score := MaxCodeQuality
	if !v.IsValid {
		score -= 20
	}
	score -= min(5*len(v.Warnings), 10)

	lines := lineCount(code)
	switch {
	case lines < 10:
		score -= 5
	case lines > 50:
		score -= 10
	}
	return max(score, 0)
}

// ExplanationQuality starts at 30 and rewards short, engaging titles.
func ExplanationQuality(title, explanation string) int {
	score := MaxExplanationQuality
	words := len(strings.Fields(explanation))
	switch {
	case words < 10:
		score -= 15
	case words > 100:
		score -= 10
	}

	title = strings.TrimSpace(title)
	if title == "" {
		score -= 10
	} else if len([]rune(title)) > domain.MaxTitleLength {
		score -= 5
	}
	if engagement.MatchString(title) {
		score += 5
	}
	return min(max(score, 0), MaxExplanationQuality)
}

// SourceReputation is 20 for official sources, otherwise 10 plus 5 per secondary marker.
func (r Reputation) SourceReputation(name, url string) int {
	for _, official := range r.Official {
		if strings.EqualFold(official, name) {
			return MaxSourceReputation
		}
	}
	score := baseReputation
	haystack := strings.ToLower(name + " " + url)
	for _, marker := range r.Secondary {
		if strings.Contains(haystack, strings.ToLower(marker)) {
			score += 5
		}
	}
	return min(score, MaxSourceReputation)
}

func lineCount(code string) int {
	trimmed := strings.TrimRight(code, "\n")
	if trimmed == "" {
		return 0
	}
	return strings.Count(trimmed, "\n") + 1
}

// Thresholds are the inclusive lower bounds of the approval tiers.
type Thresholds struct {
	AutoApprove  int
	ManualReview int
}

// Tier classifies a total score.
func (t Thresholds) Tier(total int) domain.Tier {
	switch {
	case total >= t.AutoApprove:
		return domain.TierAutoApprove
	case total >= t.ManualReview:
		return domain.TierManualReview
	default:
		return domain.TierAutoReject
	}
}

// Scorer validates, scores and classifies processed posts.
type Scorer struct {
	reputation Reputation
	thresholds Thresholds
	logger     *slog.Logger
}

// NewScorer builds the scoring stage.
func NewScorer(rep Reputation, th Thresholds, log *slog.Logger) *Scorer {
	return &Scorer{
		reputation: rep,
		thresholds: th,
		logger:     logging.Or(log).With("component", "quality"),
	}
}

// Score classifies every post. Rejected posts stay in the result with Approved=false.
func (s *Scorer) Score(posts []domain.ProcessedPost) domain.ScoringResult {
	stats := domain.ScoringStats{Total: len(posts)}
	scored := make([]domain.ScoredPost, 0, len(posts))
	sum := 0

	for _, post := range posts {
		v := Validate(post.Code, post.Language)
		score := s.reputation.Score(post, v)
		tier := s.thresholds.Tier(score.Total)

		switch tier {
		case domain.TierAutoApprove:
			stats.AutoApproved++
		case domain.TierManualReview:
			stats.ManualReview++
		default:
			stats.AutoRejected++
		}
		if !v.IsValid {
			stats.InvalidCode++
			s.logger.Debug("invalid code", "post", post.ID, "language", post.Language, "errors", v.Errors)
		}
		sum += score.Total

		scored = append(scored, domain.ScoredPost{
			Post:             post,
			QualityScore:     score,
			ValidationResult: v,
			Tier:             tier,
			Approved:         score.Total >= s.thresholds.ManualReview,
		})
	}
	if len(posts) > 0 {
		stats.AverageScore = float64(sum) / float64(len(posts))
	}

	s.logger.Info("scoring done",
		"total", stats.Total,
		"auto_approved", stats.AutoApproved,
		"manual_review", stats.ManualReview,
		"auto_rejected", stats.AutoRejected,
		"average", stats.AverageScore)

	return domain.ScoringResult{Posts: scored, Stats: stats}
}
