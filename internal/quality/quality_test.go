package quality

import (
	"strings"
	"testing"

	"github.com/coding-vasu/devdose-sub000/internal/domain"
)

func lines(n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		b.WriteString("const x")
		b.WriteString(strings.Repeat("x", i))
		b.WriteString(" = 1;\n")
	}
	return b.String()
}

func words(n int) string {
	return strings.TrimSpace(strings.Repeat("word ", n))
}

func TestRejectedScenario(t *testing.T) {
	t.Parallel()

	post := domain.ProcessedPost{Code: lines(12), Explanation: words(5), SourceName: "someone/unknown"}
	v := domain.ValidationResult{IsValid: false, Warnings: []string{"w"}}

	score := Reputation{}.Score(post, v)
	want := domain.ScoreBreakdown{CodeQuality: 15, ExplanationQuality: 5, SourceReputation: 10, Uniqueness: 10}
	if score.Breakdown != want || score.Total != 40 {
		t.Fatalf("unexpected score: %+v", score)
	}
	if tier := (Thresholds{AutoApprove: 85, ManualReview: 70}).Tier(score.Total); tier != domain.TierAutoReject {
		t.Fatalf("expected auto reject, got %s", tier)
	}
}

func TestTierBoundariesAreInclusive(t *testing.T) {
	t.Parallel()

	th := Thresholds{AutoApprove: 85, ManualReview: 70}
	cases := map[int]domain.Tier{
		85:  domain.TierAutoApprove,
		100: domain.TierAutoApprove,
		84:  domain.TierManualReview,
		70:  domain.TierManualReview,
		69:  domain.TierAutoReject,
	}
	for total, want := range cases {
		if got := th.Tier(total); got != want {
			t.Fatalf("Tier(%d)=%s want %s", total, got, want)
		}
	}
}

func TestScoreBounds(t *testing.T) {
	t.Parallel()

	rep := Reputation{Official: []string{"facebook/react"}, Secondary: DefaultSecondary}
	posts := []domain.ProcessedPost{
		{Code: "", Explanation: "", Title: ""},
		{Code: lines(60), Explanation: words(150), Title: strings.Repeat("t", 80)},
		{Code: lines(20), Explanation: words(30), Title: "Hidden trick: Array.at vs length", SourceName: "facebook/react"},
		{Code: lines(5), Explanation: words(40), Title: "CSS", SourceURL: "https://developer.mozilla.org/x https://web.dev/y https://css-tricks.com"},
	}
	validations := []domain.ValidationResult{
		{IsValid: false, Warnings: []string{"a", "b", "c", "d"}},
		{IsValid: true},
	}
	for _, p := range posts {
		for _, v := range validations {
			s := rep.Score(p, v)
			b := s.Breakdown
			if b.CodeQuality < 0 || b.CodeQuality > 40 || b.ExplanationQuality < 0 || b.ExplanationQuality > 30 ||
				b.SourceReputation < 0 || b.SourceReputation > 20 || b.Uniqueness != 10 {
				t.Fatalf("breakdown out of bounds: %+v", b)
			}
			if s.Total != b.CodeQuality+b.ExplanationQuality+b.SourceReputation+b.Uniqueness || s.Total < 10 || s.Total > 100 {
				t.Fatalf("total out of bounds: %+v", s)
			}
		}
	}

	top := rep.Score(posts[2], domain.ValidationResult{IsValid: true})
	if top.Total != 100 {
		t.Fatalf("expected perfect score, got %+v", top)
	}
}

func TestSourceReputation(t *testing.T) {
	t.Parallel()

	rep := Reputation{Official: []string{"React Docs"}, Secondary: DefaultSecondary}
	if got := rep.SourceReputation("react docs", "https://react.dev"); got != 20 {
		t.Fatalf("official source: got %d", got)
	}
	if got := rep.SourceReputation("MDN", "https://developer.mozilla.org/en-US/"); got != 15 {
		t.Fatalf("secondary source: got %d", got)
	}
	if got := rep.SourceReputation("blog", "https://web.dev/css-tricks/javascript.info"); got != 20 {
		t.Fatalf("capped secondary: got %d", got)
	}
}

func TestApprovalMonotonicity(t *testing.T) {
	t.Parallel()

	var posts []domain.ProcessedPost
	for i := 0; i < 12; i++ {
		posts = append(posts, domain.ProcessedPost{
			ID:          "p",
			Code:        lines(3 + i*5),
			Language:    "javascript",
			Explanation: words(4 + i*10),
			Title:       strings.Repeat("T", i*7),
		})
	}

	prev := len(posts) + 1
	for threshold := 0; threshold <= 100; threshold += 5 {
		res := NewScorer(Reputation{}, Thresholds{AutoApprove: 100, ManualReview: threshold}, nil).Score(posts)
		approved := len(res.Approved())
		if approved > prev {
			t.Fatalf("approved count grew from %d to %d at threshold %d", prev, approved, threshold)
		}
		prev = approved
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		code     string
		lang     string
		valid    bool
		warnings int
	}{
		{"js ok", "const a = [1, 2].map((x) => x * 2);\nexport default a;", "javascript", true, 0},
		{"js var", "var a = 1;\nconsole.log(a);", "javascript", true, 2},
		{"js syntax error", "const = ;", "javascript", false, 0},
		{"jsx", "const App = () => <div className=\"a\">hi</div>;", "jsx", true, 0},
		{"ts", "interface P { name: string }\nconst p: P = { name: 'x' };", "typescript", true, 0},
		{"tsx", "const C = (p: { n: number }) => <span>{p.n}</span>;", "tsx", true, 0},
		{"css ok", ".a {\n  color: red; /* } */\n}", "css", true, 0},
		{"css unbalanced", ".a {\n  color: red;\n", "css", false, 0},
		{"html ok", "<ul>\n  <li>one\n  <li>two<br>\n</ul>\n<img src=x />", "html", true, 0},
		{"html unclosed", "<div><span>hi</span>", "html", false, 0},
		{"unknown", "fn main() {", "rust", true, 0},
	}
	for _, tc := range cases {
		res := Validate(tc.code, tc.lang)
		if res.IsValid != tc.valid {
			t.Fatalf("%s: IsValid=%v want %v (errors %v)", tc.name, res.IsValid, tc.valid, res.Errors)
		}
		if tc.valid && len(res.Warnings) != tc.warnings {
			t.Fatalf("%s: warnings %v, want %d", tc.name, res.Warnings, tc.warnings)
		}
	}
}

func TestEngagementTitlesMatchWholeWords(t *testing.T) {
	t.Parallel()

	short := words(5) // 30 - 15 leaves room for the bonus
	cases := map[string]int{
		"map vs forEach":            20,
		"Array.at vs. length":       20,
		"Hidden gems of CSS":        20,
		"Pro Tip: use at()":         20,
		"Three tricks with reduce":  20,
		"Setting up vscode":         15,
		"Tricky closures":           15,
		"Secretary pattern in JS":   15,
		"Unhidden fields in a form": 15,
	}
	for title, want := range cases {
		if got := ExplanationQuality(title, short); got != want {
			t.Fatalf("ExplanationQuality(%q) = %d, want %d", title, got, want)
		}
	}
}
