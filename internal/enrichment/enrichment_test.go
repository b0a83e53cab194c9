package enrichment

import (
	"reflect"
	"testing"
	"time"

	"github.com/coding-vasu/devdose-sub000/internal/domain"
)

func TestExtractTags(t *testing.T) {
	t.Parallel()

	code := "function Counter() {\n  const [n, setN] = useState(0);\n  useEffect(() => {}, [n]);\n  return n;\n}"
	got := ExtractTags(code)
	want := []string{"react", "hooks", "usestate", "useeffect", "arrow-functions", "destructuring"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ExtractTags=%v want %v", got, want)
	}

	css := ".layout {\n  --gap: 1rem;\n  display: grid;\n  gap: var(--gap);\n}"
	got = ExtractTags(css)
	want = []string{"css-grid", "css-variables"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ExtractTags(css)=%v want %v", got, want)
	}
}

func TestReadingTime(t *testing.T) {
	t.Parallel()

	// 20 words at 200 wpm is 6s, 3 lines is 6s.
	if got := ReadingTime("a b c d e f g h i j k l m n o p q r s t", "a\nb\nc\n"); got != 12 {
		t.Fatalf("ReadingTime=%d want 12", got)
	}
	// 11 words is 3.3s, rounded up with 2s of code.
	if got := ReadingTime("a b c d e f g h i j k", "x"); got != 6 {
		t.Fatalf("ReadingTime=%d want 6", got)
	}
}

func TestPrerequisites(t *testing.T) {
	t.Parallel()

	got := Prerequisites([]string{"React", "hooks"}, "jsx", domain.DifficultyAdvanced)
	want := []string{"JavaScript", "React basics", "React Hooks"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("advanced react: %v", got)
	}
	got = Prerequisites([]string{"react", "classes"}, "javascript", domain.DifficultyBeginner)
	want = []string{"JavaScript", "React basics"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("beginner react: %v", got)
	}
	if got := Prerequisites([]string{"typescript"}, "typescript", domain.DifficultyIntermediate); !reflect.DeepEqual(got, []string{"JavaScript"}) {
		t.Fatalf("typescript: %v", got)
	}
}

func TestRelatedPostsScenario(t *testing.T) {
	t.Parallel()

	ids := []string{"a", "b", "c"}
	tags := [][]string{
		{"react", "hooks", "state"},
		{"React", "hooks", "state", "forms"},
		{"css"},
	}
	related := RelatedPosts(ids, tags)
	if !reflect.DeepEqual(related[0], []string{"b"}) || !reflect.DeepEqual(related[1], []string{"a"}) {
		t.Fatalf("a and b must link each other: %v", related)
	}
	if len(related[2]) != 0 {
		t.Fatalf("isolated post must have no related posts: %v", related[2])
	}
}

func TestRelatedPostsRanksAndCaps(t *testing.T) {
	t.Parallel()

	ids := []string{"p0", "p1", "p2", "p3", "p4"}
	tags := [][]string{
		{"a", "b", "c"},
		{"a"},
		{"a", "b"},
		{"a", "b", "c"},
		{"a"},
	}
	related := RelatedPosts(ids, tags)
	if want := []string{"p3", "p2", "p1"}; !reflect.DeepEqual(related[0], want) {
		t.Fatalf("related[0]=%v want %v", related[0], want)
	}
}

func TestEnrichLinksBatch(t *testing.T) {
	t.Parallel()

	post := func(id, code string, tags ...string) domain.ScoredPost {
		return domain.ScoredPost{Post: domain.ProcessedPost{
			ID:          id,
			Code:        code,
			Language:    "javascript",
			Explanation: "one two three four five six seven eight nine ten",
			Difficulty:  domain.DifficultyIntermediate,
			Tags:        tags,
		}, Approved: true}
	}
	e := NewEnricher(nil)
	e.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }

	res := e.Enrich([]domain.ScoredPost{
		post("x", "const [a] = useState(1);", "state"),
		post("y", "const [b] = useState(2);"),
		post("z", ".a { color: red; }", "css"),
	})

	if res.Stats.Total != 3 || res.Stats.WithRelated != 2 {
		t.Fatalf("unexpected stats: %+v", res.Stats)
	}
	if !reflect.DeepEqual(res.Posts[0].RelatedPostIDs, []string{"y"}) {
		t.Fatalf("x should relate to y through extracted tags: %v", res.Posts[0].RelatedPostIDs)
	}
	if !res.Posts[2].UpdatedAt.Equal(e.now()) || res.Posts[2].ReadingTimeSeconds <= 0 {
		t.Fatalf("unexpected enrichment: %+v", res.Posts[2])
	}
	if err := (domain.EnrichmentResult{Posts: res.Posts}).Validate(); err == nil {
		t.Fatalf("posts without titles must not validate")
	}
}
