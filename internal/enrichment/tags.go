package enrichment

import (
	"regexp"
	"strings"
)

type tagRule struct {
	expr *regexp.Regexp
	tags []string
	// capture adds the first submatch of every match as a tag.
	capture bool
}

var tagRules = []tagRule{
	{expr: regexp.MustCompile(`\b(use(?:State|Effect|Memo|Callback|Ref|Context|Reducer|LayoutEffect|Transition|DeferredValue|Id|SyncExternalStore|Optimistic|ActionState))\b`), tags: []string{"react", "hooks"}, capture: true},
	{expr: regexp.MustCompile(`\b(ref|reactive|computed|watchEffect|watch|defineProps|defineEmits)\(`), tags: []string{"vue", "reactivity"}},
	{expr: regexp.MustCompile(`@(Component|Injectable|NgModule|Input|Output|Directive|Pipe)\(`), tags: []string{"angular", "decorators"}},
	{expr: regexp.MustCompile(`display\s*:\s*(inline-)?grid|grid-template`), tags: []string{"css-grid"}},
	{expr: regexp.MustCompile(`display\s*:\s*(inline-)?flex|flex-direction|justify-content`), tags: []string{"flexbox"}},
	{expr: regexp.MustCompile(`@container|container-type`), tags: []string{"container-queries"}},
	{expr: regexp.MustCompile(`(?m)var\(--|^\s*--[\w-]+\s*:`), tags: []string{"css-variables"}},
	{expr: regexp.MustCompile(`@media`), tags: []string{"media-queries"}},
	{expr: regexp.MustCompile(`\basync\b|\bawait\b|\bPromise\b`), tags: []string{"async"}},
	{expr: regexp.MustCompile(`\.(map|filter|reduce|find|some|every|flatMap)\(`), tags: []string{"array-methods"}},
	{expr: regexp.MustCompile(`\bclass\s+[A-Z]\w*`), tags: []string{"classes"}},
	{expr: regexp.MustCompile(`=>`), tags: []string{"arrow-functions"}},
	{expr: regexp.MustCompile(`\b(const|let|var)\s*[{\[]`), tags: []string{"destructuring"}},
}

// ExtractTags detects ecosystem features and generic concepts in code.
// Tags are returned lowercased in rule order without repeats.
func ExtractTags(code string) []string {
	seen := map[string]bool{}
	var out []string
	add := func(tag string) {
		tag = strings.ToLower(tag)
		if !seen[tag] {
			seen[tag] = true
			out = append(out, tag)
		}
	}
	for _, rule := range tagRules {
		matches := rule.expr.FindAllStringSubmatch(code, -1)
		if len(matches) == 0 {
			continue
		}
		for _, tag := range rule.tags {
			add(tag)
		}
		if rule.capture {
			for _, m := range matches {
				add(m[1])
			}
		}
	}
	return out
}
