package usecase

import (
	"fmt"
	"strings"
	"time"
)

// Message renders the summary as plain text for operators and notifications.
func (s Summary) Message() string {
	var b strings.Builder
	fmt.Fprintf(&b, "DevDose pipeline: %d stage(s) in %s\n", len(s.Stages), s.Elapsed.Round(time.Second))

	if d := s.Discovery; d != nil {
		fmt.Fprintf(&b, "- discovery: %d sources (%d curated, %d discovered, %d duplicates, %d topics failed)\n",
			d.Total, d.Curated, d.Discovered, d.Duplicates, d.TopicsFailed)
	}
	if e := s.Extraction; e != nil {
		fmt.Fprintf(&b, "- extraction: %d unique snippets of %d extracted (%d sources failed)\n",
			e.Unique, e.Extracted, e.SourcesFailed)
	}
	if p := s.Processing; p != nil {
		fmt.Fprintf(&b, "- processing: %d/%d succeeded in %d batches\n", p.Succeeded, p.Total, p.Batches)
	}
	if sc := s.Scoring; sc != nil {
		fmt.Fprintf(&b, "- scoring: %d approved, %d review, %d rejected, avg %.1f\n",
			sc.AutoApproved, sc.ManualReview, sc.AutoRejected, sc.AverageScore)
	}
	if en := s.Enrichment; en != nil {
		fmt.Fprintf(&b, "- enrichment: %d posts, %d with related, avg reading %.0fs\n",
			en.Total, en.WithRelated, en.AverageReadingTime)
	}
	if pub := s.Publishing; pub != nil {
		fmt.Fprintf(&b, "- publishing: %d published, %d duplicates, %d failed\n",
			pub.Published, pub.Duplicates, pub.Failed)
	}
	return strings.TrimRight(b.String(), "\n")
}
