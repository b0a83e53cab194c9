package docs

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/coding-vasu/devdose-sub000/internal/domain"
	"github.com/coding-vasu/devdose-sub000/internal/scanner"
)

const page = `<html><body>
<h1>Promises</h1>
<p>Intro</p>
<h2>Chaining</h2>
<pre><code class="language-js">fetch(url)
  .then((res) => res.json())
  .then((data) => console.log(data));
</code></pre>
<h2>Too short</h2>
<pre><code class="language-js">go();</code></pre>
<h2>Grid</h2>
<div><pre class="brush lang-css">.grid {
  display: grid;
  gap: 1rem;
}</pre></div>
<h2>Python</h2>
<pre><code class="language-python">def a():
    pass
    return 1</code></pre>
</body></html>`

func filter() scanner.Filter {
	return scanner.Filter{MinLines: 3, MaxLines: 15, Languages: []string{"javascript", "css"}}
}

func TestScanExtractsBlocksWithHeadings(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, page)
	}))
	defer server.Close()

	s := NewScraper(server.Client(), Options{MinDelay: time.Millisecond}, nil)
	src := domain.Source{Type: domain.SourceDocs, Name: "MDN", URL: server.URL + "/promises", Priority: 9}

	snippets, err := s.Scan(context.Background(), src, filter())
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(snippets) != 2 {
		t.Fatalf("expected 2 snippets, got %d: %+v", len(snippets), snippets)
	}
	if snippets[0].Language != "javascript" || snippets[0].Metadata.Context != "Chaining" {
		t.Fatalf("unexpected first snippet: %+v", snippets[0])
	}
	if snippets[1].Language != "css" || snippets[1].Metadata.Context != "Grid" {
		t.Fatalf("unexpected second snippet: %+v", snippets[1])
	}
	if snippets[0].Hash == "" || snippets[0].Metadata.SourceURL != src.URL {
		t.Fatalf("metadata not populated: %+v", snippets[0])
	}
}

func TestScanUsesCacheUntilExpired(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		fmt.Fprint(w, page)
	}))
	defer server.Close()

	dir := t.TempDir()
	s := NewScraper(server.Client(), Options{CacheDir: dir, CacheTTL: time.Hour, MinDelay: time.Millisecond}, nil)
	src := domain.Source{Type: domain.SourceDocs, Name: "MDN", URL: server.URL + "/grid", Priority: 8}

	for i := 0; i < 2; i++ {
		if _, err := s.Scan(context.Background(), src, filter()); err != nil {
			t.Fatalf("Scan #%d: %v", i, err)
		}
	}
	if hits.Load() != 1 {
		t.Fatalf("expected one fetch with cache, got %d", hits.Load())
	}
	if _, err := os.Stat(s.CachePath(src.URL)); err != nil {
		t.Fatalf("cache file missing: %v", err)
	}

	s.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	if _, err := s.Scan(context.Background(), src, filter()); err != nil {
		t.Fatalf("Scan after expiry: %v", err)
	}
	if hits.Load() != 2 {
		t.Fatalf("expected refetch after ttl, got %d", hits.Load())
	}
}

func TestScanReportsHTTPFailure(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	s := NewScraper(server.Client(), Options{MinDelay: time.Millisecond}, nil)
	src := domain.Source{Type: domain.SourceDocs, Name: "gone", URL: server.URL + "/missing", Priority: 5}
	if _, err := s.Scan(context.Background(), src, filter()); err == nil {
		t.Fatalf("expected error for 404 page")
	}
}
