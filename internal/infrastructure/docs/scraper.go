package docs

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"

	"github.com/coding-vasu/devdose-sub000/internal/dedup"
	"github.com/coding-vasu/devdose-sub000/internal/domain"
	"github.com/coding-vasu/devdose-sub000/internal/logging"
	"github.com/coding-vasu/devdose-sub000/internal/retry"
	"github.com/coding-vasu/devdose-sub000/internal/scanner"
)

const (
	defaultTTL      = 7 * 24 * time.Hour
	defaultMinDelay = time.Second
	userAgent       = "devdose-scraper/1.0"
)

// Options tune the scraper; zero values fall back to defaults.
type Options struct {
	CacheDir string
	CacheTTL time.Duration
	MinDelay time.Duration
	Policy   retry.Policy
}

// Scraper extracts code blocks from rendered documentation pages.
type Scraper struct {
	client   *http.Client
	cacheDir string
	ttl      time.Duration
	minDelay time.Duration
	policy   retry.Policy
	logger   *slog.Logger
	now      func() time.Time

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

var _ scanner.Scanner = (*Scraper)(nil)

// NewScraper wires an HTTP client; a nil client gets a 10 second timeout.
func NewScraper(client *http.Client, opts Options, log *slog.Logger) *Scraper {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = defaultTTL
	}
	if opts.MinDelay <= 0 {
		opts.MinDelay = defaultMinDelay
	}
	return &Scraper{
		client:   client,
		cacheDir: opts.CacheDir,
		ttl:      opts.CacheTTL,
		minDelay: opts.MinDelay,
		policy:   opts.Policy,
		logger:   logging.Or(log).With("component", "docs_scraper"),
		now:      time.Now,
		limiters: map[string]*rate.Limiter{},
	}
}

// Name identifies the strategy inside the registry.
func (s *Scraper) Name() string {
	return "docs"
}

// Scan fetches the page (or its cached copy) and returns the accepted pre/code blocks.
func (s *Scraper) Scan(ctx context.Context, src domain.Source, filter scanner.Filter) ([]domain.CodeSnippet, error) {
	if src.URL == "" {
		return nil, fmt.Errorf("source %s has no url", src.Name)
	}

	page, err := s.page(ctx, src.URL)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", src.URL, err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	var (
		snippets []domain.CodeSnippet
		heading  string
	)
	doc.Find("h1, h2, h3, pre").Each(func(_ int, sel *goquery.Selection) {
		if !sel.Is("pre") {
			heading = strings.TrimSpace(sel.Text())
			return
		}
		code := sel.Find("code").First()
		if code.Length() == 0 {
			code = sel
		}
		text := strings.Trim(code.Text(), "\n")
		lang := blockLanguage(code)
		if lang == "" {
			lang = blockLanguage(sel)
		}
		if lang == "" {
			lang = scanner.DetectLanguage(text)
		}
		if !filter.Accept(lang, text) {
			return
		}
		snippets = append(snippets, domain.CodeSnippet{
			Code:     text,
			Language: lang,
			Metadata: domain.SnippetMetadata{
				SourceName: src.Name,
				SourceURL:  src.URL,
				SourceType: src.Type,
				Context:    heading,
			},
			Hash: dedup.Hash(text),
		})
	})

	s.logger.Debug("docs page scanned", "url", src.URL, "snippets", len(snippets))
	return snippets, nil
}

func blockLanguage(sel *goquery.Selection) string {
	if lang, ok := sel.Attr("data-language"); ok && lang != "" {
		return scanner.NormalizeLanguage(lang)
	}
	class, _ := sel.Attr("class")
	for _, c := range strings.Fields(class) {
		for _, prefix := range []string{"language-", "lang-"} {
			if strings.HasPrefix(c, prefix) {
				return scanner.NormalizeLanguage(strings.TrimPrefix(c, prefix))
			}
		}
	}
	return ""
}

func (s *Scraper) page(ctx context.Context, pageURL string) (string, error) {
	if cached, ok := s.readCache(pageURL); ok {
		s.logger.Debug("cache hit", "url", pageURL)
		return cached, nil
	}

	body, err := retry.Value(ctx, s.policy, func(ctx context.Context) (string, error) {
		return s.fetch(ctx, pageURL)
	})
	if err != nil {
		return "", err
	}
	s.writeCache(pageURL, body)
	return body, nil
}

func (s *Scraper) fetch(ctx context.Context, pageURL string) (string, error) {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return "", fmt.Errorf("invalid url %s: %w", pageURL, err)
	}
	if err := s.limiter(parsed.Host).Wait(ctx); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &retry.StatusError{StatusCode: resp.StatusCode}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read document: %w", err)
	}
	return string(raw), nil
}

func (s *Scraper) limiter(host string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.limiters[host]
	if !ok {
		l = rate.NewLimiter(rate.Every(s.minDelay), 1)
		s.limiters[host] = l
	}
	return l
}

// CachePath is where the page for pageURL is cached.
func (s *Scraper) CachePath(pageURL string) string {
	sum := sha256.Sum256([]byte(pageURL))
	return filepath.Join(s.cacheDir, hex.EncodeToString(sum[:])+".html")
}

func (s *Scraper) readCache(pageURL string) (string, bool) {
	if s.cacheDir == "" {
		return "", false
	}
	path := s.CachePath(pageURL)
	info, err := os.Stat(path)
	if err != nil || s.now().Sub(info.ModTime()) > s.ttl {
		return "", false
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}
	return string(raw), true
}

func (s *Scraper) writeCache(pageURL, body string) {
	if s.cacheDir == "" {
		return
	}
	if err := os.MkdirAll(s.cacheDir, 0o755); err != nil {
		s.logger.Warn("cache dir unavailable", "dir", s.cacheDir, "error", err)
		return
	}
	if err := os.WriteFile(s.CachePath(pageURL), []byte(body), 0o644); err != nil {
		s.logger.Warn("cache write failed", "url", pageURL, "error", err)
	}
}
