package github

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/coding-vasu/devdose-sub000/internal/domain"
	"github.com/coding-vasu/devdose-sub000/internal/ports"
	"github.com/coding-vasu/devdose-sub000/internal/retry"
)

const maxPerPage = 100

// Client talks to the GitHub REST API.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

var _ ports.CodeHost = (*Client)(nil)

// NewClient creates a reusable HTTP client; baseURL defaults to api.github.com.
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = "https://api.github.com"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: timeout},
	}
}

type searchResponse struct {
	TotalCount int          `json:"total_count"`
	Items      []repository `json:"items"`
}

type repository struct {
	Name     string `json:"name"`
	FullName string `json:"full_name"`
	HTMLURL  string `json:"html_url"`
	Owner    struct {
		Login string `json:"login"`
	} `json:"owner"`
	Description     string    `json:"description"`
	Topics          []string  `json:"topics"`
	StargazersCount int       `json:"stargazers_count"`
	ForksCount      int       `json:"forks_count"`
	Language        string    `json:"language"`
	PushedAt        time.Time `json:"pushed_at"`
}

type content struct {
	Name     string `json:"name"`
	Path     string `json:"path"`
	Type     string `json:"type"`
	Size     int    `json:"size"`
	Encoding string `json:"encoding"`
	Content  string `json:"content"`
}

// SearchRepositories pages through repository search, most-starred first, until limit hits.
func (c *Client) SearchRepositories(ctx context.Context, query string, limit int) ([]domain.Repository, error) {
	if limit <= 0 {
		return nil, nil
	}
	perPage := limit
	if perPage > maxPerPage {
		perPage = maxPerPage
	}

	var out []domain.Repository
	for page := 1; len(out) < limit; page++ {
		q := url.Values{}
		q.Set("q", query)
		q.Set("sort", "stars")
		q.Set("order", "desc")
		q.Set("per_page", strconv.Itoa(perPage))
		q.Set("page", strconv.Itoa(page))

		var resp searchResponse
		if err := c.get(ctx, "/search/repositories?"+q.Encode(), &resp); err != nil {
			return nil, fmt.Errorf("search %q: %w", query, err)
		}
		for _, item := range resp.Items {
			if len(out) == limit {
				break
			}
			out = append(out, toRepository(item))
		}
		if len(resp.Items) < perPage || page*perPage >= resp.TotalCount {
			break
		}
	}
	return out, nil
}

// Readme returns the decoded README of owner/repo.
func (c *Client) Readme(ctx context.Context, owner, repo string) (ports.Readme, error) {
	var item content
	if err := c.get(ctx, fmt.Sprintf("/repos/%s/%s/readme", owner, repo), &item); err != nil {
		return ports.Readme{}, fmt.Errorf("readme %s/%s: %w", owner, repo, err)
	}
	text, err := decodeContent(item)
	if err != nil {
		return ports.Readme{}, fmt.Errorf("readme %s/%s: %w", owner, repo, err)
	}
	return ports.Readme{Path: item.Path, Content: text, Size: item.Size}, nil
}

// ListDirectory lists path; a file path yields a single entry.
func (c *Client) ListDirectory(ctx context.Context, owner, repo, path string) ([]ports.ContentEntry, error) {
	var raw json.RawMessage
	if err := c.get(ctx, contentsPath(owner, repo, path), &raw); err != nil {
		return nil, fmt.Errorf("list %s/%s/%s: %w", owner, repo, path, err)
	}

	var items []content
	if err := json.Unmarshal(raw, &items); err != nil {
		var single content
		if err := json.Unmarshal(raw, &single); err != nil {
			return nil, fmt.Errorf("decode listing %s: %w", path, err)
		}
		items = []content{single}
	}

	entries := make([]ports.ContentEntry, 0, len(items))
	for _, it := range items {
		entries = append(entries, ports.ContentEntry{Name: it.Name, Path: it.Path, Type: it.Type, Size: it.Size})
	}
	return entries, nil
}

// FileContent returns the decoded content of a single file.
func (c *Client) FileContent(ctx context.Context, owner, repo, path string) (string, error) {
	var item content
	if err := c.get(ctx, contentsPath(owner, repo, path), &item); err != nil {
		return "", fmt.Errorf("file %s/%s/%s: %w", owner, repo, path, err)
	}
	return decodeContent(item)
}

func (c *Client) get(ctx context.Context, path string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	req.Header.Set("User-Agent", "devdose/1.0")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ports.ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &retry.StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func contentsPath(owner, repo, path string) string {
	return fmt.Sprintf("/repos/%s/%s/contents/%s", owner, repo, strings.TrimLeft(path, "/"))
}

func decodeContent(item content) (string, error) {
	if item.Encoding != "" && item.Encoding != "base64" {
		return "", fmt.Errorf("unsupported encoding %q", item.Encoding)
	}
	clean := strings.ReplaceAll(item.Content, "\n", "")
	data, err := base64.StdEncoding.DecodeString(clean)
	if err != nil {
		return "", fmt.Errorf("decode base64: %w", err)
	}
	return string(data), nil
}

func toRepository(r repository) domain.Repository {
	return domain.Repository{
		Owner:       r.Owner.Login,
		Name:        r.Name,
		FullName:    r.FullName,
		HTMLURL:     r.HTMLURL,
		Description: r.Description,
		Topics:      r.Topics,
		Stars:       r.StargazersCount,
		Forks:       r.ForksCount,
		Language:    r.Language,
		PushedAt:    r.PushedAt,
	}
}
