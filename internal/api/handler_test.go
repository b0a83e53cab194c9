package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/coding-vasu/devdose-sub000/internal/domain"
	"github.com/coding-vasu/devdose-sub000/internal/ports"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeReader struct {
	lastFilter ports.PostFilter
	posts      []domain.DatabasePost
	err        error
}

func (f *fakeReader) List(_ context.Context, filter ports.PostFilter) ([]domain.DatabasePost, int, error) {
	f.lastFilter = filter
	if f.err != nil {
		return nil, 0, f.err
	}
	return f.posts, 5, nil
}

func (f *fakeReader) Get(_ context.Context, id string) (*domain.DatabasePost, error) {
	for _, p := range f.posts {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, ports.ErrNotFound
}

type fakePinger struct{ err error }

func (f fakePinger) PingContext(context.Context) error { return f.err }

func TestListPostsAppliesFiltersAndClampsLimit(t *testing.T) {
	t.Parallel()

	reader := &fakeReader{posts: []domain.DatabasePost{{ID: "a", Title: "One"}, {ID: "b", Title: "Two"}}}
	router := NewRouter(NewHandler(reader, nil, nil))

	req := httptest.NewRequest(http.MethodGet, "/api/posts?limit=500&offset=2&category=CSS+Tricks&difficulty=Beginner&tag=css-grid", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status %d body %s", rec.Code, rec.Body.String())
	}
	want := ports.PostFilter{Category: "CSS Tricks", Difficulty: "beginner", Tag: "css-grid", Limit: maxLimit, Offset: 2}
	if reader.lastFilter != want {
		t.Fatalf("filter %+v, want %+v", reader.lastFilter, want)
	}

	var body struct {
		Items   []domain.DatabasePost `json:"items"`
		Total   int                   `json:"total"`
		Limit   int                   `json:"limit"`
		HasMore bool                  `json:"hasMore"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Items) != 2 || body.Total != 5 || body.Limit != maxLimit || !body.HasMore {
		t.Fatalf("unexpected body %+v", body)
	}
}

func TestListPostsDefaultsAndErrors(t *testing.T) {
	t.Parallel()

	reader := &fakeReader{err: errors.New("db down")}
	router := NewRouter(NewHandler(reader, nil, nil))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/posts?limit=abc", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if reader.lastFilter.Limit != defaultLimit || reader.lastFilter.Offset != 0 {
		t.Fatalf("defaults not applied: %+v", reader.lastFilter)
	}
}

func TestGetPost(t *testing.T) {
	t.Parallel()

	reader := &fakeReader{posts: []domain.DatabasePost{{ID: "a", Title: "One", Tags: []string{"react"}}}}
	router := NewRouter(NewHandler(reader, nil, nil))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/posts/a", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var post domain.DatabasePost
	if err := json.Unmarshal(rec.Body.Bytes(), &post); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if post.Title != "One" || len(post.Tags) != 1 {
		t.Fatalf("unexpected post %+v", post)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/posts/missing", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	NewRouter(NewHandler(&fakeReader{}, fakePinger{}, nil)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	NewRouter(NewHandler(&fakeReader{}, fakePinger{err: errors.New("gone")}, nil)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}
