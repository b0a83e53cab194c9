package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/coding-vasu/devdose-sub000/internal/domain"
	"github.com/coding-vasu/devdose-sub000/internal/logging"
	"github.com/coding-vasu/devdose-sub000/internal/ports"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

// PostReader is the read side of the post store.
type PostReader interface {
	List(ctx context.Context, filter ports.PostFilter) ([]domain.DatabasePost, int, error)
	Get(ctx context.Context, id string) (*domain.DatabasePost, error)
}

// Pinger reports store liveness for /health.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Handler serves published posts.
type Handler struct {
	posts  PostReader
	db     Pinger
	logger *slog.Logger
}

// NewHandler wires the reader; db may be nil.
func NewHandler(posts PostReader, db Pinger, log *slog.Logger) *Handler {
	return &Handler{posts: posts, db: db, logger: logging.Or(log).With("component", "api")}
}

// NewRouter builds the gin engine with all routes registered.
func NewRouter(h *Handler) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	_ = router.SetTrustedProxies([]string{"127.0.0.1"})

	router.GET("/health", h.health)
	h.RegisterRoutes(router.Group("/api/posts"))
	return router
}

// RegisterRoutes mounts the post endpoints on rg.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.list)        // GET /api/posts
	rg.GET("/:id", h.getByID) // GET /api/posts/:id
}

func (h *Handler) list(c *gin.Context) {
	filter := ports.PostFilter{
		Category:   c.Query("category"),
		Difficulty: strings.ToLower(c.Query("difficulty")),
		Language:   strings.ToLower(c.Query("language")),
		Tag:        c.Query("tag"),
		Limit:      clamp(parseInt(c.Query("limit"), defaultLimit), 1, maxLimit),
		Offset:     max(parseInt(c.Query("offset"), 0), 0),
	}

	items, total, err := h.posts.List(c.Request.Context(), filter)
	if err != nil {
		h.logger.Error("list posts", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"items":   items,
		"total":   total,
		"limit":   filter.Limit,
		"offset":  filter.Offset,
		"hasMore": filter.Offset+len(items) < total,
	})
}

func (h *Handler) getByID(c *gin.Context) {
	post, err := h.posts.Get(c.Request.Context(), c.Param("id"))
	if errors.Is(err, ports.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	if err != nil {
		h.logger.Error("get post", "id", c.Param("id"), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get failed"})
		return
	}
	c.JSON(http.StatusOK, post)
}

func (h *Handler) health(c *gin.Context) {
	if h.db != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func parseInt(s string, def int) int {
	if strings.TrimSpace(s) == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func clamp(v, lo, hi int) int {
	return min(max(v, lo), hi)
}
