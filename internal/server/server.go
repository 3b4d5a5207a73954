// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package server exposes read-only HTTP access to the article index:
// semantic search and article lookup.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/arxiv-indexer/pkg/types"
)

const (
	defaultLimit = 10
	maxLimit     = 100

	cacheSize       = 256
	cacheTTL        = 5 * time.Minute
	shutdownTimeout = 10 * time.Second
)

// Index is the vector store surface the server reads.
type Index interface {
	Search(ctx context.Context, vector []float32, limit int) ([]types.SearchResult, error)
	LookupByID(ctx context.Context, id string) (*types.Article, bool, error)
}

// Embedder turns a query into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Articles loads full articles from the on-disk registry.
type Articles interface {
	LoadByID(id string) (*types.Article, bool, error)
}

// Server holds the state for the REST API server.
type Server struct {
	index    Index
	embedder Embedder
	articles Articles
	router   *gin.Engine

	// hits caches search responses by limit and query.
	hits *expirable.LRU[string, []Hit]
}

// NewServer creates a Server. articles may be nil, in which case article
// lookups go to the index only.
func NewServer(index Index, embedder Embedder, articles Articles) *Server {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())
	s := &Server{
		index:    index,
		embedder: embedder,
		articles: articles,
		router:   r,
		hits:     expirable.NewLRU[string, []Hit](cacheSize, nil, cacheTTL),
	}
	s.setupRoutes()
	return s
}

// Handler returns the HTTP handler for use with an http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.healthCheck)
	s.router.GET("/search", s.handleSearch)
	s.router.GET("/articles/:id", s.handleArticle)
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		slog.Debug("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start))
	}
}

func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Hit is one search result in API responses.
type Hit struct {
	ArxivID    string   `json:"arxiv_id"`
	Title      string   `json:"title"`
	Authors    []string `json:"authors"`
	Categories []string `json:"categories"`
	Published  string   `json:"published"`
	Score      float64  `json:"score"`
}

func (s *Server) handleSearch(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing query parameter q"})
		return
	}

	limit := defaultLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = min(n, maxLimit)
	}

	key := fmt.Sprintf("%d\x00%s", limit, query)
	if hits, ok := s.hits.Get(key); ok {
		c.JSON(http.StatusOK, gin.H{"query": query, "results": hits})
		return
	}

	ctx := c.Request.Context()
	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		slog.Error("embedding query failed", "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "embedding service unavailable"})
		return
	}
	results, err := s.index.Search(ctx, vector, limit)
	if err != nil {
		slog.Error("search failed", "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "vector store unavailable"})
		return
	}

	hits := make([]Hit, len(results))
	for i, r := range results {
		hits[i] = Hit{
			ArxivID:    r.Article.ArxivID,
			Title:      r.Article.Title,
			Authors:    r.Article.Authors,
			Categories: r.Article.Categories,
			Published:  types.FormatTimestamp(r.Article.Published),
			Score:      r.Score,
		}
	}
	s.hits.Add(key, hits)
	c.JSON(http.StatusOK, gin.H{"query": query, "results": hits})
}

func (s *Server) handleArticle(c *gin.Context) {
	id := c.Param("id")

	if s.articles != nil {
		a, ok, err := s.articles.LoadByID(id)
		if err != nil {
			slog.Error("loading article failed", "id", id, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not read article"})
			return
		}
		if ok {
			c.JSON(http.StatusOK, a)
			return
		}
	}

	a, ok, err := s.index.LookupByID(c.Request.Context(), id)
	if err != nil {
		slog.Error("article lookup failed", "id", id, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "vector store unavailable"})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "article not found"})
		return
	}
	c.JSON(http.StatusOK, a)
}
