// Package server exposes aggregation and stored-job listing over HTTP.
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
	"github.com/rs/cors"

	"github.com/sanathsadiga/jobautomate/internal/model"
	"github.com/sanathsadiga/jobautomate/internal/pipeline"
)

const (
	defaultListLimit = 100
	maxListLimit     = 1000
	shutdownTimeout  = 5 * time.Second
)

// Searcher runs one aggregation.
type Searcher interface {
	Aggregate(ctx context.Context, q model.Query) []model.Result
}

// Lister reads stored jobs.
type Lister interface {
	List(ctx context.Context, filter model.ListFilter) ([]model.StoredJob, error)
}

type pinger interface {
	Ping(ctx context.Context) error
}

// searchRequest is the body of POST /jobs/search.
type searchRequest struct {
	Companies []string `json:"companies"`
	Role      string   `json:"role"`
	Location  string   `json:"location"`
}

// Server serves the HTTP API.
type Server struct {
	addr     string
	searcher Searcher
	lister   Lister
	handler  http.Handler
	logger   *slog.Logger
}

// New builds the gin engine, wrapped in a CORS handler allowing origins
// (all origins when empty).
func New(addr string, origins []string, searcher Searcher, lister Lister, logger *slog.Logger) *Server {
	s := &Server{
		addr:     addr,
		searcher: searcher,
		lister:   lister,
		logger:   logger,
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(logger))

	r.GET("/health", s.health)
	jobs := r.Group("/jobs")
	{
		// POST /jobs/search - Run an aggregation
		jobs.POST("/search", s.search)

		// GET /jobs - List stored jobs, newest first
		jobs.GET("", s.list)
	}

	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	})
	s.handler = c.Handler(r)
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run listens until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              s.addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting api server", "addr", s.addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("api server failed: %w", err)
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("api server shutdown: %w", err)
	}
	return <-errCh
}

func (s *Server) health(c *gin.Context) {
	if p, ok := s.lister.(pinger); ok {
		if err := p.Ping(c.Request.Context()); err != nil {
			s.logger.Error("health check failed", slog.String("error", err.Error()))
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) search(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.logger.Warn("invalid search body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	if strings.TrimSpace(req.Role) == "" && strings.TrimSpace(req.Location) == "" {
		c.JSON(http.StatusOK, gin.H{"results": []model.Result{model.NoteResult(pipeline.NoteMissingQuery)}})
		return
	}

	var companies []string
	for _, name := range req.Companies {
		if name = strings.TrimSpace(name); name != "" {
			companies = append(companies, name)
		}
	}
	if len(companies) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "companies is required"})
		return
	}

	results := s.searcher.Aggregate(c.Request.Context(), model.Query{
		Companies: companies,
		Role:      req.Role,
		Location:  req.Location,
	})
	c.JSON(http.StatusOK, gin.H{"results": pipeline.EnsureNonEmpty(results)})
}

func (s *Server) list(c *gin.Context) {
	filter := model.ListFilter{
		Company: strings.TrimSpace(c.Query("company")),
		Limit:   defaultListLimit,
	}

	if v := c.Query("match"); v != "" {
		match, err := strconv.ParseBool(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "match must be true or false"})
			return
		}
		filter.MatchOnly = match
	}

	if v := c.Query("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		filter.Limit = min(limit, maxListLimit)
	}

	jobs, err := s.lister.List(c.Request.Context(), filter)
	if err != nil {
		s.logger.Error("listing jobs failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list jobs"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": jobs})
}
