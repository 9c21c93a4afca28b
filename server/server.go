// Package server exposes the assistant over HTTP with gin.
package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/spektr-org/insightbot/engine"
	"github.com/spektr-org/insightbot/ingest"
	"github.com/spektr-org/insightbot/store"
)

// Answerer answers one chat question.
type Answerer interface {
	Answer(ctx context.Context, q engine.Question) (*engine.Answer, error)
}

// SalesSource loads a sales report into a dataset.
type SalesSource interface {
	Load(ctx context.Context, path, password string) (store.Dataset, error)
}

// Server holds the HTTP handlers and what they serve.
type Server struct {
	assistant Answerer
	reviews   *store.Store
	sales     *store.Store
	loader    SalesSource
	logger    *zap.Logger

	// reloadMu serializes sales reloads; readers never take it.
	reloadMu sync.Mutex
	password string
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithExcelPassword sets the password used when a reload request omits one.
func WithExcelPassword(p string) Option {
	return func(s *Server) { s.password = p }
}

// New creates a Server. loader may be nil, which disables sales reloads.
func New(assistant Answerer, reviews, sales *store.Store, loader SalesSource, opts ...Option) *Server {
	s := &Server{
		assistant: assistant,
		reviews:   reviews,
		sales:     sales,
		loader:    loader,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the gin engine with every route mounted.
func (s *Server) Handler() *gin.Engine {
	r := gin.New()
	r.Use(RequestID(), Logger(s.logger), Recovery(s.logger))

	r.GET("/health", s.health)
	api := r.Group("/api")
	api.POST("/chat", s.chat)
	api.GET("/sales/source", s.salesSource)
	api.POST("/sales/source", s.reloadSales)
	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("🚀 server: listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return eris.Wrap(err, "server: listen")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.logger.Info("🛑 server: shutting down")
	return srv.Shutdown(shutdownCtx)
}

// ============================================================================
// HANDLERS
// ============================================================================

type healthResponse struct {
	Status      string `json:"status"`
	ReviewRows  int    `json:"review_rows"`
	SalesRows   int    `json:"sales_rows"`
	SalesReady  bool   `json:"sales_ready"`
	ReviewReady bool   `json:"review_ready"`
}

func (s *Server) health(c *gin.Context) {
	resp := healthResponse{Status: "ok"}
	if info, ok := s.reviews.Info(); ok {
		resp.ReviewReady = true
		resp.ReviewRows = info.Rows
	}
	if info, ok := s.sales.Info(); ok {
		resp.SalesReady = true
		resp.SalesRows = info.Rows
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) chat(c *gin.Context) {
	var q engine.Question
	if err := c.ShouldBindJSON(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "detail": err.Error()})
		return
	}

	ans, err := s.assistant.Answer(c.Request.Context(), q)
	switch {
	case errors.Is(err, engine.ErrEmptyQuestion):
		c.JSON(http.StatusBadRequest, gin.H{"error": "question is empty"})
		return
	case errors.Is(err, store.ErrNotLoaded):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "review table not loaded"})
		return
	case err != nil:
		s.logger.Error("❌ server: chat failed", zap.String("request_id", RequestIDOf(c)), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to answer question"})
		return
	}
	c.JSON(http.StatusOK, ans)
}

func (s *Server) salesSource(c *gin.Context) {
	info, ok := s.sales.Info()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "sales table not loaded"})
		return
	}
	c.JSON(http.StatusOK, info)
}

type reloadRequest struct {
	ReportPath    string `json:"report_path"`
	ExcelPassword string `json:"excel_password"`
}

func (s *Server) reloadSales(c *gin.Context) {
	if s.loader == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "sales reload is disabled"})
		return
	}
	var req reloadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "detail": err.Error()})
		return
	}

	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	path := strings.TrimSpace(req.ReportPath)
	if path == "" {
		if info, ok := s.sales.Info(); ok {
			path = info.Path
		}
	}
	if path == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "report_path is required"})
		return
	}
	password := req.ExcelPassword
	if password == "" {
		password = s.password
	}

	ds, err := s.loader.Load(c.Request.Context(), path, password)
	if errors.Is(err, ingest.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "sales report not found", "report_path": path})
		return
	}
	if err != nil {
		s.logger.Warn("⚠️ server: sales reload failed", zap.String("path", path), zap.Error(err))
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "failed to load sales report", "detail": err.Error()})
		return
	}
	if err := s.sales.Replace(c.Request.Context(), ds); err != nil {
		s.logger.Error("❌ server: sales swap failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to activate sales report"})
		return
	}
	if req.ExcelPassword != "" {
		s.password = req.ExcelPassword
	}
	c.JSON(http.StatusOK, ds.Source)
}
