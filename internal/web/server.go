// Package web exposes analysis results over a JSON API. The server holds
// the most recent analysis snapshot in memory and re-runs the analysis on
// demand or when watched files change.
package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/adylagad/gh-api-graveyard/internal/analytics"
	"github.com/adylagad/gh-api-graveyard/internal/analyzer"
	"github.com/adylagad/gh-api-graveyard/internal/config"
	"github.com/adylagad/gh-api-graveyard/internal/history"
	"github.com/adylagad/gh-api-graveyard/internal/report"
)

// Version is stamped at build time.
var Version = "0.3.0"

// RefreshFunc re-runs the analysis and returns a fresh report.
type RefreshFunc func(ctx context.Context) (*report.Report, error)

// Server serves analysis results, history, and trends as JSON.
type Server struct {
	config     *config.Config
	logger     *zap.Logger
	router     *mux.Router
	httpServer *http.Server
	metrics    *Metrics
	refresh    RefreshFunc
	store      *history.Store
	trends     *analytics.TrendAnalyzer
	limiter    *rate.Limiter

	mu          sync.RWMutex
	current     *report.Report
	refreshedAt time.Time

	startTime time.Time
}

// NewServer wires the API server. store may be nil; the history and trend
// routes then answer 404.
func NewServer(cfg *config.Config, logger *zap.Logger, refresh RefreshFunc, store *history.Store) *Server {
	s := &Server{
		config:    cfg,
		logger:    logger,
		router:    mux.NewRouter(),
		metrics:   NewMetrics(),
		refresh:   refresh,
		store:     store,
		trends:    analytics.NewTrendAnalyzer(logger),
		startTime: time.Now(),
	}
	if cfg.Server.RateLimit > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(cfg.Server.RateLimit), cfg.Server.RateBurst)
	}

	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return s
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
	s.router.HandleFunc("/version", s.handleVersion).Methods("GET")
	s.router.Handle("/metrics", s.metrics.Handler()).Methods("GET")

	s.router.HandleFunc("/api/v1/analysis", s.handleAnalysis).Methods("GET")
	s.router.HandleFunc("/api/v1/analysis/unused", s.handleUnused).Methods("GET")
	s.router.HandleFunc("/api/v1/diagnostics", s.handleDiagnostics).Methods("GET")
	s.router.HandleFunc("/api/v1/refresh", s.handleRefresh).Methods("POST")

	s.router.HandleFunc("/api/v1/history", s.handleHistory).Methods("GET")
	s.router.HandleFunc("/api/v1/history/{id}", s.handleHistoryScan).Methods("GET")
	s.router.HandleFunc("/api/v1/trends", s.handleTrends).Methods("GET")

	s.router.Use(s.loggingMiddleware)
	s.router.Use(s.rateLimitMiddleware)
}

// Start runs the initial analysis and serves until the listener fails.
func (s *Server) Start(ctx context.Context) error {
	if err := s.Refresh(ctx); err != nil {
		return fmt.Errorf("web: initial analysis: %w", err)
	}
	s.logger.Info("server listening", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("web: serve: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Refresh re-runs the analysis and swaps the served snapshot.
func (s *Server) Refresh(ctx context.Context) error {
	started := time.Now()
	rep, err := s.refresh(ctx)
	if err != nil {
		s.metrics.IncrementRefresh("error")
		return err
	}
	s.mu.Lock()
	s.current = rep
	s.refreshedAt = time.Now().UTC()
	s.mu.Unlock()

	s.metrics.IncrementRefresh("ok")
	s.metrics.SetUnusedEndpoints(rep.Service, countUnused(rep.Results))
	s.logger.Info("analysis refreshed",
		zap.String("service", rep.Service),
		zap.Int("endpoints", len(rep.Results)),
		zap.Duration("took", time.Since(started)))
	return nil
}

func countUnused(results []analyzer.Result) int {
	n := 0
	for _, r := range results {
		if r.Usage.CallCount == 0 {
			n++
		}
	}
	return n
}

func (s *Server) snapshot() (*report.Report, time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current, s.refreshedAt
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	_, refreshedAt := s.snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":       "healthy",
		"version":      Version,
		"uptime":       time.Since(s.startTime).Seconds(),
		"refreshed_at": refreshedAt,
	})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": Version})
}

func (s *Server) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	rep, refreshedAt := s.snapshot()
	if rep == nil {
		writeError(w, http.StatusServiceUnavailable, "no analysis available yet")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"report":       rep,
		"summary":      rep.Summarize(),
		"refreshed_at": refreshedAt,
	})
}

func (s *Server) handleUnused(w http.ResponseWriter, r *http.Request) {
	rep, _ := s.snapshot()
	if rep == nil {
		writeError(w, http.StatusServiceUnavailable, "no analysis available yet")
		return
	}
	threshold := s.config.Threshold
	if raw := r.URL.Query().Get("threshold"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 || v > 100 {
			writeError(w, http.StatusBadRequest, "threshold must be an integer between 0 and 100")
			return
		}
		threshold = v
	}
	filtered := analyzer.FilterByConfidence(rep.Results, threshold)
	writeJSON(w, http.StatusOK, map[string]any{
		"threshold": threshold,
		"count":     len(filtered),
		"results":   filtered,
	})
}

func (s *Server) handleDiagnostics(w http.ResponseWriter, r *http.Request) {
	rep, _ := s.snapshot()
	if rep == nil {
		writeError(w, http.StatusServiceUnavailable, "no analysis available yet")
		return
	}
	writeJSON(w, http.StatusOK, rep.Diagnostics)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if err := s.Refresh(r.Context()); err != nil {
		s.logger.Error("refresh failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "analysis failed")
		return
	}
	rep, refreshedAt := s.snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"summary":      rep.Summarize(),
		"refreshed_at": refreshedAt,
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusNotFound, "history is not configured")
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = v
	}
	scans, err := s.store.ListScans(r.Context(), s.serviceName(), limit)
	if err != nil {
		s.logger.Error("history query failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "history query failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"scans": scans})
}

func (s *Server) handleHistoryScan(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusNotFound, "history is not configured")
		return
	}
	scan, err := s.store.GetScan(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusNotFound, "scan not found")
		return
	}
	writeJSON(w, http.StatusOK, scan)
}

func (s *Server) handleTrends(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusNotFound, "history is not configured")
		return
	}
	since := time.Now().UTC().AddDate(0, -3, 0)
	scans, err := s.store.ScansSince(r.Context(), s.serviceName(), since)
	if err != nil {
		s.logger.Error("trend query failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "trend query failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"trend":     s.trends.Trends(s.serviceName(), scans),
		"anomalies": s.trends.DetectAnomalies(scans),
	})
}

func (s *Server) serviceName() string {
	if s.config.Service != "" {
		return s.config.Service
	}
	return "API Service"
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		elapsed := time.Since(started)

		s.metrics.IncrementRequest(r.Method, r.URL.Path, rec.status)
		s.metrics.RecordLatency(r.Method, r.URL.Path, elapsed.Seconds())
		s.logger.Debug("request handled",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("took", elapsed))
	})
}

func (s *Server) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter != nil && !s.limiter.Allow() {
			s.metrics.IncrementRateLimitHit()
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
