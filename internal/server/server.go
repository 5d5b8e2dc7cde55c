package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"fraudgraph/internal/aggregator"
	"fraudgraph/internal/logger"
	"fraudgraph/internal/metrics"
	"fraudgraph/internal/upstream"
	"fraudgraph/pkg/models"
)

// CaseSource fetches raw case files.
type CaseSource interface {
	FetchCaseFile(ctx context.Context, caseID string) (*models.CaseFile, error)
}

// CaseCache is an optional case-file cache.
type CaseCache interface {
	Get(ctx context.Context, caseID string) (*models.CaseFile, error)
	Set(ctx context.Context, caseID string, cf *models.CaseFile) error
}

// Server exposes the aggregation projections over HTTP.
type Server struct {
	router chi.Router
	source CaseSource
	cache  CaseCache
	agg    *aggregator.Aggregator
}

// New wires the routes. cache may be nil.
func New(source CaseSource, cache CaseCache, agg *aggregator.Aggregator) *Server {
	s := &Server{
		router: chi.NewRouter(),
		source: source,
		cache:  cache,
		agg:    agg,
	}

	s.router.Use(middleware.Recoverer)
	s.router.Get("/healthz", s.handleHealth)
	s.router.Handle("/metrics", promhttp.Handler())

	s.router.Route("/cases/{caseID}", func(r chi.Router) {
		r.Get("/risk", s.instrument("risk", s.handleRisk))
		r.Get("/timeline", s.instrument("timeline", s.handleTimeline))
		r.Get("/network", s.instrument("network", s.handleNetwork))
		r.Post("/investigate", s.instrument("investigate", s.handleInvestigate))
	})

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleRisk(w http.ResponseWriter, r *http.Request) {
	cf, ok := s.caseFile(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.agg.Risk(cf))
}

func (s *Server) handleTimeline(w http.ResponseWriter, r *http.Request) {
	cf, ok := s.caseFile(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.agg.Timeline(cf))
}

func (s *Server) handleNetwork(w http.ResponseWriter, r *http.Request) {
	cf, ok := s.caseFile(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.agg.Network(cf))
}

func (s *Server) handleInvestigate(w http.ResponseWriter, r *http.Request) {
	cf, ok := s.caseFile(w, r)
	if !ok {
		return
	}
	inv := s.agg.Investigate(cf)

	metrics.InvestigationsTotal.Inc()
	metrics.RecordsNormalized.Add(float64(inv.Normalization.Parsed))
	metrics.RecordsDropped.WithLabelValues("no_timestamp").Add(float64(inv.Normalization.DroppedNoTimestamp))
	metrics.RecordsDropped.WithLabelValues("malformed").Add(float64(inv.Normalization.DroppedMalformed))

	writeJSON(w, http.StatusOK, inv)
}

// caseFile loads the case file, consulting the cache first. On failure it
// writes the error response and returns ok=false.
func (s *Server) caseFile(w http.ResponseWriter, r *http.Request) (*models.CaseFile, bool) {
	caseID := chi.URLParam(r, "caseID")
	ctx := r.Context()

	if s.cache != nil {
		cf, err := s.cache.Get(ctx, caseID)
		if err != nil {
			logger.Warnf("Case-file cache read failed for %s: %v", caseID, err)
		}
		if cf != nil {
			metrics.CacheHits.Inc()
			return cf, true
		}
		metrics.CacheMisses.Inc()
	}

	cf, err := s.source.FetchCaseFile(ctx, caseID)
	if err != nil {
		if errors.Is(err, upstream.ErrNotFound) {
			writeError(w, http.StatusNotFound, "case not found", false)
			return nil, false
		}
		logger.Errorf("Upstream fetch failed for case %s: %v", caseID, err)
		writeError(w, http.StatusBadGateway, "upstream case API unavailable", true)
		return nil, false
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, caseID, cf); err != nil {
			logger.Warnf("Case-file cache write failed for %s: %v", caseID, err)
		}
	}
	return cf, true
}

func (s *Server) instrument(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next(ww, r)
		metrics.RequestsTotal.WithLabelValues(route, strconv.Itoa(ww.Status())).Inc()
		metrics.RequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Errorf("Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string, retryable bool) {
	writeJSON(w, status, map[string]interface{}{
		"error":     message,
		"retryable": retryable,
	})
}
