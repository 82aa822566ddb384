// Package api exposes the HTTP read layer over collected snapshots.
package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/streamlens/streamlens/internal/config"
	"github.com/streamlens/streamlens/internal/metrics"
	"github.com/streamlens/streamlens/internal/scrape"
)

// Limits applied to query parameters. Requests outside a range are clamped,
// not rejected.
const (
	defaultCategoryLimit = 20
	maxCategoryLimit     = 100
	defaultStreamLimit   = 50
	maxStreamLimit       = 200
	defaultHistoryHours  = 24
	maxHistoryHours      = 168
	statisticsTop        = 10
)

// Server wires HTTP handlers to the snapshot reader.
type Server struct {
	router chi.Router
	reader scrape.SnapshotReader
	logger *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(reader scrape.SnapshotReader, cfg config.Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{reader: reader, logger: logger}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(metrics.Middleware)
	r.Use(timeoutMiddleware(60 * time.Second))

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		if cfg.Auth.Enabled {
			r.Use(apiKeyMiddleware(cfg.Auth.APIKey))
		}
		r.Get("/categories", s.getCategories)
		r.Get("/categories/history", s.getCategoryHistory)
		r.Get("/streams", s.getStreams)
		r.Get("/streams/history", s.getStreamHistory)
		r.Get("/statistics", s.getStatistics)
	})

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	// Readiness means the read path works end to end, so probe the store
	// with the cheapest real query it serves.
	if _, err := s.reader.LatestCategories(r.Context(), 1); err != nil {
		s.logger.Warn("readiness check failed", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "store unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// getCategories serves the most recent snapshot per category, ranked by
// viewer count. A read failure degrades to an empty list so dashboards keep
// rendering while the store is down.
func (s *Server) getCategories(w http.ResponseWriter, r *http.Request) {
	limit := clampedIntParam(r, "limit", defaultCategoryLimit, maxCategoryLimit)

	recs, err := s.reader.LatestCategories(r.Context(), limit)
	if err != nil {
		s.logger.Error("latest categories read failed", zap.Error(err))
		recs = nil
	}
	if recs == nil {
		recs = []scrape.CategorySnapshot{}
	}
	writeJSON(w, http.StatusOK, recs)
}

func (s *Server) getStreams(w http.ResponseWriter, r *http.Request) {
	limit := clampedIntParam(r, "limit", defaultStreamLimit, maxStreamLimit)
	category := r.URL.Query().Get("category")

	recs, err := s.reader.LatestStreams(r.Context(), category, limit)
	if err != nil {
		s.logger.Error("latest streams read failed",
			zap.String("category", category),
			zap.Error(err),
		)
		recs = nil
	}
	if recs == nil {
		recs = []scrape.StreamSnapshot{}
	}
	writeJSON(w, http.StatusOK, recs)
}

// categoryHistoryPoint is one history bucket with its category inline, so
// clients can filter a flat series without re-keying the response.
type categoryHistoryPoint struct {
	Category string `json:"category"`
	scrape.HistoryBucket
}

type streamHistoryPoint struct {
	Channel string `json:"channel"`
	scrape.HistoryBucket
}

func (s *Server) getCategoryHistory(w http.ResponseWriter, r *http.Request) {
	hours := clampedIntParam(r, "hours", defaultHistoryHours, maxHistoryHours)

	buckets, err := s.reader.CategoryHistory(r.Context(), hours)
	if err != nil {
		s.logger.Error("category history read failed", zap.Error(err))
		buckets = nil
	}
	points := make([]categoryHistoryPoint, 0, len(buckets))
	for _, b := range buckets {
		points = append(points, categoryHistoryPoint{Category: b.Key, HistoryBucket: b})
	}
	writeJSON(w, http.StatusOK, points)
}

func (s *Server) getStreamHistory(w http.ResponseWriter, r *http.Request) {
	hours := clampedIntParam(r, "hours", defaultHistoryHours, maxHistoryHours)
	category := r.URL.Query().Get("category")

	buckets, err := s.reader.StreamHistory(r.Context(), category, hours)
	if err != nil {
		s.logger.Error("stream history read failed",
			zap.String("category", category),
			zap.Error(err),
		)
		buckets = nil
	}
	points := make([]streamHistoryPoint, 0, len(buckets))
	for _, b := range buckets {
		points = append(points, streamHistoryPoint{Channel: b.Key, HistoryBucket: b})
	}
	writeJSON(w, http.StatusOK, points)
}

// statisticsResponse is the combined directory overview.
type statisticsResponse struct {
	TopCategories []scrape.CategorySnapshot `json:"top_categories"`
	TopStreams    []scrape.StreamSnapshot   `json:"top_streams"`
	TotalViewers  int                       `json:"total_viewers"`
	LastUpdate    string                    `json:"last_update"`
}

// getStatistics serves a combined overview built from the latest snapshots.
// Total viewers sums the top categories; last update is the label of the
// most recent category snapshot.
func (s *Server) getStatistics(w http.ResponseWriter, r *http.Request) {
	resp := statisticsResponse{
		TopCategories: []scrape.CategorySnapshot{},
		TopStreams:    []scrape.StreamSnapshot{},
	}

	categories, err := s.reader.LatestCategories(r.Context(), statisticsTop)
	if err != nil {
		s.logger.Error("statistics categories read failed", zap.Error(err))
	} else {
		resp.TopCategories = categories
		for _, c := range categories {
			resp.TotalViewers += c.Viewers
		}
		if len(categories) > 0 {
			resp.LastUpdate = categories[0].Timestamp
		}
	}

	streams, err := s.reader.LatestStreams(r.Context(), "", statisticsTop)
	if err != nil {
		s.logger.Error("statistics streams read failed", zap.Error(err))
	} else {
		resp.TopStreams = streams
	}

	writeJSON(w, http.StatusOK, resp)
}

// clampedIntParam reads a positive integer query parameter, falling back to
// def when absent or unparseable and clamping the result to [1, max].
func clampedIntParam(r *http.Request, name string, def, max int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	if n < 1 {
		return 1
	}
	if n > max {
		return max
	}
	return n
}
