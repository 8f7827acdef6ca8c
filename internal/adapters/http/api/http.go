// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	json "github.com/goccy/go-json"

	"github.com/okian/pairrank/internal/adapters/repository"
	service "github.com/okian/pairrank/internal/app"
	"github.com/okian/pairrank/internal/domain/rating"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	PairDependencies
	ComparisonDependencies
	RankingsDependencies
	RankDependencies
	ProgressDependencies
	RefreshDependencies
	CandidatesDependencies
}

// Entry mirrors the read shape returned by standings queries.
type Entry = repository.Entry

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	pairHandler        *PairHandler
	comparisonsHandler *ComparisonsHandler
	rankingsHandler    *RankingsHandler
	rankHandler        *RankHandler
	progressHandler    *ProgressHandler
	refreshHandler     *RefreshHandler
	candidatesHandler  *CandidatesHandler
}

// NewServer creates a new API server with all handlers. maxLimit caps the
// limit parameter of the list endpoints.
func NewServer(deps Dependencies, statsProvider StatsProvider, maxLimit int) *Server {
	return &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(statsProvider),
		pairHandler:        NewPairHandler(deps),
		comparisonsHandler: NewComparisonsHandler(deps),
		rankingsHandler:    NewRankingsHandler(deps, maxLimit),
		rankHandler:        NewRankHandler(deps),
		progressHandler:    NewProgressHandler(deps),
		refreshHandler:     NewRefreshHandler(deps),
		candidatesHandler:  NewCandidatesHandler(deps, maxLimit),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/metrics", MetricsMiddleware(s.healthHandler.HandleMetrics, "metrics"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/pair", MetricsMiddleware(s.pairHandler.HandleGetPair, "pair"))
	mux.HandleFunc("/comparisons", MetricsMiddleware(s.comparisonsHandler.HandlePostComparison, "comparisons"))
	mux.HandleFunc("/rankings", MetricsMiddleware(s.rankingsHandler.HandleGetRankings, "rankings"))
	mux.HandleFunc("/rankings/", MetricsMiddleware(s.rankHandler.HandleGetRank, "rank"))
	mux.HandleFunc("/progress", MetricsMiddleware(s.progressHandler.HandleGetProgress, "progress"))
	mux.HandleFunc("/items/refresh", MetricsMiddleware(s.refreshHandler.HandleRefresh, "refresh"))
	mux.HandleFunc("/candidates", MetricsMiddleware(s.candidatesHandler.HandleGetCandidates, "candidates"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeFailure translates upstream sentinel kinds to a status and code.
func writeFailure(w http.ResponseWriter, err error) {
	status, code := classify(err)
	writeError(w, status, code, err)
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, ErrLimitTooHigh):
		return http.StatusBadRequest, "limit_exceeded"
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, service.ErrInvalidJudgment),
		errors.Is(err, repository.ErrInvalidLimit):
		return http.StatusBadRequest, "bad_request"
	// unknown items are a flavour of invalid comparison, so match them first
	case errors.Is(err, rating.ErrUnknownItem), errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, rating.ErrInvalidComparison):
		return http.StatusUnprocessableEntity, "invalid_comparison"
	case errors.Is(err, service.ErrInsufficientItems):
		return http.StatusConflict, "insufficient_items"
	case errors.Is(err, service.ErrRequestInFlight):
		return http.StatusConflict, "request_in_flight"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// parseLimit reads ?limit. A missing value yields def; anything that is not
// a positive integer up to maxLimit is rejected.
func parseLimit(r *http.Request, op string, def, maxLimit int) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, NewKind(op, ErrBadRequest)
	}
	if maxLimit > 0 && n > maxLimit {
		return 0, NewKind(op, ErrLimitTooHigh)
	}
	return n, nil
}

