package api

import (
	"context"
	"net/http"

	"github.com/okian/pairrank/internal/domain/selection"
)

// defaultCandidates is the listing size when no limit is given.
const defaultCandidates = 10

// CandidatesDependencies defines the interface for inspecting the selector.
type CandidatesDependencies interface {
	Candidates(ctx context.Context, limit int) []selection.Candidate
}

// CandidatesHandler handles candidate listing requests.
type CandidatesHandler struct {
	deps     CandidatesDependencies
	maxLimit int
}

// NewCandidatesHandler creates a new candidates handler.
func NewCandidatesHandler(deps CandidatesDependencies, maxLimit int) *CandidatesHandler {
	return &CandidatesHandler{deps: deps, maxLimit: maxLimit}
}

// HandleGetCandidates handles GET /candidates?limit=N requests.
func (h *CandidatesHandler) HandleGetCandidates(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_candidates"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	n, err := parseLimit(r, op, defaultCandidates, h.maxLimit)
	if err != nil {
		writeFailure(w, err)
		return
	}
	cands := h.deps.Candidates(r.Context(), n)
	if cands == nil {
		cands = []selection.Candidate{}
	}
	writeJSON(w, http.StatusOK, cands)
}
