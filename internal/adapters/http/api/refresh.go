package api

import (
	"context"
	"net/http"
)

// RefreshDependencies defines the interface for catalog re-scans.
type RefreshDependencies interface {
	Refresh(ctx context.Context) (int, error)
}

// RefreshHandler handles catalog refresh requests.
type RefreshHandler struct {
	deps RefreshDependencies
}

// NewRefreshHandler creates a new refresh handler.
func NewRefreshHandler(deps RefreshDependencies) *RefreshHandler {
	return &RefreshHandler{deps: deps}
}

type refreshResponse struct {
	Items int `json:"items"`
}

// HandleRefresh handles POST /items/refresh requests.
func (h *RefreshHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	const op = "api.refresh_items"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	n, err := h.deps.Refresh(r.Context())
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, refreshResponse{Items: n})
}
