package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	json "github.com/goccy/go-json"

	service "github.com/okian/pairrank/internal/app"
	"github.com/okian/pairrank/internal/domain/model"
)

// maxComparisonBody bounds the size of a POST /comparisons payload.
const maxComparisonBody = 64 << 10

// ComparisonDependencies defines the interface for applying judgments.
type ComparisonDependencies interface {
	Submit(ctx context.Context, j service.Judgment) (service.Outcome, error)
}

// ComparisonsHandler handles comparison submissions.
type ComparisonsHandler struct {
	deps ComparisonDependencies
}

// NewComparisonsHandler creates a new comparisons handler.
func NewComparisonsHandler(deps ComparisonDependencies) *ComparisonsHandler {
	return &ComparisonsHandler{deps: deps}
}

// HandlePostComparison handles POST /comparisons requests.
func (h *ComparisonsHandler) HandlePostComparison(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_comparison"
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req comparisonRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxComparisonBody)).Decode(&req); err != nil {
		writeFailure(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	if err := req.validate(); err != nil {
		writeFailure(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	out, err := h.deps.Submit(r.Context(), req.judgment())
	if err != nil {
		writeFailure(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// comparisonRequest mirrors the OpenAPI schema for POST /comparisons.
type comparisonRequest struct {
	RequestID string `json:"request_id"`
	Winner    string `json:"winner"`
	Loser     string `json:"loser"`
}

func (c comparisonRequest) validate() error {
	switch {
	case strings.TrimSpace(c.Winner) == "":
		return errors.New("missing winner")
	case strings.TrimSpace(c.Loser) == "":
		return errors.New("missing loser")
	}
	return nil
}

func (c comparisonRequest) judgment() service.Judgment {
	return service.Judgment{
		RequestID: strings.TrimSpace(c.RequestID),
		Winner:    model.Item(c.Winner),
		Loser:     model.Item(c.Loser),
	}
}
