package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	service "github.com/okian/salescore/internal/app"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// AnalyzeHandler handles scoring requests.
type AnalyzeHandler struct {
	deps Dependencies
}

// NewAnalyzeHandler creates a new analyze handler.
func NewAnalyzeHandler(deps Dependencies) *AnalyzeHandler {
	return &AnalyzeHandler{deps: deps}
}

// HandleAnalyze handles POST /analyze requests.
func (h *AnalyzeHandler) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req service.AnalyzeRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	out, err := h.deps.Analyze(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	return nil
}
