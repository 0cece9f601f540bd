package api

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/okian/salescore/internal/domain/journey"
	"github.com/okian/salescore/internal/domain/model"
)

// stageRequest mirrors the body of POST /journeys/{customer_id}/stages.
type stageRequest struct {
	RecordID    string   `json:"record_id"`
	Stage       string   `json:"stage"`
	Timestamp   string   `json:"timestamp"`
	Observation *float64 `json:"observation"`
	OutcomeTags []string `json:"outcome_tags"`
	Excitement  int      `json:"excitement"`
	Note        string   `json:"note"`
}

func (s stageRequest) record() (journey.Record, error) {
	if strings.TrimSpace(s.Stage) == "" {
		return journey.Record{}, fmt.Errorf("%w: missing stage", ErrBadRequest)
	}
	rec := journey.Record{
		ID:    strings.TrimSpace(s.RecordID),
		Stage: model.Stage(strings.ToLower(strings.TrimSpace(s.Stage))),
		Evidence: journey.Evidence{
			Observation: s.Observation,
			OutcomeTags: s.OutcomeTags,
			Excitement:  s.Excitement,
			Note:        s.Note,
		},
	}
	if s.Timestamp != "" {
		ts, err := time.Parse(time.RFC3339, s.Timestamp)
		if err != nil {
			return journey.Record{}, fmt.Errorf("%w: invalid timestamp; must be RFC3339", ErrBadRequest)
		}
		rec.Timestamp = ts
	}
	return rec, nil
}

type appendResponse struct {
	Status    string          `json:"status"`
	Duplicate bool            `json:"duplicate"`
	Record    journey.Record  `json:"record"`
	Journey   journey.Journey `json:"journey"`
}

// JourneysHandler handles journey requests.
type JourneysHandler struct {
	deps Dependencies
}

// NewJourneysHandler creates a new journeys handler.
func NewJourneysHandler(deps Dependencies) *JourneysHandler {
	return &JourneysHandler{deps: deps}
}

func customerID(r *http.Request) (string, error) {
	id := strings.TrimSpace(r.PathValue("customer_id"))
	if id == "" {
		return "", fmt.Errorf("%w: missing customer_id", ErrBadRequest)
	}
	return id, nil
}

// HandleGetJourney handles GET /journeys/{customer_id} requests.
func (h *JourneysHandler) HandleGetJourney(w http.ResponseWriter, r *http.Request) {
	id, err := customerID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	status, err := h.deps.Journey(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// HandleAppendStage handles POST /journeys/{customer_id}/stages requests.
func (h *JourneysHandler) HandleAppendStage(w http.ResponseWriter, r *http.Request) {
	id, err := customerID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	var req stageRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	rec, err := req.record()
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	appended, err := h.deps.AppendStage(r.Context(), id, rec)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if appended.Duplicate {
		writeJSON(w, http.StatusOK, appendResponse{Status: "duplicate", Duplicate: true, Record: appended.Record, Journey: appended.Journey})
		return
	}
	writeJSON(w, http.StatusCreated, appendResponse{Status: "appended", Record: appended.Record, Journey: appended.Journey})
}

// HandleReset handles POST /journeys/{customer_id}/reset requests.
func (h *JourneysHandler) HandleReset(w http.ResponseWriter, r *http.Request) {
	id, err := customerID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	j, err := h.deps.ResetJourney(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, j)
}
