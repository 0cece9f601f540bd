// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	service "github.com/okian/salescore/internal/app"
	"github.com/okian/salescore/internal/domain/journey"
	"github.com/okian/salescore/internal/domain/scoring"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	Analyze(ctx context.Context, req service.AnalyzeRequest) (service.Analysis, error)
	AppendStage(ctx context.Context, customerID string, rec journey.Record) (journey.Appended, error)
	Journey(ctx context.Context, customerID string) (service.JourneyStatus, error)
	ResetJourney(ctx context.Context, customerID string) (journey.Journey, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	analyzeHandler  *AnalyzeHandler
	journeysHandler *JourneysHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:   NewHealthHandler(),
		statsHandler:    NewStatsHandler(statsProvider),
		analyzeHandler:  NewAnalyzeHandler(deps),
		journeysHandler: NewJourneysHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("POST /analyze", MetricsMiddleware(s.analyzeHandler.HandleAnalyze, "analyze"))
	mux.HandleFunc("GET /journeys/{customer_id}", MetricsMiddleware(s.journeysHandler.HandleGetJourney, "journey"))
	mux.HandleFunc("POST /journeys/{customer_id}/stages", MetricsMiddleware(s.journeysHandler.HandleAppendStage, "journey_stage"))
	mux.HandleFunc("POST /journeys/{customer_id}/reset", MetricsMiddleware(s.journeysHandler.HandleReset, "journey_reset"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
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
	resp := errorResponse{Code: code, Message: msg}
	var verr *scoring.ValidationError
	if errors.As(err, &verr) {
		resp.Field = verr.Field
	}
	writeJSON(w, status, resp)
}

// writeServiceError translates domain errors into HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, scoring.ErrValidation),
		errors.Is(err, journey.ErrInvalidEvidence),
		errors.Is(err, journey.ErrInvalidRecord):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	case errors.Is(err, journey.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, journey.ErrStageRegression):
		writeError(w, http.StatusConflict, "stage_regression", err)
	case errors.Is(err, journey.ErrOutOfOrder):
		writeError(w, http.StatusConflict, "out_of_order", err)
	case errors.Is(err, journey.ErrConflict):
		writeError(w, http.StatusConflict, "conflict", err)
	case errors.Is(err, service.ErrNotStarted):
		writeError(w, http.StatusServiceUnavailable, "unavailable", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}
