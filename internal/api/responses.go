package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/signalsfoundry/leosim/internal/logging"
	"github.com/signalsfoundry/leosim/internal/observability"
	"github.com/signalsfoundry/leosim/model"
	"github.com/signalsfoundry/leosim/scenario"
)

// statusClientClosedRequest mirrors the nginx convention for requests
// abandoned by the client before a response was written.
const statusClientClosedRequest = 499

type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	writeJSON(w, status, errorResponse{
		Error:     err.Error(),
		RequestID: logging.RequestIDFromContext(r.Context()),
	})
}

// statusForError maps simulator errors onto HTTP status codes.
func statusForError(err error) int {
	switch {
	case err == nil:
		return http.StatusOK

	case errors.Is(err, model.ErrInvalidConstellation),
		errors.Is(err, model.ErrInvalidGroundStation),
		errors.Is(err, model.ErrInvalidHardware),
		errors.Is(err, model.ErrInvalidMonteCarlo),
		errors.Is(err, model.ErrInvalidMission),
		errors.Is(err, model.ErrInvalidISL),
		errors.Is(err, errBadRequest):
		return http.StatusBadRequest

	case errors.Is(err, scenario.ErrPresetNotFound):
		return http.StatusNotFound

	case errors.Is(err, scenario.ErrPresetExists):
		return http.StatusConflict

	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout

	case errors.Is(err, context.Canceled):
		return statusClientClosedRequest

	default:
		return http.StatusInternalServerError
	}
}

// runOutcome buckets an error for the sim_runs_total outcome label.
func runOutcome(err error) string {
	switch statusForError(err) {
	case http.StatusOK:
		return observability.OutcomeOK
	case http.StatusBadRequest, http.StatusNotFound, http.StatusConflict:
		return observability.OutcomeInvalid
	case http.StatusGatewayTimeout, statusClientClosedRequest:
		return observability.OutcomeCancelled
	default:
		return observability.OutcomeError
	}
}
