package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/sells-group/cellar-valuation/internal/reconcile"
)

type errorBody struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Debug("api: encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// statusFor maps reconcile errors onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, reconcile.ErrValidation),
		errors.Is(err, reconcile.ErrNoCriticScores),
		errors.Is(err, reconcile.ErrLowConfidence):
		return http.StatusBadRequest
	case errors.Is(err, reconcile.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, reconcile.ErrConflict),
		errors.Is(err, reconcile.ErrInvalidTransition):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		zap.L().Error("api: request failed",
			zap.String("request_id", RequestIDFrom(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		writeError(w, status, "internal error")
		return
	}

	body := errorBody{Error: publicMessage(err)}
	var ve *reconcile.ValidationError
	if errors.As(err, &ve) {
		body.Field = ve.Field
		body.Error = ve.Reason
	}
	writeJSON(w, status, body)
}

func publicMessage(err error) string {
	switch {
	case errors.Is(err, reconcile.ErrNotFound):
		return "not found"
	case errors.Is(err, reconcile.ErrNoCriticScores):
		return "no critic scores found"
	case errors.Is(err, reconcile.ErrLowConfidence):
		return "match confidence too low"
	case errors.Is(err, reconcile.ErrConflict):
		return "already exists"
	case errors.Is(err, reconcile.ErrInvalidTransition):
		return "invalid status transition"
	default:
		return "invalid request"
	}
}
