package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"checkpoint-route-service/internal/domain"
	"checkpoint-route-service/internal/platform/logger"
)

// RoutingService is the subset of services.RoutingService the handlers use.
type RoutingService interface {
	ResolveRoute(ctx context.Context, shipmentID string) (domain.CheckpointPath, error)
	ProposeSequenceChange(ctx context.Context, shipmentID, directionID string, checkpointIDs []string) (domain.ProposalDecision, error)
	CanModify(ctx context.Context, shipmentID, directionID, checkpointID string, position int) (bool, error)
	GetSequence(ctx context.Context, shipmentID, directionID string) (domain.SequenceView, error)
	RecordInspection(ctx context.Context, in domain.NewInspection) (domain.InspectionRecord, error)
}

func writeJSON(w http.ResponseWriter, r *http.Request, log *logger.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil && log != nil {
		log.Warn("encode failed", "method", r.Method, "path", r.URL.Path, "err", err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, log *logger.Logger, status int, msg string) {
	writeJSON(w, r, log, status, map[string]string{"error": msg})
}

// decodeJSON reads exactly one JSON object with no unknown fields.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	defer r.Body.Close()
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		return errors.New("invalid json body")
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errors.New("body must contain only one JSON object")
	}
	return nil
}

// writeServiceError maps the service error taxonomy onto HTTP statuses.
// Adapter failures are logged and hidden behind a 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, log *logger.Logger, op string, err error) {
	var resErr *domain.ResolutionError
	var lockErr *domain.LockViolationError

	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		writeError(w, r, log, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, r, log, http.StatusNotFound, err.Error())
	case errors.As(err, &resErr):
		writeError(w, r, log, http.StatusUnprocessableEntity, resErr.Error())
	case errors.As(err, &lockErr):
		writeError(w, r, log, http.StatusConflict, lockErr.Error())
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		writeError(w, r, log, http.StatusServiceUnavailable, "request timed out")
	default:
		if log != nil {
			log.Error(op+" failed", "method", r.Method, "path", r.URL.Path, "err", err)
		}
		writeError(w, r, log, http.StatusInternalServerError, "internal server error")
	}
}
