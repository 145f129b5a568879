package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"checkpoint-route-service/internal/domain"
	"checkpoint-route-service/internal/platform/logger"
)

func TestWriteServiceErrorStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid input", fmt.Errorf("op: %w: bad", domain.ErrInvalidInput), http.StatusBadRequest},
		{"not found", fmt.Errorf("op: %w", domain.ErrNotFound), http.StatusNotFound},
		{"missing shipment", &domain.ResolutionError{ShipmentID: "s", Reason: "r", Err: domain.ErrNotFound}, http.StatusNotFound},
		{"unresolvable district", fmt.Errorf("op: %w", &domain.ResolutionError{ShipmentID: "s", Reason: "r"}), http.StatusUnprocessableEntity},
		{"lock violation", &domain.LockViolationError{CheckpointID: "cp1", Position: 1, Reason: "frozen"}, http.StatusConflict},
		{"timeout", fmt.Errorf("op: %w", context.DeadlineExceeded), http.StatusServiceUnavailable},
		{"adapter failure", errors.New("disk on fire"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/x", nil)

			writeServiceError(rec, req, logger.NewNop(), "test", tt.err)

			assert.Equal(t, tt.want, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		})
	}
}

func TestInternalErrorsAreNotLeaked(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)

	writeServiceError(rec, req, logger.NewNop(), "test", errors.New("password=hunter2"))

	assert.NotContains(t, rec.Body.String(), "hunter2")
}
