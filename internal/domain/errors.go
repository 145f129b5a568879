package domain

import (
	"errors"
	"fmt"
)

var (
	// Returned (possibly wrapped) by repositories when a record does not exist.
	ErrNotFound = errors.New("not found")

	// Caller input failed validation.
	ErrInvalidInput = errors.New("invalid input")
)

// The departure or destination district of a shipment could not be determined.
type ResolutionError struct {
	ShipmentID string
	Reason     string
	Err        error
}

func (e *ResolutionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("resolve shipment %q: %s: %v", e.ShipmentID, e.Reason, e.Err)
	}
	return fmt.Sprintf("resolve shipment %q: %s", e.ShipmentID, e.Reason)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// A proposed sequence change touches a frozen position.
type LockViolationError struct {
	CheckpointID string
	Position     int
	Reason       string
}

func (e *LockViolationError) Error() string {
	return fmt.Sprintf("lock violation: checkpoint %q at position %d: %s", e.CheckpointID, e.Position, e.Reason)
}
