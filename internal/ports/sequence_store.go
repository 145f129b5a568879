package ports

import (
	"context"

	"checkpoint-route-service/internal/domain"
)

// Contract for the persisted, user-chosen checkpoint ordering.
// Implementations perform no lock checks; callers validate first.
type SequenceStore interface {
	// Return entries for (shipment, direction) ordered by SequenceOrder.
	// An empty slice means no sequence has been saved.
	GetSequence(ctx context.Context, shipmentID, directionID string) ([]domain.SequenceEntry, error)
	// Replace the whole sequence with checkpointIDs, numbered from 1.
	// Either every entry is written or none is.
	ReplaceSequence(ctx context.Context, shipmentID, directionID string, checkpointIDs []string) error
}
