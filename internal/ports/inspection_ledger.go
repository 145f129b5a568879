package ports

import (
	"context"

	"checkpoint-route-service/internal/domain"
)

// Contract for the append-only inspection log.
type InspectionLedger interface {
	// Return all inspections of a shipment for one direction, oldest first.
	ListInspections(ctx context.Context, shipmentID, directionID string) ([]domain.InspectionRecord, error)
	// Append a record. Records are never edited or deleted.
	AppendInspection(ctx context.Context, rec domain.InspectionRecord) error
}
