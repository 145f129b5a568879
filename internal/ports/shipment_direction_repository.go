package ports

import (
	"context"

	"checkpoint-route-service/internal/domain"
)

// Port: resolves a shipment to its departure/destination districts.
type ShipmentDirectionRepository interface {
	// Return the direction record for a shipment, or domain.ErrNotFound.
	GetDirectionByShipment(ctx context.Context, shipmentID string) (domain.ShipmentDirection, error)
}
