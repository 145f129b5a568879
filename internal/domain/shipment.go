package domain

// Departure -> destination district pair for one shipment's movement.
// Immutable once the shipment has started moving.
type ShipmentDirection struct {
	ID                      string
	ShipmentID              string
	DepartureDistrictID     string
	DepartureDistrictName   string
	DestinationDistrictID   string
	DestinationDistrictName string
}
