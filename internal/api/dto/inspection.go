package dto

import "time"

type RecordInspectionRequest struct {
	CheckpointID        string `json:"checkpoint_id"`
	ShipmentDirectionID string `json:"shipment_direction_id"`
	CheckedByID         string `json:"checked_by_id"`
	Stage               string `json:"stage"`
	HasIrregularity     bool   `json:"has_irregularity"`
	IrregularityDetails string `json:"irregularity_details"`
	Notes               string `json:"notes"`
}

type InspectionResponse struct {
	ID                  string    `json:"id"`
	ShipmentID          string    `json:"shipment_id"`
	CheckpointID        string    `json:"checkpoint_id"`
	ShipmentDirectionID string    `json:"shipment_direction_id"`
	CheckedByID         string    `json:"checked_by_id"`
	CheckedAt           time.Time `json:"checked_at"`
	Stage               string    `json:"stage"`
	HasIrregularity     bool      `json:"has_irregularity"`
	IrregularityDetails string    `json:"irregularity_details,omitempty"`
	Notes               string    `json:"notes,omitempty"`
	SequenceOrder       *int      `json:"sequence_order"`
}
