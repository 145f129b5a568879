package domain

import (
	"fmt"
	"strings"
	"time"
)

// Stage of the journey at which an inspection was recorded.
type InspectionStage string

const (
	StageDeparture InspectionStage = "DEPARTURE"
	StageInTransit InspectionStage = "IN_TRANSIT"
	StageAtArrival InspectionStage = "AT_ARRIVAL"
)

func ParseInspectionStage(s string) (InspectionStage, error) {
	st := InspectionStage(strings.ToUpper(strings.TrimSpace(s)))
	switch st {
	case StageDeparture, StageInTransit, StageAtArrival:
		return st, nil
	}
	return "", fmt.Errorf("parse inspection stage: unknown stage %q", s)
}

// Irregularity observed during an inspection, kept apart from free-text notes.
type Irregularity struct {
	HasIrregularity bool
	Details         string
}

// Append-only record tying a shipment to a checkpoint at a point in time.
// SequenceOrder is the position the checkpoint held in the persisted
// sequence when the inspection was written; nil when it was not part of
// a sequence at that time.
type InspectionRecord struct {
	ID                  string
	ShipmentID          string
	CheckpointID        string
	ShipmentDirectionID string
	CheckedByID         string
	CheckedAt           time.Time
	Stage               InspectionStage
	Irregularity        Irregularity
	Notes               string
	SequenceOrder       *int
}

// Caller input for recording an inspection.
type NewInspection struct {
	ShipmentID          string
	ShipmentDirectionID string
	CheckpointID        string
	CheckedByID         string
	Stage               InspectionStage
	Irregularity        Irregularity
	Notes               string
}

func (n NewInspection) Validate() error {
	switch {
	case strings.TrimSpace(n.ShipmentID) == "":
		return fmt.Errorf("%w: shipment_id is required", ErrInvalidInput)
	case strings.TrimSpace(n.ShipmentDirectionID) == "":
		return fmt.Errorf("%w: shipment_direction_id is required", ErrInvalidInput)
	case strings.TrimSpace(n.CheckpointID) == "":
		return fmt.Errorf("%w: checkpoint_id is required", ErrInvalidInput)
	case strings.TrimSpace(n.CheckedByID) == "":
		return fmt.Errorf("%w: checked_by_id is required", ErrInvalidInput)
	}
	if _, err := ParseInspectionStage(string(n.Stage)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if !n.Irregularity.HasIrregularity && strings.TrimSpace(n.Irregularity.Details) != "" {
		return fmt.Errorf("%w: irregularity details given without an irregularity", ErrInvalidInput)
	}
	return nil
}
