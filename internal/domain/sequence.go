package domain

// Persisted row of a user-chosen checkpoint ordering for one
// (shipment, direction). SequenceOrder is 1-based and contiguous.
type SequenceEntry struct {
	ShipmentID          string
	ShipmentDirectionID string
	CheckpointID        string
	CheckpointName      string
	SequenceOrder       int
}

// Return the checkpoint ids of a sequence in order.
func SequenceIDs(entries []SequenceEntry) []string {
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.CheckpointID)
	}
	return ids
}

// Lifecycle of a sequence for one (shipment, direction).
// There is no transition back to SequenceNone.
type SequenceState string

const (
	SequenceNone         SequenceState = "NO_SEQUENCE"
	SequenceProposed     SequenceState = "SEQUENCE_PROPOSED"
	SequenceLockedPrefix SequenceState = "SEQUENCE_LOCKED_PREFIX"
	SequenceFullyLocked  SequenceState = "SEQUENCE_FULLY_LOCKED"
)

// Sequence entry annotated for editing clients.
type SequenceRow struct {
	SequenceEntry
	Inspected bool
	Locked    bool
}

// Snapshot of a persisted sequence with lock information.
type SequenceView struct {
	ShipmentID            string
	ShipmentDirectionID   string
	State                 SequenceState
	LastInspectedPosition *int
	Rows                  []SequenceRow
}

// Outcome of a proposed sequence replacement.
type ProposalDecision struct {
	Accepted bool
	Reason   string
}
