package services

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"checkpoint-route-service/internal/domain"
)

func sequenceOf(ids ...string) []domain.SequenceEntry {
	out := make([]domain.SequenceEntry, 0, len(ids))
	for i, id := range ids {
		out = append(out, domain.SequenceEntry{
			ShipmentID:          "shp-1",
			ShipmentDirectionID: "dir-1",
			CheckpointID:        id,
			SequenceOrder:       i + 1,
		})
	}
	return out
}

func inspected(checkpointID string, order int, stage domain.InspectionStage) domain.InspectionRecord {
	o := order
	return domain.InspectionRecord{
		ShipmentID:          "shp-1",
		ShipmentDirectionID: "dir-1",
		CheckpointID:        checkpointID,
		Stage:               stage,
		SequenceOrder:       &o,
	}
}

func TestLastInspectedPosition(t *testing.T) {
	_, ok := LastInspectedPosition(nil)
	assert.False(t, ok)

	unpositioned := domain.InspectionRecord{CheckpointID: "cpX"}
	_, ok = LastInspectedPosition([]domain.InspectionRecord{unpositioned})
	assert.False(t, ok)

	last, ok := LastInspectedPosition([]domain.InspectionRecord{
		inspected("cp3", 3, domain.StageInTransit),
		unpositioned,
		inspected("cp1", 1, domain.StageDeparture),
	})
	require.True(t, ok)
	assert.Equal(t, 3, last)
}

func TestCanModify(t *testing.T) {
	existing := sequenceOf("cp1", "cp2", "cp3")

	tests := []struct {
		name          string
		checkpointID  string
		index         int
		lastInspected int
		hasInspected  bool
		want          bool
	}{
		{"no inspections", "cp1", 0, 0, false, true},
		{"existing inside prefix", "cp2", 1, 2, true, false},
		{"existing at boundary", "cp1", 0, 2, true, false},
		{"existing beyond prefix", "cp3", 2, 2, true, true},
		{"existing decided by stored position", "cp1", 5, 2, true, false},
		{"new inside prefix", "cp9", 1, 2, true, false},
		{"new beyond prefix", "cp9", 2, 2, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CanModify(tt.checkpointID, tt.index, existing, tt.lastInspected, tt.hasInspected)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvaluateProposalFrozenPrefix(t *testing.T) {
	existing := sequenceOf("cp1", "cp2", "cp3")
	lock := NewSequenceLock([]domain.InspectionRecord{inspected("cp2", 2, domain.StageInTransit)}, existing)

	tests := []struct {
		name     string
		proposed []string
		accept   bool
	}{
		{"remove cp1", []string{"cp2", "cp3"}, false},
		{"remove cp2", []string{"cp1", "cp3"}, false},
		{"remove cp3", []string{"cp1", "cp2"}, true},
		{"append cp4", []string{"cp1", "cp2", "cp3", "cp4"}, true},
		{"insert before frozen", []string{"cp4", "cp1", "cp2", "cp3"}, false},
		{"swap frozen pair", []string{"cp2", "cp1", "cp3"}, false},
		{"replace tail", []string{"cp1", "cp2", "cp5"}, true},
		{"move tail into prefix", []string{"cp1", "cp3", "cp2"}, false},
		{"unchanged", []string{"cp1", "cp2", "cp3"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := EvaluateProposal(existing, tt.proposed, lock)
			if tt.accept {
				assert.Nil(t, v)
			} else {
				assert.NotNil(t, v)
			}
		})
	}
}

func TestEvaluateProposalWithoutInspections(t *testing.T) {
	existing := sequenceOf("cp1", "cp2", "cp3")
	lock := NewSequenceLock(nil, existing)

	assert.Nil(t, EvaluateProposal(existing, []string{"cp3", "cp9", "cp1"}, lock))
	assert.Nil(t, EvaluateProposal(nil, []string{"cp1"}, lock))
}

func TestEvaluateProposalAfterArrival(t *testing.T) {
	existing := sequenceOf("cp1", "cp2", "cp3")
	lock := NewSequenceLock([]domain.InspectionRecord{
		inspected("cp1", 1, domain.StageDeparture),
		inspected("cp3", 3, domain.StageAtArrival),
	}, existing)

	assert.True(t, lock.Arrived)
	assert.Equal(t, domain.SequenceFullyLocked, lock.State(existing))
	assert.NotNil(t, EvaluateProposal(existing, []string{"cp1", "cp2", "cp3", "cp4"}, lock))
	assert.False(t, lock.CanModify("cp4", 3, existing))
}

func TestSequenceLockState(t *testing.T) {
	existing := sequenceOf("cp1", "cp2")

	assert.Equal(t, domain.SequenceNone, NewSequenceLock(nil, nil).State(nil))
	assert.Equal(t, domain.SequenceProposed, NewSequenceLock(nil, existing).State(existing))

	lock := NewSequenceLock([]domain.InspectionRecord{inspected("cp1", 1, domain.StageDeparture)}, existing)
	assert.Equal(t, domain.SequenceLockedPrefix, lock.State(existing))
	assert.True(t, lock.Inspected("cp1"))
	assert.False(t, lock.Inspected("cp2"))
}

// A frozen position stays frozen as inspections accrue.
func TestFrozenPrefixOnlyGrows(t *testing.T) {
	existing := sequenceOf("cp1", "cp2", "cp3", "cp4")

	var records []domain.InspectionRecord
	frozen := map[string]bool{}
	for i, id := range []string{"cp1", "cp2", "cp3"} {
		records = append(records, inspected(id, i+1, domain.StageInTransit))
		lock := NewSequenceLock(records, existing)

		for j, e := range existing {
			ok := lock.CanModify(e.CheckpointID, j, existing)
			if frozen[e.CheckpointID] {
				assert.False(t, ok, "%s unfroze after inspecting %s", e.CheckpointID, id)
			}
			if !ok {
				frozen[e.CheckpointID] = true
			}
		}
	}

	assert.Len(t, frozen, 3)
}

func TestValidateProposal(t *testing.T) {
	assert.NoError(t, ValidateProposal([]string{"cp1", "cp2"}))

	for name, ids := range map[string][]string{
		"empty":     nil,
		"blank id":  {"cp1", " "},
		"duplicate": {"cp1", "cp2", "cp1"},
	} {
		err := ValidateProposal(ids)
		assert.True(t, errors.Is(err, domain.ErrInvalidInput), name)
	}
}

func TestSequenceLockResolvesUnpositionedRecords(t *testing.T) {
	existing := sequenceOf("cp1", "cp2", "cp3")

	// cp2 was inspected before any sequence existed.
	early := domain.InspectionRecord{CheckpointID: "cp2", Stage: domain.StageInTransit}
	lock := NewSequenceLock([]domain.InspectionRecord{early}, existing)

	assert.True(t, lock.HasInspected)
	assert.Equal(t, 2, lock.LastInspected)
	assert.Equal(t, domain.SequenceLockedPrefix, lock.State(existing))
	assert.NotNil(t, EvaluateProposal(existing, []string{"cp1", "cp3"}, lock))
	assert.Nil(t, EvaluateProposal(existing, []string{"cp1", "cp2"}, lock))

	// A snapshotted position is not overridden by the current sequence.
	snap := inspected("cp3", 1, domain.StageInTransit)
	lock = NewSequenceLock([]domain.InspectionRecord{snap}, existing)
	assert.Equal(t, 1, lock.LastInspected)

	// Checkpoints outside the sequence still freeze nothing.
	outside := domain.InspectionRecord{CheckpointID: "cp9", Stage: domain.StageInTransit}
	lock = NewSequenceLock([]domain.InspectionRecord{outside}, existing)
	assert.False(t, lock.HasInspected)
}
