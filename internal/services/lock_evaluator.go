package services

import (
	"fmt"
	"strings"

	"checkpoint-route-service/internal/domain"
)

// LastInspectedPosition returns the highest sequence order carried by any
// inspection record. ok is false when no record carries a position.
func LastInspectedPosition(records []domain.InspectionRecord) (last int, ok bool) {
	for _, r := range records {
		if r.SequenceOrder == nil {
			continue
		}
		if !ok || *r.SequenceOrder > last {
			last = *r.SequenceOrder
			ok = true
		}
	}
	return last, ok
}

// CanModify reports whether checkpointID may still be moved or removed.
//
// candidateIndex is the 0-based index of the checkpoint in the sequence
// being edited. The persisted sequence decides for checkpoints it already
// contains: they are frozen up to and including lastInspected. A newly
// proposed checkpoint is modifiable only beyond that prefix.
func CanModify(checkpointID string, candidateIndex int, existing []domain.SequenceEntry, lastInspected int, hasInspected bool) bool {
	if !hasInspected {
		return true
	}

	for _, e := range existing {
		if e.CheckpointID == checkpointID {
			return e.SequenceOrder > lastInspected
		}
	}

	return candidateIndex+1 > lastInspected
}

// SequenceLock is the frozen prefix of one (shipment, direction) sequence
// derived from its inspection records.
type SequenceLock struct {
	LastInspected int
	HasInspected  bool
	// Arrived is set once an AT_ARRIVAL inspection exists; every position
	// is frozen from then on.
	Arrived bool

	inspected map[string]struct{}
}

// NewSequenceLock derives the lock of existing from its inspection records.
// A record written while its checkpoint was outside any sequence counts at
// the position the checkpoint holds in existing, if any.
func NewSequenceLock(records []domain.InspectionRecord, existing []domain.SequenceEntry) SequenceLock {
	l := SequenceLock{inspected: make(map[string]struct{}, len(records))}
	l.LastInspected, l.HasInspected = LastInspectedPosition(resolvePositions(records, existing))

	for _, r := range records {
		l.inspected[r.CheckpointID] = struct{}{}
		if r.Stage == domain.StageAtArrival {
			l.Arrived = true
		}
	}
	return l
}

// resolvePositions fills in SequenceOrder for records that carry none.
// Snapshotted positions are kept as written.
func resolvePositions(records []domain.InspectionRecord, existing []domain.SequenceEntry) []domain.InspectionRecord {
	order := make(map[string]int, len(existing))
	for _, e := range existing {
		order[e.CheckpointID] = e.SequenceOrder
	}

	out := make([]domain.InspectionRecord, len(records))
	for i, r := range records {
		if r.SequenceOrder == nil {
			if o, ok := order[r.CheckpointID]; ok {
				r.SequenceOrder = &o
			}
		}
		out[i] = r
	}
	return out
}

func (l SequenceLock) Inspected(checkpointID string) bool {
	_, ok := l.inspected[checkpointID]
	return ok
}

func (l SequenceLock) CanModify(checkpointID string, candidateIndex int, existing []domain.SequenceEntry) bool {
	if l.Arrived {
		return false
	}
	return CanModify(checkpointID, candidateIndex, existing, l.LastInspected, l.HasInspected)
}

// State places a sequence in its lifecycle.
func (l SequenceLock) State(existing []domain.SequenceEntry) domain.SequenceState {
	switch {
	case len(existing) == 0:
		return domain.SequenceNone
	case l.Arrived:
		return domain.SequenceFullyLocked
	case l.HasInspected:
		return domain.SequenceLockedPrefix
	default:
		return domain.SequenceProposed
	}
}

// ValidateProposal rejects proposals that could never form a valid sequence,
// independent of any lock.
func ValidateProposal(proposed []string) error {
	if len(proposed) == 0 {
		return fmt.Errorf("%w: a sequence must contain at least one checkpoint", domain.ErrInvalidInput)
	}

	seen := make(map[string]struct{}, len(proposed))
	for i, id := range proposed {
		if strings.TrimSpace(id) == "" {
			return fmt.Errorf("%w: checkpoint id at position %d is empty", domain.ErrInvalidInput, i+1)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: checkpoint %q appears more than once", domain.ErrInvalidInput, id)
		}
		seen[id] = struct{}{}
	}
	return nil
}

// EvaluateProposal checks a full replacement of existing by proposed against
// the lock. Every removed, moved or inserted checkpoint must be modifiable;
// a moved checkpoint must also be modifiable at its new position, so a swap
// passes only when both sides do. The first violation is returned.
func EvaluateProposal(existing []domain.SequenceEntry, proposed []string, lock SequenceLock) *domain.LockViolationError {
	if lock.Arrived {
		return &domain.LockViolationError{Reason: "shipment has arrived; the sequence is fully locked"}
	}

	index := make(map[string]int, len(proposed))
	for i, id := range proposed {
		index[id] = i
	}

	for _, e := range existing {
		i, kept := index[e.CheckpointID]
		switch {
		case !kept:
			if !lock.CanModify(e.CheckpointID, -1, existing) {
				return &domain.LockViolationError{
					CheckpointID: e.CheckpointID,
					Position:     e.SequenceOrder,
					Reason:       fmt.Sprintf("cannot remove an inspected position (last inspected position is %d)", lock.LastInspected),
				}
			}
		case i+1 != e.SequenceOrder:
			if !lock.CanModify(e.CheckpointID, i, existing) || !positionOpen(i, lock) {
				return &domain.LockViolationError{
					CheckpointID: e.CheckpointID,
					Position:     e.SequenceOrder,
					Reason:       fmt.Sprintf("cannot move to position %d (last inspected position is %d)", i+1, lock.LastInspected),
				}
			}
		}
	}

	existingIDs := make(map[string]struct{}, len(existing))
	for _, e := range existing {
		existingIDs[e.CheckpointID] = struct{}{}
	}
	for i, id := range proposed {
		if _, ok := existingIDs[id]; ok {
			continue
		}
		if !lock.CanModify(id, i, existing) {
			return &domain.LockViolationError{
				CheckpointID: id,
				Position:     i + 1,
				Reason:       fmt.Sprintf("cannot insert into the inspected prefix (last inspected position is %d)", lock.LastInspected),
			}
		}
	}

	return nil
}

func positionOpen(index int, lock SequenceLock) bool {
	return !lock.HasInspected || index+1 > lock.LastInspected
}
