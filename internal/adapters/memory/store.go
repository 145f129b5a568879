package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"checkpoint-route-service/internal/domain"
)

// Store is an in-memory implementation of the checkpoint, direction,
// sequence and inspection ports. It is used by tests and local demos.
type Store struct {
	mu          sync.RWMutex
	checkpoints map[string]domain.CheckpointNode
	directions  map[string]domain.ShipmentDirection // by shipment id
	sequences   map[string][]string                 // by sequence key
	inspections []domain.InspectionRecord
}

func NewStore() *Store {
	return &Store{
		checkpoints: make(map[string]domain.CheckpointNode),
		directions:  make(map[string]domain.ShipmentDirection),
		sequences:   make(map[string][]string),
	}
}

func seqKey(shipmentID, directionID string) string {
	return shipmentID + "|" + directionID
}

// PutCheckpoint stores n as given; links are not mirrored.
func (s *Store) PutCheckpoint(n domain.CheckpointNode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkpoints[n.ID] = cloneNode(n)
}

// LinkCheckpoints sets from.dir = to and to.opposite(dir) = from.
func (s *Store) LinkCheckpoints(_ context.Context, fromID string, dir domain.Direction, toID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	from, ok := s.checkpoints[fromID]
	if !ok {
		return fmt.Errorf("link checkpoints: %q: %w", fromID, domain.ErrNotFound)
	}
	to, ok := s.checkpoints[toID]
	if !ok {
		return fmt.Errorf("link checkpoints: %q: %w", toID, domain.ErrNotFound)
	}

	if from.Links == nil {
		from.Links = map[domain.Direction]domain.NeighborRef{}
	}
	if to.Links == nil {
		to.Links = map[domain.Direction]domain.NeighborRef{}
	}
	from.Links[dir] = domain.NeighborRef{ID: to.ID, Name: to.Name}
	to.Links[dir.Opposite()] = domain.NeighborRef{ID: from.ID, Name: from.Name}

	s.checkpoints[fromID] = from
	s.checkpoints[toID] = to
	return nil
}

func (s *Store) PutDirection(d domain.ShipmentDirection) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.directions[d.ShipmentID] = d
}

func (s *Store) ListCheckpoints(_ context.Context) ([]domain.CheckpointNode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.CheckpointNode, 0, len(s.checkpoints))
	for _, n := range s.checkpoints {
		out = append(out, cloneNode(n))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) GetDirectionByShipment(_ context.Context, shipmentID string) (domain.ShipmentDirection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.directions[shipmentID]
	if !ok {
		return domain.ShipmentDirection{}, fmt.Errorf("get direction for shipment %q: %w", shipmentID, domain.ErrNotFound)
	}
	return d, nil
}

func (s *Store) GetSequence(_ context.Context, shipmentID, directionID string) ([]domain.SequenceEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.sequences[seqKey(shipmentID, directionID)]
	out := make([]domain.SequenceEntry, 0, len(ids))
	for i, id := range ids {
		out = append(out, domain.SequenceEntry{
			ShipmentID:          shipmentID,
			ShipmentDirectionID: directionID,
			CheckpointID:        id,
			CheckpointName:      s.checkpoints[id].Name,
			SequenceOrder:       i + 1,
		})
	}
	return out, nil
}

func (s *Store) ReplaceSequence(_ context.Context, shipmentID, directionID string, checkpointIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, len(checkpointIDs))
	copy(ids, checkpointIDs)
	s.sequences[seqKey(shipmentID, directionID)] = ids
	return nil
}

func (s *Store) ListInspections(_ context.Context, shipmentID, directionID string) ([]domain.InspectionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.InspectionRecord
	for _, r := range s.inspections {
		if r.ShipmentID == shipmentID && r.ShipmentDirectionID == directionID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *Store) AppendInspection(_ context.Context, rec domain.InspectionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inspections = append(s.inspections, rec)
	return nil
}

func cloneNode(n domain.CheckpointNode) domain.CheckpointNode {
	if n.Links == nil {
		return n
	}
	links := make(map[domain.Direction]domain.NeighborRef, len(n.Links))
	for d, ref := range n.Links {
		links[d] = ref
	}
	n.Links = links
	return n
}
