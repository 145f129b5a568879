package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"checkpoint-route-service/internal/domain"
	"checkpoint-route-service/internal/platform/logger"
	"checkpoint-route-service/internal/platform/metrics"
	"checkpoint-route-service/internal/platform/obs"
	"checkpoint-route-service/internal/ports"
)

// RoutingDeps lists the collaborators of RoutingService.
// Metrics, Log, Now and NewID are optional.
type RoutingDeps struct {
	Checkpoints ports.CheckpointRepository
	Directions  ports.ShipmentDirectionRepository
	Sequences   ports.SequenceStore
	Ledger      ports.InspectionLedger
	Locker      ports.SequenceLocker
	Options     RouteOptions
	Metrics     *metrics.Metrics
	Log         *logger.Logger
	Now         func() time.Time
	NewID       func() string
}

// RoutingService is the single entry point for route resolution and
// sequence editing. It holds no state between calls: every operation
// reads the graph, sequence and ledger afresh.
type RoutingService struct {
	checkpoints ports.CheckpointRepository
	directions  ports.ShipmentDirectionRepository
	sequences   ports.SequenceStore
	ledger      ports.InspectionLedger
	locker      ports.SequenceLocker
	opts        RouteOptions
	metrics     *metrics.Metrics
	log         *logger.Logger
	now         func() time.Time
	newID       func() string
}

func NewRoutingService(deps RoutingDeps) (*RoutingService, error) {
	switch {
	case deps.Checkpoints == nil:
		return nil, errors.New("new routing service: checkpoint repository is nil")
	case deps.Directions == nil:
		return nil, errors.New("new routing service: shipment direction repository is nil")
	case deps.Sequences == nil:
		return nil, errors.New("new routing service: sequence store is nil")
	case deps.Ledger == nil:
		return nil, errors.New("new routing service: inspection ledger is nil")
	case deps.Locker == nil:
		return nil, errors.New("new routing service: sequence locker is nil")
	}

	s := &RoutingService{
		checkpoints: deps.Checkpoints,
		directions:  deps.Directions,
		sequences:   deps.Sequences,
		ledger:      deps.Ledger,
		locker:      deps.Locker,
		opts:        deps.Options,
		metrics:     deps.Metrics,
		log:         deps.Log,
		now:         deps.Now,
		newID:       deps.NewID,
	}
	if s.log == nil {
		s.log = logger.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = func() string { return uuid.NewString() }
	}
	return s, nil
}

// SequenceLockKey names the lock guarding one (shipment, direction) sequence.
func SequenceLockKey(shipmentID, directionID string) string {
	return "checkpoint-seq:" + shipmentID + ":" + directionID
}

// ResolveRoute returns the expected checkpoint route of a shipment.
// A persisted sequence always wins over the computed route.
func (s *RoutingService) ResolveRoute(ctx context.Context, shipmentID string) (_ domain.CheckpointPath, err error) {
	defer obs.Time(ctx, s.log, "routing.ResolveRoute")(&err)
	start := time.Now()

	shipmentID = strings.TrimSpace(shipmentID)
	if shipmentID == "" {
		return domain.CheckpointPath{}, fmt.Errorf("resolve route: %w: shipment id is required", domain.ErrInvalidInput)
	}

	dir, err := s.direction(ctx, shipmentID)
	if err != nil {
		return domain.CheckpointPath{}, fmt.Errorf("resolve route: %w", err)
	}

	var (
		entries []domain.SequenceEntry
		nodes   []domain.CheckpointNode
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var e error
		entries, e = s.sequences.GetSequence(gctx, shipmentID, dir.ID)
		if e != nil {
			return fmt.Errorf("get sequence: %w", e)
		}
		return nil
	})
	g.Go(func() error {
		var e error
		nodes, e = s.checkpoints.ListCheckpoints(gctx)
		if e != nil {
			return fmt.Errorf("list checkpoints: %w", e)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return domain.CheckpointPath{}, fmt.Errorf("resolve route: %w", err)
	}

	graph := domain.NewCheckpointGraph(nodes)

	var path domain.CheckpointPath
	if len(entries) > 0 {
		path, err = PathFromSequence(dir, entries, graph)
	} else {
		path, err = FindRoute(dir, graph, s.opts)
	}
	if err != nil {
		return domain.CheckpointPath{}, fmt.Errorf("resolve route: %w", err)
	}

	s.metrics.IncrementRouteResolution(string(path.Source))
	s.metrics.ObserveRouteLatency(time.Since(start))

	return path, nil
}

// PathFromSequence builds a route from a persisted sequence, framed by the
// departure and destination districts as virtual endpoints.
func PathFromSequence(dir domain.ShipmentDirection, entries []domain.SequenceEntry, graph *domain.CheckpointGraph) (domain.CheckpointPath, error) {
	ends, err := resolveEndpoints(dir, graph)
	if err != nil {
		return domain.CheckpointPath{}, err
	}

	n := len(entries) + 2
	p := domain.CheckpointPath{
		Path:              make([]string, 0, n),
		CheckpointIDs:     make([]string, 0, n),
		CheckpointDetails: make([]domain.CheckpointNode, 0, n),
		Source:            domain.RouteFromSequence,
	}

	p.Path = append(p.Path, ends.departureName)
	p.CheckpointIDs = append(p.CheckpointIDs, "")
	p.CheckpointDetails = append(p.CheckpointDetails, domain.VirtualEndpoint(ends.departureID, ends.departureName))

	for _, e := range entries {
		node, ok := graph.Node(e.CheckpointID)
		if !ok {
			name := e.CheckpointName
			if name == "" {
				name = e.CheckpointID
			}
			node = domain.CheckpointNode{ID: e.CheckpointID, Name: name}
		}
		p.Path = append(p.Path, node.Name)
		p.CheckpointIDs = append(p.CheckpointIDs, e.CheckpointID)
		p.CheckpointDetails = append(p.CheckpointDetails, node)
	}

	p.Path = append(p.Path, ends.destinationName)
	p.CheckpointIDs = append(p.CheckpointIDs, "")
	p.CheckpointDetails = append(p.CheckpointDetails, domain.VirtualEndpoint(ends.destinationID, ends.destinationName))

	return p, nil
}

// ProposeSequenceChange replaces the sequence of (shipment, direction) with
// checkpointIDs if no frozen position is touched.
//
// The ledger is re-read under the sequence lock immediately before the
// write, so an inspection recorded concurrently is always taken into
// account. A rejected proposal leaves the stored sequence untouched and is
// reported through the decision, not the error.
func (s *RoutingService) ProposeSequenceChange(
	ctx context.Context,
	shipmentID, directionID string,
	checkpointIDs []string,
) (_ domain.ProposalDecision, err error) {
	defer obs.Time(ctx, s.log, "routing.ProposeSequenceChange")(&err)

	if err := ValidateProposal(checkpointIDs); err != nil {
		return domain.ProposalDecision{}, fmt.Errorf("propose sequence: %w", err)
	}
	if err := s.checkOwnership(ctx, shipmentID, directionID); err != nil {
		return domain.ProposalDecision{}, fmt.Errorf("propose sequence: %w", err)
	}
	if err := s.checkCheckpointsExist(ctx, checkpointIDs); err != nil {
		return domain.ProposalDecision{}, fmt.Errorf("propose sequence: %w", err)
	}

	unlock, err := s.locker.Lock(ctx, SequenceLockKey(shipmentID, directionID))
	if err != nil {
		return domain.ProposalDecision{}, fmt.Errorf("propose sequence: acquire sequence lock: %w", err)
	}
	defer unlock()

	existing, records, err := s.readSequenceAndLedger(ctx, shipmentID, directionID)
	if err != nil {
		return domain.ProposalDecision{}, fmt.Errorf("propose sequence: %w", err)
	}

	lock := NewSequenceLock(records, existing)
	if v := EvaluateProposal(existing, checkpointIDs, lock); v != nil {
		s.metrics.IncrementProposal("rejected")
		s.log.Info("sequence proposal rejected",
			"shipment_id", shipmentID,
			"direction_id", directionID,
			"checkpoint_id", v.CheckpointID,
			"reason", v.Reason,
		)
		return domain.ProposalDecision{Accepted: false, Reason: v.Error()}, nil
	}

	if err := s.sequences.ReplaceSequence(ctx, shipmentID, directionID, checkpointIDs); err != nil {
		return domain.ProposalDecision{}, fmt.Errorf("propose sequence: replace sequence: %w", err)
	}

	s.metrics.IncrementProposal("accepted")
	return domain.ProposalDecision{Accepted: true}, nil
}

// CanModify reports whether the checkpoint at 1-based position of a
// sequence being edited may still change.
func (s *RoutingService) CanModify(
	ctx context.Context,
	shipmentID, directionID, checkpointID string,
	position int,
) (_ bool, err error) {
	defer obs.Time(ctx, s.log, "routing.CanModify")(&err)

	if strings.TrimSpace(checkpointID) == "" {
		return false, fmt.Errorf("can modify: %w: checkpoint id is required", domain.ErrInvalidInput)
	}
	if position < 1 {
		return false, fmt.Errorf("can modify: %w: position must be at least 1, got %d", domain.ErrInvalidInput, position)
	}
	if err := s.checkOwnership(ctx, shipmentID, directionID); err != nil {
		return false, fmt.Errorf("can modify: %w", err)
	}

	existing, records, err := s.readSequenceAndLedger(ctx, shipmentID, directionID)
	if err != nil {
		return false, fmt.Errorf("can modify: %w", err)
	}

	return NewSequenceLock(records, existing).CanModify(checkpointID, position-1, existing), nil
}

// GetSequence returns the persisted sequence with per-row lock flags.
func (s *RoutingService) GetSequence(ctx context.Context, shipmentID, directionID string) (_ domain.SequenceView, err error) {
	defer obs.Time(ctx, s.log, "routing.GetSequence")(&err)

	if err := s.checkOwnership(ctx, shipmentID, directionID); err != nil {
		return domain.SequenceView{}, fmt.Errorf("get sequence: %w", err)
	}

	existing, records, err := s.readSequenceAndLedger(ctx, shipmentID, directionID)
	if err != nil {
		return domain.SequenceView{}, fmt.Errorf("get sequence: %w", err)
	}

	lock := NewSequenceLock(records, existing)
	view := domain.SequenceView{
		ShipmentID:          shipmentID,
		ShipmentDirectionID: directionID,
		State:               lock.State(existing),
		Rows:                make([]domain.SequenceRow, 0, len(existing)),
	}
	if lock.HasInspected {
		last := lock.LastInspected
		view.LastInspectedPosition = &last
	}

	for i, e := range existing {
		view.Rows = append(view.Rows, domain.SequenceRow{
			SequenceEntry: e,
			Inspected:     lock.Inspected(e.CheckpointID),
			Locked:        !lock.CanModify(e.CheckpointID, i, existing),
		})
	}

	return view, nil
}

// RecordInspection appends an inspection to the ledger. The checkpoint's
// current sequence order is captured on the record under the sequence
// lock, so later sequence edits never change what an inspection counts as.
func (s *RoutingService) RecordInspection(ctx context.Context, in domain.NewInspection) (_ domain.InspectionRecord, err error) {
	defer obs.Time(ctx, s.log, "routing.RecordInspection")(&err)

	if err := in.Validate(); err != nil {
		return domain.InspectionRecord{}, fmt.Errorf("record inspection: %w", err)
	}
	if err := s.checkOwnership(ctx, in.ShipmentID, in.ShipmentDirectionID); err != nil {
		return domain.InspectionRecord{}, fmt.Errorf("record inspection: %w", err)
	}
	if err := s.checkCheckpointsExist(ctx, []string{in.CheckpointID}); err != nil {
		return domain.InspectionRecord{}, fmt.Errorf("record inspection: %w", err)
	}

	unlock, err := s.locker.Lock(ctx, SequenceLockKey(in.ShipmentID, in.ShipmentDirectionID))
	if err != nil {
		return domain.InspectionRecord{}, fmt.Errorf("record inspection: acquire sequence lock: %w", err)
	}
	defer unlock()

	entries, err := s.sequences.GetSequence(ctx, in.ShipmentID, in.ShipmentDirectionID)
	if err != nil {
		return domain.InspectionRecord{}, fmt.Errorf("record inspection: get sequence: %w", err)
	}

	stage, _ := domain.ParseInspectionStage(string(in.Stage))
	rec := domain.InspectionRecord{
		ID:                  s.newID(),
		ShipmentID:          in.ShipmentID,
		CheckpointID:        in.CheckpointID,
		ShipmentDirectionID: in.ShipmentDirectionID,
		CheckedByID:         in.CheckedByID,
		CheckedAt:           s.now().UTC(),
		Stage:               stage,
		Irregularity:        in.Irregularity,
		Notes:               in.Notes,
	}
	for _, e := range entries {
		if e.CheckpointID == in.CheckpointID {
			order := e.SequenceOrder
			rec.SequenceOrder = &order
			break
		}
	}

	if err := s.ledger.AppendInspection(ctx, rec); err != nil {
		return domain.InspectionRecord{}, fmt.Errorf("record inspection: append: %w", err)
	}

	s.metrics.IncrementInspection(string(rec.Stage), rec.Irregularity.HasIrregularity)
	return rec, nil
}

func (s *RoutingService) direction(ctx context.Context, shipmentID string) (domain.ShipmentDirection, error) {
	dir, err := s.directions.GetDirectionByShipment(ctx, shipmentID)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.ShipmentDirection{}, &domain.ResolutionError{
			ShipmentID: shipmentID,
			Reason:     "shipment direction not found",
			Err:        err,
		}
	}
	if err != nil {
		return domain.ShipmentDirection{}, fmt.Errorf("get shipment direction: %w", err)
	}
	return dir, nil
}

// checkOwnership verifies that directionID is the direction of shipmentID.
func (s *RoutingService) checkOwnership(ctx context.Context, shipmentID, directionID string) error {
	if strings.TrimSpace(shipmentID) == "" || strings.TrimSpace(directionID) == "" {
		return fmt.Errorf("%w: shipment id and direction id are required", domain.ErrInvalidInput)
	}

	dir, err := s.direction(ctx, shipmentID)
	if err != nil {
		return err
	}
	if dir.ID != directionID {
		return fmt.Errorf("%w: direction %q does not belong to shipment %q", domain.ErrNotFound, directionID, shipmentID)
	}
	return nil
}

func (s *RoutingService) checkCheckpointsExist(ctx context.Context, ids []string) error {
	nodes, err := s.checkpoints.ListCheckpoints(ctx)
	if err != nil {
		return fmt.Errorf("list checkpoints: %w", err)
	}

	graph := domain.NewCheckpointGraph(nodes)
	for _, id := range ids {
		if _, ok := graph.Node(id); !ok {
			return fmt.Errorf("%w: unknown checkpoint %q", domain.ErrInvalidInput, id)
		}
	}
	return nil
}

func (s *RoutingService) readSequenceAndLedger(
	ctx context.Context,
	shipmentID, directionID string,
) ([]domain.SequenceEntry, []domain.InspectionRecord, error) {
	var (
		entries []domain.SequenceEntry
		records []domain.InspectionRecord
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var e error
		entries, e = s.sequences.GetSequence(gctx, shipmentID, directionID)
		if e != nil {
			return fmt.Errorf("get sequence: %w", e)
		}
		return nil
	})
	g.Go(func() error {
		var e error
		records, e = s.ledger.ListInspections(gctx, shipmentID, directionID)
		if e != nil {
			return fmt.Errorf("list inspections: %w", e)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	return entries, records, nil
}
