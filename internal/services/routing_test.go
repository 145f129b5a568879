package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"checkpoint-route-service/internal/adapters/locks"
	"checkpoint-route-service/internal/adapters/memory"
	"checkpoint-route-service/internal/domain"
	"checkpoint-route-service/internal/platform/metrics"
)

type fixture struct {
	store   *memory.Store
	svc     *RoutingService
	metrics *metrics.Metrics
}

// newFixture seeds X(A) -north-> M(cp1, cp2, cp3) chain -> Y(B) and one
// shipment shp-1/dir-1 from X to Y.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	store := memory.NewStore()
	for _, n := range []domain.CheckpointNode{
		cp("A", "X"),
		cp("cp1", "M"),
		cp("cp2", "M"),
		cp("cp3", "M"),
		cp("cp4", "M"),
		cp("B", "Y"),
	} {
		store.PutCheckpoint(n)
	}
	require.NoError(t, store.LinkCheckpoints(ctx, "A", domain.North, "cp1"))
	require.NoError(t, store.LinkCheckpoints(ctx, "cp1", domain.North, "B"))
	store.PutDirection(shipment("X", "Y"))

	m := metrics.New(prometheus.NewRegistry())

	ids := 0
	svc, err := NewRoutingService(RoutingDeps{
		Checkpoints: store,
		Directions:  store,
		Sequences:   store,
		Ledger:      store,
		Locker:      locks.NewLocalLocker(),
		Metrics:     m,
		Now:         func() time.Time { return time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC) },
		NewID: func() string {
			ids++
			return fmt.Sprintf("insp-%d", ids)
		},
	})
	require.NoError(t, err)

	return &fixture{store: store, svc: svc, metrics: m}
}

func (f *fixture) inspect(t *testing.T, checkpointID string, stage domain.InspectionStage) domain.InspectionRecord {
	t.Helper()
	rec, err := f.svc.RecordInspection(context.Background(), domain.NewInspection{
		ShipmentID:          "shp-1",
		ShipmentDirectionID: "dir-1",
		CheckpointID:        checkpointID,
		CheckedByID:         "officer-1",
		Stage:               stage,
	})
	require.NoError(t, err)
	return rec
}

func TestNewRoutingServiceRequiresPorts(t *testing.T) {
	_, err := NewRoutingService(RoutingDeps{})
	assert.Error(t, err)
}

func TestResolveRouteComputesWithoutSequence(t *testing.T) {
	f := newFixture(t)

	got, err := f.svc.ResolveRoute(context.Background(), "shp-1")
	require.NoError(t, err)

	assert.Equal(t, domain.RouteComputed, got.Source)
	assert.Equal(t, []string{"A", "cp1", "B"}, got.CheckpointIDs)
	assert.Equal(t, []string{"X", "cp cp1", "Y"}, got.Path)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.RouteResolutions.WithLabelValues("computed")))
}

func TestResolveRoutePrefersPersistedSequence(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	decision, err := f.svc.ProposeSequenceChange(ctx, "shp-1", "dir-1", []string{"cp3", "cp2"})
	require.NoError(t, err)
	require.True(t, decision.Accepted)

	got, err := f.svc.ResolveRoute(ctx, "shp-1")
	require.NoError(t, err)

	assert.Equal(t, domain.RouteFromSequence, got.Source)
	assert.Equal(t, []string{"", "cp3", "cp2", ""}, got.CheckpointIDs)
	assert.Equal(t, []string{"X", "cp cp3", "cp cp2", "Y"}, got.Path)
	require.Len(t, got.CheckpointDetails, 4)
	assert.True(t, got.CheckpointDetails[0].Virtual)
	assert.True(t, got.CheckpointDetails[3].Virtual)
}

func TestResolveRouteUnknownShipment(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.ResolveRoute(context.Background(), "nope")

	var resErr *domain.ResolutionError
	require.True(t, errors.As(err, &resErr))
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	_, err = f.svc.ResolveRoute(context.Background(), " ")
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}

func TestProposeSequenceChangeRespectsInspections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	decision, err := f.svc.ProposeSequenceChange(ctx, "shp-1", "dir-1", []string{"cp1", "cp2", "cp3"})
	require.NoError(t, err)
	require.True(t, decision.Accepted)

	f.inspect(t, "cp2", domain.StageInTransit)

	decision, err = f.svc.ProposeSequenceChange(ctx, "shp-1", "dir-1", []string{"cp2", "cp3"})
	require.NoError(t, err)
	assert.False(t, decision.Accepted)
	assert.NotEmpty(t, decision.Reason)

	// Rejected proposals write nothing.
	entries, err := f.store.GetSequence(ctx, "shp-1", "dir-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"cp1", "cp2", "cp3"}, domain.SequenceIDs(entries))

	decision, err = f.svc.ProposeSequenceChange(ctx, "shp-1", "dir-1", []string{"cp1", "cp2", "cp4"})
	require.NoError(t, err)
	assert.True(t, decision.Accepted)

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.SequenceProposals.WithLabelValues("rejected")))
	assert.Equal(t, 2.0, testutil.ToFloat64(f.metrics.SequenceProposals.WithLabelValues("accepted")))
}

func TestProposeSequenceChangeInvalidInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.ProposeSequenceChange(ctx, "shp-1", "dir-1", nil)
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))

	_, err = f.svc.ProposeSequenceChange(ctx, "shp-1", "dir-1", []string{"cp1", "ghost"})
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))

	_, err = f.svc.ProposeSequenceChange(ctx, "shp-1", "dir-other", []string{"cp1"})
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestRecordInspectionSnapshotsSequenceOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	outside := f.inspect(t, "cp1", domain.StageDeparture)
	assert.Nil(t, outside.SequenceOrder)

	_, err := f.svc.ProposeSequenceChange(ctx, "shp-1", "dir-1", []string{"cp1", "cp2", "cp3"})
	require.NoError(t, err)

	rec := f.inspect(t, "cp3", domain.StageInTransit)
	require.NotNil(t, rec.SequenceOrder)
	assert.Equal(t, 3, *rec.SequenceOrder)
	assert.Equal(t, time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC), rec.CheckedAt)
	assert.NotEmpty(t, rec.ID)

	// cp3 is now frozen, so is everything before it.
	view, err := f.svc.GetSequence(ctx, "shp-1", "dir-1")
	require.NoError(t, err)
	assert.Equal(t, domain.SequenceLockedPrefix, view.State)
	require.NotNil(t, view.LastInspectedPosition)
	assert.Equal(t, 3, *view.LastInspectedPosition)
	for _, row := range view.Rows {
		assert.True(t, row.Locked, row.CheckpointID)
	}
	assert.True(t, view.Rows[2].Inspected)
	assert.False(t, view.Rows[1].Inspected)
}

func TestRecordInspectionLowercaseStage(t *testing.T) {
	f := newFixture(t)

	rec := f.inspect(t, "cp1", "at_arrival")
	assert.Equal(t, domain.StageAtArrival, rec.Stage)

	view, err := f.svc.GetSequence(context.Background(), "shp-1", "dir-1")
	require.NoError(t, err)
	assert.Equal(t, domain.SequenceNone, view.State)
}

func TestRecordInspectionValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.RecordInspection(ctx, domain.NewInspection{ShipmentID: "shp-1"})
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))

	_, err = f.svc.RecordInspection(ctx, domain.NewInspection{
		ShipmentID:          "shp-1",
		ShipmentDirectionID: "dir-1",
		CheckpointID:        "ghost",
		CheckedByID:         "officer-1",
		Stage:               domain.StageInTransit,
	})
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}

func TestRoutingCanModify(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.ProposeSequenceChange(ctx, "shp-1", "dir-1", []string{"cp1", "cp2", "cp3"})
	require.NoError(t, err)
	f.inspect(t, "cp2", domain.StageInTransit)

	tests := []struct {
		checkpointID string
		position     int
		want         bool
	}{
		{"cp1", 1, false},
		{"cp2", 2, false},
		{"cp3", 3, true},
		{"cp4", 2, false},
		{"cp4", 3, true},
	}
	for _, tt := range tests {
		got, err := f.svc.CanModify(ctx, "shp-1", "dir-1", tt.checkpointID, tt.position)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "%s@%d", tt.checkpointID, tt.position)
	}

	_, err = f.svc.CanModify(ctx, "shp-1", "dir-1", "cp1", 0)
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}

// Concurrent proposals and inspections never leave an inspection pointing
// at a position that now holds a different checkpoint.
func TestFrozenPrefixUnderConcurrency(t *testing.T) {
	for i := 0; i < 25; i++ {
		f := newFixture(t)
		ctx := context.Background()

		_, err := f.svc.ProposeSequenceChange(ctx, "shp-1", "dir-1", []string{"cp1", "cp2", "cp3"})
		require.NoError(t, err)

		var wg sync.WaitGroup
		wg.Add(3)
		go func() {
			defer wg.Done()
			_, _ = f.svc.ProposeSequenceChange(ctx, "shp-1", "dir-1", []string{"cp1", "cp3"})
		}()
		go func() {
			defer wg.Done()
			_, _ = f.svc.ProposeSequenceChange(ctx, "shp-1", "dir-1", []string{"cp3", "cp2", "cp1"})
		}()
		go func() {
			defer wg.Done()
			_, _ = f.svc.RecordInspection(ctx, domain.NewInspection{
				ShipmentID:          "shp-1",
				ShipmentDirectionID: "dir-1",
				CheckpointID:        "cp2",
				CheckedByID:         "officer-1",
				Stage:               domain.StageInTransit,
			})
		}()
		wg.Wait()

		entries, err := f.store.GetSequence(ctx, "shp-1", "dir-1")
		require.NoError(t, err)
		records, err := f.store.ListInspections(ctx, "shp-1", "dir-1")
		require.NoError(t, err)

		for _, r := range records {
			if r.SequenceOrder == nil {
				continue
			}
			require.GreaterOrEqual(t, len(entries), *r.SequenceOrder)
			assert.Equal(t, r.CheckpointID, entries[*r.SequenceOrder-1].CheckpointID, "iteration %d", i)
		}
	}
}

func TestInspectionBeforeFirstSequenceFreezesCheckpoint(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rec := f.inspect(t, "cp1", domain.StageInTransit)
	assert.Nil(t, rec.SequenceOrder)

	decision, err := f.svc.ProposeSequenceChange(ctx, "shp-1", "dir-1", []string{"cp1", "cp2"})
	require.NoError(t, err)
	require.True(t, decision.Accepted)

	view, err := f.svc.GetSequence(ctx, "shp-1", "dir-1")
	require.NoError(t, err)
	assert.Equal(t, domain.SequenceLockedPrefix, view.State)
	require.NotNil(t, view.LastInspectedPosition)
	assert.Equal(t, 1, *view.LastInspectedPosition)
	assert.True(t, view.Rows[0].Inspected)
	assert.True(t, view.Rows[0].Locked)
	assert.False(t, view.Rows[1].Locked)

	ok, err := f.svc.CanModify(ctx, "shp-1", "dir-1", "cp1", 1)
	require.NoError(t, err)
	assert.False(t, ok)

	decision, err = f.svc.ProposeSequenceChange(ctx, "shp-1", "dir-1", []string{"cp2"})
	require.NoError(t, err)
	assert.False(t, decision.Accepted)

	entries, err := f.store.GetSequence(ctx, "shp-1", "dir-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"cp1", "cp2"}, domain.SequenceIDs(entries))
}
