package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"checkpoint-route-service/internal/domain"
	"checkpoint-route-service/internal/platform/logger"
	"checkpoint-route-service/internal/platform/obs"
)

// SQL-backed implementation of the InspectionLedger port. Rows are only
// ever inserted.
type SQLInspectionLedger struct {
	DB      *sql.DB
	Dialect Dialect
	Log     *logger.Logger
}

func NewSQLInspectionLedger(db *sql.DB, dialect Dialect, log *logger.Logger) *SQLInspectionLedger {
	return &SQLInspectionLedger{DB: db, Dialect: dialect, Log: log}
}

func (s *SQLInspectionLedger) ListInspections(ctx context.Context, shipmentID, directionID string) (_ []domain.InspectionRecord, err error) {
	defer obs.Time(ctx, s.Log, "inspections.ledger.List")(&err)

	if s.DB == nil {
		return nil, errors.New("sql inspection ledger: DB is nil")
	}

	query := s.Dialect.Rebind(`
	SELECT
		id,
		shipment_id,
		checkpoint_id,
		shipment_direction_id,
		checked_by_id,
		checked_at,
		stage,
		has_irregularity,
		irregularity_details,
		notes,
		sequence_order
	FROM inspections
	WHERE shipment_id = ?
		AND shipment_direction_id = ?
	ORDER BY checked_at, id;
	`)
	rows, err := s.DB.QueryContext(ctx, query, shipmentID, directionID)
	if err != nil {
		return nil, fmt.Errorf("list inspections: query inspections table: %w", err)
	}
	defer rows.Close()

	var records []domain.InspectionRecord
	for rows.Next() {
		var (
			r         domain.InspectionRecord
			checkedAt string
			stage     string
			order     sql.NullInt64
		)
		err := rows.Scan(
			&r.ID,
			&r.ShipmentID,
			&r.CheckpointID,
			&r.ShipmentDirectionID,
			&r.CheckedByID,
			&checkedAt,
			&stage,
			&r.Irregularity.HasIrregularity,
			&r.Irregularity.Details,
			&r.Notes,
			&order,
		)
		if err != nil {
			return nil, fmt.Errorf("list inspections: scan row: %w", err)
		}

		if r.CheckedAt, err = parseTimestamp(checkedAt); err != nil {
			return nil, fmt.Errorf("list inspections: id=%q: parse checked_at: %w", r.ID, err)
		}
		r.Stage = domain.InspectionStage(stage)
		if order.Valid {
			o := int(order.Int64)
			r.SequenceOrder = &o
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list inspections: row iteration: %w", err)
	}

	return records, nil
}

func (s *SQLInspectionLedger) AppendInspection(ctx context.Context, r domain.InspectionRecord) (err error) {
	defer obs.Time(ctx, s.Log, "inspections.ledger.Append")(&err)

	if s.DB == nil {
		return errors.New("sql inspection ledger: DB is nil")
	}

	var order sql.NullInt64
	if r.SequenceOrder != nil {
		order = sql.NullInt64{Int64: int64(*r.SequenceOrder), Valid: true}
	}

	query := s.Dialect.Rebind(`
	INSERT INTO inspections (
		id,
		shipment_id,
		checkpoint_id,
		shipment_direction_id,
		checked_by_id,
		checked_at,
		stage,
		has_irregularity,
		irregularity_details,
		notes,
		sequence_order
	)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
	`)
	_, err = s.DB.ExecContext(ctx, query,
		r.ID,
		r.ShipmentID,
		r.CheckpointID,
		r.ShipmentDirectionID,
		r.CheckedByID,
		formatTimestamp(r.CheckedAt),
		string(r.Stage),
		r.Irregularity.HasIrregularity,
		r.Irregularity.Details,
		r.Notes,
		order,
	)
	if err != nil {
		return fmt.Errorf("append inspection id=%q: %w", r.ID, err)
	}
	return nil
}
