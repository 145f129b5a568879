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

// SQL-backed implementation of the SequenceStore port.
type SQLSequenceStore struct {
	DB      *sql.DB
	Dialect Dialect
	Log     *logger.Logger
}

func NewSQLSequenceStore(db *sql.DB, dialect Dialect, log *logger.Logger) *SQLSequenceStore {
	return &SQLSequenceStore{DB: db, Dialect: dialect, Log: log}
}

func (s *SQLSequenceStore) GetSequence(ctx context.Context, shipmentID, directionID string) (_ []domain.SequenceEntry, err error) {
	defer obs.Time(ctx, s.Log, "sequence.store.Get")(&err)

	if s.DB == nil {
		return nil, errors.New("sql sequence store: DB is nil")
	}

	query := s.Dialect.Rebind(`
	SELECT
		s.checkpoint_id,
		COALESCE(c.name, ''),
		s.sequence_order
	FROM checkpoint_sequences s
	LEFT JOIN checkpoints c ON c.id = s.checkpoint_id
	WHERE s.shipment_id = ?
		AND s.shipment_direction_id = ?
	ORDER BY s.sequence_order;
	`)
	rows, err := s.DB.QueryContext(ctx, query, shipmentID, directionID)
	if err != nil {
		return nil, fmt.Errorf("get sequence: query checkpoint_sequences table: %w", err)
	}
	defer rows.Close()

	entries := make([]domain.SequenceEntry, 0, 16)
	for rows.Next() {
		e := domain.SequenceEntry{ShipmentID: shipmentID, ShipmentDirectionID: directionID}
		if err := rows.Scan(&e.CheckpointID, &e.CheckpointName, &e.SequenceOrder); err != nil {
			return nil, fmt.Errorf("get sequence: scan row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get sequence: row iteration: %w", err)
	}

	return entries, nil
}

// ReplaceSequence deletes and rewrites the whole sequence in one transaction.
// On Postgres, writers to the same key are serialized by a transaction
// scoped advisory lock; SQLite serializes writers itself.
func (s *SQLSequenceStore) ReplaceSequence(ctx context.Context, shipmentID, directionID string, checkpointIDs []string) (err error) {
	defer obs.Time(ctx, s.Log, "sequence.store.Replace")(&err)

	if s.DB == nil {
		return errors.New("sql sequence store: DB is nil")
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("replace sequence: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if s.Dialect == DialectPostgres {
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1));`, shipmentID+"|"+directionID); err != nil {
			return fmt.Errorf("replace sequence: advisory lock: %w", err)
		}
	}

	del := s.Dialect.Rebind(`
	DELETE FROM checkpoint_sequences
	WHERE shipment_id = ?
		AND shipment_direction_id = ?;
	`)
	if _, err := tx.ExecContext(ctx, del, shipmentID, directionID); err != nil {
		return fmt.Errorf("replace sequence: delete previous entries: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, s.Dialect.Rebind(`
	INSERT INTO checkpoint_sequences (
		shipment_id,
		shipment_direction_id,
		checkpoint_id,
		sequence_order
	)
	VALUES (?, ?, ?, ?);
	`))
	if err != nil {
		return fmt.Errorf("replace sequence: prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, id := range checkpointIDs {
		if _, err := stmt.ExecContext(ctx, shipmentID, directionID, id, i+1); err != nil {
			return fmt.Errorf("replace sequence: insert checkpoint_id=%q at %d: %w", id, i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("replace sequence: commit tx: %w", err)
	}
	return nil
}
