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

// SQL-backed implementation of the CheckpointRepository port.
type SQLCheckpointRepository struct {
	DB      *sql.DB
	Dialect Dialect
	Log     *logger.Logger
}

func NewSQLCheckpointRepository(db *sql.DB, dialect Dialect, log *logger.Logger) *SQLCheckpointRepository {
	return &SQLCheckpointRepository{DB: db, Dialect: dialect, Log: log}
}

// Return all checkpoints with their directional links, ordered by id.
func (s *SQLCheckpointRepository) ListCheckpoints(ctx context.Context) (_ []domain.CheckpointNode, err error) {
	defer obs.Time(ctx, s.Log, "checkpoints.repo.List")(&err)

	if s.DB == nil {
		return nil, errors.New("sql checkpoint repository: DB is nil")
	}

	query := `
	SELECT
		id,
		name,
		district_id,
		district_name,
		province_name,
		address_id,
		checkpoint_type
	FROM checkpoints
	ORDER BY id;
	`
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list checkpoints: query checkpoints table: %w", err)
	}
	defer rows.Close()

	nodes := make([]domain.CheckpointNode, 0, 64)
	index := make(map[string]int, 64)
	for rows.Next() {
		var n domain.CheckpointNode
		var typ string
		if err := rows.Scan(&n.ID, &n.Name, &n.DistrictID, &n.DistrictName, &n.ProvinceName, &n.AddressID, &typ); err != nil {
			return nil, fmt.Errorf("list checkpoints: scan row: %w", err)
		}
		n.Type = domain.CheckpointType(typ)
		n.Links = make(map[domain.Direction]domain.NeighborRef, 4)
		index[n.ID] = len(nodes)
		nodes = append(nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list checkpoints: row iteration: %w", err)
	}

	linksQuery := `
	SELECT
		l.checkpoint_id,
		l.direction,
		l.neighbor_id,
		COALESCE(n.name, '')
	FROM checkpoint_links l
	LEFT JOIN checkpoints n ON n.id = l.neighbor_id;
	`
	linkRows, err := s.DB.QueryContext(ctx, linksQuery)
	if err != nil {
		return nil, fmt.Errorf("list checkpoints: query checkpoint_links table: %w", err)
	}
	defer linkRows.Close()

	for linkRows.Next() {
		var from, dir, to, toName string
		if err := linkRows.Scan(&from, &dir, &to, &toName); err != nil {
			return nil, fmt.Errorf("list checkpoints: scan link row: %w", err)
		}
		i, ok := index[from]
		if !ok {
			continue
		}
		nodes[i].Links[domain.Direction(dir)] = domain.NeighborRef{ID: to, Name: toName}
	}
	if err := linkRows.Err(); err != nil {
		return nil, fmt.Errorf("list checkpoints: link row iteration: %w", err)
	}

	return nodes, nil
}

// Insert or update a checkpoint's attributes. Links are managed by LinkCheckpoints.
func (s *SQLCheckpointRepository) UpsertCheckpoint(ctx context.Context, n domain.CheckpointNode) error {
	if s.DB == nil {
		return errors.New("sql checkpoint repository: DB is nil")
	}

	query := s.Dialect.Rebind(`
	INSERT INTO checkpoints (
		id,
		name,
		district_id,
		district_name,
		province_name,
		address_id,
		checkpoint_type
	)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (id) DO UPDATE
	SET name = excluded.name,
		district_id = excluded.district_id,
		district_name = excluded.district_name,
		province_name = excluded.province_name,
		address_id = excluded.address_id,
		checkpoint_type = excluded.checkpoint_type;
	`)
	if _, err := s.DB.ExecContext(ctx, query, n.ID, n.Name, n.DistrictID, n.DistrictName, n.ProvinceName, n.AddressID, string(n.Type)); err != nil {
		return fmt.Errorf("upsert checkpoint id=%q: %w", n.ID, err)
	}
	return nil
}

// LinkCheckpoints sets fromID.dir = toID and toID.opposite(dir) = fromID in
// one transaction. Reciprocal slots that pointed back at the previous
// occupants are cleared so the rewritten pair stays symmetric.
func (s *SQLCheckpointRepository) LinkCheckpoints(ctx context.Context, fromID string, dir domain.Direction, toID string) (err error) {
	defer obs.Time(ctx, s.Log, "checkpoints.repo.Link")(&err)

	if s.DB == nil {
		return errors.New("sql checkpoint repository: DB is nil")
	}
	if fromID == "" || toID == "" || fromID == toID {
		return fmt.Errorf("link checkpoints: %w: need two distinct checkpoint ids", domain.ErrInvalidInput)
	}
	opposite := dir.Opposite()
	if opposite == "" {
		return fmt.Errorf("link checkpoints: %w: unknown direction %q", domain.ErrInvalidInput, dir)
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("link checkpoints: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var count int
	countQuery := s.Dialect.Rebind(`SELECT COUNT(*) FROM checkpoints WHERE id IN (?, ?);`)
	if err := tx.QueryRowContext(ctx, countQuery, fromID, toID).Scan(&count); err != nil {
		return fmt.Errorf("link checkpoints: check existence: %w", err)
	}
	if count != 2 {
		return fmt.Errorf("link checkpoints: %q or %q: %w", fromID, toID, domain.ErrNotFound)
	}

	if err := s.detachReciprocal(ctx, tx, fromID, dir, toID); err != nil {
		return fmt.Errorf("link checkpoints: %w", err)
	}
	if err := s.detachReciprocal(ctx, tx, toID, opposite, fromID); err != nil {
		return fmt.Errorf("link checkpoints: %w", err)
	}

	upsert := s.Dialect.Rebind(`
	INSERT INTO checkpoint_links (checkpoint_id, direction, neighbor_id)
	VALUES (?, ?, ?)
	ON CONFLICT (checkpoint_id, direction) DO UPDATE
	SET neighbor_id = excluded.neighbor_id;
	`)
	if _, err := tx.ExecContext(ctx, upsert, fromID, string(dir), toID); err != nil {
		return fmt.Errorf("link checkpoints: upsert %s link of %q: %w", dir, fromID, err)
	}
	if _, err := tx.ExecContext(ctx, upsert, toID, string(opposite), fromID); err != nil {
		return fmt.Errorf("link checkpoints: upsert %s link of %q: %w", opposite, toID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("link checkpoints: commit tx: %w", err)
	}
	return nil
}

// detachReciprocal clears the back-link of whatever nodeID.dir points at
// now, unless it is already newNeighbor.
func (s *SQLCheckpointRepository) detachReciprocal(ctx context.Context, tx *sql.Tx, nodeID string, dir domain.Direction, newNeighbor string) error {
	var current string
	q := s.Dialect.Rebind(`SELECT neighbor_id FROM checkpoint_links WHERE checkpoint_id = ? AND direction = ?;`)
	err := tx.QueryRowContext(ctx, q, nodeID, string(dir)).Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s link of %q: %w", dir, nodeID, err)
	}
	if current == newNeighbor {
		return nil
	}

	del := s.Dialect.Rebind(`
	DELETE FROM checkpoint_links
	WHERE checkpoint_id = ? AND direction = ? AND neighbor_id = ?;
	`)
	if _, err := tx.ExecContext(ctx, del, current, string(dir.Opposite()), nodeID); err != nil {
		return fmt.Errorf("detach %s link of %q: %w", dir.Opposite(), current, err)
	}
	return nil
}
