package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"checkpoint-route-service/internal/domain"
)

// Initialize the database schema. Statements are valid for SQLite and Postgres.
func InitSchema(ctx context.Context, db *sql.DB) error {
	if db == nil {
		return errors.New("init schema: DB is nil")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("init schema: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	createCheckpointsQuery := `
	CREATE TABLE IF NOT EXISTS checkpoints (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		district_id TEXT NOT NULL,
		district_name TEXT NOT NULL DEFAULT '',
		province_name TEXT NOT NULL DEFAULT '',
		address_id TEXT NOT NULL DEFAULT '',
		checkpoint_type TEXT NOT NULL
	);
	`

	createLinksQuery := `
	CREATE TABLE IF NOT EXISTS checkpoint_links (
		checkpoint_id TEXT NOT NULL,
		direction TEXT NOT NULL,
		neighbor_id TEXT NOT NULL,
		PRIMARY KEY (checkpoint_id, direction)
	);
	`

	createDirectionsQuery := `
	CREATE TABLE IF NOT EXISTS shipment_directions (
		id TEXT PRIMARY KEY,
		shipment_id TEXT NOT NULL UNIQUE,
		departure_district_id TEXT NOT NULL,
		departure_district_name TEXT NOT NULL DEFAULT '',
		destination_district_id TEXT NOT NULL,
		destination_district_name TEXT NOT NULL DEFAULT ''
	);
	`

	createSequencesQuery := `
	CREATE TABLE IF NOT EXISTS checkpoint_sequences (
		shipment_id TEXT NOT NULL,
		shipment_direction_id TEXT NOT NULL,
		checkpoint_id TEXT NOT NULL,
		sequence_order INTEGER NOT NULL,
		PRIMARY KEY (shipment_id, shipment_direction_id, sequence_order),
		UNIQUE (shipment_id, shipment_direction_id, checkpoint_id)
	);
	`

	createInspectionsQuery := `
	CREATE TABLE IF NOT EXISTS inspections (
		id TEXT PRIMARY KEY,
		shipment_id TEXT NOT NULL,
		checkpoint_id TEXT NOT NULL,
		shipment_direction_id TEXT NOT NULL,
		checked_by_id TEXT NOT NULL,
		checked_at TEXT NOT NULL,
		stage TEXT NOT NULL,
		has_irregularity BOOLEAN NOT NULL DEFAULT FALSE,
		irregularity_details TEXT NOT NULL DEFAULT '',
		notes TEXT NOT NULL DEFAULT '',
		sequence_order INTEGER
	);
	`

	createIndexQueries := []string{
		`CREATE INDEX IF NOT EXISTS idx_checkpoints_district ON checkpoints(district_id);`,
		`CREATE INDEX IF NOT EXISTS idx_inspections_shipment_direction ON inspections(shipment_id, shipment_direction_id);`,
	}

	statements := append([]string{
		createCheckpointsQuery,
		createLinksQuery,
		createDirectionsQuery,
		createSequencesQuery,
		createInspectionsQuery,
	}, createIndexQueries...)

	for i, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: exec statement #%d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("init schema: commit tx: %w", err)
	}

	return nil
}

type CheckpointSeed struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	DistrictID   string `json:"district_id"`
	DistrictName string `json:"district_name"`
	ProvinceName string `json:"province_name"`
	AddressID    string `json:"address_id"`
	Type         string `json:"type"`
}

type LinkSeed struct {
	From      string `json:"from"`
	Direction string `json:"direction"`
	To        string `json:"to"`
}

type DirectionSeed struct {
	ID                      string `json:"id"`
	ShipmentID              string `json:"shipment_id"`
	DepartureDistrictID     string `json:"departure_district_id"`
	DepartureDistrictName   string `json:"departure_district_name"`
	DestinationDistrictID   string `json:"destination_district_id"`
	DestinationDistrictName string `json:"destination_district_name"`
}

// NetworkSeed is the on-disk format of a checkpoint network seed file.
type NetworkSeed struct {
	Checkpoints        []CheckpointSeed `json:"checkpoints"`
	Links              []LinkSeed       `json:"links"`
	ShipmentDirections []DirectionSeed  `json:"shipment_directions"`
}

// SeedResult counts the records written by SeedFromJSON.
type SeedResult struct {
	Checkpoints int
	Links       int
	Directions  int
}

// Populate the database with a checkpoint network from a JSON file.
// Checkpoints and directions are upserted; links are written through
// LinkCheckpoints so both sides are set.
func SeedFromJSON(
	ctx context.Context,
	checkpoints *SQLCheckpointRepository,
	directions *SQLShipmentDirectionRepository,
	jsonPath string,
) (SeedResult, error) {
	bytes, err := os.ReadFile(jsonPath)
	if err != nil {
		return SeedResult{}, fmt.Errorf("seed network: read %q: %w", jsonPath, err)
	}

	var data NetworkSeed
	if err := json.Unmarshal(bytes, &data); err != nil {
		return SeedResult{}, fmt.Errorf("seed network: parse json: %w", err)
	}

	nodes := make([]domain.CheckpointNode, 0, len(data.Checkpoints))
	for i, c := range data.Checkpoints {
		id := strings.TrimSpace(c.ID)
		if id == "" {
			return SeedResult{}, fmt.Errorf("seed network: checkpoint at index %d: id cannot be empty", i+1)
		}
		if strings.TrimSpace(c.DistrictID) == "" {
			return SeedResult{}, fmt.Errorf("seed network: checkpoint %q: district_id cannot be empty", id)
		}
		typ := domain.CheckpointType(c.Type)
		if !typ.Valid() {
			return SeedResult{}, fmt.Errorf("seed network: checkpoint %q: unknown type %q", id, c.Type)
		}
		nodes = append(nodes, domain.CheckpointNode{
			ID:           id,
			Name:         strings.TrimSpace(c.Name),
			DistrictID:   strings.TrimSpace(c.DistrictID),
			DistrictName: strings.TrimSpace(c.DistrictName),
			ProvinceName: strings.TrimSpace(c.ProvinceName),
			AddressID:    strings.TrimSpace(c.AddressID),
			Type:         typ,
		})
	}

	var res SeedResult
	for _, n := range nodes {
		if err := checkpoints.UpsertCheckpoint(ctx, n); err != nil {
			return res, fmt.Errorf("seed network: %w", err)
		}
		res.Checkpoints++
	}

	for i, l := range data.Links {
		dir, err := domain.ParseDirection(l.Direction)
		if err != nil {
			return res, fmt.Errorf("seed network: link at index %d: %w", i+1, err)
		}
		if err := checkpoints.LinkCheckpoints(ctx, l.From, dir, l.To); err != nil {
			return res, fmt.Errorf("seed network: link at index %d: %w", i+1, err)
		}
		res.Links++
	}

	for i, d := range data.ShipmentDirections {
		if strings.TrimSpace(d.ID) == "" || strings.TrimSpace(d.ShipmentID) == "" {
			return res, fmt.Errorf("seed network: direction at index %d: id and shipment_id are required", i+1)
		}
		err := directions.UpsertDirection(ctx, domain.ShipmentDirection{
			ID:                      d.ID,
			ShipmentID:              d.ShipmentID,
			DepartureDistrictID:     d.DepartureDistrictID,
			DepartureDistrictName:   d.DepartureDistrictName,
			DestinationDistrictID:   d.DestinationDistrictID,
			DestinationDistrictName: d.DestinationDistrictName,
		})
		if err != nil {
			return res, fmt.Errorf("seed network: %w", err)
		}
		res.Directions++
	}

	return res, nil
}
