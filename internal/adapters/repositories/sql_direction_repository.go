package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"checkpoint-route-service/internal/domain"
)

// SQL-backed implementation of the ShipmentDirectionRepository port.
type SQLShipmentDirectionRepository struct {
	DB      *sql.DB
	Dialect Dialect
}

func NewSQLShipmentDirectionRepository(db *sql.DB, dialect Dialect) *SQLShipmentDirectionRepository {
	return &SQLShipmentDirectionRepository{DB: db, Dialect: dialect}
}

func (s *SQLShipmentDirectionRepository) GetDirectionByShipment(ctx context.Context, shipmentID string) (domain.ShipmentDirection, error) {
	if s.DB == nil {
		return domain.ShipmentDirection{}, errors.New("sql direction repository: DB is nil")
	}

	query := s.Dialect.Rebind(`
	SELECT
		id,
		shipment_id,
		departure_district_id,
		departure_district_name,
		destination_district_id,
		destination_district_name
	FROM shipment_directions
	WHERE shipment_id = ?;
	`)

	var d domain.ShipmentDirection
	err := s.DB.QueryRowContext(ctx, query, shipmentID).Scan(
		&d.ID,
		&d.ShipmentID,
		&d.DepartureDistrictID,
		&d.DepartureDistrictName,
		&d.DestinationDistrictID,
		&d.DestinationDistrictName,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ShipmentDirection{}, fmt.Errorf("get direction for shipment %q: %w", shipmentID, domain.ErrNotFound)
	}
	if err != nil {
		return domain.ShipmentDirection{}, fmt.Errorf("get direction for shipment %q: %w", shipmentID, err)
	}
	return d, nil
}

func (s *SQLShipmentDirectionRepository) UpsertDirection(ctx context.Context, d domain.ShipmentDirection) error {
	if s.DB == nil {
		return errors.New("sql direction repository: DB is nil")
	}

	query := s.Dialect.Rebind(`
	INSERT INTO shipment_directions (
		id,
		shipment_id,
		departure_district_id,
		departure_district_name,
		destination_district_id,
		destination_district_name
	)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT (id) DO UPDATE
	SET shipment_id = excluded.shipment_id,
		departure_district_id = excluded.departure_district_id,
		departure_district_name = excluded.departure_district_name,
		destination_district_id = excluded.destination_district_id,
		destination_district_name = excluded.destination_district_name;
	`)
	_, err := s.DB.ExecContext(ctx, query,
		d.ID,
		d.ShipmentID,
		d.DepartureDistrictID,
		d.DepartureDistrictName,
		d.DestinationDistrictID,
		d.DestinationDistrictName,
	)
	if err != nil {
		return fmt.Errorf("upsert direction id=%q: %w", d.ID, err)
	}
	return nil
}
