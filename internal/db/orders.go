package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/platewise/menu-ingest-service/internal/models"
)

// CreateOrder inserts an order row in the open state.
func (s *Store) CreateOrder(ctx context.Context, order *models.Order) error {
	query := `
		INSERT INTO orders (venue_id, table_code, status, total)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`
	return s.pool.QueryRow(ctx, query,
		order.VenueID, order.TableCode, order.Status, order.Total,
	).Scan(&order.ID, &order.CreatedAt)
}

// VenueOrders returns recent orders for a venue.
func (s *Store) VenueOrders(ctx context.Context, venueID uuid.UUID, limit int) ([]models.Order, error) {
	query := `
		SELECT id, venue_id, COALESCE(table_code, ''), COALESCE(status, ''),
		       COALESCE(total, 0), created_at
		FROM orders
		WHERE venue_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := s.pool.Query(ctx, query, venueID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []models.Order
	for rows.Next() {
		var o models.Order
		if err := rows.Scan(&o.ID, &o.VenueID, &o.TableCode, &o.Status, &o.Total, &o.CreatedAt); err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// StaleSessionIDs returns table sessions with no activity since the cutoff.
func (s *Store) StaleSessionIDs(ctx context.Context, venueID uuid.UUID, cutoff time.Time) ([]uuid.UUID, error) {
	query := `
		SELECT id FROM table_sessions
		WHERE venue_id = $1 AND last_activity_at < $2 AND closed_at IS NULL
	`
	rows, err := s.pool.Query(ctx, query, venueID, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// CloseSession marks one table session closed and abandons its open orders.
func (s *Store) CloseSession(ctx context.Context, sessionID uuid.UUID) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin close session: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`UPDATE orders SET status = 'abandoned' WHERE session_id = $1 AND status = 'open'`,
		sessionID,
	); err != nil {
		return fmt.Errorf("abandon orders: %w", err)
	}
	if _, err := tx.Exec(ctx,
		`UPDATE table_sessions SET closed_at = NOW() WHERE id = $1`,
		sessionID,
	); err != nil {
		return fmt.Errorf("close session: %w", err)
	}

	return tx.Commit(ctx)
}

// VenueTier returns the venue's subscription tier.
func (s *Store) VenueTier(ctx context.Context, venueID uuid.UUID) (string, error) {
	var tier string
	err := s.pool.QueryRow(ctx,
		`SELECT COALESCE(tier, 'starter') FROM venues WHERE id = $1`, venueID,
	).Scan(&tier)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", err
	}
	return tier, nil
}

// Stations lists a venue's KDS stations.
func (s *Store) Stations(ctx context.Context, venueID uuid.UUID) ([]models.KDSStation, error) {
	query := `
		SELECT id, venue_id, name, created_at
		FROM kds_stations
		WHERE venue_id = $1
		ORDER BY created_at
	`
	rows, err := s.pool.Query(ctx, query, venueID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stations []models.KDSStation
	for rows.Next() {
		var st models.KDSStation
		if err := rows.Scan(&st.ID, &st.VenueID, &st.Name, &st.CreatedAt); err != nil {
			return nil, err
		}
		stations = append(stations, st)
	}
	return stations, rows.Err()
}

// CreateStation adds a KDS station, enforcing the tier's station limit
// inside a transaction so concurrent creates cannot exceed it.
func (s *Store) CreateStation(ctx context.Context, station *models.KDSStation) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin create station: %w", err)
	}
	defer tx.Rollback(ctx)

	var tier string
	if err := tx.QueryRow(ctx,
		`SELECT COALESCE(tier, 'starter') FROM venues WHERE id = $1 FOR UPDATE`,
		station.VenueID,
	).Scan(&tier); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("lock venue: %w", err)
	}

	limit := models.StationLimit(tier)
	if limit > 0 {
		var count int
		if err := tx.QueryRow(ctx,
			`SELECT COUNT(*) FROM kds_stations WHERE venue_id = $1`,
			station.VenueID,
		).Scan(&count); err != nil {
			return fmt.Errorf("count stations: %w", err)
		}
		if count >= limit {
			return ErrStationLimit
		}
	}

	if err := tx.QueryRow(ctx,
		`INSERT INTO kds_stations (venue_id, name) VALUES ($1, $2) RETURNING id, created_at`,
		station.VenueID, station.Name,
	).Scan(&station.ID, &station.CreatedAt); err != nil {
		return fmt.Errorf("insert station: %w", err)
	}

	return tx.Commit(ctx)
}

// DeleteStation removes a KDS station.
func (s *Store) DeleteStation(ctx context.Context, venueID, stationID uuid.UUID) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM kds_stations WHERE id = $1 AND venue_id = $2`,
		stationID, venueID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
