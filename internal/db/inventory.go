package db

import (
	"context"

	"github.com/google/uuid"

	"github.com/platewise/menu-ingest-service/internal/models"
)

// UpsertIngredient inserts or updates an ingredient keyed by
// (venue_id, name), so re-importing the same CSV updates quantities and
// cost instead of duplicating rows.
func (s *Store) UpsertIngredient(ctx context.Context, ing *models.Ingredient) error {
	query := `
		INSERT INTO ingredients (venue_id, name, unit, quantity, cost_per_unit)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (venue_id, name) DO UPDATE
		SET unit = EXCLUDED.unit,
		    quantity = EXCLUDED.quantity,
		    cost_per_unit = EXCLUDED.cost_per_unit
		RETURNING id, created_at
	`
	return s.pool.QueryRow(ctx, query,
		ing.VenueID, ing.Name, ing.Unit, ing.Quantity, ing.CostPer,
	).Scan(&ing.ID, &ing.CreatedAt)
}

// VenueIngredients lists a venue's inventory alphabetically.
func (s *Store) VenueIngredients(ctx context.Context, venueID uuid.UUID) ([]models.Ingredient, error) {
	query := `
		SELECT id, venue_id, name, COALESCE(unit, ''), COALESCE(quantity, 0),
		       COALESCE(cost_per_unit, 0), created_at
		FROM ingredients
		WHERE venue_id = $1
		ORDER BY name
	`
	rows, err := s.pool.Query(ctx, query, venueID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Ingredient
	for rows.Next() {
		var ing models.Ingredient
		if err := rows.Scan(
			&ing.ID, &ing.VenueID, &ing.Name, &ing.Unit, &ing.Quantity,
			&ing.CostPer, &ing.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, ing)
	}
	return out, rows.Err()
}
