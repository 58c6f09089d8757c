package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/platewise/menu-ingest-service/internal/models"
)

// ReplaceVenueMenu swaps a venue's entire catalog for the given items and
// hotspots in a single transaction. Either the venue ends up with the new
// menu or its old menu is untouched; a crash mid-replace can no longer
// leave the venue empty.
func (s *Store) ReplaceVenueMenu(ctx context.Context, venueID uuid.UUID, items []models.MenuItem, hotspots []models.MenuHotspot) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin replace: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM menu_hotspots WHERE venue_id = $1`, venueID); err != nil {
		return fmt.Errorf("clear hotspots: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM menu_items WHERE venue_id = $1`, venueID); err != nil {
		return fmt.Errorf("clear items: %w", err)
	}

	insertItem := `
		INSERT INTO menu_items (
			id, venue_id, category, name, description, price,
			image_url, available, position
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	for i := range items {
		item := &items[i]
		if item.ID == uuid.Nil {
			item.ID = uuid.New()
		}
		if _, err := tx.Exec(ctx, insertItem,
			item.ID, venueID, item.Category, item.Name, item.Description,
			item.Price, item.ImageURL, item.Available, item.Position,
		); err != nil {
			return fmt.Errorf("insert item %q: %w", item.Name, err)
		}
	}

	insertHotspot := `
		INSERT INTO menu_hotspots (
			id, venue_id, item_id, page, x, y, width, height
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	for i := range hotspots {
		h := &hotspots[i]
		if h.ID == uuid.Nil {
			h.ID = uuid.New()
		}
		if _, err := tx.Exec(ctx, insertHotspot,
			h.ID, venueID, h.ItemID, h.Page, h.X, h.Y, h.Width, h.Height,
		); err != nil {
			return fmt.Errorf("insert hotspot: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// VenueItems returns the venue's catalog ordered by category position.
func (s *Store) VenueItems(ctx context.Context, venueID uuid.UUID) ([]models.MenuItem, error) {
	query := `
		SELECT id, venue_id, category, name, COALESCE(description, ''),
		       COALESCE(price, 0), COALESCE(image_url, ''), available,
		       position, created_at
		FROM menu_items
		WHERE venue_id = $1
		ORDER BY category, position, name
	`

	rows, err := s.pool.Query(ctx, query, venueID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []models.MenuItem
	for rows.Next() {
		var item models.MenuItem
		if err := rows.Scan(
			&item.ID, &item.VenueID, &item.Category, &item.Name, &item.Description,
			&item.Price, &item.ImageURL, &item.Available, &item.Position,
			&item.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	return items, rows.Err()
}

// UpdateItemFields applies a partial update to one item matched by
// (venue_id, name), used by the merge path.
func (s *Store) UpdateItemFields(ctx context.Context, venueID uuid.UUID, name string, fields map[string]interface{}) error {
	allowed := map[string]bool{
		"price":       true,
		"description": true,
		"image_url":   true,
		"available":   true,
		"category":    true,
	}

	set := ""
	args := []interface{}{}
	i := 1
	for key, value := range fields {
		if !allowed[key] {
			continue
		}
		if set != "" {
			set += ", "
		}
		set += fmt.Sprintf("%s = $%d", key, i)
		args = append(args, value)
		i++
	}
	if set == "" {
		return nil
	}

	args = append(args, venueID, name)
	query := fmt.Sprintf(
		"UPDATE menu_items SET %s WHERE venue_id = $%d AND name = $%d",
		set, i, i+1,
	)

	_, err := s.pool.Exec(ctx, query, args...)
	return err
}

// InsertItem adds a single item without touching the rest of the catalog,
// used by the merge path for "add" decisions.
func (s *Store) InsertItem(ctx context.Context, item *models.MenuItem) error {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	query := `
		INSERT INTO menu_items (
			id, venue_id, category, name, description, price,
			image_url, available, position
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at
	`
	return s.pool.QueryRow(ctx, query,
		item.ID, item.VenueID, item.Category, item.Name, item.Description,
		item.Price, item.ImageURL, item.Available, item.Position,
	).Scan(&item.CreatedAt)
}
