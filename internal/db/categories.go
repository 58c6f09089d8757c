package db

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// CategoryOrder returns the venue's ordered category list: the stored order
// first, then any categories discovered in items that the stored order does
// not mention, in catalog order.
func (s *Store) CategoryOrder(ctx context.Context, venueID uuid.UUID) ([]string, error) {
	var stored []string
	upload, err := s.LatestUpload(ctx, venueID)
	switch {
	case err == nil:
		stored = upload.CategoryOrder
	case errors.Is(err, ErrNoUpload):
		// No upload yet; fall through to item-derived order.
	default:
		return nil, err
	}

	query := `
		SELECT DISTINCT ON (category) category
		FROM menu_items
		WHERE venue_id = $1
		ORDER BY category, position
	`
	rows, err := s.pool.Query(ctx, query, venueID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var discovered []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		discovered = append(discovered, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return MergeCategoryOrder(stored, discovered), nil
}

// MergeCategoryOrder keeps the stored order and appends categories present
// in items but absent from it. Stored entries with no matching items are
// kept; the stored order is the venue operator's explicit choice.
func MergeCategoryOrder(stored, discovered []string) []string {
	seen := make(map[string]bool, len(stored))
	merged := make([]string, 0, len(stored)+len(discovered))
	for _, c := range stored {
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		merged = append(merged, c)
	}
	for _, c := range discovered {
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		merged = append(merged, c)
	}
	return merged
}
