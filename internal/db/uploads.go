package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/platewise/menu-ingest-service/internal/models"
)

// CreateUpload inserts a menu_uploads row in the processing state and fills
// in the generated ID and timestamp.
func (s *Store) CreateUpload(ctx context.Context, upload *models.MenuUpload) error {
	query := `
		INSERT INTO menu_uploads (
			venue_id, source_url, raw_text, ocr_used, page_count,
			menu_score, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`

	return s.pool.QueryRow(ctx, query,
		upload.VenueID, upload.SourceURL, upload.RawText, upload.OCRUsed,
		upload.PageCount, upload.MenuScore, upload.Status,
	).Scan(&upload.ID, &upload.CreatedAt)
}

// SetUploadParsed stores the parsed item blob and moves the upload into a
// terminal status.
func (s *Store) SetUploadParsed(ctx context.Context, uploadID uuid.UUID, status, parsedJSON string) error {
	query := `
		UPDATE menu_uploads
		SET status = $1, parsed_json = $2, updated_at = NOW()
		WHERE id = $3
	`
	_, err := s.pool.Exec(ctx, query, status, parsedJSON, uploadID)
	return err
}

// SetUploadStatus updates only the status column.
func (s *Store) SetUploadStatus(ctx context.Context, uploadID uuid.UUID, status string) error {
	query := `UPDATE menu_uploads SET status = $1, updated_at = NOW() WHERE id = $2`
	_, err := s.pool.Exec(ctx, query, status, uploadID)
	return err
}

// LatestUpload returns the most recent upload for a venue, or ErrNoUpload.
func (s *Store) LatestUpload(ctx context.Context, venueID uuid.UUID) (*models.MenuUpload, error) {
	query := `
		SELECT id, venue_id, COALESCE(source_url, ''), COALESCE(raw_text, ''),
		       ocr_used, page_count, menu_score, COALESCE(parsed_json::text, ''),
		       status, COALESCE(category_order::text, ''), created_at, updated_at
		FROM menu_uploads
		WHERE venue_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`

	var upload models.MenuUpload
	var categoryOrder string
	err := s.pool.QueryRow(ctx, query, venueID).Scan(
		&upload.ID, &upload.VenueID, &upload.SourceURL, &upload.RawText,
		&upload.OCRUsed, &upload.PageCount, &upload.MenuScore, &upload.ParsedJSON,
		&upload.Status, &categoryOrder, &upload.CreatedAt, &upload.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoUpload
		}
		return nil, fmt.Errorf("latest upload: %w", err)
	}

	if categoryOrder != "" {
		if err := json.Unmarshal([]byte(categoryOrder), &upload.CategoryOrder); err != nil {
			// Stored order is advisory; a corrupt blob should not break reads.
			upload.CategoryOrder = nil
		}
	}

	return &upload, nil
}

// SaveCategoryOrder stores the submitted category order on the venue's
// latest upload row.
func (s *Store) SaveCategoryOrder(ctx context.Context, venueID uuid.UUID, order []string) error {
	blob, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("marshal category order: %w", err)
	}

	query := `
		UPDATE menu_uploads
		SET category_order = $1, updated_at = NOW()
		WHERE id = (
			SELECT id FROM menu_uploads
			WHERE venue_id = $2
			ORDER BY created_at DESC
			LIMIT 1
		)
	`
	tag, err := s.pool.Exec(ctx, query, blob, venueID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNoUpload
	}
	return nil
}
