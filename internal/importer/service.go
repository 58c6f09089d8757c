package importer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/platewise/menu-ingest-service/internal/ai"
	"github.com/platewise/menu-ingest-service/internal/models"
	"github.com/platewise/menu-ingest-service/internal/ocr"
	"github.com/platewise/menu-ingest-service/internal/services"
)

// ErrNoPriorUpload means hybrid merge was requested for a venue that never
// imported a PDF menu.
var ErrNoPriorUpload = errors.New("venue has no prior menu upload")

// Store is the persistence surface the pipeline needs. *db.Store satisfies
// it; tests substitute a fake.
type Store interface {
	CreateUpload(ctx context.Context, upload *models.MenuUpload) error
	SetUploadParsed(ctx context.Context, uploadID uuid.UUID, status, parsedJSON string) error
	SetUploadStatus(ctx context.Context, uploadID uuid.UUID, status string) error
	LatestUpload(ctx context.Context, venueID uuid.UUID) (*models.MenuUpload, error)
	ReplaceVenueMenu(ctx context.Context, venueID uuid.UUID, items []models.MenuItem, hotspots []models.MenuHotspot) error
	VenueItems(ctx context.Context, venueID uuid.UUID) ([]models.MenuItem, error)
	UpdateItemFields(ctx context.Context, venueID uuid.UUID, name string, fields map[string]interface{}) error
	InsertItem(ctx context.Context, item *models.MenuItem) error
}

// TextExtractor produces best-effort text from PDF bytes.
type TextExtractor interface {
	Extract(ctx context.Context, pdfData []byte) *ocr.Result
}

// Structurer turns raw text into validated items and merges item lists.
type Structurer interface {
	ExtractMenu(ctx context.Context, menuText string) ([]models.ParsedItem, float64, error)
	MergeMenus(ctx context.Context, currentJSON, scrapedJSON string) ([]ai.MergeDecision, error)
}

// Scraper fetches a menu URL as plain text.
type Scraper interface {
	MenuText(ctx context.Context, url string) (string, error)
}

// Service runs the ingestion pipeline: extract, gate, structure, validate,
// replace. Each request is independent; the database is the only shared
// state.
type Service struct {
	store      Store
	extractor  TextExtractor
	structurer Structurer
	scraper    Scraper
	quality    *services.CatalogValidator
	maxChars   int
}

// New wires a pipeline service.
func New(store Store, extractor TextExtractor, structurer Structurer, scraper Scraper, maxChars int) *Service {
	if maxChars <= 0 {
		maxChars = 15000
	}
	return &Service{
		store:      store,
		extractor:  extractor,
		structurer: structurer,
		scraper:    scraper,
		quality:    services.NewCatalogValidator(),
		maxChars:   maxChars,
	}
}

// ImportOptions tweak one import run.
type ImportOptions struct {
	// Force skips the menu-likelihood gate.
	Force bool
	// SkipValidation disables the quality report pass.
	SkipValidation bool
}

// ImportResult is the outcome of one ImportPDF run.
type ImportResult struct {
	UploadID    uuid.UUID                `json:"upload_id"`
	Status      string                   `json:"status"`
	Items       []models.MenuItem        `json:"items,omitempty"`
	MenuScore   int                      `json:"menu_score"`
	OCRUsed     bool                     `json:"ocr_used"`
	PageCount   int                      `json:"page_count"`
	Quality     *services.QualityReport  `json:"quality,omitempty"`
	AIDuration  float64                  `json:"ai_duration"`
	OCRDuration float64                  `json:"ocr_duration"`
}

// ImportPDF runs the full pipeline for one uploaded document. The catalog
// is only ever touched after the upload passed the gate and the model
// output decoded and validated; the replace itself is transactional.
func (s *Service) ImportPDF(ctx context.Context, venueID uuid.UUID, pdfData []byte, opts ImportOptions) (*ImportResult, error) {
	ocrStart := time.Now()
	extracted := s.extractor.Extract(ctx, pdfData)
	ocrDuration := time.Since(ocrStart).Seconds()

	upload := &models.MenuUpload{
		VenueID:   venueID,
		RawText:   extracted.Text,
		OCRUsed:   extracted.OCRUsed,
		PageCount: extracted.PageCount,
		MenuScore: extracted.Score,
		Status:    models.StatusProcessing,
	}
	if err := s.store.CreateUpload(ctx, upload); err != nil {
		return nil, fmt.Errorf("create upload: %w", err)
	}

	result := &ImportResult{
		UploadID:    upload.ID,
		MenuScore:   extracted.Score,
		OCRUsed:     extracted.OCRUsed,
		PageCount:   extracted.PageCount,
		OCRDuration: ocrDuration,
	}

	// Menu-likelihood gate: below threshold the upload parks in
	// needs_review without an LLM call and without touching the catalog.
	if extracted.Score < ocr.ScoreThreshold && !opts.Force {
		log.Printf("[Import] venue=%s score=%d below threshold, needs review", venueID, extracted.Score)
		if err := s.store.SetUploadStatus(ctx, upload.ID, models.StatusNeedsReview); err != nil {
			return nil, fmt.Errorf("mark needs_review: %w", err)
		}
		result.Status = models.StatusNeedsReview
		return result, nil
	}

	menuText := ocr.Truncate(extracted.Text, s.maxChars)

	parsed, aiDuration, err := s.structurer.ExtractMenu(ctx, menuText)
	result.AIDuration = aiDuration
	if err != nil {
		// Bad model output or upstream failure is a failed import, never
		// silently an empty menu.
		if statusErr := s.store.SetUploadStatus(ctx, upload.ID, models.StatusFailed); statusErr != nil {
			log.Printf("[Import] venue=%s mark failed: %v", venueID, statusErr)
		}
		return nil, fmt.Errorf("structure menu: %w", err)
	}

	if !opts.SkipValidation {
		report := s.quality.Validate(parsed, extracted.Text)
		result.Quality = report
		if !report.Valid || (report.NeedsReview && !opts.Force) {
			parsedJSON := marshalItems(parsed)
			if err := s.store.SetUploadParsed(ctx, upload.ID, models.StatusNeedsReview, parsedJSON); err != nil {
				return nil, fmt.Errorf("mark needs_review: %w", err)
			}
			result.Status = models.StatusNeedsReview
			return result, nil
		}
	}

	items, hotspots := buildCatalog(venueID, parsed, extracted.PageCount)

	if err := s.store.ReplaceVenueMenu(ctx, venueID, items, hotspots); err != nil {
		if statusErr := s.store.SetUploadStatus(ctx, upload.ID, models.StatusFailed); statusErr != nil {
			log.Printf("[Import] venue=%s mark failed: %v", venueID, statusErr)
		}
		return nil, fmt.Errorf("replace menu: %w", err)
	}

	if err := s.store.SetUploadParsed(ctx, upload.ID, models.StatusReady, marshalItems(parsed)); err != nil {
		return nil, fmt.Errorf("mark ready: %w", err)
	}

	result.Status = models.StatusReady
	result.Items = items
	return result, nil
}

// buildCatalog converts parsed items to catalog rows with stable positions
// and evenly distributed page hotspots for the image-overlay UI.
func buildCatalog(venueID uuid.UUID, parsed []models.ParsedItem, pageCount int) ([]models.MenuItem, []models.MenuHotspot) {
	if pageCount < 1 {
		pageCount = 1
	}

	items := make([]models.MenuItem, 0, len(parsed))
	hotspots := make([]models.MenuHotspot, 0, len(parsed))

	positions := map[string]int{}
	perPage := (len(parsed) + pageCount - 1) / pageCount
	if perPage == 0 {
		perPage = 1
	}

	for i, p := range parsed {
		item := models.MenuItem{
			ID:          uuid.New(),
			VenueID:     venueID,
			Category:    p.Category,
			Name:        p.Name,
			Description: p.Description,
			Price:       p.Price,
			ImageURL:    p.ImageURL,
			Available:   true,
			Position:    positions[p.Category],
		}
		positions[p.Category]++
		items = append(items, item)

		// Rough overlay placement: items stacked top to bottom on their
		// page until real layout data replaces it.
		page := i/perPage + 1
		row := i % perPage
		hotspots = append(hotspots, models.MenuHotspot{
			ID:      uuid.New(),
			VenueID: venueID,
			ItemID:  item.ID,
			Page:    page,
			X:       0.1,
			Y:       float64(row) / float64(perPage),
			Width:   0.8,
			Height:  1.0 / float64(perPage),
		})
	}

	return items, hotspots
}

func marshalItems(items []models.ParsedItem) string {
	blob, err := json.Marshal(items)
	if err != nil {
		return ""
	}
	return string(blob)
}
