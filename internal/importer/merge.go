package importer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/platewise/menu-ingest-service/internal/ai"
	"github.com/platewise/menu-ingest-service/internal/db"
	"github.com/platewise/menu-ingest-service/internal/models"
)

// MergeResult is the outcome of one hybrid merge run.
type MergeResult struct {
	Mode     string            `json:"mode"`
	Items    []models.MenuItem `json:"items"`
	Updated  int               `json:"updated"`
	Added    int               `json:"added"`
	Errors   []string          `json:"errors,omitempty"`
	Duration float64           `json:"duration"`
}

// HybridMerge enriches the venue's imported menu with a second, scraped
// source. Requires a prior PDF import; without one it returns
// ErrNoPriorUpload and performs no writes. Per-item write failures are
// collected rather than aborting the whole merge.
func (s *Service) HybridMerge(ctx context.Context, venueID uuid.UUID, menuURL string) (*MergeResult, error) {
	start := time.Now()

	if _, err := s.store.LatestUpload(ctx, venueID); err != nil {
		if errors.Is(err, db.ErrNoUpload) {
			return nil, ErrNoPriorUpload
		}
		return nil, fmt.Errorf("load latest upload: %w", err)
	}

	current, err := s.store.VenueItems(ctx, venueID)
	if err != nil {
		return nil, fmt.Errorf("load current items: %w", err)
	}

	pageText, err := s.scraper.MenuText(ctx, menuURL)
	if err != nil {
		return nil, fmt.Errorf("scrape menu: %w", err)
	}

	scraped, _, err := s.structurer.ExtractMenu(ctx, pageText)
	if err != nil {
		return nil, fmt.Errorf("structure scraped menu: %w", err)
	}

	currentJSON, err := json.Marshal(itemSummaries(current))
	if err != nil {
		return nil, fmt.Errorf("marshal current items: %w", err)
	}
	scrapedJSON, err := json.Marshal(scraped)
	if err != nil {
		return nil, fmt.Errorf("marshal scraped items: %w", err)
	}

	decisions, err := s.structurer.MergeMenus(ctx, string(currentJSON), string(scrapedJSON))
	if err != nil {
		return nil, fmt.Errorf("merge menus: %w", err)
	}

	result := &MergeResult{Mode: "hybrid"}

	for _, d := range decisions {
		switch d.Action {
		case ai.MergeActionKeep:
			continue
		case ai.MergeActionUpdate:
			fields := decisionFields(d.Changes)
			if len(fields) == 0 {
				continue
			}
			if err := s.store.UpdateItemFields(ctx, venueID, d.Name, fields); err != nil {
				log.Printf("[Merge] venue=%s update %q: %v", venueID, d.Name, err)
				result.Errors = append(result.Errors, fmt.Sprintf("update %s: %v", d.Name, err))
				continue
			}
			result.Updated++
		case ai.MergeActionAdd:
			item := itemFromDecision(venueID, d)
			if err := s.store.InsertItem(ctx, &item); err != nil {
				log.Printf("[Merge] venue=%s add %q: %v", venueID, d.Name, err)
				result.Errors = append(result.Errors, fmt.Sprintf("add %s: %v", d.Name, err))
				continue
			}
			result.Added++
		}
	}

	items, err := s.store.VenueItems(ctx, venueID)
	if err != nil {
		return nil, fmt.Errorf("reload items: %w", err)
	}

	result.Items = items
	result.Duration = time.Since(start).Seconds()
	return result, nil
}

// itemSummary is the compact item view sent to the merge prompt.
type itemSummary struct {
	Category    string          `json:"category"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
}

func itemSummaries(items []models.MenuItem) []itemSummary {
	out := make([]itemSummary, 0, len(items))
	for _, it := range items {
		out = append(out, itemSummary{
			Category:    it.Category,
			Name:        it.Name,
			Description: it.Description,
			Price:       it.Price,
		})
	}
	return out
}

// decisionFields maps merge changes onto catalog columns, dropping
// anything the model invented outside the allowed set.
func decisionFields(changes map[string]any) map[string]interface{} {
	fields := map[string]interface{}{}
	for key, value := range changes {
		switch key {
		case "price":
			fields["price"] = ai.ParseDecimal(value)
		case "description", "image_url", "category":
			if s, ok := value.(string); ok && s != "" {
				fields[key] = s
			}
		}
	}
	return fields
}

func itemFromDecision(venueID uuid.UUID, d ai.MergeDecision) models.MenuItem {
	item := models.MenuItem{
		VenueID:   venueID,
		Category:  d.Category,
		Name:      d.Name,
		Available: true,
	}
	if item.Category == "" {
		item.Category = "Uncategorized"
	}
	for key, value := range d.Changes {
		switch key {
		case "price":
			item.Price = ai.ParseDecimal(value)
		case "description":
			if s, ok := value.(string); ok {
				item.Description = s
			}
		case "image_url":
			if s, ok := value.(string); ok {
				item.ImageURL = s
			}
		}
	}
	return item
}
