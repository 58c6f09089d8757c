package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Upload status progression. An upload starts as processing and ends in
// exactly one of the terminal states.
const (
	StatusProcessing  = "processing"
	StatusReady       = "ready"
	StatusNeedsReview = "needs_review"
	StatusFailed      = "failed"
)

// MenuUpload is one ingestion attempt of a source document for a venue.
// One row per upload; mutated in place as pipeline stages complete,
// superseded (not versioned) by the next upload.
type MenuUpload struct {
	ID            uuid.UUID  `json:"id"`
	VenueID       uuid.UUID  `json:"venue_id"`
	SourceURL     string     `json:"source_url,omitempty"`
	RawText       string     `json:"raw_text,omitempty"`
	OCRUsed       bool       `json:"ocr_used"`
	PageCount     int        `json:"page_count"`
	MenuScore     int        `json:"menu_score"`
	ParsedJSON    string     `json:"parsed_json,omitempty"`
	Status        string     `json:"status"`
	CategoryOrder []string   `json:"category_order,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     *time.Time `json:"updated_at,omitempty"`
}

// MenuItem is one catalog entry for a venue. The full set for a venue is
// replaced on each successful import.
type MenuItem struct {
	ID          uuid.UUID       `json:"id"`
	VenueID     uuid.UUID       `json:"venue_id"`
	Category    string          `json:"category"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	ImageURL    string          `json:"image_url,omitempty"`
	Available   bool            `json:"available"`
	Position    int             `json:"position"`
	CreatedAt   time.Time       `json:"created_at"`
}

// MenuHotspot maps a rendered page region to a menu item, for the
// image-overlay ordering UI. Written in the same pass as the items.
type MenuHotspot struct {
	ID       uuid.UUID `json:"id"`
	VenueID  uuid.UUID `json:"venue_id"`
	ItemID   uuid.UUID `json:"item_id"`
	Page     int       `json:"page"`
	X        float64   `json:"x"`
	Y        float64   `json:"y"`
	Width    float64   `json:"width"`
	Height   float64   `json:"height"`
}

// ParsedItem is one structured menu entry as returned by the LLM, before it
// is persisted as a MenuItem.
type ParsedItem struct {
	Category    string          `json:"category" validate:"required"`
	Name        string          `json:"name" validate:"required"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	ImageURL    string          `json:"image_url,omitempty"`
}

// Ingredient is one inventory row for a venue, upserted by (venue_id, name).
type Ingredient struct {
	ID        uuid.UUID       `json:"id"`
	VenueID   uuid.UUID       `json:"venue_id"`
	Name      string          `json:"name"`
	Unit      string          `json:"unit"`
	Quantity  decimal.Decimal `json:"quantity"`
	CostPer   decimal.Decimal `json:"cost_per_unit"`
	CreatedAt time.Time       `json:"created_at"`
}

// Order is a customer order placed against a venue's table session.
type Order struct {
	ID        uuid.UUID       `json:"id"`
	VenueID   uuid.UUID       `json:"venue_id"`
	TableCode string          `json:"table_code"`
	Status    string          `json:"status"`
	Total     decimal.Decimal `json:"total"`
	CreatedAt time.Time       `json:"created_at"`
}

// KDSStation is a kitchen display station. The number of stations per venue
// is gated by the venue's subscription tier.
type KDSStation struct {
	ID        uuid.UUID `json:"id"`
	VenueID   uuid.UUID `json:"venue_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// StationLimit returns the maximum KDS station count for a tier.
// Zero means unlimited.
func StationLimit(tier string) int {
	switch tier {
	case "starter":
		return 1
	case "pro":
		return 4
	case "enterprise":
		return 0
	default:
		return 1
	}
}
