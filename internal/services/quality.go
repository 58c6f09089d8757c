package services

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/platewise/menu-ingest-service/internal/models"
)

// ValidationError represents a single validation error
type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}

// ValidationWarning represents a non-critical issue
type ValidationWarning struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ComputedValues holds calculated catalog metrics
type ComputedValues struct {
	ItemCount     int     `json:"item_count"`
	CategoryCount int     `json:"category_count"`
	PricedRatio   float64 `json:"priced_ratio"`
	Coverage      float64 `json:"coverage"`
}

// QualityReport is the response from catalog validation
type QualityReport struct {
	Valid       bool                `json:"valid"`
	NeedsReview bool                `json:"needs_review"`
	Errors      []ValidationError   `json:"errors"`
	Warnings    []ValidationWarning `json:"warnings"`
	Computed    ComputedValues      `json:"computed"`
}

// CatalogValidator cross-checks a parsed catalog against its source text.
type CatalogValidator struct {
	minCoverage    float64 // fraction of items that must appear in the source
	minPricedRatio float64 // fraction of items that should carry a price
}

// NewCatalogValidator creates a validator with default thresholds.
func NewCatalogValidator() *CatalogValidator {
	return &CatalogValidator{
		minCoverage:    0.5,
		minPricedRatio: 0.5,
	}
}

// Validate checks the parsed items for emptiness, hallucination (items not
// found in the source text), missing prices, duplicates, and price
// outliers. Errors fail the import; warnings flag it for review.
func (v *CatalogValidator) Validate(items []models.ParsedItem, sourceText string) *QualityReport {
	report := &QualityReport{
		Valid:    true,
		Errors:   []ValidationError{},
		Warnings: []ValidationWarning{},
	}

	report.Computed.ItemCount = len(items)

	if len(items) == 0 {
		report.Valid = false
		report.NeedsReview = true
		report.Errors = append(report.Errors, ValidationError{
			Field:   "items",
			Code:    "empty_catalog",
			Message: "extraction produced no menu items",
		})
		return report
	}

	source := strings.ToLower(sourceText)

	categories := map[string]bool{}
	seen := map[string]bool{}
	priced := 0
	covered := 0
	var prices []decimal.Decimal

	for _, item := range items {
		categories[item.Category] = true

		key := item.Category + "\x00" + strings.ToLower(item.Name)
		if seen[key] {
			report.Warnings = append(report.Warnings, ValidationWarning{
				Field:   "items",
				Code:    "duplicate_item",
				Message: "duplicate entry: " + item.Name + " (" + item.Category + ")",
			})
		}
		seen[key] = true

		if item.Price.GreaterThan(decimal.Zero) {
			priced++
			prices = append(prices, item.Price)
		}

		if nameInSource(item.Name, source) {
			covered++
		}
	}

	report.Computed.CategoryCount = len(categories)
	report.Computed.PricedRatio = float64(priced) / float64(len(items))
	report.Computed.Coverage = float64(covered) / float64(len(items))

	if sourceText != "" && report.Computed.Coverage < v.minCoverage {
		report.NeedsReview = true
		report.Warnings = append(report.Warnings, ValidationWarning{
			Field:   "items",
			Code:    "low_coverage",
			Message: "fewer than half of the extracted items appear in the source text",
		})
	}

	if report.Computed.PricedRatio < v.minPricedRatio {
		report.NeedsReview = true
		report.Warnings = append(report.Warnings, ValidationWarning{
			Field:   "price",
			Code:    "mostly_unpriced",
			Message: "most items are missing a price",
		})
	}

	v.checkPriceOutliers(prices, report)

	return report
}

// checkPriceOutliers flags prices 50x above the median, which usually means
// the model misread a phone number or address as a price.
func (v *CatalogValidator) checkPriceOutliers(prices []decimal.Decimal, report *QualityReport) {
	if len(prices) < 3 {
		return
	}

	sorted := make([]decimal.Decimal, len(prices))
	copy(sorted, prices)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].LessThan(sorted[j]) })
	median := sorted[len(sorted)/2]
	if median.IsZero() {
		return
	}

	limit := median.Mul(decimal.NewFromInt(50))
	for _, p := range prices {
		if p.GreaterThan(limit) {
			report.NeedsReview = true
			report.Warnings = append(report.Warnings, ValidationWarning{
				Field:   "price",
				Code:    "price_outlier",
				Message: "price " + p.String() + " is far above the median " + median.String(),
			})
		}
	}
}

// nameInSource does a word-level containment check; exact substring match
// is too strict against OCR noise.
func nameInSource(name, source string) bool {
	words := strings.Fields(strings.ToLower(name))
	if len(words) == 0 {
		return false
	}
	found := 0
	for _, w := range words {
		if len(w) < 3 {
			found++ // short words prove nothing either way
			continue
		}
		if strings.Contains(source, w) {
			found++
		}
	}
	return found*2 >= len(words) // at least half the words present
}
