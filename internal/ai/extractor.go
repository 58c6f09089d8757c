package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/platewise/menu-ingest-service/internal/models"
)

// ErrBadModelOutput marks a model response that could not be decoded into a
// valid item list. Callers must treat it as a failed import, never as an
// empty menu.
var ErrBadModelOutput = errors.New("model output is not a valid menu")

// Extractor handles AI-based structuring of extracted menu text.
type Extractor struct {
	provider Provider
	validate *validator.Validate
}

// NewExtractor creates a new menu extractor.
func NewExtractor(provider Provider) *Extractor {
	return &Extractor{
		provider: provider,
		validate: validator.New(),
	}
}

// ExtractMenu sends the menu text to the provider and decodes the response
// into validated items. Returns the items and the call duration in seconds.
func (e *Extractor) ExtractMenu(ctx context.Context, menuText string) ([]models.ParsedItem, float64, error) {
	startTime := time.Now()

	prompt := buildMenuPrompt(menuText)

	response, err := e.provider.ExtractData(ctx, prompt)
	if err != nil {
		return nil, 0, fmt.Errorf("AI extraction failed: %w", err)
	}

	duration := time.Since(startTime).Seconds()

	items, err := e.parseMenuResponse(response)
	if err != nil {
		return nil, duration, err
	}

	return items, duration, nil
}

// buildMenuPrompt demands strict JSON so the decode can be unforgiving.
func buildMenuPrompt(menuText string) string {
	return fmt.Sprintf(`You are a data extraction engine for restaurant menus.

Your task:
- Convert the menu text below into STRICT JSON.
- Output MUST be valid JSON, nothing else: no markdown, no comments, no explanations.

Required JSON schema:
{
  "items": [
    {
      "category": "string (section heading the item appears under; use 'Uncategorized' if none)",
      "name": "string (the dish name, required)",
      "description": "string (empty string if none)",
      "price": number (0 if no price is printed)
    }
  ]
}

Rules:
1. One entry per dish. Do not invent dishes that are not in the text.
2. Prices are plain numbers without currency symbols ("12,50" -> 12.5).
3. Keep the original item order within each category.
4. Ignore page furniture: addresses, phone numbers, opening hours, slogans.
5. If the text contains no menu items at all, return {"items": []}.

Menu text:
%s`, menuText)
}

// parseMenuResponse converts the raw model response into validated items.
// Any decode or schema failure is ErrBadModelOutput; data loss surfaces as
// an error instead of being masked as "zero items".
func (e *Extractor) parseMenuResponse(response string) ([]models.ParsedItem, error) {
	cleaned := stripFences(response)

	// Prices arrive as numbers or strings with separators, so decode them
	// loosely and normalize with ParseDecimal.
	var raw struct {
		Items []struct {
			Category    string      `json:"category"`
			Name        string      `json:"name"`
			Description string      `json:"description"`
			Price       interface{} `json:"price"`
			ImageURL    string      `json:"image_url"`
		} `json:"items"`
	}

	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadModelOutput, err)
	}

	items := make([]models.ParsedItem, 0, len(raw.Items))
	for i, it := range raw.Items {
		item := models.ParsedItem{
			Category:    strings.TrimSpace(it.Category),
			Name:        strings.TrimSpace(it.Name),
			Description: strings.TrimSpace(it.Description),
			Price:       ParseDecimal(it.Price),
			ImageURL:    strings.TrimSpace(it.ImageURL),
		}
		if item.Category == "" {
			item.Category = "Uncategorized"
		}
		if err := e.validate.Struct(item); err != nil {
			return nil, fmt.Errorf("%w: item %d: %v", ErrBadModelOutput, i, err)
		}
		items = append(items, item)
	}

	return items, nil
}

// stripFences removes markdown code fences models add despite instructions.
func stripFences(response string) string {
	cleaned := strings.TrimSpace(response)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	return strings.TrimSpace(cleaned)
}

// decimalComma matches European-style prices like "14,00" or "7,5" where the
// comma is the decimal separator, not a thousands grouper.
var decimalComma = regexp.MustCompile(`^\d+,\d{1,2}$`)

// ParseDecimal handles flexible number parsing from interface{}.
// Supports: numbers, strings with decimal commas (e.g., "12,50") and strings
// with thousands separators (e.g., "1,250.00").
func ParseDecimal(v interface{}) decimal.Decimal {
	if v == nil {
		return decimal.Zero
	}

	switch val := v.(type) {
	case float64:
		return decimal.NewFromFloat(val)
	case int:
		return decimal.NewFromInt(int64(val))
	case int64:
		return decimal.NewFromInt(val)
	case string:
		if val == "" {
			return decimal.Zero
		}
		d, err := decimal.NewFromString(normalizeNumber(val))
		if err != nil {
			return decimal.Zero
		}
		return d
	case json.Number:
		d, err := decimal.NewFromString(string(val))
		if err != nil {
			return decimal.Zero
		}
		return d
	default:
		return decimal.Zero
	}
}

// normalizeNumber rewrites a decimal comma as a dot and strips commas that
// are thousands separators, so both "12,50" and "1,250.00" parse correctly.
func normalizeNumber(s string) string {
	s = strings.TrimSpace(s)
	if decimalComma.MatchString(s) {
		return strings.Replace(s, ",", ".", 1)
	}
	return strings.ReplaceAll(s, ",", "")
}
