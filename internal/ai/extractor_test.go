package ai

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

// fakeProvider returns a canned response.
type fakeProvider struct {
	response string
	err      error
	prompts  []string
}

func (f *fakeProvider) ExtractData(ctx context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func (f *fakeProvider) Name() string { return "fake" }

func TestExtractMenuValidResponse(t *testing.T) {
	provider := &fakeProvider{response: `{
		"items": [
			{"category": "Pizza", "name": "Margherita", "description": "tomato, mozzarella", "price": 12.5},
			{"category": "Pizza", "name": "Pepperoni", "description": "", "price": "14,00"}
		]
	}`}
	e := NewExtractor(provider)

	items, _, err := e.ExtractMenu(context.Background(), "some menu text")
	if err != nil {
		t.Fatalf("ExtractMenu: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2", len(items))
	}
	if items[0].Name != "Margherita" || items[0].Category != "Pizza" {
		t.Errorf("unexpected first item: %+v", items[0])
	}
	if !items[0].Price.Equal(decimal.NewFromFloat(12.5)) {
		t.Errorf("price = %s, want 12.5", items[0].Price)
	}
	if !items[1].Price.Equal(decimal.NewFromInt(14)) {
		// "14,00" uses a decimal comma, not a thousands separator
		t.Errorf("string price = %s, want 14", items[1].Price)
	}
}

func TestExtractMenuStripsMarkdownFences(t *testing.T) {
	provider := &fakeProvider{response: "```json\n{\"items\": [{\"category\": \"Drinks\", \"name\": \"Cola\", \"price\": 3}]}\n```"}
	e := NewExtractor(provider)

	items, _, err := e.ExtractMenu(context.Background(), "menu")
	if err != nil {
		t.Fatalf("ExtractMenu: %v", err)
	}
	if len(items) != 1 || items[0].Name != "Cola" {
		t.Errorf("unexpected items: %+v", items)
	}
}

func TestExtractMenuDefaultsEmptyCategory(t *testing.T) {
	provider := &fakeProvider{response: `{"items": [{"category": "", "name": "Mystery Dish", "price": 5}]}`}
	e := NewExtractor(provider)

	items, _, err := e.ExtractMenu(context.Background(), "menu")
	if err != nil {
		t.Fatalf("ExtractMenu: %v", err)
	}
	if items[0].Category != "Uncategorized" {
		t.Errorf("category = %q, want Uncategorized", items[0].Category)
	}
}

func TestExtractMenuRejectsInvalidJSON(t *testing.T) {
	provider := &fakeProvider{response: "Sure! Here is the menu you asked for: Margherita costs 12.50"}
	e := NewExtractor(provider)

	_, _, err := e.ExtractMenu(context.Background(), "menu")
	if !errors.Is(err, ErrBadModelOutput) {
		t.Errorf("err = %v, want ErrBadModelOutput", err)
	}
}

func TestExtractMenuRejectsMissingName(t *testing.T) {
	provider := &fakeProvider{response: `{"items": [{"category": "Pizza", "name": "", "price": 12}]}`}
	e := NewExtractor(provider)

	_, _, err := e.ExtractMenu(context.Background(), "menu")
	if !errors.Is(err, ErrBadModelOutput) {
		t.Errorf("err = %v, want ErrBadModelOutput", err)
	}
}

func TestExtractMenuEmptyItemsIsNotAnError(t *testing.T) {
	provider := &fakeProvider{response: `{"items": []}`}
	e := NewExtractor(provider)

	items, _, err := e.ExtractMenu(context.Background(), "not a menu at all")
	if err != nil {
		t.Fatalf("ExtractMenu: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("got %d items, want 0", len(items))
	}
}

func TestExtractMenuProviderError(t *testing.T) {
	provider := &fakeProvider{err: errors.New("rate limited")}
	e := NewExtractor(provider)

	_, _, err := e.ExtractMenu(context.Background(), "menu")
	if err == nil {
		t.Fatal("expected error from provider failure")
	}
	if errors.Is(err, ErrBadModelOutput) {
		t.Errorf("provider failure must not be classified as bad model output")
	}
}

func TestParseDecimalVariants(t *testing.T) {
	tests := []struct {
		name string
		in   interface{}
		want string
	}{
		{"nil", nil, "0"},
		{"float", 12.5, "12.5"},
		{"int", 7, "7"},
		{"string", "9.99", "9.99"},
		{"decimal comma", "14,00", "14"},
		{"decimal comma one digit", "7,5", "7.5"},
		{"string with thousands comma", "1,250.00", "1250"},
		{"thousands comma no dot", "1,250", "1250"},
		{"empty string", "", "0"},
		{"unparseable string", "market price", "0"},
		{"bool", true, "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			want, _ := decimal.NewFromString(tt.want)
			if got := ParseDecimal(tt.in); !got.Equal(want) {
				t.Errorf("ParseDecimal(%v) = %s, want %s", tt.in, got, want)
			}
		})
	}
}
