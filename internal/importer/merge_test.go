package importer

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/platewise/menu-ingest-service/internal/ai"
	"github.com/platewise/menu-ingest-service/internal/db"
	"github.com/platewise/menu-ingest-service/internal/models"
)

func TestHybridMergeRequiresPriorUpload(t *testing.T) {
	store := newFakeStore()
	store.latestErr = db.ErrNoUpload
	structurer := &fakeStructurer{items: goodParsedItems()}
	svc := New(store, &fakeTextExtractor{result: goodMenuResult()}, structurer, &fakeScraper{text: "menu"}, 0)

	_, err := svc.HybridMerge(context.Background(), uuid.New(), "https://venue.test/menu")
	if !errors.Is(err, ErrNoPriorUpload) {
		t.Fatalf("err = %v, want ErrNoPriorUpload", err)
	}
	if len(store.updateCalls) != 0 || len(store.insertCalls) != 0 {
		t.Error("merge without prior upload must not write")
	}
}

func TestHybridMergeDoesNotMaskStoreFailures(t *testing.T) {
	store := newFakeStore()
	store.latestErr = errors.New("connection refused")
	structurer := &fakeStructurer{items: goodParsedItems()}
	svc := New(store, &fakeTextExtractor{result: goodMenuResult()}, structurer, &fakeScraper{text: "menu"}, 0)

	_, err := svc.HybridMerge(context.Background(), uuid.New(), "https://venue.test/menu")
	if err == nil {
		t.Fatal("expected error")
	}
	if errors.Is(err, ErrNoPriorUpload) {
		t.Error("database outage misreported as missing upload")
	}
}

func TestHybridMergeAppliesDecisions(t *testing.T) {
	store := newFakeStore()
	store.latest = &models.MenuUpload{ID: uuid.New()}
	store.items = []models.MenuItem{
		{VenueID: uuid.Nil, Category: "Pizza", Name: "Margherita", Price: decimal.NewFromFloat(12.5)},
		{VenueID: uuid.Nil, Category: "Pizza", Name: "Pepperoni", Price: decimal.NewFromFloat(14)},
	}
	structurer := &fakeStructurer{
		items: goodParsedItems(),
		decisions: []ai.MergeDecision{
			{Name: "Margherita", Category: "Pizza", Action: ai.MergeActionKeep},
			{Name: "Pepperoni", Category: "Pizza", Action: ai.MergeActionUpdate,
				Changes: map[string]any{"price": 15.0}},
			{Name: "Tiramisu", Category: "Desserts", Action: ai.MergeActionAdd,
				Changes: map[string]any{"price": 6.5, "description": "house made"}},
		},
	}
	svc := New(store, &fakeTextExtractor{result: goodMenuResult()}, structurer, &fakeScraper{text: "scraped menu"}, 0)

	result, err := svc.HybridMerge(context.Background(), uuid.New(), "https://venue.test/menu")
	if err != nil {
		t.Fatalf("HybridMerge: %v", err)
	}

	if result.Updated != 1 || result.Added != 1 {
		t.Errorf("updated=%d added=%d, want 1 and 1", result.Updated, result.Added)
	}
	if len(store.updateCalls) != 1 || store.updateCalls[0] != "Pepperoni" {
		t.Errorf("update calls = %v", store.updateCalls)
	}
	if len(store.insertCalls) != 1 || store.insertCalls[0] != "Tiramisu" {
		t.Errorf("insert calls = %v", store.insertCalls)
	}
	if len(result.Errors) != 0 {
		t.Errorf("unexpected errors: %v", result.Errors)
	}
}

func TestHybridMergeCollectsPerItemFailures(t *testing.T) {
	store := newFakeStore()
	store.latest = &models.MenuUpload{ID: uuid.New()}
	store.updateErr = errors.New("deadlock detected")
	structurer := &fakeStructurer{
		items: goodParsedItems(),
		decisions: []ai.MergeDecision{
			{Name: "Pepperoni", Action: ai.MergeActionUpdate, Changes: map[string]any{"price": 15.0}},
			{Name: "Tiramisu", Action: ai.MergeActionAdd, Changes: map[string]any{"price": 6.5}},
		},
	}
	svc := New(store, &fakeTextExtractor{result: goodMenuResult()}, structurer, &fakeScraper{text: "scraped"}, 0)

	result, err := svc.HybridMerge(context.Background(), uuid.New(), "https://venue.test/menu")
	if err != nil {
		t.Fatalf("HybridMerge: %v", err)
	}

	// One write failed, the other still landed.
	if result.Updated != 0 || result.Added != 1 {
		t.Errorf("updated=%d added=%d, want 0 and 1", result.Updated, result.Added)
	}
	if len(result.Errors) != 1 {
		t.Errorf("errors = %v, want exactly one", result.Errors)
	}
}

func TestHybridMergeParsesCommaPrices(t *testing.T) {
	store := newFakeStore()
	store.latest = &models.MenuUpload{ID: uuid.New()}
	structurer := &fakeStructurer{
		items: goodParsedItems(),
		decisions: []ai.MergeDecision{
			{Name: "Tiramisu", Category: "Desserts", Action: ai.MergeActionAdd,
				Changes: map[string]any{"price": "6,50"}},
		},
	}
	svc := New(store, &fakeTextExtractor{result: goodMenuResult()}, structurer, &fakeScraper{text: "scraped"}, 0)

	if _, err := svc.HybridMerge(context.Background(), uuid.New(), "https://venue.test/menu"); err != nil {
		t.Fatalf("HybridMerge: %v", err)
	}
	if len(store.inserted) != 1 {
		t.Fatalf("inserted %d items, want 1", len(store.inserted))
	}
	if got := store.inserted[0].Price; !got.Equal(decimal.NewFromFloat(6.5)) {
		t.Errorf("price = %s, want 6.5", got)
	}
}

func TestHybridMergeBadDecisionsAbort(t *testing.T) {
	store := newFakeStore()
	store.latest = &models.MenuUpload{ID: uuid.New()}
	structurer := &fakeStructurer{
		items:    goodParsedItems(),
		mergeErr: ai.ErrBadModelOutput,
	}
	svc := New(store, &fakeTextExtractor{result: goodMenuResult()}, structurer, &fakeScraper{text: "scraped"}, 0)

	_, err := svc.HybridMerge(context.Background(), uuid.New(), "https://venue.test/menu")
	if !errors.Is(err, ai.ErrBadModelOutput) {
		t.Fatalf("err = %v, want ErrBadModelOutput", err)
	}
	if len(store.updateCalls) != 0 || len(store.insertCalls) != 0 {
		t.Error("aborted merge must not write")
	}
}
