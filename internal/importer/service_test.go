package importer

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/platewise/menu-ingest-service/internal/ai"
	"github.com/platewise/menu-ingest-service/internal/models"
	"github.com/platewise/menu-ingest-service/internal/ocr"
)

// fakeStore records pipeline writes in memory.
type fakeStore struct {
	uploads      []*models.MenuUpload
	statusByID   map[uuid.UUID]string
	parsedByID   map[uuid.UUID]string
	items        []models.MenuItem
	hotspots     []models.MenuHotspot
	replaceCalls int
	latest       *models.MenuUpload
	latestErr    error

	updateCalls []string
	insertCalls []string
	inserted    []models.MenuItem
	updateErr   error
	insertErr   error
	replaceErr  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		statusByID: map[uuid.UUID]string{},
		parsedByID: map[uuid.UUID]string{},
	}
}

func (f *fakeStore) CreateUpload(ctx context.Context, upload *models.MenuUpload) error {
	upload.ID = uuid.New()
	f.uploads = append(f.uploads, upload)
	f.statusByID[upload.ID] = upload.Status
	return nil
}

func (f *fakeStore) SetUploadParsed(ctx context.Context, uploadID uuid.UUID, status, parsedJSON string) error {
	f.statusByID[uploadID] = status
	f.parsedByID[uploadID] = parsedJSON
	return nil
}

func (f *fakeStore) SetUploadStatus(ctx context.Context, uploadID uuid.UUID, status string) error {
	f.statusByID[uploadID] = status
	return nil
}

func (f *fakeStore) LatestUpload(ctx context.Context, venueID uuid.UUID) (*models.MenuUpload, error) {
	if f.latestErr != nil {
		return nil, f.latestErr
	}
	return f.latest, nil
}

func (f *fakeStore) ReplaceVenueMenu(ctx context.Context, venueID uuid.UUID, items []models.MenuItem, hotspots []models.MenuHotspot) error {
	f.replaceCalls++
	if f.replaceErr != nil {
		return f.replaceErr
	}
	f.items = items
	f.hotspots = hotspots
	return nil
}

func (f *fakeStore) VenueItems(ctx context.Context, venueID uuid.UUID) ([]models.MenuItem, error) {
	return f.items, nil
}

func (f *fakeStore) UpdateItemFields(ctx context.Context, venueID uuid.UUID, name string, fields map[string]interface{}) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updateCalls = append(f.updateCalls, name)
	return nil
}

func (f *fakeStore) InsertItem(ctx context.Context, item *models.MenuItem) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.insertCalls = append(f.insertCalls, item.Name)
	f.inserted = append(f.inserted, *item)
	f.items = append(f.items, *item)
	return nil
}

// fakeTextExtractor returns a preset extraction result.
type fakeTextExtractor struct {
	result ocr.Result
}

func (f *fakeTextExtractor) Extract(ctx context.Context, pdfData []byte) *ocr.Result {
	r := f.result
	return &r
}

// fakeStructurer returns preset items or decisions.
type fakeStructurer struct {
	items        []models.ParsedItem
	extractErr   error
	extractCalls int

	decisions []ai.MergeDecision
	mergeErr  error
}

func (f *fakeStructurer) ExtractMenu(ctx context.Context, menuText string) ([]models.ParsedItem, float64, error) {
	f.extractCalls++
	if f.extractErr != nil {
		return nil, 0.1, f.extractErr
	}
	return f.items, 0.1, nil
}

func (f *fakeStructurer) MergeMenus(ctx context.Context, currentJSON, scrapedJSON string) ([]ai.MergeDecision, error) {
	if f.mergeErr != nil {
		return nil, f.mergeErr
	}
	return f.decisions, nil
}

type fakeScraper struct {
	text string
	err  error
}

func (f *fakeScraper) MenuText(ctx context.Context, url string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

func goodMenuResult() ocr.Result {
	return ocr.Result{
		Text:      "STARTERS Bruschetta 8.50 MAINS Margherita 12.50 Pepperoni 14.00",
		OCRUsed:   false,
		PageCount: 2,
		Score:     ocr.ScoreThreshold + 5,
	}
}

func goodParsedItems() []models.ParsedItem {
	return []models.ParsedItem{
		{Category: "Starters", Name: "Bruschetta", Price: decimal.NewFromFloat(8.5)},
		{Category: "Mains", Name: "Margherita", Price: decimal.NewFromFloat(12.5)},
		{Category: "Mains", Name: "Pepperoni", Price: decimal.NewFromFloat(14)},
	}
}

func TestImportPDFReadyPath(t *testing.T) {
	store := newFakeStore()
	structurer := &fakeStructurer{items: goodParsedItems()}
	svc := New(store, &fakeTextExtractor{result: goodMenuResult()}, structurer, &fakeScraper{}, 0)

	venueID := uuid.New()
	result, err := svc.ImportPDF(context.Background(), venueID, []byte("%PDF"), ImportOptions{})
	if err != nil {
		t.Fatalf("ImportPDF: %v", err)
	}

	if result.Status != models.StatusReady {
		t.Errorf("status = %q, want ready", result.Status)
	}
	if store.replaceCalls != 1 {
		t.Errorf("replace calls = %d, want 1", store.replaceCalls)
	}
	if got := store.statusByID[result.UploadID]; got != models.StatusReady {
		t.Errorf("upload status = %q, want ready", got)
	}
	if len(store.items) != 3 {
		t.Fatalf("catalog items = %d, want 3", len(store.items))
	}
	if len(store.hotspots) != 3 {
		t.Errorf("hotspots = %d, want 3", len(store.hotspots))
	}
	// Positions restart per category.
	if store.items[1].Position != 0 || store.items[2].Position != 1 {
		t.Errorf("positions = %d,%d, want 0,1 within Mains",
			store.items[1].Position, store.items[2].Position)
	}
}

func TestImportPDFGateParksLowScores(t *testing.T) {
	store := newFakeStore()
	structurer := &fakeStructurer{items: goodParsedItems()}
	low := goodMenuResult()
	low.Score = ocr.ScoreThreshold - 1
	svc := New(store, &fakeTextExtractor{result: low}, structurer, &fakeScraper{}, 0)

	result, err := svc.ImportPDF(context.Background(), uuid.New(), []byte("%PDF"), ImportOptions{})
	if err != nil {
		t.Fatalf("ImportPDF: %v", err)
	}

	if result.Status != models.StatusNeedsReview {
		t.Errorf("status = %q, want needs_review", result.Status)
	}
	if structurer.extractCalls != 0 {
		t.Error("gate must not spend an LLM call")
	}
	if store.replaceCalls != 0 {
		t.Error("gate must not touch the catalog")
	}
}

func TestImportPDFForceBypassesGate(t *testing.T) {
	store := newFakeStore()
	structurer := &fakeStructurer{items: goodParsedItems()}
	low := goodMenuResult()
	low.Score = 0
	svc := New(store, &fakeTextExtractor{result: low}, structurer, &fakeScraper{}, 0)

	result, err := svc.ImportPDF(context.Background(), uuid.New(), []byte("%PDF"), ImportOptions{Force: true})
	if err != nil {
		t.Fatalf("ImportPDF: %v", err)
	}
	if result.Status != models.StatusReady {
		t.Errorf("status = %q, want ready", result.Status)
	}
	if structurer.extractCalls != 1 {
		t.Errorf("extract calls = %d, want 1", structurer.extractCalls)
	}
}

func TestImportPDFBadModelOutputFailsUpload(t *testing.T) {
	store := newFakeStore()
	structurer := &fakeStructurer{extractErr: ai.ErrBadModelOutput}
	svc := New(store, &fakeTextExtractor{result: goodMenuResult()}, structurer, &fakeScraper{}, 0)

	_, err := svc.ImportPDF(context.Background(), uuid.New(), []byte("%PDF"), ImportOptions{})
	if !errors.Is(err, ai.ErrBadModelOutput) {
		t.Fatalf("err = %v, want ErrBadModelOutput", err)
	}

	if len(store.uploads) != 1 {
		t.Fatalf("uploads = %d, want 1", len(store.uploads))
	}
	if got := store.statusByID[store.uploads[0].ID]; got != models.StatusFailed {
		t.Errorf("upload status = %q, want failed", got)
	}
	if store.replaceCalls != 0 {
		t.Error("failed import must not touch the catalog")
	}
}

func TestImportPDFQualityGateParksSuspectCatalogs(t *testing.T) {
	store := newFakeStore()
	// Items that do not appear in the source text and carry no prices.
	structurer := &fakeStructurer{items: []models.ParsedItem{
		{Category: "Pizza", Name: "Hallucinated Dish One"},
		{Category: "Pizza", Name: "Hallucinated Dish Two"},
	}}
	svc := New(store, &fakeTextExtractor{result: goodMenuResult()}, structurer, &fakeScraper{}, 0)

	result, err := svc.ImportPDF(context.Background(), uuid.New(), []byte("%PDF"), ImportOptions{})
	if err != nil {
		t.Fatalf("ImportPDF: %v", err)
	}

	if result.Status != models.StatusNeedsReview {
		t.Errorf("status = %q, want needs_review", result.Status)
	}
	if store.replaceCalls != 0 {
		t.Error("suspect catalog must not replace the live menu")
	}
	if store.parsedByID[result.UploadID] == "" {
		t.Error("parsed items must be stored for manual review")
	}
	if result.Quality == nil || result.Quality.Valid && !result.Quality.NeedsReview {
		t.Errorf("quality report missing or clean: %+v", result.Quality)
	}
}

func TestImportPDFReplaceFailureMarksFailed(t *testing.T) {
	store := newFakeStore()
	store.replaceErr = errors.New("connection reset")
	structurer := &fakeStructurer{items: goodParsedItems()}
	svc := New(store, &fakeTextExtractor{result: goodMenuResult()}, structurer, &fakeScraper{}, 0)

	_, err := svc.ImportPDF(context.Background(), uuid.New(), []byte("%PDF"), ImportOptions{})
	if err == nil {
		t.Fatal("expected error from replace failure")
	}
	if got := store.statusByID[store.uploads[0].ID]; got != models.StatusFailed {
		t.Errorf("upload status = %q, want failed", got)
	}
}

func TestImportPDFIsRepeatable(t *testing.T) {
	store := newFakeStore()
	structurer := &fakeStructurer{items: goodParsedItems()}
	svc := New(store, &fakeTextExtractor{result: goodMenuResult()}, structurer, &fakeScraper{}, 0)

	venueID := uuid.New()
	for i := 0; i < 2; i++ {
		if _, err := svc.ImportPDF(context.Background(), venueID, []byte("%PDF"), ImportOptions{}); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
	}

	// Replace semantics: the second run leaves exactly one catalog's worth
	// of rows, not an accumulation.
	if len(store.items) != 3 {
		t.Errorf("items after rerun = %d, want 3", len(store.items))
	}
	if len(store.uploads) != 2 {
		t.Errorf("uploads = %d, want 2 (history is append-only)", len(store.uploads))
	}
}
