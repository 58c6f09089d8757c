package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/platewise/menu-ingest-service/api"
	"github.com/platewise/menu-ingest-service/internal/ai"
	"github.com/platewise/menu-ingest-service/internal/auth"
	"github.com/platewise/menu-ingest-service/internal/db"
	"github.com/platewise/menu-ingest-service/internal/importer"
	"github.com/platewise/menu-ingest-service/internal/models"
	"github.com/platewise/menu-ingest-service/internal/ocr"
	"github.com/platewise/menu-ingest-service/internal/scrape"
	"github.com/platewise/menu-ingest-service/internal/storage"
)

func main() {
	// Initialize JWT
	if err := auth.Init(); err != nil {
		log.Fatalf("Failed to initialize auth: %v", err)
	}
	log.Println("JWT authentication initialized")

	// Load configuration
	config, err := loadConfig("config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	// Connect database
	var store *db.Store
	pool, err := db.Connect(ctx)
	if err != nil {
		log.Printf("Warning: Database not available: %v", err)
		log.Println("Running in extraction-only mode (no persistence)")
	} else {
		store = db.NewStore(pool)
		defer store.Close()
		log.Println("Database connection pool initialized")
	}

	// Connect MinIO object storage
	var objects *storage.Store
	if s, err := storage.New(ctx); err != nil {
		log.Printf("Warning: MinIO storage not available: %v", err)
		log.Println("Source documents will not be archived")
	} else {
		objects = s
		log.Println("MinIO storage initialized")
	}

	// Build the ingestion pipeline
	provider, err := buildProvider(config)
	if err != nil {
		log.Fatalf("Failed to initialize AI provider: %v", err)
	}
	log.Printf("AI provider: %s", provider.Name())

	extractor := ocr.NewExtractor(config.OCR.Language, config.OCR.MaxPages)
	structurer := ai.NewExtractor(provider)
	scraper := scrape.NewFetcher(nil)

	var imports api.Importer
	if store != nil {
		imports = importer.New(store, extractor, structurer, scraper, config.Import.MaxCharsForLLM)
	}

	// Create API handler
	var handlerStore api.Store
	if store != nil {
		handlerStore = store
	}
	var handlerObjects api.Objects
	if objects != nil {
		handlerObjects = objects
	}
	handler := api.NewHandler(config, handlerStore, imports, handlerObjects)
	router := handler.SetupRoutes()

	// Wrap router with the middleware chain (skips /health and /api/login)
	protected := auth.Chain(auth.Recover, auth.RequestLog, auth.RequireAuth)(router)

	// Start server
	addr := fmt.Sprintf("%s:%d", config.Host, config.Port)
	log.Printf("Starting Menu Ingest Service v%s on %s", api.Version, addr)
	log.Printf("OCR language: %s, max pages: %d", config.OCR.Language, config.OCR.MaxPages)
	log.Printf("Database: %v", store != nil)
	log.Printf("Storage: %v", objects != nil)
	log.Printf("Endpoints:")
	log.Printf("  POST http://%s/api/login                - Authenticate", addr)
	log.Printf("  POST http://%s/api/menu/process-pdf     - Import a menu PDF (requires JWT)", addr)
	log.Printf("  POST http://%s/api/menu/hybrid-merge    - Merge a scraped menu (requires JWT)", addr)
	log.Printf("  GET  http://%s/api/menu/items           - List menu items (requires JWT)", addr)
	log.Printf("  GET  http://%s/api/menu/categories      - Category order (requires JWT)", addr)
	log.Printf("  PUT  http://%s/api/menu/categories      - Reorder categories (requires JWT)", addr)
	log.Printf("  GET  http://%s/api/inventory           - List ingredients (requires JWT)", addr)
	log.Printf("  POST http://%s/api/inventory/import-csv - Bulk import ingredients (requires JWT)", addr)
	log.Printf("  POST http://%s/api/orders               - Create order (requires JWT)", addr)
	log.Printf("  GET  http://%s/api/orders               - List orders (requires JWT)", addr)
	log.Printf("  POST http://%s/api/orders/cleanup       - Close stale sessions (requires JWT)", addr)
	log.Printf("  GET  http://%s/api/kds/stations         - List KDS stations (requires JWT)", addr)
	log.Printf("  POST http://%s/api/kds/stations         - Create KDS station (requires JWT)", addr)
	log.Printf("  GET  http://%s/health                   - Health check", addr)

	if err := http.ListenAndServe(addr, protected); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

// buildProvider picks the configured AI provider.
func buildProvider(config *models.Config) (ai.Provider, error) {
	switch config.AI.DefaultProvider {
	case "openai":
		if config.AI.OpenAI.APIKey == "" {
			return nil, fmt.Errorf("openai provider selected but no API key configured")
		}
		return ai.NewOpenAIProvider(config.AI.OpenAI.APIKey, config.AI.OpenAI.BaseURL, config.AI.OpenAI.Model), nil
	case "gemini":
		if config.AI.Gemini.APIKey == "" {
			return nil, fmt.Errorf("gemini provider selected but no API key configured")
		}
		return ai.NewGeminiProvider(config.AI.Gemini.APIKey, config.AI.Gemini.Model), nil
	case "ollama":
		return ai.NewOllamaProvider(config.AI.Ollama.BaseURL, config.AI.Ollama.Model), nil
	default:
		return nil, fmt.Errorf("unknown AI provider: %q", config.AI.DefaultProvider)
	}
}

func loadConfig(path string) (*models.Config, error) {
	// Read config file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse YAML
	var config models.Config
	err = yaml.Unmarshal(data, &config)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Override with environment variables if present
	if port := os.Getenv("PORT"); port != "" {
		fmt.Sscanf(port, "%d", &config.Port)
	}
	if host := os.Getenv("HOST"); host != "" {
		config.Host = host
	}
	if env := os.Getenv("APP_ENV"); env != "" {
		config.Env = env
	}
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		config.AI.OpenAI.APIKey = apiKey
	}
	if apiKey := os.Getenv("GEMINI_API_KEY"); apiKey != "" {
		config.AI.Gemini.APIKey = apiKey
	}
	if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" {
		config.AI.Ollama.BaseURL = baseURL
	}
	if provider := os.Getenv("AI_PROVIDER"); provider != "" {
		config.AI.DefaultProvider = provider
	}
	if baseURL := os.Getenv("OPENAI_BASE_URL"); baseURL != "" {
		config.AI.OpenAI.BaseURL = baseURL
	}
	if model := os.Getenv("OPENAI_MODEL"); model != "" {
		config.AI.OpenAI.Model = model
	}
	if model := os.Getenv("GEMINI_MODEL"); model != "" {
		config.AI.Gemini.Model = model
	}
	if lang := os.Getenv("OCR_LANGUAGE"); lang != "" {
		config.OCR.Language = lang
	}

	// Defaults
	if config.OCR.Language == "" {
		config.OCR.Language = "eng"
	}
	if config.OCR.MaxPages <= 0 {
		config.OCR.MaxPages = 5
	}

	return &config, nil
}
