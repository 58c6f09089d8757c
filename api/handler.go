package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"runtime"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"golang.org/x/crypto/bcrypt"

	"github.com/platewise/menu-ingest-service/internal/auth"
	"github.com/platewise/menu-ingest-service/internal/db"
	"github.com/platewise/menu-ingest-service/internal/importer"
	"github.com/platewise/menu-ingest-service/internal/models"
)

const (
	MaxUploadSize = 20 * 1024 * 1024 // 20MB
	Version       = "1.3.0"
)

// Store is the persistence surface the handlers need. *db.Store satisfies
// it; tests plug in fakes without touching package globals.
type Store interface {
	VenueItems(ctx context.Context, venueID uuid.UUID) ([]models.MenuItem, error)
	CategoryOrder(ctx context.Context, venueID uuid.UUID) ([]string, error)
	SaveCategoryOrder(ctx context.Context, venueID uuid.UUID, order []string) error

	UpsertIngredient(ctx context.Context, ing *models.Ingredient) error
	VenueIngredients(ctx context.Context, venueID uuid.UUID) ([]models.Ingredient, error)

	CreateOrder(ctx context.Context, order *models.Order) error
	VenueOrders(ctx context.Context, venueID uuid.UUID, limit int) ([]models.Order, error)
	StaleSessionIDs(ctx context.Context, venueID uuid.UUID, cutoff time.Time) ([]uuid.UUID, error)
	CloseSession(ctx context.Context, sessionID uuid.UUID) error

	Stations(ctx context.Context, venueID uuid.UUID) ([]models.KDSStation, error)
	CreateStation(ctx context.Context, station *models.KDSStation) error
	DeleteStation(ctx context.Context, venueID, stationID uuid.UUID) error

	UserByEmail(ctx context.Context, email string) (*db.User, error)
	RecordLogin(ctx context.Context, userID string) error
}

// Importer runs the ingestion pipeline.
type Importer interface {
	ImportPDF(ctx context.Context, venueID uuid.UUID, pdfData []byte, opts importer.ImportOptions) (*importer.ImportResult, error)
	HybridMerge(ctx context.Context, venueID uuid.UUID, menuURL string) (*importer.MergeResult, error)
}

// Objects stores menu source documents; nil disables asset storage.
type Objects interface {
	UploadMenuAsset(ctx context.Context, venueID, filename string, reader io.Reader, size int64, contentType string) (string, error)
	PresignedURL(ctx context.Context, objectPath string) (string, error)
	Delete(ctx context.Context, objectPath string) error
}

// Handler handles HTTP requests for the menu platform.
type Handler struct {
	config   *models.Config
	store    Store
	imports  Importer
	objects  Objects
	validate *validator.Validate
}

// NewHandler creates a new API handler with its dependencies injected.
// objects may be nil when no object storage is configured.
func NewHandler(config *models.Config, store Store, imports Importer, objects Objects) *Handler {
	return &Handler{
		config:   config,
		store:    store,
		imports:  imports,
		objects:  objects,
		validate: validator.New(),
	}
}

// SetupRoutes configures the HTTP routes.
func (h *Handler) SetupRoutes() *mux.Router {
	router := mux.NewRouter()

	// Menu ingestion
	router.HandleFunc("/api/menu/process-pdf", h.ProcessMenuPDF).Methods("POST")
	router.HandleFunc("/api/menu/hybrid-merge", h.HybridMerge).Methods("POST")

	// Catalog
	router.HandleFunc("/api/menu/items", h.GetItems).Methods("GET")
	router.HandleFunc("/api/menu/categories", h.GetCategories).Methods("GET")
	router.HandleFunc("/api/menu/categories", h.PutCategories).Methods("PUT", "POST")

	// Inventory
	router.HandleFunc("/api/inventory", h.GetInventory).Methods("GET")
	router.HandleFunc("/api/inventory/import-csv", h.ImportInventoryCSV).Methods("POST")

	// Orders
	router.HandleFunc("/api/orders", h.CreateOrder).Methods("POST")
	router.HandleFunc("/api/orders", h.GetOrders).Methods("GET")
	router.HandleFunc("/api/orders/cleanup", h.CleanupSessions).Methods("POST")

	// KDS stations
	router.HandleFunc("/api/kds/stations", h.GetStations).Methods("GET")
	router.HandleFunc("/api/kds/stations", h.CreateStation).Methods("POST")
	router.HandleFunc("/api/kds/stations/{id}", h.DeleteStation).Methods("DELETE")

	// Auth
	router.HandleFunc("/api/login", h.Login).Methods("POST")

	// Health check
	router.HandleFunc("/health", h.Health).Methods("GET")

	return router
}

// HealthResponse represents the health check response structure
type HealthResponse struct {
	Status    string      `json:"status"`
	Version   string      `json:"version"`
	Timestamp string      `json:"timestamp"`
	Uptime    string      `json:"uptime"`
	Memory    MemoryStats `json:"memory"`
	Database  bool        `json:"database"`
	AI        string      `json:"ai"`
}

// MemoryStats represents memory usage statistics
type MemoryStats struct {
	Allocated string `json:"allocated"`
	Total     string `json:"total"`
	System    string `json:"system"`
}

var startTime = time.Now()

// Health endpoint for monitoring
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	response := HealthResponse{
		Status:    "healthy",
		Version:   Version,
		Timestamp: time.Now().Format(time.RFC3339),
		Uptime:    time.Since(startTime).String(),
		Memory: MemoryStats{
			Allocated: fmt.Sprintf("%.2f MB", float64(m.Alloc)/1024/1024),
			Total:     fmt.Sprintf("%.2f MB", float64(m.TotalAlloc)/1024/1024),
			System:    fmt.Sprintf("%.2f MB", float64(m.Sys)/1024/1024),
		},
		Database: h.store != nil,
		AI:       h.config.AI.DefaultProvider,
	}

	status := http.StatusOK
	if h.store == nil {
		response.Status = "degraded"
		status = http.StatusServiceUnavailable
	}
	h.sendJSON(w, status, response)
}

// LoginRequest is the login request body.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse is the successful login response.
type LoginResponse struct {
	Success bool   `json:"success"`
	Token   string `json:"token"`
	UserID  string `json:"user_id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Role    string `json:"role"`
	VenueID string `json:"venue_id"`
}

// Login authenticates a user against the users table.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		h.sendError(w, http.StatusServiceUnavailable, "database not available", nil)
		return
	}

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.sendError(w, http.StatusBadRequest, "email and password are required", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	user, err := h.store.UserByEmail(ctx, req.Email)
	if err != nil {
		h.sendError(w, http.StatusUnauthorized, "invalid credentials", err)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		h.sendError(w, http.StatusUnauthorized, "invalid credentials", nil)
		return
	}

	token, err := auth.GenerateToken(user.ID, user.Email, user.VenueID, user.Role)
	if err != nil {
		h.sendError(w, http.StatusInternalServerError, "failed to generate token", err)
		return
	}

	// Update last login in background
	go func() {
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		if err := h.store.RecordLogin(ctx2, user.ID); err != nil {
			log.Printf("record login for %s: %v", user.ID, err)
		}
	}()

	h.sendJSON(w, http.StatusOK, LoginResponse{
		Success: true,
		Token:   token,
		UserID:  user.ID,
		Email:   user.Email,
		Name:    user.Name,
		Role:    user.Role,
		VenueID: user.VenueID,
	})
}

// venueAccess pulls claims from the context and checks venue access.
func (h *Handler) venueAccess(r *http.Request, venueID uuid.UUID) (*auth.Claims, error) {
	claims, err := auth.GetClaimsFromContext(r.Context())
	if err != nil {
		return nil, err
	}
	if err := auth.CheckVenueAccess(claims, venueID.String()); err != nil {
		return nil, err
	}
	return claims, nil
}

// sendJSON writes a JSON response.
func (h *Handler) sendJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}

// sendError writes an error envelope. The underlying error is always
// logged but only echoed to the client in development mode.
func (h *Handler) sendError(w http.ResponseWriter, statusCode int, message string, err error) {
	if err != nil {
		log.Printf("[API] %d %s: %v", statusCode, message, err)
		if h.config != nil && h.config.Env == "development" {
			message = fmt.Sprintf("%s: %v", message, err)
		}
	}
	h.sendJSON(w, statusCode, map[string]interface{}{
		"success": false,
		"error":   message,
	})
}

// parseVenueID reads the venue id from a string and validates it.
func parseVenueID(raw string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, errors.New("venue_id is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid venue_id: %w", err)
	}
	return id, nil
}
