package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/platewise/menu-ingest-service/internal/db"
	"github.com/platewise/menu-ingest-service/internal/models"
)

// CreateOrderRequest is the order creation request body.
type CreateOrderRequest struct {
	VenueID   string `json:"venue_id" validate:"required,uuid"`
	TableCode string `json:"table_code" validate:"required"`
	Total     string `json:"total" validate:"required"`
}

// CreateOrder records a new order for a table session.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		h.sendError(w, http.StatusServiceUnavailable, "database not available", nil)
		return
	}

	var req CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.sendError(w, http.StatusBadRequest, "venue_id, table_code and total are required", err)
		return
	}

	venueID, err := parseVenueID(req.VenueID)
	if err != nil {
		h.sendError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}
	if _, err := h.venueAccess(r, venueID); err != nil {
		h.sendError(w, http.StatusForbidden, "access to venue denied", err)
		return
	}

	total, err := decimal.NewFromString(req.Total)
	if err != nil || total.IsNegative() {
		h.sendError(w, http.StatusBadRequest, "total must be a non-negative decimal", err)
		return
	}

	order := &models.Order{
		VenueID:   venueID,
		TableCode: req.TableCode,
		Status:    "open",
		Total:     total,
	}
	if err := h.store.CreateOrder(r.Context(), order); err != nil {
		h.sendError(w, http.StatusInternalServerError, "failed to create order", err)
		return
	}

	h.sendJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"order":   order,
	})
}

// GetOrders returns recent orders for a venue, newest first.
func (h *Handler) GetOrders(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		h.sendError(w, http.StatusServiceUnavailable, "database not available", nil)
		return
	}

	venueID, err := parseVenueID(r.URL.Query().Get("venue_id"))
	if err != nil {
		h.sendError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}
	if _, err := h.venueAccess(r, venueID); err != nil {
		h.sendError(w, http.StatusForbidden, "access to venue denied", err)
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	orders, err := h.store.VenueOrders(r.Context(), venueID, limit)
	if err != nil {
		h.sendError(w, http.StatusInternalServerError, "failed to load orders", err)
		return
	}

	h.sendJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"orders":  orders,
		"count":   len(orders),
	})
}

// CleanupRequest is the stale session cleanup request body.
type CleanupRequest struct {
	VenueID     string `json:"venue_id" validate:"required,uuid"`
	IdleMinutes int    `json:"idle_minutes"`
}

// CleanupSessions closes table sessions idle beyond the cutoff, abandoning
// their open orders. Sessions are closed concurrently; one failure does
// not stop the rest.
func (h *Handler) CleanupSessions(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		h.sendError(w, http.StatusServiceUnavailable, "database not available", nil)
		return
	}

	var req CleanupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.sendError(w, http.StatusBadRequest, "venue_id is required", err)
		return
	}
	if req.IdleMinutes <= 0 {
		req.IdleMinutes = 120
	}

	venueID, err := parseVenueID(req.VenueID)
	if err != nil {
		h.sendError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}
	if _, err := h.venueAccess(r, venueID); err != nil {
		h.sendError(w, http.StatusForbidden, "access to venue denied", err)
		return
	}

	cutoff := time.Now().Add(-time.Duration(req.IdleMinutes) * time.Minute)
	sessionIDs, err := h.store.StaleSessionIDs(r.Context(), venueID, cutoff)
	if err != nil {
		h.sendError(w, http.StatusInternalServerError, "failed to find stale sessions", err)
		return
	}

	var (
		mu       sync.Mutex
		failures []string
	)
	g, ctx := errgroup.WithContext(r.Context())
	g.SetLimit(5)
	for _, id := range sessionIDs {
		id := id
		g.Go(func() error {
			if err := h.store.CloseSession(ctx, id); err != nil {
				log.Printf("[Cleanup] session %s: %v", id, err)
				mu.Lock()
				failures = append(failures, id.String())
				mu.Unlock()
			}
			return nil
		})
	}
	g.Wait()

	h.sendJSON(w, http.StatusOK, map[string]interface{}{
		"success":      true,
		"closed_count": len(sessionIDs) - len(failures),
		"failed":       failures,
	})
}

// GetStations lists the venue's kitchen display stations.
func (h *Handler) GetStations(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		h.sendError(w, http.StatusServiceUnavailable, "database not available", nil)
		return
	}

	venueID, err := parseVenueID(r.URL.Query().Get("venue_id"))
	if err != nil {
		h.sendError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}
	if _, err := h.venueAccess(r, venueID); err != nil {
		h.sendError(w, http.StatusForbidden, "access to venue denied", err)
		return
	}

	stations, err := h.store.Stations(r.Context(), venueID)
	if err != nil {
		h.sendError(w, http.StatusInternalServerError, "failed to load stations", err)
		return
	}

	h.sendJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"stations": stations,
		"count":    len(stations),
	})
}

// CreateStationRequest is the station creation request body.
type CreateStationRequest struct {
	VenueID string `json:"venue_id" validate:"required,uuid"`
	Name    string `json:"name" validate:"required"`
}

// CreateStation adds a kitchen display station, enforcing the venue's
// subscription tier limit.
func (h *Handler) CreateStation(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		h.sendError(w, http.StatusServiceUnavailable, "database not available", nil)
		return
	}

	var req CreateStationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.sendError(w, http.StatusBadRequest, "venue_id and name are required", err)
		return
	}

	venueID, err := parseVenueID(req.VenueID)
	if err != nil {
		h.sendError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}
	if _, err := h.venueAccess(r, venueID); err != nil {
		h.sendError(w, http.StatusForbidden, "access to venue denied", err)
		return
	}

	station := &models.KDSStation{
		VenueID: venueID,
		Name:    req.Name,
	}
	if err := h.store.CreateStation(r.Context(), station); err != nil {
		if errors.Is(err, db.ErrStationLimit) {
			h.sendError(w, http.StatusForbidden, "station limit reached for this subscription tier", err)
			return
		}
		h.sendError(w, http.StatusInternalServerError, "failed to create station", err)
		return
	}

	h.sendJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"station": station,
	})
}

// DeleteStation removes a station by id.
func (h *Handler) DeleteStation(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		h.sendError(w, http.StatusServiceUnavailable, "database not available", nil)
		return
	}

	stationID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		h.sendError(w, http.StatusBadRequest, "invalid station id", err)
		return
	}

	venueID, err := parseVenueID(r.URL.Query().Get("venue_id"))
	if err != nil {
		h.sendError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}
	if _, err := h.venueAccess(r, venueID); err != nil {
		h.sendError(w, http.StatusForbidden, "access to venue denied", err)
		return
	}

	if err := h.store.DeleteStation(r.Context(), venueID, stationID); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			h.sendError(w, http.StatusNotFound, "station not found", err)
			return
		}
		h.sendError(w, http.StatusInternalServerError, "failed to delete station", err)
		return
	}

	h.sendJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"deleted": stationID,
	})
}
