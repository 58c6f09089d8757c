package api

import (
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/platewise/menu-ingest-service/internal/models"
)

var requiredCSVColumns = []string{"name", "unit", "quantity", "cost_per_unit"}

// GetInventory lists the venue's ingredients alphabetically.
func (h *Handler) GetInventory(w http.ResponseWriter, r *http.Request) {
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

	ingredients, err := h.store.VenueIngredients(r.Context(), venueID)
	if err != nil {
		h.sendError(w, http.StatusInternalServerError, "failed to load inventory", err)
		return
	}

	h.sendJSON(w, http.StatusOK, map[string]interface{}{
		"success":     true,
		"ingredients": ingredients,
		"count":       len(ingredients),
	})
}

// ImportInventoryCSV bulk-upserts ingredients from an uploaded CSV file.
// Malformed rows are skipped and reported; valid rows are still imported.
func (h *Handler) ImportInventoryCSV(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		h.sendError(w, http.StatusServiceUnavailable, "database not available", nil)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadSize)
	if err := r.ParseMultipartForm(MaxUploadSize); err != nil {
		h.sendError(w, http.StatusBadRequest, "file too large or malformed form (max 20MB)", err)
		return
	}

	venueID, err := parseVenueID(r.FormValue("venue_id"))
	if err != nil {
		h.sendError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}
	if _, err := h.venueAccess(r, venueID); err != nil {
		h.sendError(w, http.StatusForbidden, "access to venue denied", err)
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		h.sendError(w, http.StatusBadRequest, "missing file field", err)
		return
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		h.sendError(w, http.StatusBadRequest, "empty or unreadable CSV", err)
		return
	}

	cols, err := resolveCSVColumns(header)
	if err != nil {
		h.sendError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	imported := 0
	var rowErrors []string
	line := 1

	for {
		line++
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			rowErrors = append(rowErrors, fmt.Sprintf("line %d: %v", line, err))
			continue
		}

		ing, err := ingredientFromRecord(venueID, cols, record)
		if err != nil {
			rowErrors = append(rowErrors, fmt.Sprintf("line %d: %v", line, err))
			continue
		}

		if err := h.store.UpsertIngredient(r.Context(), ing); err != nil {
			rowErrors = append(rowErrors, fmt.Sprintf("line %d: %v", line, err))
			continue
		}
		imported++
	}

	h.sendJSON(w, http.StatusOK, map[string]interface{}{
		"success":        true,
		"imported_count": imported,
		"error_count":    len(rowErrors),
		"errors":         rowErrors,
	})
}

// resolveCSVColumns validates the header row and returns column indexes.
func resolveCSVColumns(header []string) (map[string]int, error) {
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range requiredCSVColumns {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("missing required column %q (expected: %s)",
				required, strings.Join(requiredCSVColumns, ", "))
		}
	}
	return cols, nil
}

func ingredientFromRecord(venueID uuid.UUID, cols map[string]int, record []string) (*models.Ingredient, error) {
	field := func(name string) string {
		idx := cols[name]
		if idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	name := field("name")
	if name == "" {
		return nil, fmt.Errorf("name is required")
	}

	quantity, err := decimal.NewFromString(field("quantity"))
	if err != nil {
		return nil, fmt.Errorf("invalid quantity %q", field("quantity"))
	}
	costPer, err := decimal.NewFromString(field("cost_per_unit"))
	if err != nil {
		return nil, fmt.Errorf("invalid cost_per_unit %q", field("cost_per_unit"))
	}
	if quantity.IsNegative() || costPer.IsNegative() {
		return nil, fmt.Errorf("quantity and cost_per_unit must not be negative")
	}

	return &models.Ingredient{
		VenueID:  venueID,
		Name:     name,
		Unit:     field("unit"),
		Quantity: quantity,
		CostPer:  costPer,
	}, nil
}
