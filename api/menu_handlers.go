package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/platewise/menu-ingest-service/internal/ai"
	"github.com/platewise/menu-ingest-service/internal/importer"
)

// ProcessMenuPDF accepts a menu PDF upload and runs the full ingestion
// pipeline: text extraction, AI structuring, validation and catalog replace.
func (h *Handler) ProcessMenuPDF(w http.ResponseWriter, r *http.Request) {
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

	file, header, err := r.FormFile("file")
	if err != nil {
		h.sendError(w, http.StatusBadRequest, "missing file field", err)
		return
	}
	defer file.Close()

	if ct := header.Header.Get("Content-Type"); ct != "" && ct != "application/pdf" && ct != "application/octet-stream" {
		h.sendError(w, http.StatusBadRequest, "only PDF files are accepted", nil)
		return
	}

	pdfData, err := io.ReadAll(file)
	if err != nil {
		h.sendError(w, http.StatusBadRequest, "failed to read uploaded file", err)
		return
	}
	if len(pdfData) == 0 {
		h.sendError(w, http.StatusBadRequest, "uploaded file is empty", nil)
		return
	}

	opts := importer.ImportOptions{
		Force:          r.FormValue("force") == "true",
		SkipValidation: r.FormValue("enable_validation") == "false",
	}

	// Keep the original document around for later review.
	var objectPath string
	if h.objects != nil {
		path, err := h.objects.UploadMenuAsset(r.Context(), venueID.String(), header.Filename,
			bytes.NewReader(pdfData), int64(len(pdfData)), "application/pdf")
		if err != nil {
			log.Printf("[Storage] failed to archive source PDF for venue %s: %v", venueID, err)
		} else {
			objectPath = path
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Minute)
	defer cancel()

	result, err := h.imports.ImportPDF(ctx, venueID, pdfData, opts)
	if err != nil {
		// A failed import keeps its upload row but not the archived blob.
		if objectPath != "" {
			if delErr := h.objects.Delete(r.Context(), objectPath); delErr != nil {
				log.Printf("[Storage] failed to remove %s: %v", objectPath, delErr)
			}
		}
		if errors.Is(err, ai.ErrBadModelOutput) {
			h.sendError(w, http.StatusBadGateway, "AI returned an unusable menu structure", err)
			return
		}
		h.sendError(w, http.StatusInternalServerError, "menu processing failed", err)
		return
	}

	var sourceURL string
	if objectPath != "" {
		if sourceURL, err = h.objects.PresignedURL(r.Context(), objectPath); err != nil {
			log.Printf("[Storage] presign %s: %v", objectPath, err)
		}
	}

	h.sendJSON(w, http.StatusOK, map[string]interface{}{
		"success":      true,
		"upload_id":    result.UploadID,
		"status":       result.Status,
		"items":        result.Items,
		"menu_score":   result.MenuScore,
		"ocr_used":     result.OCRUsed,
		"page_count":   result.PageCount,
		"quality":      result.Quality,
		"source_url":   sourceURL,
		"ocr_duration": result.OCRDuration,
		"ai_duration":  result.AIDuration,
	})
}

// HybridMergeRequest is the hybrid merge request body.
type HybridMergeRequest struct {
	VenueID string `json:"venue_id" validate:"required,uuid"`
	MenuURL string `json:"menu_url" validate:"required,url"`
}

// HybridMerge refreshes an existing catalog against a scraped menu page.
func (h *Handler) HybridMerge(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		h.sendError(w, http.StatusServiceUnavailable, "database not available", nil)
		return
	}

	var req HybridMergeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.sendError(w, http.StatusBadRequest, "venue_id and a valid menu_url are required", err)
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

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Minute)
	defer cancel()

	result, err := h.imports.HybridMerge(ctx, venueID, req.MenuURL)
	if err != nil {
		if errors.Is(err, importer.ErrNoPriorUpload) {
			h.sendError(w, http.StatusConflict, "no existing menu to merge into; run a full import first", err)
			return
		}
		if errors.Is(err, ai.ErrBadModelOutput) {
			h.sendError(w, http.StatusBadGateway, "AI returned unusable merge decisions", err)
			return
		}
		h.sendError(w, http.StatusInternalServerError, "hybrid merge failed", err)
		return
	}

	h.sendJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"mode":     result.Mode,
		"items":    result.Items,
		"updated":  result.Updated,
		"added":    result.Added,
		"errors":   result.Errors,
		"duration": result.Duration,
	})
}

// GetItems returns the venue's menu items ordered by category and position.
func (h *Handler) GetItems(w http.ResponseWriter, r *http.Request) {
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

	items, err := h.store.VenueItems(r.Context(), venueID)
	if err != nil {
		h.sendError(w, http.StatusInternalServerError, "failed to load menu items", err)
		return
	}

	h.sendJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"items":   items,
		"count":   len(items),
	})
}

// GetCategories returns the effective category ordering for a venue:
// the stored order first, then any categories discovered in the catalog.
func (h *Handler) GetCategories(w http.ResponseWriter, r *http.Request) {
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

	order, err := h.store.CategoryOrder(r.Context(), venueID)
	if err != nil {
		h.sendError(w, http.StatusInternalServerError, "failed to load categories", err)
		return
	}

	h.sendJSON(w, http.StatusOK, map[string]interface{}{
		"success":    true,
		"categories": order,
	})
}

// CategoryOrderRequest is the category reorder request body.
type CategoryOrderRequest struct {
	VenueID    string   `json:"venue_id" validate:"required,uuid"`
	Categories []string `json:"categories" validate:"required,min=1,dive,required"`
}

// PutCategories persists a new category ordering on the venue's latest upload.
func (h *Handler) PutCategories(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		h.sendError(w, http.StatusServiceUnavailable, "database not available", nil)
		return
	}

	var req CategoryOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.sendError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.sendError(w, http.StatusBadRequest, "venue_id and a non-empty categories list are required", err)
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

	if err := h.store.SaveCategoryOrder(r.Context(), venueID, req.Categories); err != nil {
		h.sendError(w, http.StatusNotFound, "no menu upload found for venue", err)
		return
	}

	h.sendJSON(w, http.StatusOK, map[string]interface{}{
		"success":    true,
		"categories": req.Categories,
	})
}
