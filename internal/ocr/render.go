package ocr

import (
	"context"
	"fmt"
	"image/png"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/gen2brain/go-fitz"
)

// renderDPI matches what the menu-image overlay pipeline uses for page
// images; 300 is also the sweet spot for tesseract accuracy.
const renderDPI = 300

// Tesseract runs the tesseract CLI against rendered page images.
type Tesseract struct {
	Binary   string
	Language string
}

// NewTesseract returns a Tesseract runner with defaults.
func NewTesseract(language string) *Tesseract {
	if language == "" {
		language = "eng"
	}
	return &Tesseract{
		Binary:   "tesseract",
		Language: language,
	}
}

// OCRPages renders up to maxPages pages of the PDF and OCRs each one,
// joining the per-page text with page break markers. Individual page
// failures are logged and skipped; only a document that cannot be opened
// at all is an error.
func (t *Tesseract) OCRPages(ctx context.Context, data []byte, maxPages int) (string, int, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return "", 0, fmt.Errorf("open pdf for rendering: %w", err)
	}
	defer doc.Close()

	total := doc.NumPage()
	pages := total
	if maxPages > 0 && pages > maxPages {
		pages = maxPages
	}

	var texts []string
	for i := 0; i < pages; i++ {
		img, err := doc.ImageDPI(i, renderDPI)
		if err != nil {
			log.Printf("[OCR] render page %d failed: %v", i+1, err)
			continue
		}

		pagePath := filepath.Join(os.TempDir(), fmt.Sprintf("menu_page_%d_%d.png", os.Getpid(), i))
		f, err := os.Create(pagePath)
		if err != nil {
			log.Printf("[OCR] temp file for page %d failed: %v", i+1, err)
			continue
		}
		encErr := png.Encode(f, img)
		f.Close()
		if encErr != nil {
			os.Remove(pagePath)
			log.Printf("[OCR] encode page %d failed: %v", i+1, encErr)
			continue
		}

		text, err := t.extractImage(ctx, pagePath)
		os.Remove(pagePath)
		if err != nil {
			log.Printf("[OCR] tesseract page %d failed: %v", i+1, err)
			continue
		}
		texts = append(texts, text)
	}

	return strings.Join(texts, "\n---PAGE BREAK---\n"), total, nil
}

// extractImage invokes tesseract on a single page image.
func (t *Tesseract) extractImage(ctx context.Context, imagePath string) (string, error) {
	binary := t.Binary
	if binary == "" {
		binary = "tesseract"
	}

	cmd := exec.CommandContext(ctx, binary, imagePath, "stdout", "-l", t.Language)
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("tesseract: %w", err)
	}
	return string(out), nil
}
