package ocr

import (
	"context"
	"log"
)

// Result is the outcome of best-effort text extraction from a PDF.
type Result struct {
	Text      string
	OCRUsed   bool
	PageCount int
	Score     int
}

// Extractor produces best-effort plain text from PDF bytes. It tries the
// native text layer and OCR of rendered pages, scores both with the
// menu-likelihood heuristic and keeps whichever scores higher.
type Extractor struct {
	tesseract *Tesseract
	maxPages  int
}

// NewExtractor creates an Extractor. maxPages bounds how many pages are
// rendered for OCR; zero means all pages.
func NewExtractor(language string, maxPages int) *Extractor {
	return &Extractor{
		tesseract: NewTesseract(language),
		maxPages:  maxPages,
	}
}

// Extract never fails hard: library errors are logged and extraction
// degrades to whichever source succeeded, or to an empty string, which the
// downstream gate rejects as needs_review.
func (e *Extractor) Extract(ctx context.Context, pdfData []byte) *Result {
	nativeText, nativePages, err := NativeText(pdfData)
	if err != nil {
		log.Printf("[Extract] native text failed: %v", err)
		nativeText = ""
	}
	nativeText = CleanText(nativeText)
	nativeScore := MenuScore(nativeText)

	ocrText, ocrPages, err := e.tesseract.OCRPages(ctx, pdfData, e.maxPages)
	if err != nil {
		log.Printf("[Extract] OCR failed: %v", err)
		ocrText = ""
	}
	ocrText = CleanText(ocrText)
	ocrScore := MenuScore(ocrText)

	pages := nativePages
	if pages == 0 {
		pages = ocrPages
	}

	result := &Result{
		Text:      nativeText,
		OCRUsed:   false,
		PageCount: pages,
		Score:     nativeScore,
	}
	if ocrScore > nativeScore {
		result.Text = ocrText
		result.OCRUsed = true
		result.Score = ocrScore
	}

	log.Printf("[Extract] native score=%d ocr score=%d pages=%d ocr_used=%v",
		nativeScore, ocrScore, pages, result.OCRUsed)

	return result
}
