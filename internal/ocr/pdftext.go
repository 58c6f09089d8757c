package ocr

import (
	"bytes"
	"fmt"

	"github.com/ledongthuc/pdf"
)

// NativeText extracts the embedded text layer from PDF bytes. Returns the
// text and the page count. Scanned menus typically have no text layer; an
// empty result is not an error here, the menu-likelihood gate downstream
// decides what to do with it.
func NativeText(data []byte) (string, int, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", 0, fmt.Errorf("open pdf: %w", err)
	}

	pages := reader.NumPage()

	textReader, err := reader.GetPlainText()
	if err != nil {
		return "", pages, fmt.Errorf("extract plain text: %w", err)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(textReader); err != nil {
		return "", pages, fmt.Errorf("read text buffer: %w", err)
	}

	return buf.String(), pages, nil
}
