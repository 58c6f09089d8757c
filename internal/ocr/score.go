package ocr

import "regexp"

// ScoreThreshold is the menu-likelihood gate. Below it the pipeline stops
// with needs_review instead of spending an LLM call on text that does not
// look like a menu. A cost-control gate, not a correctness one.
const ScoreThreshold = 10

// priceToken matches currency-prefixed amounts ($12, £9.50, €7,50) and bare
// decimal prices (12.99, 9,50). OCR noise beyond this is not normalized.
var priceToken = regexp.MustCompile(`[$€£₹]\s?\d+(?:[.,]\d{1,2})?|\b\d{1,4}[.,]\d{2}\b`)

// MenuScore returns a non-negative menu-likelihood score for extracted text:
// the count of price-like tokens plus a length bonus capped at 10.
func MenuScore(text string) int {
	if text == "" {
		return 0
	}

	score := len(priceToken.FindAllString(text, -1))

	bonus := len(text) / 500
	if bonus > 10 {
		bonus = 10
	}

	return score + bonus
}
