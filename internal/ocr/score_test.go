package ocr

import (
	"strings"
	"testing"
)

func TestMenuScoreEmptyText(t *testing.T) {
	if got := MenuScore(""); got != 0 {
		t.Errorf("MenuScore(\"\") = %d, want 0", got)
	}
}

func TestMenuScoreCountsPriceTokens(t *testing.T) {
	text := "Margherita $12.50\nPepperoni $14.00\nCalzone €9,50\nTiramisu 6.00"
	got := MenuScore(text)
	// 4 price tokens, no length bonus for a short text
	if got < 4 {
		t.Errorf("MenuScore(%q) = %d, want >= 4", text, got)
	}
}

func TestMenuScoreProseStaysBelowThreshold(t *testing.T) {
	text := "Dear hiring manager, I am writing to apply for the role of line cook."
	if got := MenuScore(text); got >= ScoreThreshold {
		t.Errorf("MenuScore(prose) = %d, want below threshold %d", got, ScoreThreshold)
	}
}

func TestMenuScoreLengthBonusIsCapped(t *testing.T) {
	// Long text with no price tokens: score is the bonus alone, capped at 10.
	text := strings.Repeat("lorem ipsum dolor sit amet ", 1000)
	if got := MenuScore(text); got != 10 {
		t.Errorf("MenuScore(long prose) = %d, want capped bonus 10", got)
	}
}

func TestMenuScoreRealMenuPassesGate(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("STARTERS\n")
	sb.WriteString("Bruschetta $8.50\nGarlic Bread $5.00\nSoup of the Day $7.00\n")
	sb.WriteString("MAINS\n")
	sb.WriteString("Margherita $12.50\nPepperoni $14.00\nLasagna $13.50\n")
	sb.WriteString("Risotto $15.00\nCarbonara $13.00\n")
	sb.WriteString("DESSERTS\n")
	sb.WriteString("Tiramisu $6.50\nPanna Cotta $6.00\n")

	if got := MenuScore(sb.String()); got < ScoreThreshold {
		t.Errorf("MenuScore(menu) = %d, want >= threshold %d", got, ScoreThreshold)
	}
}
