package ocr

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	multiSpace   = regexp.MustCompile(`[ \t]+`)
	multiNewline = regexp.MustCompile(`\n{3,}`)

	// Lines that are page furniture rather than menu content.
	noiseLine = []*regexp.Regexp{
		regexp.MustCompile(`(?i)^\s*page\s*\d+\s*$`),
		regexp.MustCompile(`^\s*\d+\s*/\s*\d+\s*$`),
		regexp.MustCompile(`(?i)^\s*menu\s*$`),
	}
)

// CleanText normalizes extracted text before scoring and LLM structuring:
// strips page break markers, page furniture, OCR garbage characters and
// collapses whitespace.
func CleanText(raw string) string {
	if raw == "" {
		return raw
	}

	text := strings.ReplaceAll(raw, "---PAGE BREAK---", "\n")

	for _, garbage := range []string{"�", "\f", "©", "™", "®"} {
		text = strings.ReplaceAll(text, garbage, "")
	}

	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		noise := false
		for _, pattern := range noiseLine {
			if pattern.MatchString(trimmed) {
				noise = true
				break
			}
		}
		if !noise {
			kept = append(kept, multiSpace.ReplaceAllString(trimmed, " "))
		}
	}
	text = strings.Join(kept, "\n")

	return strings.TrimSpace(multiNewline.ReplaceAllString(text, "\n\n"))
}

// Truncate limits text to the LLM character budget, preferring to cut at a
// paragraph boundary so items are not sliced mid-line. The hard cut never
// splits a multi-byte rune.
func Truncate(text string, max int) string {
	if max <= 0 || len(text) <= max {
		return text
	}

	for max > 0 && !utf8.RuneStart(text[max]) {
		max--
	}
	cut := text[:max]
	if idx := strings.LastIndex(cut, "\n\n"); idx > max/2 {
		cut = cut[:idx]
	}
	return cut
}
