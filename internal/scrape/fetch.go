package scrape

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"
)

// maxBodyBytes caps how much of a menu page we read. Menu pages are small;
// anything bigger is probably not a menu.
const maxBodyBytes = 2 << 20

var (
	scriptBlock = regexp.MustCompile(`(?is)<(script|style|noscript)[^>]*>.*?</(script|style|noscript)>`)
	htmlTag     = regexp.MustCompile(`(?s)<[^>]*>`)
	multiSpace  = regexp.MustCompile(`[ \t]+`)
	multiBreak  = regexp.MustCompile(`\n{3,}`)
)

// Fetcher pulls a venue's menu page and reduces it to plain text suitable
// for LLM structuring. Scraping here is deliberately dumb: the model does
// the real interpretation.
type Fetcher struct {
	client *http.Client
}

// NewFetcher creates a Fetcher. A nil client gets a default with a timeout
// sized for slow restaurant sites.
func NewFetcher(client *http.Client) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	return &Fetcher{client: client}
}

// MenuText GETs the URL and returns the page's visible text.
func (f *Fetcher) MenuText(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("build scrape request: %w", err)
	}
	req.Header.Set("User-Agent", "menu-ingest-service/1.0")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch menu page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("menu page returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("read menu page: %w", err)
	}

	return StripHTML(string(body)), nil
}

// StripHTML reduces an HTML document to its visible text.
func StripHTML(html string) string {
	text := scriptBlock.ReplaceAllString(html, " ")
	text = htmlTag.ReplaceAllString(text, "\n")

	// Decode the handful of entities that matter for menu text.
	replacer := strings.NewReplacer(
		"&amp;", "&",
		"&nbsp;", " ",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&#39;", "'",
		"&euro;", "€",
		"&pound;", "£",
	)
	text = replacer.Replace(text)

	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		trimmed := strings.TrimSpace(multiSpace.ReplaceAllString(line, " "))
		if trimmed != "" {
			kept = append(kept, trimmed)
		}
	}

	return strings.TrimSpace(multiBreak.ReplaceAllString(strings.Join(kept, "\n"), "\n\n"))
}
