package scrape

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestStripHTML(t *testing.T) {
	html := `<html><head>
		<script>var tracking = "ignore me";</script>
		<style>.menu { color: red }</style>
	</head><body>
		<h1>La Tavola</h1>
		<div class="item">Margherita &amp; burrata &euro;12,50</div>
		<div class="item">Pepperoni   &nbsp; 14.00</div>
	</body></html>`

	got := StripHTML(html)

	if strings.Contains(got, "tracking") || strings.Contains(got, "color: red") {
		t.Errorf("script/style content survived: %q", got)
	}
	if !strings.Contains(got, "Margherita & burrata €12,50") {
		t.Errorf("entities not decoded: %q", got)
	}
	if !strings.Contains(got, "Pepperoni 14.00") {
		t.Errorf("whitespace not collapsed: %q", got)
	}
}

func TestMenuTextFetchesAndStrips(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ua := r.Header.Get("User-Agent"); !strings.Contains(ua, "menu-ingest-service") {
			t.Errorf("unexpected user agent %q", ua)
		}
		w.Write([]byte(`<html><body><p>Margherita 12.50</p></body></html>`))
	}))
	defer srv.Close()

	f := NewFetcher(srv.Client())
	text, err := f.MenuText(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("MenuText: %v", err)
	}
	if !strings.Contains(text, "Margherita 12.50") {
		t.Errorf("text = %q", text)
	}
}

func TestMenuTextNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	defer srv.Close()

	f := NewFetcher(srv.Client())
	if _, err := f.MenuText(context.Background(), srv.URL); err == nil {
		t.Error("expected error for non-200 status")
	}
}
