package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"golang-task-automation-engine/internal/config"
)

const page = `<html><head><title>News</title><style>.x{}</style></head><body>
<h1 id="main">Front page</h1>
<div class="headline featured">Storm hits the coast</div>
<p>Filler paragraph.</p>
<div class="headline">Markets rally on earnings</div>
<script>console.log("noise")</script>
</body></html>`

func newTestScraper() *Scraper {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return New(&config.ScraperConfig{}, logger)
}

func TestScraper_Scrape(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, page)
	}))
	defer server.Close()

	s := newTestScraper()

	tests := []struct {
		name      string
		selector  string
		wantItems []string
	}{
		{
			name:      "class selector",
			selector:  ".headline",
			wantItems: []string{"Storm hits the coast", "Markets rally on earnings"},
		},
		{
			name:      "id selector",
			selector:  "#main",
			wantItems: []string{"Front page"},
		},
		{
			name:      "tag selector",
			selector:  "h1",
			wantItems: []string{"Front page"},
		},
		{
			name:      "no matches",
			selector:  ".nope",
			wantItems: nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := s.Scrape(context.Background(), server.URL, tt.selector)
			if err != nil {
				t.Fatalf("Scrape() error = %v", err)
			}
			if !reflect.DeepEqual(result.Items, tt.wantItems) {
				t.Errorf("items = %v, want %v", result.Items, tt.wantItems)
			}
		})
	}

	t.Run("no selector returns document text", func(t *testing.T) {
		result, err := s.Scrape(context.Background(), server.URL, "")
		if err != nil {
			t.Fatalf("Scrape() error = %v", err)
		}
		if !strings.Contains(result.Content, "Front page") || !strings.Contains(result.Content, "Filler paragraph.") {
			t.Errorf("content = %q", result.Content)
		}
		if strings.Contains(result.Content, "noise") {
			t.Errorf("script text leaked into content: %q", result.Content)
		}
	})

	t.Run("non-200 is an error", func(t *testing.T) {
		if _, err := s.Scrape(context.Background(), server.URL+"/missing", "h1"); err == nil {
			t.Fatal("expected error for 404, got nil")
		}
	})
}

func TestScraper_SendsUserAgent(t *testing.T) {
	var gotUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		fmt.Fprint(w, "<html><body></body></html>")
	}))
	defer server.Close()

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	s := New(&config.ScraperConfig{UserAgent: "task-engine/1.0"}, logger)

	if _, err := s.Scrape(context.Background(), server.URL, ""); err != nil {
		t.Fatalf("Scrape() error = %v", err)
	}
	if gotUA != "task-engine/1.0" {
		t.Errorf("user agent = %q, want configured value", gotUA)
	}
}
