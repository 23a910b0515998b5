package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/html"

	"golang-task-automation-engine/internal/config"
	"golang-task-automation-engine/internal/models"
)

const maxBodySize = 5 << 20 // 5 MiB

// Scraper fetches a page and extracts the text of nodes matching a simple
// selector: a tag name ("h2"), a class (".headline") or an id ("#main").
// Without a selector the raw document text is returned as content.
type Scraper struct {
	config *config.ScraperConfig
	client *http.Client
	log    *logrus.Logger
}

func New(cfg *config.ScraperConfig, log *logrus.Logger) *Scraper {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Scraper{
		config: cfg,
		log:    log,
		client: &http.Client{Timeout: timeout},
	}
}

func (s *Scraper) Scrape(ctx context.Context, url, selector string) (*models.ScrapeResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	userAgent := s.config.UserAgent
	if userAgent == "" {
		userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("scrape target returned status %d", resp.StatusCode)
	}

	doc, err := html.Parse(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML from %s: %w", url, err)
	}

	if selector == "" {
		return &models.ScrapeResult{Content: collectText(doc)}, nil
	}

	var items []string
	matchNodes(doc, selector, &items)
	return &models.ScrapeResult{Items: items}, nil
}

func matchNodes(n *html.Node, selector string, items *[]string) {
	if n.Type == html.ElementNode && matches(n, selector) {
		if text := collectText(n); text != "" {
			*items = append(*items, text)
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		matchNodes(c, selector, items)
	}
}

func matches(n *html.Node, selector string) bool {
	switch {
	case strings.HasPrefix(selector, "."):
		want := strings.TrimPrefix(selector, ".")
		for _, attr := range n.Attr {
			if attr.Key == "class" {
				for _, class := range strings.Fields(attr.Val) {
					if class == want {
						return true
					}
				}
			}
		}
		return false
	case strings.HasPrefix(selector, "#"):
		want := strings.TrimPrefix(selector, "#")
		for _, attr := range n.Attr {
			if attr.Key == "id" && attr.Val == want {
				return true
			}
		}
		return false
	default:
		return n.Data == selector
	}
}

func collectText(n *html.Node) string {
	if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
		return ""
	}
	if n.Type == html.TextNode {
		return strings.TrimSpace(n.Data)
	}
	var parts []string
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if text := collectText(c); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}
