// Package urlmeta fetches link previews: OpenGraph metadata with
// plain-HTML fallbacks, the way chat clients unfurl pasted URLs.
package urlmeta

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// ErrBadURL rejects inputs that are not absolute http(s) URLs.
var ErrBadURL = errors.New("urlmeta: not an absolute http(s) url")

// Meta is the preview extracted from a page.
type Meta struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Image       string `json:"image"`
	SiteName    string `json:"siteName"`
}

// Fetcher retrieves link previews with a bounded client.
type Fetcher struct {
	client *http.Client
}

// NewFetcher creates a fetcher with the given request timeout.
func NewFetcher(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Fetcher{
		client: &http.Client{Timeout: timeout},
	}
}

// Fetch loads rawURL and extracts its preview metadata.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Meta, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil || !parsed.IsAbs() || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return nil, ErrBadURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, parsed.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("urlmeta: build request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; chat-relay-preview/1.0)")
	req.Header.Set("Accept", "text/html")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("urlmeta: fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("urlmeta: upstream returned %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("urlmeta: parse: %w", err)
	}

	meta := &Meta{URL: parsed.String()}

	meta.Title = ogContent(doc, "og:title")
	if meta.Title == "" {
		meta.Title = strings.TrimSpace(doc.Find("title").First().Text())
	}

	meta.Description = ogContent(doc, "og:description")
	if meta.Description == "" {
		meta.Description, _ = doc.Find(`meta[name="description"]`).Attr("content")
	}

	meta.Image = ogContent(doc, "og:image")
	if meta.Image != "" {
		// Resolve relative image URLs against the page.
		if img, err := url.Parse(meta.Image); err == nil {
			meta.Image = parsed.ResolveReference(img).String()
		}
	}

	meta.SiteName = ogContent(doc, "og:site_name")
	if meta.SiteName == "" {
		meta.SiteName = parsed.Hostname()
	}

	return meta, nil
}

func ogContent(doc *goquery.Document, property string) string {
	content, _ := doc.Find(`meta[property="` + property + `"]`).Attr("content")
	return strings.TrimSpace(content)
}
