// Package scraper reads product metadata from store pages.
package scraper

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"

	"github.com/pauljones0/deals-storefront/internal/util"
)

const (
	userAgent    = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
	maxPageBytes = 4 << 20
)

// PageMetadata is what a product page says about itself.
type PageMetadata struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Image       string `json:"image,omitempty"`
	Price       string `json:"price,omitempty"`
	Currency    string `json:"currency,omitempty"`
	SiteName    string `json:"siteName,omitempty"`
}

// Empty reports whether nothing useful was found.
func (m PageMetadata) Empty() bool {
	return m.Title == "" && m.Description == "" && m.Image == "" && m.Price == ""
}

// Renderer returns the HTML of a page after scripts have run.
type Renderer interface {
	Render(ctx context.Context, url string) (string, error)
}

type Options struct {
	// AllowedStores holds store labels such as "amazon"; a URL is fetched only
	// when its registrable domain starts with one of them.
	AllowedStores []string
	Retries       int
	Backoff       time.Duration
	Selectors     SelectorConfig
	Renderer      Renderer
	HTTPClient    *http.Client
}

type Client struct {
	httpClient *http.Client
	allowed    []string
	retries    int
	backoff    time.Duration
	selectors  SelectorConfig
	renderer   Renderer
}

func New(opts Options) *Client {
	c := &Client{
		httpClient: opts.HTTPClient,
		allowed:    opts.AllowedStores,
		retries:    opts.Retries,
		backoff:    opts.Backoff,
		selectors:  opts.Selectors,
		renderer:   opts.Renderer,
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if c.backoff <= 0 {
		c.backoff = time.Second
	}
	if len(c.selectors.Title) == 0 {
		c.selectors = DefaultSelectors()
	}
	return c
}

// Allowed reports whether rawURL may be fetched.
func (c *Client) Allowed(rawURL string) bool {
	return slices.Contains(c.allowed, util.StoreLabel(rawURL))
}

// FetchMetadata downloads rawURL and extracts its metadata. When a renderer is
// configured and the plain download yields nothing, the page is rendered and
// parsed again.
func (c *Client) FetchMetadata(ctx context.Context, rawURL string) (PageMetadata, error) {
	if err := c.checkURL(rawURL); err != nil {
		return PageMetadata{}, err
	}

	var meta PageMetadata
	err := util.RetryWithBackoff(ctx, c.retries, c.backoff, func(attempt int) error {
		doc, err := c.fetchHTMLContent(ctx, rawURL)
		if err != nil {
			slog.Warn("Fetch attempt failed", "url", rawURL, "attempt", attempt+1, "error", err)
			return err
		}
		meta = Extract(doc, c.selectors)
		return nil
	})
	if err != nil && c.renderer == nil {
		return PageMetadata{}, fmt.Errorf("failed to fetch %s: %w", rawURL, err)
	}

	if meta.Empty() && c.renderer != nil {
		html, rerr := c.renderer.Render(ctx, rawURL)
		if rerr != nil {
			if err != nil {
				return PageMetadata{}, fmt.Errorf("failed to fetch %s: %w (render: %v)", rawURL, err, rerr)
			}
			return meta, nil
		}
		doc, perr := goquery.NewDocumentFromReader(strings.NewReader(html))
		if perr != nil {
			return PageMetadata{}, fmt.Errorf("failed to parse rendered page: %w", perr)
		}
		meta = Extract(doc, c.selectors)
	}
	return meta, nil
}

func (c *Client) checkURL(urlStr string) error {
	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return fmt.Errorf("failed to parse URL %s: %w", urlStr, err)
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("invalid URL scheme %s: only http and https allowed", parsedURL.Scheme)
	}

	if !c.Allowed(urlStr) {
		return fmt.Errorf("security violation: URL hostname %s is not in allowlist", parsedURL.Hostname())
	}
	return nil
}

func (c *Client) fetchHTMLContent(ctx context.Context, urlStr string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request for URL %s: %w", urlStr, err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept-Language", "pt-BR,pt;q=0.9,en;q=0.8")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch URL %s: %w", urlStr, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch URL %s: status code %d", urlStr, res.StatusCode)
	}

	body, err := charset.NewReader(io.LimitReader(res.Body, maxPageBytes), res.Header.Get("Content-Type"))
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", urlStr, err)
	}
	return goquery.NewDocumentFromReader(body)
}

// Extract reads metadata from doc. JSON-LD Product data fills whatever the
// selectors left empty.
func Extract(doc *goquery.Document, sel SelectorConfig) PageMetadata {
	meta := PageMetadata{
		Title:       first(doc, sel.Title),
		Description: first(doc, sel.Description),
		Image:       first(doc, sel.Image),
		Price:       first(doc, sel.Price),
		Currency:    first(doc, sel.Currency),
		SiteName:    first(doc, sel.SiteName),
	}

	if sel.JSONLD == "" {
		return meta
	}
	doc.Find(sel.JSONLD).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		p, ok := parseJSONLD(s.Text())
		if !ok {
			return true
		}
		meta.Title = fallback(meta.Title, p.Name)
		meta.Description = fallback(meta.Description, p.Description)
		meta.Image = fallback(meta.Image, p.Image)
		meta.Price = fallback(meta.Price, p.Price)
		meta.Currency = fallback(meta.Currency, p.Currency)
		return false
	})
	return meta
}

func first(doc *goquery.Document, fields []Field) string {
	for _, f := range fields {
		s := doc.Find(f.Selector).First()
		if s.Length() == 0 {
			continue
		}
		var v string
		if f.Attr == "" {
			v = s.Text()
		} else {
			v, _ = s.Attr(f.Attr)
		}
		if v = strings.Join(strings.Fields(v), " "); v != "" {
			return v
		}
	}
	return ""
}

func fallback(have, alt string) string {
	if have != "" {
		return have
	}
	return alt
}
