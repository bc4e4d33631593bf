package storefront

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/pauljones0/deals-storefront/internal/feed"
	"github.com/pauljones0/deals-storefront/internal/identity"
	"github.com/pauljones0/deals-storefront/internal/models"
	"github.com/pauljones0/deals-storefront/internal/util"
)

const (
	defaultLeadLimit = 100
	topProductsLimit = 5
	jsonLDLimit      = 15
)

// Analytics gathers the curator dashboard numbers.
func (s *Service) Analytics(ctx context.Context, user identity.Claims) (models.Analytics, error) {
	if err := s.requireCurator(user); err != nil {
		return models.Analytics{}, err
	}

	var out models.Analytics
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := s.store.CountVisits(gctx)
		if err != nil {
			return fmt.Errorf("count visits: %w", err)
		}
		out.TotalVisits = n
		return nil
	})
	g.Go(func() error {
		n, err := s.store.NotificationCount(gctx)
		if err != nil {
			return fmt.Errorf("count notifications: %w", err)
		}
		out.NotificationsSent = n
		return nil
	})
	g.Go(func() error {
		n, err := s.store.CountLeads(gctx)
		if err != nil {
			return fmt.Errorf("count leads: %w", err)
		}
		out.LeadsCaptured = n
		return nil
	})
	g.Go(func() error {
		leads, err := s.store.ListLeads(gctx, defaultLeadLimit)
		if err != nil {
			return fmt.Errorf("list leads: %w", err)
		}
		out.Leads = leads
		return nil
	})
	if err := g.Wait(); err != nil {
		return models.Analytics{}, fmt.Errorf("failed to load analytics: %w", err)
	}

	products := s.catalog.Products()
	for _, p := range products {
		out.TotalClicks += p.Clicks
	}
	if out.TotalVisits > 0 {
		out.ConversionPercent = float64(out.TotalClicks) / float64(out.TotalVisits) * 100
	}
	slices.SortStableFunc(products, func(a, b models.Product) int {
		return cmp.Compare(b.Clicks, a.Clicks)
	})
	out.TopProducts = products[:min(topProductsLimit, len(products))]
	if out.Leads == nil {
		out.Leads = []models.Lead{}
	}
	return out, nil
}

// Leads lists the newest captured leads.
func (s *Service) Leads(ctx context.Context, user identity.Claims, limit int) ([]models.Lead, error) {
	if err := s.requireCurator(user); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultLeadLimit
	}
	leads, err := s.store.ListLeads(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list leads: %w", err)
	}
	return leads, nil
}

// ImportResult summarizes a bulk import.
type ImportResult struct {
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Failed   []string `json:"failed"`
}

// ImportSheet publishes every link in a shared sheet. Imported links are
// always enriched; links already in the catalog are skipped.
func (s *Service) ImportSheet(ctx context.Context, user identity.Claims, sheetURL string) (ImportResult, error) {
	if err := s.requireCurator(user); err != nil {
		return ImportResult{}, err
	}
	if s.links == nil {
		return ImportResult{}, fmt.Errorf("sheet import: %w", models.ErrNotConfigured)
	}
	links, err := s.links.FetchLinks(ctx, sheetURL)
	if err != nil {
		return ImportResult{}, fmt.Errorf("failed to fetch sheet: %w", err)
	}

	known := make(map[string]bool)
	for _, p := range s.catalog.Products() {
		known[p.URL] = true
	}

	var (
		mu  sync.Mutex
		res = ImportResult{Failed: []string{}}
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.importConcurrency)
	for _, link := range links {
		if cleaned, err := s.affiliateURL(link); err == nil {
			if known[cleaned] {
				mu.Lock()
				res.Skipped++
				mu.Unlock()
				continue
			}
			// Later repeats in the same sheet are skipped too.
			known[cleaned] = true
		}
		g.Go(func() error {
			_, err := s.publish(gctx, user, Submission{URL: link}, true)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				slog.Warn("Failed to import link", "url", link, "error", err)
				res.Failed = append(res.Failed, link)
				return nil
			}
			res.Imported++
			return nil
		})
	}
	_ = g.Wait()

	slog.Info("Sheet import finished", "imported", res.Imported, "skipped", res.Skipped, "failed", len(res.Failed))
	return res, nil
}

type Offer struct {
	Type          string `json:"@type"`
	PriceCurrency string `json:"priceCurrency"`
	Price         string `json:"price"`
	Availability  string `json:"availability"`
	URL           string `json:"url"`
}

type ListedProduct struct {
	Type        string `json:"@type"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Image       string `json:"image"`
	Offers      Offer  `json:"offers"`
}

type ListItem struct {
	Type     string        `json:"@type"`
	Position int           `json:"position"`
	Item     ListedProduct `json:"item"`
}

// ItemList is the schema.org document served for search engines.
type ItemList struct {
	Context  string     `json:"@context"`
	Type     string     `json:"@type"`
	Elements []ListItem `json:"itemListElement"`
}

// JSONLD describes the newest products as a schema.org ItemList. It reports
// false when the catalog is empty.
func (s *Service) JSONLD(siteURL string) (ItemList, bool) {
	products := feed.SortByRecency(s.catalog.Products())
	if len(products) == 0 {
		return ItemList{}, false
	}
	products = products[:min(jsonLDLimit, len(products))]

	list := ItemList{
		Context:  "https://schema.org",
		Type:     "ItemList",
		Elements: make([]ListItem, 0, len(products)),
	}
	for i, p := range products {
		title := util.Truncate(p.Title, 100)
		if title == "" {
			title = "Produto"
		}
		price, _ := util.ParsePrice(p.EstimatedPrice)
		link := p.URL
		if link == "" {
			link = siteURL
		}
		list.Elements = append(list.Elements, ListItem{
			Type:     "ListItem",
			Position: i + 1,
			Item: ListedProduct{
				Type:        "Product",
				Name:        title,
				Description: util.Truncate(p.Description, 200),
				Image:       p.ImageURL,
				Offers: Offer{
					Type:          "Offer",
					PriceCurrency: "BRL",
					Price:         strconv.FormatFloat(price, 'f', 2, 64),
					Availability:  "https://schema.org/InStock",
					URL:           link,
				},
			},
		})
	}
	return list, true
}
