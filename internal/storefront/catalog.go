package storefront

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/pauljones0/deals-storefront/internal/feed"
	"github.com/pauljones0/deals-storefront/internal/models"
	"github.com/pauljones0/deals-storefront/internal/notifier"
)

const statsTimeout = 10 * time.Second

// Status is the banner state of the live product subscription.
type Status struct {
	Live      bool      `json:"live"`
	Products  int       `json:"products"`
	Error     string    `json:"error,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type statsTracker interface {
	TrackNotificationSent(ctx context.Context) error
}

// Catalog is the in-memory copy of the product collection. Every snapshot
// replaces it whole.
type Catalog struct {
	mu       sync.RWMutex
	products []models.Product
	status   Status

	arrivals feed.ArrivalDetector
	inbox    *notifier.Inbox
	stats    statsTracker
	now      func() time.Time
	wg       sync.WaitGroup
}

func NewCatalog(inbox *notifier.Inbox, stats statsTracker) *Catalog {
	if inbox == nil {
		inbox = notifier.NewInbox(notifier.DefaultInboxSize)
	}
	return &Catalog{inbox: inbox, stats: stats, now: time.Now}
}

// Start subscribes to src and returns the unsubscribe func, which also waits
// for pending stat writes.
func (c *Catalog) Start(ctx context.Context, src Subscriber) func() {
	unsubscribe := src.Subscribe(ctx, c.Replace, c.Fail)
	return func() {
		unsubscribe()
		c.Wait()
	}
}

// Wait blocks until stat writes started by Replace have finished.
func (c *Catalog) Wait() {
	c.wg.Wait()
}

// Replace installs snapshot as the catalog and raises an inbox notification
// when it grew.
func (c *Catalog) Replace(snapshot []models.Product) {
	c.mu.Lock()
	c.products = slices.Clone(snapshot)
	c.status = Status{Live: true, Products: len(snapshot), UpdatedAt: c.now()}
	c.mu.Unlock()

	newest, ok := c.arrivals.Observe(snapshot)
	if !ok {
		return
	}
	c.inbox.Push("Nova oferta!", "Confira: "+newest.Title, newest.URL, newest.ImageURL)
	slog.Info("New product arrived", "id", newest.ID, "title", newest.Title)

	if c.stats == nil {
		return
	}
	// The snapshot callback must not wait on the stats write.
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), statsTimeout)
		defer cancel()
		if err := c.stats.TrackNotificationSent(ctx); err != nil {
			slog.Warn("Failed to track notification", "error", err)
		}
	}()
}

// Fail records a subscription error for the banner. The last good snapshot
// stays readable.
func (c *Catalog) Fail(err error) {
	slog.Error("Product subscription failed", "error", err)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status.Live = false
	c.status.Error = bannerMessage(err)
	c.status.UpdatedAt = c.now()
}

func bannerMessage(err error) string {
	switch {
	case errors.Is(err, models.ErrPermissionDenied):
		return "Permissão negada ao ler os produtos. Verifique as regras de segurança do banco de dados."
	case errors.Is(err, models.ErrNotConfigured):
		return "O banco de dados não está configurado."
	default:
		return "Não foi possível carregar os produtos. Tente novamente em instantes."
	}
}

// Products returns a copy of the current catalog.
func (c *Catalog) Products() []models.Product {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.products)
}

func (c *Catalog) Lookup(id string) (models.Product, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, p := range c.products {
		if p.ID == id {
			return p, true
		}
	}
	return models.Product{}, false
}

func (c *Catalog) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status
}

func (c *Catalog) Inbox() *notifier.Inbox {
	return c.inbox
}
