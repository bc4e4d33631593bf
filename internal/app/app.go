// Package app wires the storefront's clients together from configuration.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/pauljones0/deals-storefront/internal/ai"
	"github.com/pauljones0/deals-storefront/internal/config"
	"github.com/pauljones0/deals-storefront/internal/feed"
	"github.com/pauljones0/deals-storefront/internal/identity"
	"github.com/pauljones0/deals-storefront/internal/localstore"
	"github.com/pauljones0/deals-storefront/internal/models"
	"github.com/pauljones0/deals-storefront/internal/notifier"
	"github.com/pauljones0/deals-storefront/internal/scraper"
	"github.com/pauljones0/deals-storefront/internal/sheet"
	"github.com/pauljones0/deals-storefront/internal/storage"
	"github.com/pauljones0/deals-storefront/internal/storefront"
)

// App holds every long-lived client. Build it once in main.
type App struct {
	Config   *config.Config
	Store    *storage.Client
	Local    *localstore.SQLite
	State    *localstore.State
	Identity *identity.Service
	Catalog  *storefront.Catalog
	Service  *storefront.Service

	renderer scraper.Renderer
	stop     func()
}

// Build connects to Firestore, opens local state and assembles the service.
// With live set, the catalog subscribes to product changes.
func Build(ctx context.Context, cfg *config.Config, live bool) (*App, error) {
	store, err := storage.New(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firestore client: %w", err)
	}

	local, err := localstore.OpenSQLite(cfg.LocalStorePath)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to open local store: %w", err)
	}
	state := localstore.NewState(local)

	firebaseVerifier, err := identity.NewFirebaseVerifier(ctx, cfg.ProjectID)
	if err != nil {
		slog.Warn("Firebase Auth unavailable, only Google credentials are accepted", "error", err)
	}
	ident := identity.NewService(store, cfg.CuratorEmail,
		identity.NewGoogleVerifier(cfg.GoogleClientID),
		firebaseVerifier,
	)

	renderer, err := scraper.NewRenderer(cfg.FetchBackend)
	if err != nil {
		local.Close()
		store.Close()
		return nil, err
	}
	pages := scraper.New(scraper.Options{
		AllowedStores: cfg.EnrichDomains,
		Retries:       cfg.FetchRetries,
		Selectors:     scraper.LoadConfig(cfg.SelectorsPath),
		Renderer:      renderer,
	})

	gemini, err := ai.NewClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, pages)
	if err != nil {
		slog.Warn("Gemini unavailable, enriching from page metadata only", "error", err)
		gemini, _ = ai.NewClient(ctx, "", cfg.GeminiModel, pages)
	}

	settings := feed.LoadSettingsWithFallback(cfg.FeedSettingsPath)
	catalog := storefront.NewCatalog(notifier.NewInbox(notifier.DefaultInboxSize), store)
	svc := storefront.New(storefront.Options{
		Store:        store,
		Catalog:      catalog,
		Composer:     feed.NewComposer(settings, nil),
		Curators:     ident,
		Enricher:     gemini,
		Announcer:    notifier.New(cfg.DiscordWebhookURL),
		Links:        sheet.New(nil, cfg.FetchRetries),
		Local:        state,
		AmazonTag:    cfg.AmazonAffiliateTag,
		EnrichStores: cfg.EnrichDomains,
	})

	a := &App{
		Config:   cfg,
		Store:    store,
		Local:    local,
		State:    state,
		Identity: ident,
		Catalog:  catalog,
		Service:  svc,
		renderer: renderer,
	}
	unwatch := ident.OnAuthChange(func(p *models.UserProfile) {
		if p != nil && ident.IsCurator(p.Email) {
			slog.Info("Curator signed in", "uid", p.UID)
		}
	})
	a.stop = unwatch
	if live {
		stopCatalog := catalog.Start(ctx, store)
		a.stop = func() {
			stopCatalog()
			unwatch()
		}
	}
	return a, nil
}

// Close stops the subscription, waits for background work and releases
// every client.
func (a *App) Close() {
	a.stop()
	a.Service.Close()
	if c, ok := a.renderer.(io.Closer); ok {
		if err := c.Close(); err != nil {
			slog.Warn("Failed to close renderer", "error", err)
		}
	}
	if err := a.Local.Close(); err != nil {
		slog.Warn("Failed to close local store", "error", err)
	}
	if err := a.Store.Close(); err != nil {
		slog.Warn("Failed to close Firestore client", "error", err)
	}
}
