package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pauljones0/deals-storefront/internal/app"
	"github.com/pauljones0/deals-storefront/internal/config"
	"github.com/pauljones0/deals-storefront/internal/server"
)

func main() {
	slog.Info("Starting deals storefront server...")
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Critical error loading configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := app.Build(ctx, cfg, true)
	if err != nil {
		slog.Error("Critical error initializing storefront", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	srv := server.New(server.Options{
		Service:            a.Service,
		Auth:               a.Identity,
		State:              a.State,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		DocsSpecDir:        cfg.DocsSpecDir,
	})

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGTERM/SIGINT
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
		sig := <-sigCh
		slog.Info("Received signal, shutting down gracefully...", "signal", sig)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("HTTP server shutdown error", "error", err)
		}
	}()

	slog.Info("Listening on port", "port", cfg.Port)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Failed to listen and serve", "error", err)
		a.Close()
		os.Exit(1)
	}
	slog.Info("Server stopped.")
}
