// Command dealsctl runs curator chores against the storefront from a shell.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/pauljones0/deals-storefront/internal/app"
	"github.com/pauljones0/deals-storefront/internal/config"
	"github.com/pauljones0/deals-storefront/internal/identity"
)

var (
	timeout time.Duration
	asEmail string
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "dealsctl",
	Short: "Curator tools for the deals storefront",
	Long: `dealsctl talks to the same Firestore project as the server, using the
configuration from the environment (and .env when present).

Commands that change data act as the curator account (CURATOR_EMAIL).`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 5*time.Minute, "Operation timeout")
	rootCmd.PersistentFlags().StringVar(&asEmail, "as", "", "Act as this email (default: CURATOR_EMAIL)")

	rootCmd.AddCommand(importSheetCmd)
	rootCmd.AddCommand(leadsCmd)
	rootCmd.AddCommand(featureCmd)
	rootCmd.AddCommand(feedCmd)
	rootCmd.AddCommand(pitchCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// withApp builds the storefront with a one-off catalog snapshot and runs fn.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App, curator identity.Claims) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	a, err := app.Build(ctx, cfg, false)
	if err != nil {
		return err
	}
	defer a.Close()

	products, err := a.Store.ListProducts(ctx)
	if err != nil {
		return fmt.Errorf("failed to load products: %w", err)
	}
	a.Catalog.Replace(products)
	slog.Debug("Catalog loaded", "products", len(products))

	email := asEmail
	if email == "" {
		email = cfg.CuratorEmail
	}
	curator := identity.Claims{Subject: "dealsctl", Name: "dealsctl", Email: email}

	if err := fn(ctx, a, curator); err != nil {
		return err
	}
	a.Service.Wait()
	return nil
}
