package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/pauljones0/deals-storefront/internal/app"
	"github.com/pauljones0/deals-storefront/internal/feed"
	"github.com/pauljones0/deals-storefront/internal/identity"
	"github.com/pauljones0/deals-storefront/internal/models"
	"github.com/pauljones0/deals-storefront/internal/storefront"
	"github.com/pauljones0/deals-storefront/internal/util"
)

var (
	leadsLimit   int
	featureOff   bool
	feedQuery    string
	feedStrategy string
	feedLimit    int
)

var importSheetCmd = &cobra.Command{
	Use:   "import-sheet <sheet-url>",
	Short: "Publish every link in a shared Google Sheet",
	Long: `Downloads the sheet as CSV and publishes every first-column link that is
not already in the catalog. Imported offers are enriched before this command
returns.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App, curator identity.Claims) error {
			res, err := a.Service.ImportSheet(ctx, curator, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "imported %d, skipped %d, failed %d\n", res.Imported, res.Skipped, len(res.Failed))
			for _, link := range res.Failed {
				fmt.Fprintf(out, "  failed: %s\n", link)
			}
			return nil
		})
	},
}

var leadsCmd = &cobra.Command{
	Use:   "leads",
	Short: "List the newest interest leads",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App, curator identity.Claims) error {
			leads, err := a.Service.Leads(ctx, curator, leadsLimit)
			if err != nil {
				return err
			}
			return printLeads(cmd.OutOrStdout(), leads)
		})
	},
}

var featureCmd = &cobra.Command{
	Use:   "feature <product-id>",
	Short: "Feature a product (or unfeature it with --off)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App, curator identity.Claims) error {
			if err := a.Service.SetFeatured(ctx, curator, args[0], !featureOff); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s featured=%t\n", args[0], !featureOff)
			return nil
		})
	},
}

var feedCmd = &cobra.Command{
	Use:   "feed",
	Short: "Print the feed the way visitors see it",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		strategy, err := feed.ParseStrategy(feedStrategy)
		if err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, a *app.App, _ identity.Claims) error {
			items, err := collectFeed(a.Service, feedQuery, strategy, feedLimit)
			if err != nil {
				return err
			}
			return printProducts(cmd.OutOrStdout(), items)
		})
	},
}

var pitchCmd = &cobra.Command{
	Use:   "pitch <product-id>",
	Short: "Generate a sales pitch for a product",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App, _ identity.Claims) error {
			text, err := a.Service.Pitch(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		})
	},
}

func init() {
	leadsCmd.Flags().IntVar(&leadsLimit, "limit", 100, "Maximum number of leads")
	featureCmd.Flags().BoolVar(&featureOff, "off", false, "Remove the featured flag instead")
	feedCmd.Flags().StringVarP(&feedQuery, "query", "q", "", "Search text")
	feedCmd.Flags().StringVar(&feedStrategy, "strategy", "", "Ordering: recency or priority (default from settings)")
	feedCmd.Flags().IntVar(&feedLimit, "limit", 12, "Number of products to print")
}

type feedSource interface {
	Feed(req storefront.FeedRequest) (storefront.FeedPage, error)
}

// collectFeed pages through the feed until limit products are visible.
func collectFeed(src feedSource, query string, strategy feed.Strategy, limit int) ([]models.Product, error) {
	page, err := src.Feed(storefront.FeedRequest{Query: query, Strategy: strategy})
	if err != nil {
		return nil, err
	}
	for page.HasMore && len(page.Items) < limit {
		page, err = src.Feed(storefront.FeedRequest{Query: query, Strategy: strategy, Cursor: page.Cursor, More: true})
		if err != nil {
			return nil, err
		}
	}
	return page.Items[:min(limit, len(page.Items))], nil
}

func printProducts(w io.Writer, products []models.Product) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tPRICE\tCLICKS\tLIKES\tFLAGS")
	for _, p := range products {
		flags := ""
		if p.Featured {
			flags += "★"
		}
		if p.Curated {
			flags += "G"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\n", p.ID, util.Truncate(p.Title, 50), p.EstimatedPrice, p.Clicks, len(p.Likes), flags)
	}
	return tw.Flush()
}

func printLeads(w io.Writer, leads []models.Lead) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "EMAIL\tPRODUCT\tWHEN")
	for _, l := range leads {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", l.Email, util.Truncate(l.ProductTitle, 40), time.UnixMilli(l.Timestamp).Format("2006-01-02 15:04"))
	}
	return tw.Flush()
}
