package feed

import (
	"fmt"
	"strings"

	"github.com/pauljones0/deals-storefront/internal/models"
)

// Strategy selects how an unsearched feed is ordered.
type Strategy string

const (
	StrategyRecency  Strategy = "recency"
	StrategyPriority Strategy = "priority"
)

// ParseStrategy accepts "", "recency" or "priority". Empty means the configured default.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case "":
		return "", nil
	case StrategyRecency:
		return StrategyRecency, nil
	case StrategyPriority:
		return StrategyPriority, nil
	}
	return "", fmt.Errorf("unknown feed strategy %q", s)
}

// Query is the transient visitor state that shapes a feed.
type Query struct {
	Text     string
	Strategy Strategy
}

// Composer turns the full product list into the ordered list shown to visitors.
type Composer struct {
	settings Settings
	pick     PickFunc
}

// NewComposer returns a Composer. A nil pick uses the package random source.
func NewComposer(settings Settings, pick PickFunc) *Composer {
	if pick == nil {
		pick = defaultPick
	}
	return &Composer{settings: settings, pick: pick}
}

// Settings returns the composer's tuning.
func (c *Composer) Settings() Settings {
	return c.settings
}

// Compose filters and orders products. While a search is active the order is
// always recency so results don't reshuffle under the visitor.
func (c *Composer) Compose(products []models.Product, q Query) []models.Product {
	if len(products) == 0 {
		return nil
	}
	if strings.TrimSpace(q.Text) != "" {
		return SortByRecency(Filter(products, q.Text, c.settings.MatchCategory))
	}

	strategy := q.Strategy
	if strategy == "" {
		strategy = c.settings.Strategy
	}
	if strategy == StrategyPriority {
		return PriorityOrder(products, c.settings.PriorityHead, c.pick)
	}
	return SortByRecency(products)
}

// Featured returns the first product in all flagged as featured, falling back
// to the head of ordered. ok is false when both are empty of candidates.
func Featured(all, ordered []models.Product) (models.Product, bool) {
	for _, p := range all {
		if p.Featured {
			return p, true
		}
	}
	if len(ordered) > 0 {
		return ordered[0], true
	}
	return models.Product{}, false
}
