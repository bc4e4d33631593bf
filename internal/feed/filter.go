// Package feed decides which products a visitor sees and in what order.
package feed

import (
	"slices"
	"strings"

	"github.com/pauljones0/deals-storefront/internal/models"
)

// Filter keeps products whose title (and category, when matchCategory is set)
// contains query, ignoring case. A blank query returns products unchanged.
func Filter(products []models.Product, query string, matchCategory bool) []models.Product {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return products
	}

	var out []models.Product
	for _, p := range products {
		if strings.Contains(strings.ToLower(p.Title), q) ||
			(matchCategory && strings.Contains(strings.ToLower(p.Category), q)) {
			out = append(out, p)
		}
	}
	return out
}

// SortByRecency returns a copy ordered by AddedAt, newest first.
// Equal timestamps keep their input order.
func SortByRecency(products []models.Product) []models.Product {
	out := slices.Clone(products)
	slices.SortStableFunc(out, func(a, b models.Product) int {
		switch {
		case a.AddedAt > b.AddedAt:
			return -1
		case a.AddedAt < b.AddedAt:
			return 1
		}
		return 0
	})
	return out
}
