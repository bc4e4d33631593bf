package feed

import (
	"math/rand/v2"

	"github.com/pauljones0/deals-storefront/internal/models"
)

// PickFunc chooses k distinct indices out of [0, n).
type PickFunc func(n, k int) []int

// RandomPick draws indices from r. Tests pass a seeded source.
func RandomPick(r *rand.Rand) PickFunc {
	return func(n, k int) []int {
		return r.Perm(n)[:k]
	}
}

func defaultPick(n, k int) []int {
	return rand.Perm(n)[:k]
}

// PriorityOrder puts up to head curated products first, chosen by pick, and
// the rest (remaining curated included) after them, newest first.
func PriorityOrder(products []models.Product, head int, pick PickFunc) []models.Product {
	if pick == nil {
		pick = defaultPick
	}

	var curated, rest []models.Product
	for _, p := range products {
		if p.Curated {
			curated = append(curated, p)
		} else {
			rest = append(rest, p)
		}
	}

	k := min(max(head, 0), len(curated))
	chosen := make(map[int]bool, k)
	lead := make([]models.Product, 0, k)
	if k > 0 {
		for _, i := range pick(len(curated), k) {
			if len(lead) == k {
				break
			}
			if i < 0 || i >= len(curated) || chosen[i] {
				continue
			}
			chosen[i] = true
			lead = append(lead, curated[i])
		}
		// A short pick is topped up in input order.
		for i := 0; len(lead) < k && i < len(curated); i++ {
			if !chosen[i] {
				chosen[i] = true
				lead = append(lead, curated[i])
			}
		}
	}

	for i, p := range curated {
		if !chosen[i] {
			rest = append(rest, p)
		}
	}

	out := make([]models.Product, 0, len(products))
	out = append(out, lead...)
	return append(out, SortByRecency(rest)...)
}
