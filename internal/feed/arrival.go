package feed

import (
	"sync"

	"github.com/pauljones0/deals-storefront/internal/models"
)

// ArrivalDetector spots new products between live snapshots by count alone.
// A delete and an add landing in the same snapshot go unnoticed, as do
// same-count replacements.
type ArrivalDetector struct {
	mu     sync.Mutex
	primed bool
	last   int
}

// Observe records snapshot and returns its newest product when the snapshot
// grew relative to the previous one. The first call never fires.
func (d *ArrivalDetector) Observe(snapshot []models.Product) (models.Product, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	grew := d.primed && len(snapshot) > d.last
	d.primed = true
	d.last = len(snapshot)
	if !grew {
		return models.Product{}, false
	}

	newest := snapshot[0]
	for _, p := range snapshot[1:] {
		if p.AddedAt > newest.AddedAt {
			newest = p
		}
	}
	return newest, true
}
