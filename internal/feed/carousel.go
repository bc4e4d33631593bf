package feed

import (
	"math"
	"slices"
	"time"

	"github.com/pauljones0/deals-storefront/internal/models"
)

// TopProducts ranks featured products first, then by clicks, and keeps limit.
func TopProducts(products []models.Product, limit int) []models.Product {
	out := slices.Clone(products)
	slices.SortStableFunc(out, func(a, b models.Product) int {
		if a.Featured != b.Featured {
			if a.Featured {
				return -1
			}
			return 1
		}
		return b.Clicks - a.Clicks
	})
	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Loop repeats top copies times so a horizontal track can scroll forever.
func Loop(top []models.Product, copies int) []models.Product {
	if len(top) == 0 || copies <= 0 {
		return nil
	}
	out := make([]models.Product, 0, len(top)*copies)
	for range copies {
		out = append(out, top...)
	}
	return out
}

// Grow appends one more copy of top to seq.
func Grow(seq, top []models.Product) []models.Product {
	return append(seq, top...)
}

// Endless is the mobile feed that re-appends the whole list each time the
// visitor reaches the end.
type Endless struct {
	source  []models.Product
	display []models.Product
}

// Load replaces the source list and resets the display to a single copy.
func (e *Endless) Load(products []models.Product) {
	e.source = slices.Clone(products)
	e.display = slices.Clone(products)
}

// More appends a copy of the source. It does nothing for an empty source.
func (e *Endless) More() {
	if len(e.source) == 0 {
		return
	}
	e.display = append(e.display, e.source...)
}

// Items returns the current display list.
func (e *Endless) Items() []models.Product {
	return e.display
}

// Marquee is the autoscroll state of a looping carousel track. The offset
// stays in [0, width/2) since the second half of the track mirrors the first.
type Marquee struct {
	speed  float64
	width  float64
	offset float64
	paused bool
}

// Frame is the animation frame the marquee speed is measured against.
const Frame = time.Second / 60

// NewMarquee returns a marquee moving speed pixels per Frame over a track of
// the given scrollable width. A negative speed is treated as zero.
func NewMarquee(speed, width float64) *Marquee {
	return &Marquee{speed: max(speed, 0), width: width}
}

// Tick advances the track by dt and returns the new offset.
func (m *Marquee) Tick(dt time.Duration) float64 {
	if m.paused || m.width <= 0 || dt <= 0 {
		return m.offset
	}
	m.offset += m.speed * float64(dt) / float64(Frame)
	if half := m.width / 2; m.offset >= half {
		m.offset = math.Mod(m.offset-half, half)
	}
	return m.offset
}

// Resize updates the scrollable width, e.g. after Grow.
func (m *Marquee) Resize(width float64) {
	m.width = width
	if half := width / 2; half > 0 && m.offset >= half {
		m.offset = math.Mod(m.offset, half)
	}
}

// Pause stops the track while the visitor touches or hovers it.
func (m *Marquee) Pause() { m.paused = true }

// Resume restarts a paused track.
func (m *Marquee) Resume() { m.paused = false }

// Offset returns the current pixel offset.
func (m *Marquee) Offset() float64 { return m.offset }
