package feed

import (
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/pauljones0/deals-storefront/internal/models"
)

func ids(products []models.Product) []string {
	out := make([]string, len(products))
	for i, p := range products {
		out[i] = p.ID
	}
	return out
}

func sampleProducts() []models.Product {
	return []models.Product{
		{ID: "a", Title: "Fone Bluetooth", Category: "Audio", AddedAt: 100},
		{ID: "b", Title: "Mouse Gamer", Category: "Informática", AddedAt: 300},
		{ID: "c", Title: "Teclado", Category: "Informática", AddedAt: 200, Curated: true},
		{ID: "d", Title: "Caixa de Som", Category: "Audio", AddedAt: 400, Curated: true},
		{ID: "e", Title: "Smartwatch", Category: "Wearables", AddedAt: 250, Curated: true},
		{ID: "f", Title: "Cabo USB", Category: "Acessórios", AddedAt: 50},
	}
}

func TestFilter_EmptyQueryIsIdentity(t *testing.T) {
	products := sampleProducts()
	for _, q := range []string{"", "   ", "\t"} {
		got := Filter(products, q, true)
		if diff := cmp.Diff(ids(products), ids(got)); diff != "" {
			t.Errorf("Filter(%q) mismatch (-want +got):\n%s", q, diff)
		}
	}
}

func TestFilter_Substring(t *testing.T) {
	products := sampleProducts()
	tests := []struct {
		name          string
		query         string
		matchCategory bool
		want          []string
	}{
		{name: "title case-insensitive", query: "FONE", want: []string{"a"}},
		{name: "title substring", query: "ou", want: []string{"b"}},
		{name: "category ignored", query: "audio", want: nil},
		{name: "category matched", query: "audio", matchCategory: true, want: []string{"a", "d"}},
		{name: "no match", query: "geladeira", matchCategory: true, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Filter(products, tt.query, tt.matchCategory)
			if len(got) == 0 && len(tt.want) == 0 {
				return
			}
			if diff := cmp.Diff(tt.want, ids(got)); diff != "" {
				t.Errorf("mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFilter_IncludedIffMatching(t *testing.T) {
	products := sampleProducts()
	query := "a"
	kept := make(map[string]bool)
	for _, p := range Filter(products, query, false) {
		kept[p.ID] = true
	}
	for _, p := range products {
		matches := strings.Contains(strings.ToLower(p.Title), query)
		if matches != kept[p.ID] {
			t.Errorf("product %s: matches=%v kept=%v", p.ID, matches, kept[p.ID])
		}
	}
}

func TestSortByRecency_StableDescending(t *testing.T) {
	products := []models.Product{
		{ID: "x", AddedAt: 10},
		{ID: "y", AddedAt: 20},
		{ID: "z", AddedAt: 10},
		{ID: "w", AddedAt: 20},
	}
	got := SortByRecency(products)
	want := []string{"y", "w", "x", "z"}
	if diff := cmp.Diff(want, ids(got)); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
	if products[0].ID != "x" {
		t.Error("SortByRecency must not reorder its input")
	}
}

func TestPriorityOrder_StubPick(t *testing.T) {
	// curated in input order: c, d, e. Stub picks e then c.
	pick := func(n, k int) []int {
		if n != 3 || k != 2 {
			t.Fatalf("pick called with n=%d k=%d", n, k)
		}
		return []int{2, 0}
	}
	got := PriorityOrder(sampleProducts(), 2, pick)
	want := []string{"e", "c", "d", "b", "a", "f"}
	if diff := cmp.Diff(want, ids(got)); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestPriorityOrder_Properties(t *testing.T) {
	tests := []struct {
		name     string
		products []models.Product
	}{
		{name: "three curated", products: sampleProducts()},
		{name: "one curated", products: []models.Product{
			{ID: "1", AddedAt: 1}, {ID: "2", AddedAt: 2, Curated: true}, {ID: "3", AddedAt: 3},
		}},
		{name: "no curated", products: []models.Product{{ID: "1", AddedAt: 1}, {ID: "2", AddedAt: 2}}},
		{name: "empty", products: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for seed := uint64(0); seed < 20; seed++ {
				pick := RandomPick(rand.New(rand.NewPCG(seed, seed+1)))
				got := PriorityOrder(tt.products, 2, pick)

				curatedCount := 0
				for _, p := range tt.products {
					if p.Curated {
						curatedCount++
					}
				}
				headLen := min(2, curatedCount)
				for _, p := range got[:headLen] {
					if !p.Curated {
						t.Fatalf("seed %d: head contains non-curated %s", seed, p.ID)
					}
				}

				seen := make(map[string]int)
				for _, p := range got {
					seen[p.ID]++
				}
				if len(got) != len(tt.products) {
					t.Fatalf("seed %d: got %d items, want %d", seed, len(got), len(tt.products))
				}
				for _, p := range tt.products {
					if seen[p.ID] != 1 {
						t.Fatalf("seed %d: %s appears %d times", seed, p.ID, seen[p.ID])
					}
				}

				rest := got[headLen:]
				if diff := cmp.Diff(ids(SortByRecency(rest)), ids(rest)); diff != "" {
					t.Fatalf("seed %d: remainder not in recency order:\n%s", seed, diff)
				}
			}
		})
	}
}

func TestPriorityOrder_BadPickIsToppedUp(t *testing.T) {
	pick := func(n, k int) []int { return []int{7, 7} }
	got := PriorityOrder(sampleProducts(), 2, pick)
	if diff := cmp.Diff([]string{"c", "d"}, ids(got[:2])); diff != "" {
		t.Errorf("head mismatch (-want +got):\n%s", diff)
	}
	if len(got) != 6 {
		t.Errorf("Expected 6 items, got %d", len(got))
	}
}

func TestComposer_SearchBypassesShuffle(t *testing.T) {
	pickCalled := false
	c := NewComposer(DefaultSettings(), func(n, k int) []int {
		pickCalled = true
		return []int{0, 1}[:k]
	})

	got := c.Compose(sampleProducts(), Query{Text: "a", Strategy: StrategyPriority})
	if pickCalled {
		t.Error("Search must not run the priority shuffle")
	}
	if diff := cmp.Diff(ids(SortByRecency(got)), ids(got)); diff != "" {
		t.Errorf("search results should be in recency order:\n%s", diff)
	}
}

func TestComposer_Strategies(t *testing.T) {
	settings := DefaultSettings()
	c := NewComposer(settings, func(n, k int) []int { return []int{1, 0}[:k] })

	recency := c.Compose(sampleProducts(), Query{})
	if diff := cmp.Diff([]string{"d", "b", "e", "c", "a", "f"}, ids(recency)); diff != "" {
		t.Errorf("recency mismatch (-want +got):\n%s", diff)
	}

	priority := c.Compose(sampleProducts(), Query{Strategy: StrategyPriority})
	if diff := cmp.Diff([]string{"d", "c", "b", "e", "a", "f"}, ids(priority)); diff != "" {
		t.Errorf("priority mismatch (-want +got):\n%s", diff)
	}

	if got := c.Compose(nil, Query{}); len(got) != 0 {
		t.Errorf("Expected empty output for empty input, got %v", ids(got))
	}
}

func TestFeatured(t *testing.T) {
	products := sampleProducts()
	ordered := SortByRecency(products)

	got, ok := Featured(products, ordered)
	if !ok || got.ID != "d" {
		t.Errorf("Expected fallback to first ordered item d, got %q ok=%v", got.ID, ok)
	}

	products[4].Featured = true
	products[1].Featured = true
	got, ok = Featured(products, ordered)
	if !ok || got.ID != "b" {
		t.Errorf("Expected first featured item b, got %q ok=%v", got.ID, ok)
	}

	if _, ok := Featured(nil, nil); ok {
		t.Error("Expected no featured item for empty list")
	}
}

func TestPager_ResetsOnlyOnQueryChange(t *testing.T) {
	p := Pager{Initial: 12, Step: 8}
	c := p.Start("")
	if c.Visible != 12 {
		t.Fatalf("Expected initial window 12, got %d", c.Visible)
	}

	prev := c.Visible
	for range 5 {
		var reset bool
		c, reset = p.Sync(c, "")
		if reset {
			t.Fatalf("unexpected reset at %+v", c)
		}
		c = p.Next(c, 40)
		if c.Visible < prev {
			t.Fatalf("window shrank from %d to %d", prev, c.Visible)
		}
		prev = c.Visible
	}
	if c.Visible != 44 {
		t.Errorf("Expected growth to stop once past total, got %d", c.Visible)
	}

	c, reset := p.Sync(c, "fone")
	if !reset || c.Visible != 12 || c.Query != "fone" {
		t.Errorf("Expected reset on query change, got %+v", c)
	}
}

func TestEndToEndScenario(t *testing.T) {
	products := []models.Product{
		{ID: "1", Title: "Fone", AddedAt: 100},
		{ID: "2", Title: "Mouse", AddedAt: 200},
	}
	c := NewComposer(DefaultSettings(), nil)

	if diff := cmp.Diff([]string{"2", "1"}, ids(c.Compose(products, Query{Strategy: StrategyRecency}))); diff != "" {
		t.Errorf("recency mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"1"}, ids(c.Compose(products, Query{Text: "fone"}))); diff != "" {
		t.Errorf("search mismatch (-want +got):\n%s", diff)
	}

	ordered := c.Compose(products, Query{Strategy: StrategyRecency})
	p := Pager{Initial: 1, Step: 8}
	cur := p.Start("")
	if diff := cmp.Diff([]string{"2"}, ids(Page(ordered, cur))); diff != "" {
		t.Errorf("first page mismatch (-want +got):\n%s", diff)
	}
	cur = p.Next(cur, len(ordered))
	if diff := cmp.Diff([]string{"2", "1"}, ids(Page(ordered, cur))); diff != "" {
		t.Errorf("second page mismatch (-want +got):\n%s", diff)
	}
	if HasMore(ordered, cur) {
		t.Error("Expected no more pages")
	}
}

func TestCursor_Token(t *testing.T) {
	c := Cursor{Query: "fone de ouvido", Visible: 20}
	got, err := DecodeCursor(c.Encode())
	if err != nil {
		t.Fatalf("DecodeCursor() error = %v", err)
	}
	if got != c {
		t.Errorf("DecodeCursor() = %+v, want %+v", got, c)
	}
	if _, err := DecodeCursor("!!not-base64"); err == nil {
		t.Error("Expected error for malformed token")
	}
}

func TestArrivalDetector(t *testing.T) {
	var d ArrivalDetector
	snap := func(n int) []models.Product {
		out := make([]models.Product, n)
		for i := range out {
			out[i] = models.Product{ID: string(rune('a' + i)), AddedAt: int64(i)}
		}
		return out
	}

	tests := []struct {
		name  string
		size  int
		fires bool
	}{
		{name: "initial load never fires", size: 3, fires: false},
		{name: "growth fires", size: 4, fires: true},
		{name: "same count", size: 4, fires: false},
		{name: "shrink", size: 2, fires: false},
		{name: "growth after shrink", size: 3, fires: true},
	}

	for _, tt := range tests {
		newest, fired := d.Observe(snap(tt.size))
		if fired != tt.fires {
			t.Errorf("%s: fired=%v, want %v", tt.name, fired, tt.fires)
		}
		if fired && newest.AddedAt != int64(tt.size-1) {
			t.Errorf("%s: newest=%+v, want AddedAt %d", tt.name, newest, tt.size-1)
		}
	}
}

func TestTopProducts(t *testing.T) {
	products := []models.Product{
		{ID: "a", Clicks: 5},
		{ID: "b", Clicks: 50},
		{ID: "c", Clicks: 1, Featured: true},
		{ID: "d", Clicks: 50},
	}
	got := TopProducts(products, 3)
	if diff := cmp.Diff([]string{"c", "b", "d"}, ids(got)); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestLoopAndGrow(t *testing.T) {
	top := []models.Product{{ID: "a"}, {ID: "b"}}
	seq := Loop(top, 4)
	if len(seq) != 8 || seq[2].ID != "a" || seq[7].ID != "b" {
		t.Errorf("Loop() = %v", ids(seq))
	}
	seq = Grow(seq, top)
	if len(seq) != 10 {
		t.Errorf("Grow() length = %d, want 10", len(seq))
	}
	if Loop(nil, 4) != nil {
		t.Error("Loop of empty subset should be nil")
	}
}

func TestEndless(t *testing.T) {
	var e Endless
	e.More()
	if len(e.Items()) != 0 {
		t.Error("More on empty source should do nothing")
	}
	e.Load([]models.Product{{ID: "a"}, {ID: "b"}, {ID: "c"}})
	e.More()
	if diff := cmp.Diff([]string{"a", "b", "c", "a", "b", "c"}, ids(e.Items())); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
	e.Load([]models.Product{{ID: "z"}})
	if len(e.Items()) != 1 {
		t.Errorf("Load should reset display, got %v", ids(e.Items()))
	}
}

func TestMarquee(t *testing.T) {
	m := NewMarquee(30, 200)
	for i := range 1000 {
		off := m.Tick(Frame)
		if off < 0 || off >= 100 {
			t.Fatalf("tick %d: offset %v outside [0, 100)", i, off)
		}
	}

	m.Pause()
	before := m.Offset()
	for range 10 {
		m.Tick(Frame)
	}
	if m.Offset() != before {
		t.Errorf("Paused marquee moved from %v to %v", before, m.Offset())
	}
	m.Resume()
	m.Tick(Frame)
	if m.Offset() == before {
		t.Error("Resumed marquee did not move")
	}

	m.Resize(40)
	if m.Offset() >= 20 {
		t.Errorf("Resize should keep offset within half width, got %v", m.Offset())
	}
}

func TestMarquee_FrameDelta(t *testing.T) {
	m := NewMarquee(30, 200)
	if got := m.Tick(Frame / 2); got != 15 {
		t.Errorf("half a frame moved to %v, want 15", got)
	}
	if got := m.Tick(0); got != 15 {
		t.Errorf("zero delta moved to %v, want 15", got)
	}

	backwards := NewMarquee(-5, 200)
	for i := range 100 {
		if off := backwards.Tick(Frame); off < 0 || off >= 100 {
			t.Fatalf("tick %d: offset %v outside [0, 100)", i, off)
		}
	}
}

func TestMarquee_WrapSubtractsHalfWidth(t *testing.T) {
	m := NewMarquee(40, 200)
	m.Tick(Frame) // 40
	m.Tick(Frame) // 80
	if got := m.Tick(Frame); got != 20 {
		t.Errorf("Expected wrap to 20, got %v", got)
	}
}
