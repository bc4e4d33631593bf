package feed

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pauljones0/deals-storefront/internal/models"
)

func TestLoadSettingsFromBytes(t *testing.T) {
	s, err := LoadSettingsFromBytes([]byte("initial_window: 6\nstrategy: priority\n"))
	if err != nil {
		t.Fatalf("LoadSettingsFromBytes() error = %v", err)
	}
	if s.InitialWindow != 6 {
		t.Errorf("InitialWindow = %d, want 6", s.InitialWindow)
	}
	if s.Strategy != StrategyPriority {
		t.Errorf("Strategy = %q, want priority", s.Strategy)
	}
	if s.PageSize != 8 {
		t.Errorf("PageSize should keep default 8, got %d", s.PageSize)
	}
}

func TestLoadSettingsFromBytes_NormalizesStrategy(t *testing.T) {
	for in, want := range map[string]Strategy{
		"strategy: Priority\n":   StrategyPriority,
		"strategy: ' RECENCY'\n": StrategyRecency,
		"strategy: ''\n":         StrategyRecency,
	} {
		s, err := LoadSettingsFromBytes([]byte(in))
		if err != nil {
			t.Fatalf("LoadSettingsFromBytes(%q) error = %v", in, err)
		}
		if s.Strategy != want {
			t.Errorf("LoadSettingsFromBytes(%q).Strategy = %q, want %q", in, s.Strategy, want)
		}
	}

	s, _ := LoadSettingsFromBytes([]byte("strategy: Priority\n"))
	products := []models.Product{
		{ID: "a", AddedAt: 1, Curated: true},
		{ID: "b", AddedAt: 2},
	}
	c := NewComposer(s, func(n, k int) []int { return []int{0} })
	if got := c.Compose(products, Query{}); len(got) != 2 || got[0].ID != "a" {
		t.Errorf("mixed-case priority strategy was not applied, got %v", got)
	}
}

func TestLoadSettingsFromBytes_Invalid(t *testing.T) {
	tests := []string{
		"strategy: random\n",
		"page_size: 0\n",
		"initial_window: [\n",
		"marquee_speed: -1\n",
		"carousel_limit: -2\n",
		"priority_head: -1\n",
		"carousel_copies: -1\n",
	}
	for _, in := range tests {
		if _, err := LoadSettingsFromBytes([]byte(in)); err == nil {
			t.Errorf("Expected error for %q", in)
		}
	}
}

func TestLoadSettingsWithFallback(t *testing.T) {
	embedded := LoadSettingsWithFallback("")
	if embedded != DefaultSettings() {
		t.Errorf("Embedded settings = %+v, want defaults %+v", embedded, DefaultSettings())
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "feed.yaml")
	if err := os.WriteFile(path, []byte("page_size: 4\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if got := LoadSettingsWithFallback(path); got.PageSize != 4 {
		t.Errorf("PageSize = %d, want 4 from override file", got.PageSize)
	}

	if got := LoadSettingsWithFallback(filepath.Join(dir, "missing.yaml")); got != DefaultSettings() {
		t.Errorf("Missing file should fall back to embedded settings, got %+v", got)
	}
}

func TestParseStrategy(t *testing.T) {
	for in, want := range map[string]Strategy{"": "", "Recency": StrategyRecency, " priority ": StrategyPriority} {
		got, err := ParseStrategy(in)
		if err != nil || got != want {
			t.Errorf("ParseStrategy(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseStrategy("shuffle"); err == nil {
		t.Error("Expected error for unknown strategy")
	}
}
