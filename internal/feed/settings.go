package feed

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed feed.yaml
var embeddedSettings []byte

// Settings tunes composition, pagination and the carousel.
type Settings struct {
	InitialWindow  int      `yaml:"initial_window"`
	PageSize       int      `yaml:"page_size"`
	PriorityHead   int      `yaml:"priority_head"`
	MatchCategory  bool     `yaml:"match_category"`
	Strategy       Strategy `yaml:"strategy"`
	CarouselLimit  int      `yaml:"carousel_limit"`
	CarouselCopies int      `yaml:"carousel_copies"`
	MarqueeSpeed   float64  `yaml:"marquee_speed"`
}

// DefaultSettings is used when no settings file can be read.
func DefaultSettings() Settings {
	return Settings{
		InitialWindow:  12,
		PageSize:       8,
		PriorityHead:   2,
		MatchCategory:  true,
		Strategy:       StrategyRecency,
		CarouselLimit:  10,
		CarouselCopies: 4,
		MarqueeSpeed:   0.5,
	}
}

// LoadSettingsFromBytes parses YAML settings. Missing keys keep their defaults.
func LoadSettingsFromBytes(data []byte) (Settings, error) {
	s := DefaultSettings()
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Settings{}, fmt.Errorf("failed to parse feed settings: %w", err)
	}
	strategy, err := ParseStrategy(string(s.Strategy))
	if err != nil {
		return Settings{}, err
	}
	if strategy == "" {
		strategy = StrategyRecency
	}
	s.Strategy = strategy

	if s.InitialWindow <= 0 || s.PageSize <= 0 {
		return Settings{}, fmt.Errorf("feed settings: initial_window and page_size must be positive")
	}
	if s.PriorityHead < 0 || s.CarouselLimit < 0 || s.CarouselCopies < 0 {
		return Settings{}, fmt.Errorf("feed settings: priority_head, carousel_limit and carousel_copies must not be negative")
	}
	if s.MarqueeSpeed < 0 {
		return Settings{}, fmt.Errorf("feed settings: marquee_speed must not be negative")
	}
	return s, nil
}

// LoadSettings reads settings from path.
func LoadSettings(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read feed settings: %w", err)
	}
	return LoadSettingsFromBytes(data)
}

// LoadSettingsWithFallback tries the override path, then the embedded
// feed.yaml, then the hardcoded defaults.
func LoadSettingsWithFallback(path string) Settings {
	if path != "" {
		s, err := LoadSettings(path)
		if err == nil {
			slog.Info("Loaded feed settings from file", "path", path)
			return s
		}
		slog.Warn("Failed to load feed settings file, trying embedded", "path", path, "error", err)
	}

	s, err := LoadSettingsFromBytes(embeddedSettings)
	if err == nil {
		return s
	}
	slog.Warn("Embedded feed settings failed to parse, using defaults", "error", err)
	return DefaultSettings()
}
