package scraper

import (
	_ "embed"
	"log/slog"
)

//go:embed selectors.json
var embeddedSelectors []byte

// LoadConfig tries the override file at path, then the embedded
// selectors.json, then the hardcoded defaults.
func LoadConfig(path string) SelectorConfig {
	if path != "" {
		if fileSel, err := LoadSelectors(path); err == nil {
			slog.Info("Loaded selectors from external file", "path", path)
			return fileSel
		} else {
			slog.Warn("Failed to load external selectors, trying embedded", "path", path, "error", err)
		}
	}

	sel, err := LoadSelectorsFromBytes(embeddedSelectors)
	if err == nil {
		return sel
	}
	slog.Warn("Embedded selectors failed to parse, using defaults", "error", err)
	return DefaultSelectors()
}
