package scraper

import (
	"encoding/json"
	"fmt"
	"os"
)

// Field locates one value in a page. An empty Attr means the element text.
type Field struct {
	Selector string `json:"selector"`
	Attr     string `json:"attr,omitempty"`
}

// SelectorConfig lists candidate fields per metadata property, tried in order.
type SelectorConfig struct {
	Title       []Field `json:"title"`
	Description []Field `json:"description"`
	Image       []Field `json:"image"`
	Price       []Field `json:"price"`
	Currency    []Field `json:"currency"`
	SiteName    []Field `json:"site_name"`
	JSONLD      string  `json:"json_ld"`
}

// LoadSelectors loads the selector configuration from the specified JSON file.
func LoadSelectors(path string) (SelectorConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return SelectorConfig{}, fmt.Errorf("failed to read selector config file: %w", err)
	}

	return LoadSelectorsFromBytes(data)
}

// LoadSelectorsFromBytes parses selector configuration from raw JSON bytes.
func LoadSelectorsFromBytes(data []byte) (SelectorConfig, error) {
	var config SelectorConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return SelectorConfig{}, fmt.Errorf("failed to parse selector config JSON: %w", err)
	}
	if len(config.Title) == 0 {
		return SelectorConfig{}, fmt.Errorf("selector config has no title fields")
	}

	return config, nil
}

// DefaultSelectors returns the fallback configuration if no JSON file is loaded.
func DefaultSelectors() SelectorConfig {
	return SelectorConfig{
		Title: []Field{
			{Selector: `meta[property="og:title"]`, Attr: "content"},
			{Selector: `meta[name="twitter:title"]`, Attr: "content"},
			{Selector: "#productTitle"},
			{Selector: "h1.ui-pdp-title"},
			{Selector: "title"},
		},
		Description: []Field{
			{Selector: `meta[property="og:description"]`, Attr: "content"},
			{Selector: `meta[name="description"]`, Attr: "content"},
		},
		Image: []Field{
			{Selector: `meta[property="og:image"]`, Attr: "content"},
			{Selector: "#landingImage", Attr: "src"},
			{Selector: "img.ui-pdp-image", Attr: "src"},
		},
		Price: []Field{
			{Selector: `meta[property="product:price:amount"]`, Attr: "content"},
			{Selector: `meta[itemprop="price"]`, Attr: "content"},
			{Selector: ".a-price .a-offscreen"},
			{Selector: ".ui-pdp-price__second-line .andes-money-amount__fraction"},
		},
		Currency: []Field{
			{Selector: `meta[property="product:price:currency"]`, Attr: "content"},
			{Selector: `meta[itemprop="priceCurrency"]`, Attr: "content"},
		},
		SiteName: []Field{
			{Selector: `meta[property="og:site_name"]`, Attr: "content"},
		},
		JSONLD: `script[type="application/ld+json"]`,
	}
}
