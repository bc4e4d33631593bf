package scraper

import (
	"encoding/json"
	"fmt"
	"strings"
)

// jsonLDNode is the subset of a schema.org Product we read.
type jsonLDNode struct {
	Type        json.RawMessage `json:"@type"`
	Graph       []jsonLDNode    `json:"@graph"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Image       json.RawMessage `json:"image"`
	Offers      json.RawMessage `json:"offers"`
}

type jsonLDOffer struct {
	Price         json.RawMessage `json:"price"`
	LowPrice      json.RawMessage `json:"lowPrice"`
	PriceCurrency string          `json:"priceCurrency"`
}

// jsonLDProduct is the flattened result of a Product block.
type jsonLDProduct struct {
	Name        string
	Description string
	Image       string
	Price       string
	Currency    string
}

func (n jsonLDNode) isProduct() bool {
	var single string
	if json.Unmarshal(n.Type, &single) == nil {
		return single == "Product"
	}
	var many []string
	if json.Unmarshal(n.Type, &many) == nil {
		for _, t := range many {
			if t == "Product" {
				return true
			}
		}
	}
	return false
}

// parseJSONLD returns the first Product found in a ld+json script body. The
// body may be a single node, an array of nodes, or a node with @graph.
func parseJSONLD(raw string) (jsonLDProduct, bool) {
	raw = strings.TrimSpace(raw)
	var nodes []jsonLDNode
	if strings.HasPrefix(raw, "[") {
		if err := json.Unmarshal([]byte(raw), &nodes); err != nil {
			return jsonLDProduct{}, false
		}
	} else {
		var n jsonLDNode
		if err := json.Unmarshal([]byte(raw), &n); err != nil {
			return jsonLDProduct{}, false
		}
		nodes = append([]jsonLDNode{n}, n.Graph...)
	}

	for _, n := range nodes {
		if !n.isProduct() {
			continue
		}
		p := jsonLDProduct{
			Name:        strings.TrimSpace(n.Name),
			Description: strings.TrimSpace(n.Description),
			Image:       firstString(n.Image),
		}
		if offer, ok := firstOffer(n.Offers); ok {
			p.Price = scalarString(offer.Price)
			if p.Price == "" {
				p.Price = scalarString(offer.LowPrice)
			}
			p.Currency = offer.PriceCurrency
		}
		return p, true
	}
	return jsonLDProduct{}, false
}

func firstOffer(raw json.RawMessage) (jsonLDOffer, bool) {
	if len(raw) == 0 {
		return jsonLDOffer{}, false
	}
	var o jsonLDOffer
	if json.Unmarshal(raw, &o) == nil {
		return o, true
	}
	var many []jsonLDOffer
	if json.Unmarshal(raw, &many) == nil && len(many) > 0 {
		return many[0], true
	}
	return jsonLDOffer{}, false
}

// firstString reads a string, the first of a string array, or an ImageObject url.
func firstString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	var many []json.RawMessage
	if json.Unmarshal(raw, &many) == nil && len(many) > 0 {
		return firstString(many[0])
	}
	var obj struct {
		URL string `json:"url"`
	}
	if json.Unmarshal(raw, &obj) == nil {
		return obj.URL
	}
	return ""
}

// scalarString reads a JSON string or number as text.
func scalarString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	var f float64
	if json.Unmarshal(raw, &f) == nil {
		return fmt.Sprintf("%.2f", f)
	}
	return ""
}
