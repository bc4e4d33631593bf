package feed

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/pauljones0/deals-storefront/internal/models"
)

// Cursor is a visitor's position in a paginated feed.
type Cursor struct {
	Query   string `json:"q"`
	Visible int    `json:"v"`
}

// Pager grows a visible window by a fixed step.
type Pager struct {
	Initial int
	Step    int
}

// NewPager builds a Pager from settings.
func NewPager(s Settings) Pager {
	return Pager{Initial: s.InitialWindow, Step: s.PageSize}
}

// Start opens a cursor at the initial window.
func (p Pager) Start(query string) Cursor {
	return Cursor{Query: query, Visible: p.Initial}
}

// Sync resets c to the initial window when query differs from the one it was
// opened for, and reports whether it did. Otherwise c is returned unchanged.
func (p Pager) Sync(c Cursor, query string) (Cursor, bool) {
	if c.Query != query || c.Visible < p.Initial {
		return p.Start(query), true
	}
	return c, false
}

// Next widens the window by one step while there is more to show.
func (p Pager) Next(c Cursor, total int) Cursor {
	if c.Visible < total {
		c.Visible += p.Step
	}
	return c
}

// Page returns the visible slice of list.
func Page(list []models.Product, c Cursor) []models.Product {
	n := min(max(c.Visible, 0), len(list))
	return list[:n]
}

// HasMore reports whether list extends past the window.
func HasMore(list []models.Product, c Cursor) bool {
	return len(list) > c.Visible
}

// Encode returns an opaque URL-safe token for c.
func (c Cursor) Encode() string {
	b, _ := json.Marshal(c)
	return base64.RawURLEncoding.EncodeToString(b)
}

// DecodeCursor parses a token produced by Encode.
func DecodeCursor(token string) (Cursor, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return Cursor{}, fmt.Errorf("decode cursor: %w", err)
	}
	var c Cursor
	if err := json.Unmarshal(raw, &c); err != nil {
		return Cursor{}, fmt.Errorf("parse cursor: %w", err)
	}
	return c, nil
}
