// Package sheet reads product links from a shared Google Sheet.
package sheet

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/pauljones0/deals-storefront/internal/util"
)

var sheetIDRegex = regexp.MustCompile(`/d/([a-zA-Z0-9-_]+)`)

// ExportURL turns a sheet link into its CSV export link. URLs without a
// sheet ID are returned unchanged.
func ExportURL(sheetURL string) string {
	m := sheetIDRegex.FindStringSubmatch(sheetURL)
	if m == nil {
		return sheetURL
	}
	return "https://docs.google.com/spreadsheets/d/" + m[1] + "/export?format=csv"
}

type Client struct {
	httpClient *http.Client
	retries    int
}

func New(httpClient *http.Client, retries int) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{httpClient: httpClient, retries: retries}
}

// FetchLinks downloads the sheet as CSV and returns every first-column value
// that starts with "http", in sheet order.
func (c *Client) FetchLinks(ctx context.Context, sheetURL string) ([]string, error) {
	exportURL := ExportURL(sheetURL)

	var links []string
	err := util.RetryWithBackoff(ctx, c.retries, time.Second, func(int) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, exportURL, nil)
		if err != nil {
			return err
		}
		res, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("failed to fetch sheet: %w", err)
		}
		defer res.Body.Close()
		if res.StatusCode != http.StatusOK {
			return fmt.Errorf("failed to fetch sheet: status %s", res.Status)
		}
		links, err = ParseLinks(res.Body)
		return err
	})
	if err != nil {
		return nil, err
	}
	return links, nil
}

// ParseLinks reads CSV rows and keeps first-column http(s) values.
func ParseLinks(r io.Reader) ([]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	var links []string
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse sheet CSV: %w", err)
		}
		if len(record) == 0 {
			continue
		}
		if link := strings.TrimSpace(record[0]); strings.HasPrefix(link, "http") {
			links = append(links, link)
		}
	}
	return links, nil
}
