// Package notifier tells people about new offers: an in-memory inbox for
// visitors and an optional Discord webhook for the curator's channel.
package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/pauljones0/deals-storefront/internal/models"
	"github.com/pauljones0/deals-storefront/internal/util"
)

const (
	colorNewOffer      = 3066993  // #2ECC71
	colorFeaturedOffer = 15844367 // #F1C40F

	maxAttempts    = 3
	maxDescription = 300
)

type Client struct {
	webhookURL  string
	client      *http.Client
	rateLimiter *rate.Limiter
}

// New returns a webhook client. Discord allows roughly 5 requests per 2
// seconds per webhook.
func New(webhookURL string) *Client {
	return &Client{
		webhookURL:  webhookURL,
		client:      &http.Client{Timeout: 10 * time.Second},
		rateLimiter: rate.NewLimiter(rate.Every(500*time.Millisecond), 2),
	}
}

// Enabled reports whether a webhook is configured.
func (c *Client) Enabled() bool {
	return c != nil && c.webhookURL != ""
}

// Send announces a new offer and returns the message ID.
func (c *Client) Send(ctx context.Context, p models.Product) (string, error) {
	if !c.Enabled() {
		return "", nil
	}
	embed := formatProductToEmbed(p)
	return c.sendAndGetMessageID(ctx, embed)
}

// Update rewrites an earlier announcement, e.g. after the offer is featured.
func (c *Client) Update(ctx context.Context, messageID string, p models.Product) error {
	if !c.Enabled() || messageID == "" {
		return nil
	}
	embed := formatProductToEmbed(p)
	return c.updateDiscordMessage(ctx, messageID, embed)
}

// Internal structures
type discordWebhookPayload struct {
	Content string         `json:"content,omitempty"`
	Embeds  []discordEmbed `json:"embeds"`
}

type discordEmbedThumbnail struct {
	URL string `json:"url,omitempty"`
}

type discordEmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

type discordEmbedFooter struct {
	Text string `json:"text,omitempty"`
}

type discordEmbed struct {
	Title       string                `json:"title,omitempty"`
	Description string                `json:"description,omitempty"`
	URL         string                `json:"url,omitempty"`
	Timestamp   string                `json:"timestamp,omitempty"`
	Color       int                   `json:"color,omitempty"`
	Thumbnail   discordEmbedThumbnail `json:"thumbnail,omitempty"`
	Fields      []discordEmbedField   `json:"fields,omitempty"`
	Footer      discordEmbedFooter    `json:"footer,omitempty"`
}

type discordMessageResponse struct {
	ID        string `json:"id"`
	ChannelID string `json:"channel_id"`
}

func formatProductToEmbed(p models.Product) discordEmbed {
	title := p.Title
	if title == "" {
		title = "Nova oferta"
	}
	color := colorNewOffer
	if p.Featured {
		title = "⭐ " + title
		color = colorFeaturedOffer
	}

	var fields []discordEmbedField
	if p.EstimatedPrice != "" {
		fields = append(fields, discordEmbedField{Name: "Preço", Value: p.EstimatedPrice, Inline: true})
	}
	if p.Category != "" {
		fields = append(fields, discordEmbedField{Name: "Categoria", Value: p.Category, Inline: true})
	}

	var footer discordEmbedFooter
	if p.AuthorName != "" {
		footer.Text = "Publicado por " + p.AuthorName
	}

	var isoTimestamp string
	if p.AddedAt != 0 {
		isoTimestamp = p.Added().UTC().Format(time.RFC3339)
	}

	return discordEmbed{
		Title:       util.Truncate(title, 256),
		URL:         p.URL,
		Description: util.Truncate(p.Description, maxDescription),
		Timestamp:   isoTimestamp,
		Color:       color,
		Thumbnail:   discordEmbedThumbnail{URL: p.ImageURL},
		Fields:      fields,
		Footer:      footer,
	}
}

// retryBackoff returns how long to wait before retrying resp, or zero when
// the status isn't worth retrying.
func retryBackoff(resp *http.Response, attempt int) time.Duration {
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		if secs, err := strconv.ParseFloat(resp.Header.Get("Retry-After"), 64); err == nil && secs > 0 {
			return time.Duration(secs * float64(time.Second))
		}
		return time.Second << attempt
	case resp.StatusCode >= 500:
		return 500 * time.Millisecond << attempt
	}
	return 0
}

// do sends the request built by newReq, retrying 429s and 5xx responses.
func (c *Client) do(ctx context.Context, newReq func() (*http.Request, error)) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, err
		}
		req, err := newReq()
		if err != nil {
			return nil, err
		}
		resp, err := c.client.Do(req)
		if err != nil {
			return nil, err
		}
		bodyBytes, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return bodyBytes, nil
		}
		lastErr = fmt.Errorf("discord status: %s, body: %s", resp.Status, string(bodyBytes))

		wait := retryBackoff(resp, attempt)
		if wait == 0 || attempt == maxAttempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}
	return nil, lastErr
}

func (c *Client) sendAndGetMessageID(ctx context.Context, embed discordEmbed) (string, error) {
	payloadBytes, err := json.Marshal(discordWebhookPayload{Embeds: []discordEmbed{embed}})
	if err != nil {
		return "", err
	}

	parsedURL, err := url.Parse(c.webhookURL)
	if err != nil {
		return "", err
	}
	q := parsedURL.Query()
	q.Set("wait", "true")
	parsedURL.RawQuery = q.Encode()

	body, err := c.do(ctx, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, parsedURL.String(), bytes.NewReader(payloadBytes))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
	if err != nil {
		return "", err
	}

	var msgResponse discordMessageResponse
	if err := json.Unmarshal(body, &msgResponse); err != nil {
		return "", err
	}
	return msgResponse.ID, nil
}

func (c *Client) updateDiscordMessage(ctx context.Context, messageID string, embed discordEmbed) error {
	payloadBytes, err := json.Marshal(discordWebhookPayload{Embeds: []discordEmbed{embed}})
	if err != nil {
		return err
	}

	parsedBaseURL, err := url.Parse(c.webhookURL)
	if err != nil {
		return err
	}
	finalPatchURL := fmt.Sprintf("%s://%s%s/messages/%s", parsedBaseURL.Scheme, parsedBaseURL.Host, parsedBaseURL.Path, messageID)

	_, err = c.do(ctx, func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPatch, finalPatchURL, bytes.NewReader(payloadBytes))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
	if err != nil {
		return fmt.Errorf("discord update failed: %w", err)
	}
	return nil
}
