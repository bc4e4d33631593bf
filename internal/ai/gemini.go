// Package ai asks Gemini to describe products and write sales pitches.
// Every call is best effort: failures are logged and replaced by fallbacks.
package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"google.golang.org/genai"

	"github.com/pauljones0/deals-storefront/internal/scraper"
	"github.com/pauljones0/deals-storefront/internal/util"
)

const (
	pitchMaxRunes = 300

	// Used when the model answers with nothing.
	emptyPitch = "Confira esta oferta incrível selecionada para você!"
	// Used when the model can't be reached.
	failedPitch = "Confira esta oferta incrível que separamos hoje para você. Qualidade garantida e o melhor preço do mercado!"
)

// Enrichment is what the model (and the page) could tell about a product URL.
// Any field may be empty.
type Enrichment struct {
	Title           string `json:"title"`
	Description     string `json:"description"`
	Category        string `json:"category"`
	EstimatedPrice  string `json:"estimatedPrice"`
	ImageSearchTerm string `json:"imageSearchTerm"`
	ImageURL        string `json:"imageUrl,omitempty"`
}

// Empty reports whether nothing was recovered.
func (e Enrichment) Empty() bool {
	return e == Enrichment{}
}

// PageReader fetches product page metadata.
type PageReader interface {
	FetchMetadata(ctx context.Context, url string) (scraper.PageMetadata, error)
}

type generateFunc func(ctx context.Context, prompt string, cfg *genai.GenerateContentConfig) (string, error)

type Client struct {
	generate generateFunc
	pages    PageReader
}

var enrichSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"title":           {Type: genai.TypeString, Description: "Título comercial curto do produto."},
		"description":     {Type: genai.TypeString, Description: "Descrição de marketing em português, 2 a 3 frases."},
		"category":        {Type: genai.TypeString, Description: "Categoria da loja, ex.: Eletrônicos, Casa, Moda."},
		"estimatedPrice":  {Type: genai.TypeString, Description: "Preço estimado em reais, ex.: R$ 199,90."},
		"imageSearchTerm": {Type: genai.TypeString, Description: "Termo em inglês para buscar uma foto do produto."},
	},
	Required: []string{"title", "description", "category", "imageSearchTerm"},
}

// NewClient builds a Gemini-backed client. Without an API key it returns a
// metadata-only client: Enrich reads the page and Pitch returns the fallback.
// A nil *Client is also usable and returns fallbacks for every call.
func NewClient(ctx context.Context, apiKey, modelID string, pages PageReader) (*Client, error) {
	if apiKey == "" {
		return &Client{pages: pages}, nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	generate := func(ctx context.Context, prompt string, cfg *genai.GenerateContentConfig) (string, error) {
		resp, err := client.Models.GenerateContent(ctx, modelID, genai.Text(prompt), cfg)
		if err != nil {
			return "", err
		}
		return collectPartsText(resp), nil
	}
	return &Client{generate: generate, pages: pages}, nil
}

// collectPartsText concatenates text parts from a response.
func collectPartsText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		b.WriteString(part.Text)
	}
	return b.String()
}

// Enrich describes the product behind url. Page metadata fills whatever the
// model leaves empty; with no model only the metadata is used.
func (c *Client) Enrich(ctx context.Context, url string) Enrichment {
	if c == nil {
		return Enrichment{}
	}

	var meta scraper.PageMetadata
	if c.pages != nil {
		m, err := c.pages.FetchMetadata(ctx, url)
		if err != nil {
			slog.Warn("Page metadata unavailable for enrichment", "url", url, "error", err)
		} else {
			meta = m
		}
	}

	var out Enrichment
	if c.generate != nil {
		out = c.generateEnrichment(ctx, url, meta)
	}

	if out.Title == "" {
		out.Title = meta.Title
	}
	if out.Description == "" {
		out.Description = meta.Description
	}
	if out.EstimatedPrice == "" && meta.Price != "" {
		out.EstimatedPrice = formatPrice(meta.Price, meta.Currency)
	}
	out.ImageURL = meta.Image
	return out
}

func (c *Client) generateEnrichment(ctx context.Context, url string, meta scraper.PageMetadata) Enrichment {
	temperature := float32(0.2)
	text, err := c.generate(ctx, enrichPrompt(url, meta), &genai.GenerateContentConfig{
		Temperature:      &temperature,
		ResponseMIMEType: "application/json",
		ResponseSchema:   enrichSchema,
	})
	if err != nil {
		slog.Warn("Gemini enrichment failed", "url", url, "error", err)
		return Enrichment{}
	}
	parsed, err := parseEnrichment(text)
	if err != nil {
		slog.Warn("Failed to parse gemini enrichment", "url", url, "error", err)
		return Enrichment{}
	}
	return parsed
}

func enrichPrompt(url string, meta scraper.PageMetadata) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Analise este link de produto e gere detalhes de marketing em português: %s\n", url)
	if !meta.Empty() {
		b.WriteString("Dados lidos da página:\n")
		if meta.Title != "" {
			fmt.Fprintf(&b, "Título: %q\n", meta.Title)
		}
		if meta.Description != "" {
			fmt.Fprintf(&b, "Descrição: %q\n", util.Truncate(meta.Description, 1000))
		}
		if meta.Price != "" {
			fmt.Fprintf(&b, "Preço: %s %s\n", meta.Currency, meta.Price)
		}
	}
	b.WriteString("Responda em JSON seguindo o schema.")
	return b.String()
}

func parseEnrichment(text string) (Enrichment, error) {
	// Clean up potential markdown formatting just in case
	jsonStr := strings.TrimSpace(text)
	jsonStr = strings.TrimPrefix(jsonStr, "```json")
	jsonStr = strings.TrimPrefix(jsonStr, "```")
	jsonStr = strings.TrimSuffix(jsonStr, "```")
	jsonStr = strings.TrimSpace(jsonStr)
	if jsonStr == "" {
		return Enrichment{}, nil
	}

	var e Enrichment
	if err := json.Unmarshal([]byte(jsonStr), &e); err != nil {
		return Enrichment{}, err
	}
	e.ImageURL = ""
	return e, nil
}

func formatPrice(price, currency string) string {
	v, ok := util.ParsePrice(price)
	if !ok {
		return price
	}
	if currency == "" || currency == "BRL" {
		whole := fmt.Sprintf("%.2f", v)
		return "R$ " + strings.Replace(whole, ".", ",", 1)
	}
	return fmt.Sprintf("%s %.2f", currency, v)
}

// Pitch writes a short persuasive sales text. It never fails: an empty answer
// and an error each map to a fixed text.
func (c *Client) Pitch(ctx context.Context, title, description string) string {
	if c == nil || c.generate == nil {
		return failedPitch
	}

	prompt := fmt.Sprintf(`Crie um texto curto (máximo %d caracteres), persuasivo e empolgante para vender este produto: %q.
Use gatilhos mentais de benefício e prova social. Baseie-se nesta descrição: %s.
O texto deve ser voltado para convencer o cliente a comprar agora. Responda apenas com o texto de vendas pronto, sem aspas.`,
		pitchMaxRunes, title, util.Truncate(description, 1000))

	temperature := float32(0.9)
	text, err := c.generate(ctx, prompt, &genai.GenerateContentConfig{Temperature: &temperature})
	if err != nil {
		slog.Warn("Gemini pitch failed", "title", title, "error", err)
		return failedPitch
	}

	text = strings.Trim(strings.TrimSpace(text), `"“”`)
	if text == "" {
		return emptyPitch
	}
	return util.Truncate(text, pitchMaxRunes)
}

// Eligible reports whether url belongs to one of the store labels that
// enrichment supports, e.g. "amazon" or "mercadolivre".
func Eligible(url string, stores []string) bool {
	label := util.StoreLabel(url)
	return label != "" && slices.Contains(stores, label)
}
