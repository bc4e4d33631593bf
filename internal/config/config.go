package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	ProjectID          string
	Port               string
	GeminiAPIKey       string
	GeminiModel        string
	GoogleClientID     string
	CuratorEmail       string
	AmazonAffiliateTag string
	DiscordWebhookURL  string
	LocalStorePath     string
	FetchBackend       string
	EnrichDomains      []string
	RateLimitPerMinute int
	FetchRetries       int
	FeedSettingsPath   string
	SelectorsPath      string
	DocsSpecDir        string
}

// Load reads configuration from the environment. A .env file in the working
// directory, when present, fills variables that aren't already set.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}

	projectID := os.Getenv("GOOGLE_CLOUD_PROJECT")
	if projectID == "" {
		return nil, fmt.Errorf("GOOGLE_CLOUD_PROJECT environment variable is required but not set")
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
		slog.Info("Defaulting to port", "port", port)
	}

	geminiAPIKey := os.Getenv("GEMINI_API_KEY")
	if geminiAPIKey == "" {
		slog.Warn("GEMINI_API_KEY not set, enrichment and pitches will use fallbacks")
	}

	googleClientID := os.Getenv("GOOGLE_CLIENT_ID")
	if googleClientID == "" {
		slog.Warn("GOOGLE_CLIENT_ID not set, Google sign-in is disabled")
	}

	curatorEmail := os.Getenv("CURATOR_EMAIL")
	if curatorEmail == "" {
		slog.Warn("CURATOR_EMAIL not set, nobody can use curator actions")
	}

	discordWebhookURL := os.Getenv("DISCORD_WEBHOOK_URL")
	if discordWebhookURL == "" {
		slog.Info("DISCORD_WEBHOOK_URL not set, new offers won't be announced")
	}

	fetchBackend := strings.ToLower(getenv("FETCH_BACKEND", "http"))
	switch fetchBackend {
	case "http", "chromedp", "playwright":
	default:
		return nil, fmt.Errorf("invalid FETCH_BACKEND %q: want http, chromedp or playwright", fetchBackend)
	}

	rateLimit, err := intEnv("RATE_LIMIT_PER_MINUTE", 30)
	if err != nil {
		return nil, err
	}
	fetchRetries, err := intEnv("FETCH_RETRIES", 2)
	if err != nil {
		return nil, err
	}

	return &Config{
		ProjectID:          projectID,
		Port:               port,
		GeminiAPIKey:       geminiAPIKey,
		GeminiModel:        getenv("GEMINI_MODEL", "gemini-2.5-flash"),
		GoogleClientID:     googleClientID,
		CuratorEmail:       curatorEmail,
		AmazonAffiliateTag: os.Getenv("AMAZON_AFFILIATE_TAG"),
		DiscordWebhookURL:  discordWebhookURL,
		LocalStorePath:     getenv("LOCAL_STORE_PATH", "./local.db"),
		FetchBackend:       fetchBackend,
		EnrichDomains:      splitList(getenv("ENRICH_DOMAINS", "amazon,mercadolivre")),
		RateLimitPerMinute: rateLimit,
		FetchRetries:       fetchRetries,
		FeedSettingsPath:   os.Getenv("FEED_SETTINGS_PATH"),
		SelectorsPath:      os.Getenv("SELECTORS_CONFIG_PATH"),
		DocsSpecDir:        getenv("DOCS_SPEC_DIR", "./api"),
	}, nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func intEnv(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	parsed, err := strconv.Atoi(v)
	if err != nil || parsed < 0 {
		return 0, fmt.Errorf("invalid %s %q: want a non-negative integer", key, v)
	}
	return parsed, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.ToLower(strings.TrimSpace(part)); part != "" {
			out = append(out, part)
		}
	}
	return out
}
