package util

import (
	"errors"
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"
)

var errUnsupportedScheme = errors.New("only http and https are supported")

var trackingParams = []string{
	"utm_source", "utm_medium", "utm_campaign", "utm_term", "utm_content",
	"fbclid", "gclid", "mc_cid", "mc_eid",
}

// NormalizeURL trims whitespace, requires http(s) and drops known tracking
// query parameters. Everything else is left as the store wrote it.
func NormalizeURL(rawURL string) (string, error) {
	parsedURL, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return rawURL, err
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return rawURL, &url.Error{Op: "normalize", URL: rawURL, Err: errUnsupportedScheme}
	}

	queryParams := parsedURL.Query()
	changed := false
	for _, param := range trackingParams {
		if queryParams.Has(param) {
			queryParams.Del(param)
			changed = true
		}
	}
	if changed {
		parsedURL.RawQuery = queryParams.Encode()
	}
	return parsedURL.String(), nil
}

// Domain returns the registrable domain of rawURL, e.g. "amazon.com.br" for
// "https://www.amazon.com.br/dp/X". It returns "" when rawURL has no host.
func Domain(rawURL string) string {
	parsedURL, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return ""
	}
	host := strings.ToLower(parsedURL.Hostname())
	if host == "" {
		return ""
	}
	domain, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}
	return domain
}

// StoreLabel is the first label of the registrable domain: "amazon" for both
// amazon.com and amazon.com.br.
func StoreLabel(rawURL string) string {
	label, _, _ := strings.Cut(Domain(rawURL), ".")
	return label
}
