package util

import "net/url"

// CleanReferralLink unwraps known affiliate redirectors and stamps Amazon
// links with amazonTag. It reports whether the link changed.
func CleanReferralLink(rawURL, amazonTag string) (string, bool) {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return rawURL, false
	}

	switch {
	case parsedURL.Host == "click.linksynergy.com":
		return unwrapParam(rawURL, parsedURL, "murl")

	case parsedURL.Host == "go.redirectingat.com":
		return unwrapParam(rawURL, parsedURL, "url")

	case StoreLabel(rawURL) == "amazon" && amazonTag != "":
		queryParams := parsedURL.Query()
		if queryParams.Get("tag") == amazonTag {
			return rawURL, false
		}
		queryParams.Set("tag", amazonTag)
		parsedURL.RawQuery = queryParams.Encode()
		return parsedURL.String(), true

	default:
		return rawURL, false
	}
}

func unwrapParam(rawURL string, parsedURL *url.URL, param string) (string, bool) {
	// Query() already unescapes once.
	dest := parsedURL.Query().Get(param)
	if dest == "" {
		return rawURL, false
	}
	return dest, true
}
