package pipeline

import (
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// Normalize canonicalizes a raw URL-like string. It is total: any input
// yields a usable NormalizedURL, with an empty Host standing in for text
// that cannot be parsed as a URL at all.
func Normalize(raw string) NormalizedURL {
	trimmed := strings.TrimSpace(raw)

	qualified := trimmed
	lower := strings.ToLower(trimmed)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		qualified = "http://" + trimmed
	}

	n := NormalizedURL{Raw: raw, URL: qualified}

	parsed, err := url.Parse(qualified)
	if err != nil {
		return n
	}

	host := strings.ToLower(parsed.Host)
	if i := strings.Index(host, ":"); i >= 0 {
		host = host[:i]
	}
	host = strings.TrimPrefix(host, "www.")

	n.Host = host
	n.Domain = registrableDomain(host)
	return n
}

// registrableDomain reduces a host to its eTLD+1 for WHOIS and rank
// queries. IP literals and single-label hosts have no registrable form
// and pass through unchanged.
func registrableDomain(host string) string {
	if host == "" || ipHostRe.MatchString(host) {
		return host
	}
	domain, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}
	return domain
}
