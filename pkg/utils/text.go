package utils

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/publicsuffix"
)

var space = regexp.MustCompile(`\s+`)

// CleanText collapses runs of whitespace and trims the result
func CleanText(text string) string {
	return strings.TrimSpace(space.ReplaceAllString(text, " "))
}

// ResolveURL resolves ref against base and returns an absolute URL
func ResolveURL(base, ref string) (string, error) {
	baseURL, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid base URL %q: %w", base, err)
	}
	if !baseURL.IsAbs() {
		return "", fmt.Errorf("base URL %q is not absolute", base)
	}
	refURL, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return "", fmt.Errorf("invalid reference %q: %w", ref, err)
	}
	return baseURL.ResolveReference(refURL).String(), nil
}

// EnsureTrailingSlash makes a base URL resolve references inside its last
// path segment rather than next to it
func EnsureTrailingSlash(rawURL string) string {
	if strings.HasSuffix(rawURL, "/") {
		return rawURL
	}
	return rawURL + "/"
}

// SameSite reports whether two URLs share a host or, failing that, the same
// registrable domain (eTLD+1)
func SameSite(a, b string) bool {
	ua, err := url.Parse(a)
	if err != nil {
		return false
	}
	ub, err := url.Parse(b)
	if err != nil {
		return false
	}

	ha, hb := strings.ToLower(ua.Hostname()), strings.ToLower(ub.Hostname())
	if ha == "" || hb == "" {
		return false
	}
	if ha == hb {
		return true
	}

	da, err := publicsuffix.EffectiveTLDPlusOne(ha)
	if err != nil {
		return false
	}
	db, err := publicsuffix.EffectiveTLDPlusOne(hb)
	if err != nil {
		return false
	}
	return da == db
}
