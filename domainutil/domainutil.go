// Package domainutil normalizes URLs to their registrable domain name so
// same-publisher links can be detected across subdomains and TLDs.
package domainutil

import (
	"net"
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// Normalize reduces a URL or host to its registrable domain without the
// public suffix: sports.bbc.co.uk and www.bbc.com both normalize to "bbc".
// IP addresses pass through unchanged; unparseable input yields a best-effort
// label. Never returns an error — an empty input yields "".
func Normalize(raw string) string {
	host := raw
	if u, err := url.Parse(raw); err == nil && u.Host != "" {
		host = u.Host
	}
	host = strings.ToLower(strings.TrimSpace(host))
	if host == "" {
		return ""
	}

	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	if net.ParseIP(host) != nil {
		return host
	}
	host = strings.TrimPrefix(host, "www.")

	if etld1, err := publicsuffix.EffectiveTLDPlusOne(host); err == nil {
		suffix, _ := publicsuffix.PublicSuffix(host)
		return strings.TrimSuffix(etld1, "."+suffix)
	}

	// Host not covered by the suffix list (intranet names, test servers).
	labels := strings.Split(host, ".")
	if len(labels) >= 2 {
		return labels[len(labels)-2]
	}
	return host
}
