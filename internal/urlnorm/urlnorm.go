// Package urlnorm harmonizes page URLs and derives registered domains.
package urlnorm

import (
	"net"
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// rootEndings are bare-TLD page endings that mark a home page rather than
// a ranking landing page.
var rootEndings = []string{
	".com/", ".net/", ".org/", ".ca/", ".info/", ".biz/", ".us/",
	".uk/", ".co.uk/", ".de/", ".jp/", ".fr/", ".au/",
}

// minDeepSlashes is the slash count a page must exceed to be reported.
const minDeepSlashes = 3

// RegisteredDomain returns the eTLD+1 of rawURL's host, or "" when the host
// has none (IP addresses, bare public suffixes, unparseable input).
func RegisteredDomain(rawURL string) string {
	host := Host(rawURL)
	if host == "" || net.ParseIP(host) != nil {
		return ""
	}
	d, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return ""
	}
	return d
}

// Host returns the lower-cased hostname of rawURL. A value without a
// scheme is read as https.
func Host(rawURL string) string {
	s := strings.TrimSpace(rawURL)
	if s == "" {
		return ""
	}
	if !strings.Contains(s, "://") {
		s = "https://" + s
	}
	u, err := url.Parse(s)
	if err != nil {
		return ""
	}
	return strings.TrimSuffix(strings.ToLower(u.Hostname()), ".")
}

// NormalizePage prefixes https:// when the link carries no scheme and
// appends a trailing slash.
func NormalizePage(link string) string {
	link = strings.TrimSpace(link)
	if link == "" {
		return ""
	}
	if !strings.Contains(link, "http") {
		link = "https://" + link
	}
	if !strings.HasSuffix(link, "/") {
		link += "/"
	}
	return link
}

// SlashCount counts '/' characters in s.
func SlashCount(s string) int {
	return strings.Count(s, "/")
}

// IsRootPage reports whether link is a bare domain home page.
func IsRootPage(link string) bool {
	for _, end := range rootEndings {
		if strings.HasSuffix(link, end) {
			return true
		}
	}
	return false
}

// IsDeepPage reports whether page sits below the site root.
func IsDeepPage(page string) bool {
	return SlashCount(page) > minDeepSlashes
}
