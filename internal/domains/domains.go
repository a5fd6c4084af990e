// Package domains parses the tracked domain sheet.
package domains

import (
	"strings"

	"github.com/jonesrussell/rankrecon/internal/geo"
	"github.com/jonesrussell/rankrecon/internal/table"
	"github.com/jonesrussell/rankrecon/internal/urlnorm"
)

// Sheet columns.
const (
	ColDomain  = "Domain"
	ColCountry = "Country"
)

// Entry is one tracked domain in one market.
type Entry struct {
	Domain  string
	Country string
}

// List is the exploded domain sheet.
type List struct {
	Entries []Entry
	// names holds every parsed domain in first-seen order, including
	// domains none of whose countries resolved.
	names []string
	// UnknownCountries holds country values that did not resolve.
	UnknownCountries []string
}

// Parse reads the domain sheet. The Country cell may list several
// comma-separated markets; each becomes its own entry. A row without a
// country yields a single entry with an empty country.
func Parse(t *table.Table) (*List, error) {
	if err := t.Require(ColDomain); err != nil {
		return nil, err
	}

	l := &List{}
	seen := make(map[string]struct{})
	t.Each(func(r table.Row) {
		d := normalizeDomain(r.Get(ColDomain))
		if d == "" {
			return
		}
		if _, ok := seen[d]; !ok {
			seen[d] = struct{}{}
			l.names = append(l.names, d)
		}

		raw := strings.TrimSpace(r.Get(ColCountry))
		if raw == "" {
			l.Entries = append(l.Entries, Entry{Domain: d})
			return
		}
		for _, c := range strings.Split(raw, ",") {
			c = strings.TrimSpace(c)
			if c == "" {
				continue
			}
			iso, ok := geo.ToISO2(c)
			if !ok {
				l.UnknownCountries = append(l.UnknownCountries, c)
				continue
			}
			l.Entries = append(l.Entries, Entry{Domain: d, Country: iso})
		}
	})
	return l, nil
}

// normalizeDomain reduces v to its host without a leading "www.". Other
// subdomains stay so URL-prefix properties still match.
func normalizeDomain(v string) string {
	if strings.TrimSpace(v) == "" {
		return ""
	}
	return strings.TrimPrefix(urlnorm.Host(v), "www.")
}

// Names returns the distinct domains in first-seen order.
func (l *List) Names() []string {
	return append([]string(nil), l.names...)
}
