// Package geo normalizes country identifiers to ISO 3166-1 alpha-2.
package geo

import (
	"strings"

	"github.com/biter777/countries"
)

// aliases covers codes in common use that are not ISO codes.
var aliases = map[string]string{
	"uk": "GB",
	"el": "GR",
}

// droppedGSC are Search Console pseudo-countries with no ISO equivalent.
var droppedGSC = map[string]struct{}{
	"zzz": {}, // unknown region
	"xkk": {}, // Kosovo
}

// IsDroppedGSCCountry reports whether a Search Console country value is
// excluded from reporting.
func IsDroppedGSCCountry(v string) bool {
	_, ok := droppedGSC[strings.ToLower(strings.TrimSpace(v))]
	return ok
}

// ToISO2 resolves an alpha-2 code, alpha-3 code or English country name to
// an upper-case alpha-2 code.
func ToISO2(v string) (string, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", false
	}
	if code, ok := aliases[strings.ToLower(v)]; ok {
		return code, true
	}

	c := countries.ByName(v)
	if c == countries.Unknown || !c.IsValid() {
		return "", false
	}
	return c.Alpha2(), true
}
