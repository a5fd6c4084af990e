package geo_test

import (
	"testing"

	"github.com/jonesrussell/rankrecon/internal/geo"
	"github.com/stretchr/testify/assert"
)

func TestToISO2(t *testing.T) {
	t.Helper()

	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"usa", "US", true},
		{"CAN", "CA", true},
		{"us", "US", true},
		{"de", "DE", true},
		{"uk", "GB", true},
		{"United States", "US", true},
		{"Germany", "DE", true},
		{" gbr ", "GB", true},
		{"", "", false},
		{"atlantis", "", false},
	}

	for _, tt := range tests {
		got, ok := geo.ToISO2(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestIsDroppedGSCCountry(t *testing.T) {
	t.Helper()

	assert.True(t, geo.IsDroppedGSCCountry("zzz"))
	assert.True(t, geo.IsDroppedGSCCountry("XKK"))
	assert.False(t, geo.IsDroppedGSCCountry("usa"))
}
