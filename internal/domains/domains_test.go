package domains_test

import (
	"testing"

	"github.com/jonesrussell/rankrecon/internal/domains"
	"github.com/jonesrussell/rankrecon/internal/table"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	t.Helper()

	tbl, err := table.FromRecords([][]string{
		{"Domain", "Country"},
		{"Example.com", "United States, Canada"},
		{"www.other.co.uk", "uk"},
		{"https://example.com/blog/", "Germany,Narnia"},
		{"bare.net", ""},
		{"", "US"},
	})
	require.NoError(t, err)

	l, err := domains.Parse(tbl)
	require.NoError(t, err)

	assert.Equal(t, []domains.Entry{
		{Domain: "example.com", Country: "US"},
		{Domain: "example.com", Country: "CA"},
		{Domain: "other.co.uk", Country: "GB"},
		{Domain: "example.com", Country: "DE"},
		{Domain: "bare.net"},
	}, l.Entries)
	assert.Equal(t, []string{"example.com", "other.co.uk", "bare.net"}, l.Names())
	assert.Equal(t, []string{"Narnia"}, l.UnknownCountries)
}

func TestParse_KeepsUnresolvedAndSubdomains(t *testing.T) {
	t.Helper()

	tbl, err := table.FromRecords([][]string{
		{"Domain", "Country"},
		{"example.com", "Atlantis"},
		{"shop.other.com", "US"},
	})
	require.NoError(t, err)

	l, err := domains.Parse(tbl)
	require.NoError(t, err)

	assert.Equal(t, []string{"example.com", "shop.other.com"}, l.Names())
	assert.Equal(t, []domains.Entry{{Domain: "shop.other.com", Country: "US"}}, l.Entries)
	assert.Equal(t, []string{"Atlantis"}, l.UnknownCountries)
}

func TestParse_MissingColumn(t *testing.T) {
	t.Helper()

	tbl, err := table.FromRecords([][]string{{"Site"}, {"example.com"}})
	require.NoError(t, err)

	_, err = domains.Parse(tbl)
	assert.ErrorIs(t, err, table.ErrMissingColumn)
}
