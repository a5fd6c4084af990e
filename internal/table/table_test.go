package table_test

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jonesrussell/rankrecon/internal/table"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestRead_TrimsHeadersAndPadsRows(t *testing.T) {
	t.Helper()

	in := "\uFEFF Keyword ,VPN,,Keyword\nshoes,US New York,x\n,,,\nboots,CA,y,z\n"
	tbl, err := table.Read(strings.NewReader(in), ',')
	require.NoError(t, err)

	assert.Equal(t, []string{"Keyword", "VPN", "column_3", "Keyword_1"}, tbl.Names())
	assert.Equal(t, 2, tbl.Len())
	assert.Equal(t, []string{"shoes", "boots"}, tbl.Column("Keyword"))
	assert.Equal(t, "", tbl.Row(0).Get("Keyword_1"))
	assert.Equal(t, "z", tbl.Row(1).Get("Keyword_1"))
	assert.Equal(t, "", tbl.Row(0).Get("Missing"))
}

func TestRead_HeaderOnly(t *testing.T) {
	t.Helper()

	tbl, err := table.Read(strings.NewReader("a\tb\n"), '\t')
	require.NoError(t, err)
	assert.Equal(t, 0, tbl.Len())
	assert.Nil(t, tbl.Column("a"))

	sorted, err := tbl.SortBy("a")
	require.NoError(t, err)
	assert.Equal(t, 0, sorted.Len())
}

func TestRequire(t *testing.T) {
	t.Helper()

	tbl, err := table.FromRecords([][]string{{"a", "b"}, {"1", "2"}})
	require.NoError(t, err)

	require.NoError(t, tbl.Require("a", "b"))
	err = tbl.Require("a", "c", "d")
	require.Error(t, err)
	assert.True(t, errors.Is(err, table.ErrMissingColumn))
	assert.Contains(t, err.Error(), "c, d")
}

func TestSelectSortAndWithColumn(t *testing.T) {
	t.Helper()

	tbl, err := table.FromRecords([][]string{
		{"Tags", "Keyword", "Location", "Extra"},
		{"b", "shoes", "US", "1"},
		{"a", "boots", "US", "2"},
		{"a", "belts", "CA", "3"},
	})
	require.NoError(t, err)

	sel, err := tbl.Select("Keyword", "Tags", "Location")
	require.NoError(t, err)
	assert.Equal(t, []string{"Keyword", "Tags", "Location"}, sel.Names())

	sorted, err := sel.SortBy("Tags", "Keyword")
	require.NoError(t, err)
	assert.Equal(t, []string{"belts", "boots", "shoes"}, sorted.Column("Keyword"))

	stamped, err := sorted.WithColumn("date_scraped", "2023-03-01")
	require.NoError(t, err)
	assert.Equal(t, []string{"2023-03-01", "2023-03-01", "2023-03-01"}, stamped.Column("date_scraped"))

	renamed, err := stamped.Rename("Keyword", "query")
	require.NoError(t, err)
	assert.True(t, renamed.Has("query"))
	assert.False(t, renamed.Has("Keyword"))

	_, err = tbl.Select("nope")
	assert.ErrorIs(t, err, table.ErrMissingColumn)
}

func TestSortBy_ThreeKeys(t *testing.T) {
	t.Helper()

	tbl, err := table.FromRecords([][]string{
		{"Keyword", "Tags", "Location"},
		{"red shoes", "b", "US"},
		{"blue boots", "a", "US"},
		{"green hats", "a", "CA"},
		{"blue boots", "a", "CA"},
	})
	require.NoError(t, err)

	sorted, err := tbl.SortBy("Tags", "Keyword", "Location")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "a", "a", "b"}, sorted.Column("Tags"))
	assert.Equal(t, []string{"blue boots", "blue boots", "green hats", "red shoes"}, sorted.Column("Keyword"))
	assert.Equal(t, []string{"CA", "US", "CA", "US"}, sorted.Column("Location"))

	// input untouched
	assert.Equal(t, []string{"red shoes", "blue boots", "green hats", "blue boots"}, tbl.Column("Keyword"))
}

func TestConcat_AlignsColumns(t *testing.T) {
	t.Helper()

	a, err := table.FromRecords([][]string{{"x", "y"}, {"1", "2"}})
	require.NoError(t, err)
	b, err := table.FromRecords([][]string{{"y", "z"}, {"3", "4"}})
	require.NoError(t, err)

	got, err := table.Concat(a, b)
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"x", "y", "z"},
		{"1", "2", ""},
		{"", "3", "4"},
	}, got.Records())
}

func TestWriteFile(t *testing.T) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "nested", "out.tsv")
	err := table.WriteFile(path, '\t', []string{"a", "b"}, [][]string{{"1", "two words"}})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "a\tb\n1\ttwo words\n", string(data))

	tbl, err := table.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "two words", tbl.Row(0).Get("b"))
}

func TestUTF16RoundTrip(t *testing.T) {
	t.Helper()

	var buf bytes.Buffer
	err := table.WriteUTF16(&buf, '\t', []string{"Keyword", "Location"}, [][]string{{"zapatos", "España"}})
	require.NoError(t, err)

	raw := buf.Bytes()
	require.GreaterOrEqual(t, len(raw), 2)
	assert.Equal(t, []byte{0xFF, 0xFE}, raw[:2])

	tbl, err := table.ReadUTF16(bytes.NewReader(raw), '\t')
	require.NoError(t, err)
	assert.Equal(t, []string{"Keyword", "Location"}, tbl.Names())
	assert.Equal(t, "España", tbl.Row(0).Get("Location"))
}

func TestReadXLSX(t *testing.T) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "sheet.xlsx")
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]any{"Keyword", "Domain", "Filter Type"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]any{"shoes", "All", "Whitelist"}))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	tbl, err := table.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"Keyword", "Domain", "Filter Type"}, tbl.Names())
	assert.Equal(t, "Whitelist", tbl.Row(0).Get("Filter Type"))

	_, err = table.ReadXLSX(path, "Missing")
	assert.Error(t, err)
}
