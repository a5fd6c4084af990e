// Package table loads delimited and spreadsheet data into an all-string
// gota DataFrame and gives name-based access to its cells.
package table

import (
	"cmp"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
)

// ErrMissingColumn is returned when a required column is absent.
var ErrMissingColumn = errors.New("missing column")

const byteOrderMark = "\uFEFF"

// Table is a string-typed frame with a header index.
type Table struct {
	df    dataframe.DataFrame
	names []string
	index map[string]int
	rows  [][]string
}

// FromRecords builds a table from a header row followed by data rows.
// Header cells are trimmed, blank or repeated names are made unique, short
// rows are padded and fully blank rows are skipped.
func FromRecords(records [][]string) (*Table, error) {
	if len(records) == 0 {
		return nil, errors.New("load table: no header row")
	}

	header := uniqueNames(records[0])
	width := len(header)

	data := make([][]string, 0, len(records)-1)
	for _, rec := range records[1:] {
		if isBlank(rec) {
			continue
		}
		row := make([]string, width)
		copy(row, rec)
		data = append(data, row)
	}

	t := &Table{names: header, index: make(map[string]int, width), rows: data}
	for i, h := range header {
		t.index[h] = i
	}

	// gota refuses frames without a data row; header-only inputs keep an
	// empty frame and report zero rows.
	if len(data) == 0 {
		return t, nil
	}

	all := make([][]string, 0, len(data)+1)
	all = append(all, header)
	all = append(all, data...)
	t.df = dataframe.LoadRecords(all,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.NaNValues(nil),
	)
	if t.df.Err != nil {
		return nil, fmt.Errorf("load table: %w", t.df.Err)
	}

	return t, nil
}

func uniqueNames(raw []string) []string {
	out := make([]string, len(raw))
	seen := make(map[string]int, len(raw))
	for i, h := range raw {
		name := strings.TrimSpace(strings.TrimPrefix(h, byteOrderMark))
		if name == "" {
			name = "column_" + strconv.Itoa(i+1)
		}
		if n, dup := seen[name]; dup {
			seen[name] = n + 1
			name = name + "_" + strconv.Itoa(n)
		}
		seen[name]++
		out[i] = name
	}
	return out
}

// Read parses delimited text. Quotes are handled lazily, matching what
// spreadsheet exports produce.
func Read(r io.Reader, delimiter rune) (*Table, error) {
	cr := csv.NewReader(r)
	cr.Comma = delimiter
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read delimited data: %w", err)
	}
	return FromRecords(records)
}

func isBlank(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// Names returns the header.
func (t *Table) Names() []string { return append([]string(nil), t.names...) }

// Len is the number of data rows.
func (t *Table) Len() int { return len(t.rows) }

// Has reports whether col is present.
func (t *Table) Has(col string) bool {
	_, ok := t.index[col]
	return ok
}

// Require fails with ErrMissingColumn when any of cols is absent.
func (t *Table) Require(cols ...string) error {
	var missing []string
	for _, c := range cols {
		if !t.Has(c) {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))
	}
	return nil
}

// Column returns every value of col, or nil when col is absent.
func (t *Table) Column(col string) []string {
	if !t.Has(col) || t.Len() == 0 {
		return nil
	}
	return t.df.Col(col).Records()
}

// Select returns a table restricted to cols, in that order.
func (t *Table) Select(cols ...string) (*Table, error) {
	if err := t.Require(cols...); err != nil {
		return nil, err
	}
	if t.Len() == 0 {
		return FromRecords([][]string{cols})
	}
	return fromFrame(t.df.Select(cols))
}

// SortBy orders rows ascending by the first column, breaking ties with
// each following column. The sort is stable.
func (t *Table) SortBy(cols ...string) (*Table, error) {
	if err := t.Require(cols...); err != nil {
		return nil, err
	}
	if t.Len() == 0 {
		return t, nil
	}
	keys := make([]int, len(cols))
	for i, c := range cols {
		keys[i] = t.index[c]
	}
	records := t.Records()
	rows := records[1:]
	slices.SortStableFunc(rows, func(a, b []string) int {
		for _, k := range keys {
			if c := cmp.Compare(a[k], b[k]); c != 0 {
				return c
			}
		}
		return 0
	})
	return FromRecords(records)
}

// WithColumn returns a copy with col set to value on every row, appending
// the column when absent.
func (t *Table) WithColumn(col, value string) (*Table, error) {
	records := t.Records()
	i, ok := t.index[col]
	if !ok {
		records[0] = append(records[0], col)
		i = len(records[0]) - 1
	}
	for r := 1; r < len(records); r++ {
		for len(records[r]) <= i {
			records[r] = append(records[r], "")
		}
		records[r][i] = value
	}
	return FromRecords(records)
}

// Rename returns a copy with column from renamed to to.
func (t *Table) Rename(from, to string) (*Table, error) {
	i, ok := t.index[from]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, from)
	}
	records := t.Records()
	records[0][i] = to
	return FromRecords(records)
}

func fromFrame(df dataframe.DataFrame) (*Table, error) {
	if df.Err != nil {
		return nil, fmt.Errorf("transform table: %w", df.Err)
	}
	return FromRecords(df.Records())
}

// Row returns data row i.
func (t *Table) Row(i int) Row { return Row{t: t, cells: t.rows[i]} }

// Each calls fn for every data row.
func (t *Table) Each(fn func(Row)) {
	for i := range t.rows {
		fn(t.Row(i))
	}
}

// Records returns a copy of the header followed by every row.
func (t *Table) Records() [][]string {
	out := make([][]string, 0, len(t.rows)+1)
	out = append(out, t.Names())
	for _, r := range t.rows {
		out = append(out, append([]string(nil), r...))
	}
	return out
}

// Concat stacks tables, aligning columns by name. The header is the union
// of all headers in first-seen order.
func Concat(tables ...*Table) (*Table, error) {
	var header []string
	pos := make(map[string]int)
	for _, t := range tables {
		for _, n := range t.names {
			if _, ok := pos[n]; !ok {
				pos[n] = len(header)
				header = append(header, n)
			}
		}
	}
	if len(header) == 0 {
		return nil, errors.New("concat tables: no columns")
	}

	records := [][]string{header}
	for _, t := range tables {
		for _, r := range t.rows {
			out := make([]string, len(header))
			for i, n := range t.names {
				out[pos[n]] = r[i]
			}
			records = append(records, out)
		}
	}
	return FromRecords(records)
}

// Row is a single data row.
type Row struct {
	t     *Table
	cells []string
}

// Get returns the cell under col, or "" when col is absent.
func (r Row) Get(col string) string {
	i, ok := r.t.index[col]
	if !ok || i >= len(r.cells) {
		return ""
	}
	return r.cells[i]
}
