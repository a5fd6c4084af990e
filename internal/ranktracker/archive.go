// Package ranktracker archives rank-tracker exports and folds them into a
// keyword rank history.
package ranktracker

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/jonesrussell/rankrecon/internal/domain"
	"github.com/jonesrussell/rankrecon/internal/table"
)

// Export columns.
const (
	ColKeyword     = "Keyword"
	ColPosition    = "Position"
	ColRank        = "Rank"
	ColURL         = "URL"
	ColLocation    = "Location"
	ColVolume      = "Volume"
	ColTags        = "Tags"
	ColDateScraped = "date_scraped"

	rankPrefix = "Rank "
	dateLayout = "2006-01-02"
	delimiter  = '\t'
)

// ErrNoArchives is returned when no archived export matches a tracker.
var ErrNoArchives = errors.New("no archived rank exports")

// Entry is one keyword position observed on one date.
type Entry struct {
	Keyword  string
	Location string
	URL      string
	Volume   string
	Tags     string
	Rank     domain.Rank
	Date     time.Time
}

// ArchiveName builds the archive file name for an export: the base name
// lower-cased with spaces replaced, suffixed with the scrape date and the
// tracker id.
func ArchiveName(exportName, trackerID string, date time.Time) string {
	base := strings.ReplaceAll(strings.ToLower(filepath.Base(exportName)), " ", "_")
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return fmt.Sprintf("%s-%s_%s.csv", base, date.Format(dateLayout), trackerID)
}

// rankColumn finds the position column: Rank, Position, or an archived
// "Rank <date>" column.
func rankColumn(t *table.Table) (string, bool) {
	for _, c := range []string{ColRank, ColPosition} {
		if t.Has(c) {
			return c, true
		}
	}
	for _, n := range t.Names() {
		if strings.HasPrefix(n, rankPrefix) {
			return n, true
		}
	}
	return "", false
}

// ReadExport loads a UTF-16, tab-separated rank-tracker file.
func ReadExport(path string) (*table.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open export: %w", err)
	}
	defer f.Close()

	t, err := table.ReadUTF16(f, delimiter)
	if err != nil {
		return nil, fmt.Errorf("read export %s: %w", path, err)
	}
	return t, nil
}

// Import archives the export at src for trackerID as scraped on date. Only
// the reporting columns are kept, the position column is renamed to
// "Rank <date>" and rows are sorted by tags, keyword and location. It
// returns the archive path.
func Import(src, archiveDir, trackerID string, date time.Time) (string, error) {
	if strings.TrimSpace(trackerID) == "" {
		return "", errors.New("import rank export: tracker id is required")
	}

	t, err := ReadExport(src)
	if err != nil {
		return "", err
	}

	rankCol, ok := rankColumn(t)
	if !ok {
		return "", fmt.Errorf("import %s: %w: %s or %s", src, table.ErrMissingColumn, ColPosition, ColRank)
	}

	day := date.Format(dateLayout)
	t, err = t.WithColumn(ColDateScraped, day)
	if err != nil {
		return "", fmt.Errorf("import %s: %w", src, err)
	}
	t, err = t.Select(ColKeyword, rankCol, ColURL, ColLocation, ColVolume, ColTags, ColDateScraped)
	if err != nil {
		return "", fmt.Errorf("import %s: %w", src, err)
	}
	target := rankPrefix + day
	if rankCol != target {
		if t, err = t.Rename(rankCol, target); err != nil {
			return "", fmt.Errorf("import %s: %w", src, err)
		}
	}
	t, err = t.SortBy(ColTags, ColKeyword, ColLocation)
	if err != nil {
		return "", fmt.Errorf("import %s: %w", src, err)
	}

	if err = os.MkdirAll(archiveDir, 0o755); err != nil {
		return "", fmt.Errorf("create archive dir: %w", err)
	}
	path := filepath.Join(archiveDir, ArchiveName(src, trackerID, date))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create archive file: %w", err)
	}

	records := t.Records()
	if err = table.WriteUTF16(f, delimiter, records[0], records[1:]); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("write archive file: %w", err)
	}
	if err = f.Close(); err != nil {
		return "", fmt.Errorf("close archive file: %w", err)
	}
	return path, nil
}

// Files lists archived exports whose name contains trackerID.
func Files(archiveDir, trackerID string) ([]string, error) {
	pattern := filepath.Join(archiveDir, "*"+globEscape(trackerID)+"*.csv")
	files, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("list archives: %w", err)
	}
	sort.Strings(files)
	return files, nil
}

func globEscape(s string) string {
	r := strings.NewReplacer(`*`, `\*`, `?`, `\?`, `[`, `\[`, `\`, `\\`)
	return r.Replace(s)
}

// Merge reads every archived export for trackerID. Each file resolves its
// own position column, so exports archived on different dates combine.
func Merge(archiveDir, trackerID string) ([]Entry, error) {
	files, err := Files(archiveDir, trackerID)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w for tracker %s in %s", ErrNoArchives, trackerID, archiveDir)
	}

	var entries []Entry
	for _, f := range files {
		t, rerr := ReadExport(f)
		if rerr != nil {
			return nil, rerr
		}
		es, perr := entriesFrom(t)
		if perr != nil {
			return nil, fmt.Errorf("%s: %w", f, perr)
		}
		entries = append(entries, es...)
	}
	return entries, nil
}

func entriesFrom(t *table.Table) ([]Entry, error) {
	rankCol, ok := rankColumn(t)
	if !ok {
		return nil, fmt.Errorf("%w: rank", table.ErrMissingColumn)
	}
	if err := t.Require(ColKeyword, ColDateScraped); err != nil {
		return nil, err
	}

	out := make([]Entry, 0, t.Len())
	var bad int
	t.Each(func(r table.Row) {
		d, err := parseScrapeDate(r.Get(ColDateScraped))
		if err != nil {
			bad++
			return
		}
		out = append(out, Entry{
			Keyword:  r.Get(ColKeyword),
			Location: r.Get(ColLocation),
			URL:      r.Get(ColURL),
			Volume:   r.Get(ColVolume),
			Tags:     r.Get(ColTags),
			Rank:     domain.ParseRank(r.Get(rankCol)),
			Date:     d,
		})
	})
	if len(out) == 0 && bad > 0 {
		return nil, fmt.Errorf("no parseable %s values", ColDateScraped)
	}
	return out, nil
}

func parseScrapeDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if len(s) > len(dateLayout) {
		s = s[:len(dateLayout)]
	}
	return time.Parse(dateLayout, s)
}
