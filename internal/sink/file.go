// Package sink writes pipeline results to files, spreadsheets and search
// indexes.
package sink

import (
	"context"
	"fmt"
	"path/filepath"
	"unicode/utf8"

	"github.com/jonesrussell/rankrecon/internal/domain"
	"github.com/jonesrussell/rankrecon/internal/pipeline"
	"github.com/jonesrussell/rankrecon/internal/ranktracker"
	"github.com/jonesrussell/rankrecon/internal/table"
)

// Artifact file names.
const (
	SearchFile       = "gsc.tsv"
	ClicksFile       = "click_data.tsv"
	MergedFile       = "merged.tsv"
	ReportFile       = "report.tsv"
	RankHistoryFile  = "rank_history.tsv"
	MergedRanksFile  = "merged_rank_tracker.tsv"
	defaultDelimiter = '\t'
)

// File writes each pipeline stage as a delimited file under Dir.
type File struct {
	Dir       string
	Delimiter rune
}

// NewFile builds a File sink. Only the first rune of delimiter is used;
// an empty delimiter means tab.
func NewFile(dir, delimiter string) *File {
	d, _ := utf8.DecodeRuneInString(delimiter)
	if d == utf8.RuneError {
		d = defaultDelimiter
	}
	return &File{Dir: dir, Delimiter: d}
}

// Name implements pipeline.Sink.
func (f *File) Name() string { return "file" }

// Write implements pipeline.Sink.
func (f *File) Write(ctx context.Context, res *pipeline.Result) error {
	if err := f.write(SearchFile, domain.SearchRecordHeader, searchRecords(res.Search)); err != nil {
		return err
	}
	if err := f.WriteClicks(res.Clicks); err != nil {
		return err
	}
	if err := f.write(MergedFile, domain.MergedRowHeader, mergedRecords(res.Merged)); err != nil {
		return err
	}
	if err := f.write(ReportFile, domain.ReportHeader, ReportRecords(res.Report)); err != nil {
		return err
	}
	for _, h := range res.RankHistory {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := f.write(HistoryFileName(h.TrackerID), h.Header(), h.Records()); err != nil {
			return err
		}
	}
	return nil
}

// WriteClicks writes bucketed click counts to click_data.tsv.
func (f *File) WriteClicks(counts []domain.ClickCount) error {
	recs := make([][]string, 0, len(counts))
	for _, c := range counts {
		recs = append(recs, c.Record())
	}
	return f.write(ClicksFile, domain.ClickCountHeader, recs)
}

// WriteHistory writes one tracker history under name and returns its path.
func (f *File) WriteHistory(name string, h *ranktracker.History) (string, error) {
	path := filepath.Join(f.Dir, name)
	if err := table.WriteFile(path, f.Delimiter, h.Header(), h.Records()); err != nil {
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	return path, nil
}

// HistoryFileName is rank_history_<tracker>.tsv.
func HistoryFileName(trackerID string) string {
	ext := filepath.Ext(RankHistoryFile)
	return RankHistoryFile[:len(RankHistoryFile)-len(ext)] + "_" + trackerID + ext
}

func (f *File) write(name string, header []string, rows [][]string) error {
	if err := table.WriteFile(filepath.Join(f.Dir, name), f.Delimiter, header, rows); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

func searchRecords(rows []domain.SearchRecord) [][]string {
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Record())
	}
	return out
}

func mergedRecords(rows []domain.MergedRow) [][]string {
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Record())
	}
	return out
}

// ReportRecords renders report rows in domain.ReportHeader order.
func ReportRecords(rows []domain.ReportRow) [][]string {
	out := make([][]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Record())
	}
	return out
}
