package sink

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"github.com/jonesrussell/rankrecon/internal/domain"
	"github.com/jonesrussell/rankrecon/internal/pipeline"
	"github.com/jonesrussell/rankrecon/internal/ranktracker"
)

// Workbook names.
const (
	XLSXFile         = "report.xlsx"
	ReportSheet      = "Report"
	RankHistorySheet = "Rank History"
	defaultSheet     = "Sheet1"
)

// XLSX writes the report, and any rank history, to one workbook.
type XLSX struct {
	Dir string
}

// Name implements pipeline.Sink.
func (x *XLSX) Name() string { return "xlsx" }

// Write implements pipeline.Sink.
func (x *XLSX) Write(ctx context.Context, res *pipeline.Result) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(defaultSheet, ReportSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	if err = writeReportSheet(f, bold, res.Report); err != nil {
		return err
	}
	if len(res.RankHistory) > 0 {
		if err = ctx.Err(); err != nil {
			return err
		}
		if err = writeHistorySheet(f, bold, res.RankHistory); err != nil {
			return err
		}
	}

	if err = os.MkdirAll(x.Dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if err = f.SaveAs(filepath.Join(x.Dir, XLSXFile)); err != nil {
		return fmt.Errorf("save %s: %w", XLSXFile, err)
	}
	return nil
}

func writeReportSheet(f *excelize.File, bold int, rows []domain.ReportRow) error {
	if err := writeHeader(f, ReportSheet, 1, bold, domain.ReportHeader); err != nil {
		return err
	}
	for i, r := range rows {
		cells := make([]any, 0, len(domain.ReportHeader))
		cells = append(cells, r.Query)
		for _, rank := range r.Ranks() {
			cells = append(cells, rankCell(rank))
		}
		cells = append(cells,
			r.Impressions, r.Clicks, r.InHouseClicks, r.SerpClixClicks, r.AdjustedClicks,
			r.Page, r.Country, r.DateRange, r.Domain,
		)
		if err := setRow(f, ReportSheet, i+2, cells); err != nil {
			return err
		}
	}
	return nil
}

// writeHistorySheet stacks each tracker's history, separated by a blank
// row and headed by its tracker id.
func writeHistorySheet(f *excelize.File, bold int, histories []*ranktracker.History) error {
	if _, err := f.NewSheet(RankHistorySheet); err != nil {
		return fmt.Errorf("create sheet %s: %w", RankHistorySheet, err)
	}
	row := 1
	for _, h := range histories {
		header := append([]string{"tracker_id"}, h.Header()...)
		if err := writeHeader(f, RankHistorySheet, row, bold, header); err != nil {
			return err
		}
		row++
		for _, hr := range h.Rows {
			cells := make([]any, 0, len(header))
			cells = append(cells, h.TrackerID, hr.Keyword)
			for _, rank := range hr.Ranks {
				cells = append(cells, rankCell(rank))
			}
			cells = append(cells, hr.Location, hr.URL, hr.Volume, hr.Tags)
			if err := setRow(f, RankHistorySheet, row, cells); err != nil {
				return err
			}
			row++
		}
		row++
	}
	return nil
}

func writeHeader(f *excelize.File, sheet string, row, style int, names []string) error {
	cells := make([]any, len(names))
	for i, n := range names {
		cells[i] = n
	}
	if err := setRow(f, sheet, row, cells); err != nil {
		return err
	}
	if err := f.SetRowStyle(sheet, row, row, style); err != nil {
		return fmt.Errorf("style header of %s: %w", sheet, err)
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, cells []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err = f.SetSheetRow(sheet, cell, &cells); err != nil {
		return fmt.Errorf("write %s row %d: %w", sheet, row, err)
	}
	return nil
}

func rankCell(r domain.Rank) any {
	if !r.Valid {
		return nil
	}
	return r.Value
}
