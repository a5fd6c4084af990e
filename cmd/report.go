package cmd

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonesrussell/rankrecon/internal/config"
	"github.com/jonesrussell/rankrecon/internal/pipeline"
	"github.com/jonesrussell/rankrecon/internal/sink"
)

var stageOrder = []string{
	pipeline.StageSearch,
	pipeline.StageInHouse,
	pipeline.StageSerpClix,
	pipeline.StageClicks,
	pipeline.StageMerged,
	pipeline.StageReport,
}

func newReportCommand(g *globalFlags) *cobra.Command {
	var anchor string

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Run the full report pipeline",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := parseDate("anchor", anchor)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			app, err := g.setup(ctx, "report", (*config.Config).ValidateReport)
			if err != nil {
				return err
			}
			defer app.Close()

			svc, err := app.ReportPipeline(ctx)
			if err != nil {
				return err
			}

			res, runErr := svc.Run(ctx, a)
			if res != nil {
				printSummary(cmd.OutOrStdout(), res, app.Config.Output.Dir)
			}
			return runErr
		},
	}
	cmd.Flags().StringVar(&anchor, "anchor", "", "anchor date YYYY-MM-DD (default today)")
	return cmd
}

func printSummary(w io.Writer, res *pipeline.Result, outDir string) {
	_, _ = fmt.Fprintf(w, "run %s  anchor %s  %s\n",
		res.RunID, res.Anchor.Format(time.DateOnly), res.Duration().Round(time.Millisecond))

	rows := make([][]string, 0, len(res.Counts))
	for _, stage := range stageOrder {
		if n, ok := res.Counts[stage]; ok {
			rows = append(rows, []string{stage, strconv.Itoa(n)})
		}
	}
	for _, h := range res.RankHistory {
		rows = append(rows, []string{sink.HistoryFileName(h.TrackerID), strconv.Itoa(len(h.Rows))})
	}
	renderTable(w, []string{"Stage", "Rows"}, rows)

	files := []string{sink.SearchFile, sink.ClicksFile, sink.MergedFile, sink.ReportFile}
	_, _ = fmt.Fprintf(w, "wrote %s to %s\n", strings.Join(files, ", "), outDir)
}
