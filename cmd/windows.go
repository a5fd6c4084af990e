package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/jonesrussell/rankrecon/internal/window"
)

func newWindowsCommand() *cobra.Command {
	var anchor string

	cmd := &cobra.Command{
		Use:   "windows",
		Short: "Print the report date windows for an anchor date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := parseDate("anchor", anchor)
			if err != nil {
				return err
			}
			renderTable(cmd.OutOrStdout(), []string{"Column", "Start", "End", "Label"}, windowRows(a))
			return nil
		},
	}
	cmd.Flags().StringVar(&anchor, "anchor", "", "anchor date YYYY-MM-DD (default today)")
	return cmd
}

func windowRows(anchor time.Time) [][]string {
	ws := window.Windows(anchor)
	rows := make([][]string, 0, len(ws))
	for i, w := range ws {
		rows = append(rows, []string{
			window.RankColumn(i),
			w.Start.Format(time.DateOnly),
			w.End.Format(time.DateOnly),
			w.Label(),
		})
	}
	return rows
}
