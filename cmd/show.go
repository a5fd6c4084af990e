package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonesrussell/rankrecon/internal/config"
	"github.com/jonesrussell/rankrecon/internal/domain"
	"github.com/jonesrussell/rankrecon/internal/sink"
	"github.com/jonesrussell/rankrecon/internal/table"
)

const defaultShowLimit = 50

var errShowArgs = errors.New("show needs a FILE argument or --latest")

func newShowCommand(g *globalFlags) *cobra.Command {
	var (
		latest bool
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "show [FILE]",
		Short: "Print a report file or the latest stored run",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if latest == (len(args) == 1) {
				return errShowArgs
			}
			if limit <= 0 {
				limit = defaultShowLimit
			}
			if latest {
				return g.showLatest(cmd, limit)
			}
			return showFile(cmd, args[0], limit)
		},
	}
	cmd.Flags().BoolVar(&latest, "latest", false, "show the newest run from the report store")
	cmd.Flags().IntVar(&limit, "limit", defaultShowLimit, "maximum rows to print")
	return cmd
}

func showFile(cmd *cobra.Command, path string, limit int) error {
	t, err := table.ReadFile(path)
	if err != nil {
		return err
	}
	records := t.Records()
	rows := records[1:]
	if len(rows) > limit {
		rows = rows[:limit]
	}
	renderTable(cmd.OutOrStdout(), records[0], rows)
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "%d of %d rows\n", len(rows), t.Len())
	return err
}

func (g *globalFlags) showLatest(cmd *cobra.Command, limit int) error {
	ctx := cmd.Context()
	app, err := g.setup(ctx, "show", requireDatabase)
	if err != nil {
		return err
	}
	defer app.Close()

	run, err := app.Store.LatestRun(ctx)
	if err != nil {
		return err
	}
	rows, err := app.Store.ListRows(ctx, run.ID, limit, 0)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(w, "run %s  anchor %s  status %s  rows %d\n",
		run.ID, run.Anchor.Format("2006-01-02"), run.Status, run.RowCount)
	renderTable(w, domain.ReportHeader, sink.ReportRecords(rows))
	return nil
}

func requireDatabase(cfg *config.Config) error {
	if !cfg.Database.Enabled {
		return &config.ValidationError{Field: "database.enabled", Message: "must be true for this command"}
	}
	return nil
}
