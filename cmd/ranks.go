package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonesrussell/rankrecon/internal/bootstrap"
	"github.com/jonesrussell/rankrecon/internal/logger"
	"github.com/jonesrussell/rankrecon/internal/ranktracker"
	"github.com/jonesrussell/rankrecon/internal/sink"
)

func newRanksCommand(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ranks",
		Short: "Archive and merge rank-tracker exports",
	}
	cmd.AddCommand(newRanksImportCommand(g), newRanksMergeCommand(g))
	return cmd
}

func newRanksImportCommand(g *globalFlags) *cobra.Command {
	var (
		tracker string
		date    string
	)

	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Archive one rank-tracker export under its scrape date",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			day, err := parseDate("date", date)
			if err != nil {
				return err
			}
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			log, err := bootstrap.SetupLogger(cfg, "ranks import")
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			path, err := ranktracker.Import(args[0], cfg.Ranks.ArchiveDir, tracker, day)
			if err != nil {
				return err
			}
			log.Info("Archived rank export",
				logger.String("tracker_id", tracker),
				logger.String("source", args[0]),
				logger.String("archive", path),
			)
			_, err = fmt.Fprintln(cmd.OutOrStdout(), path)
			return err
		},
	}
	cmd.Flags().StringVar(&tracker, "tracker", "", "rank tracker id")
	cmd.Flags().StringVar(&date, "date", "", "scrape date YYYY-MM-DD (default today)")
	_ = cmd.MarkFlagRequired("tracker")
	return cmd
}

func newRanksMergeCommand(g *globalFlags) *cobra.Command {
	var tracker string

	cmd := &cobra.Command{
		Use:   "merge",
		Short: "Merge every archived export of a tracker into " + sink.MergedRanksFile,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			log, err := bootstrap.SetupLogger(cfg, "ranks merge")
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			entries, err := ranktracker.Merge(cfg.Ranks.ArchiveDir, tracker)
			if err != nil {
				return err
			}
			h := ranktracker.Pivot(tracker, entries, nil)

			out := sink.NewFile(cfg.Output.Dir, cfg.Output.Delimiter)
			path, err := out.WriteHistory(sink.MergedRanksFile, h)
			if err != nil {
				return err
			}
			log.Info("Merged rank history",
				logger.String("tracker_id", tracker),
				logger.Int("keywords", len(h.Rows)),
				logger.Int("dates", len(h.Dates)),
				logger.String("path", path),
			)
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "wrote %d keywords across %d dates to %s\n",
				len(h.Rows), len(h.Dates), path)
			return err
		},
	}
	cmd.Flags().StringVar(&tracker, "tracker", "", "rank tracker id")
	_ = cmd.MarkFlagRequired("tracker")
	return cmd
}
