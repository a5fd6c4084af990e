package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jonesrussell/rankrecon/internal/config"
	"github.com/jonesrussell/rankrecon/internal/sink"
)

func newClicksCommand(g *globalFlags) *cobra.Command {
	var anchor string

	cmd := &cobra.Command{
		Use:   "clicks",
		Short: "Normalize and bucket the click sheets into " + sink.ClicksFile,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := parseDate("anchor", anchor)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			app, err := g.setup(ctx, "clicks", validateClicks)
			if err != nil {
				return err
			}
			defer app.Close()

			res, err := app.ClicksPipeline().Clicks(ctx, a)
			if err != nil {
				return err
			}
			if err = app.FileSink().WriteClicks(res.Clicks); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "wrote %d click buckets to %s\n",
				len(res.Clicks), filepath.Join(app.Config.Output.Dir, sink.ClicksFile))
			return err
		},
	}
	cmd.Flags().StringVar(&anchor, "anchor", "", "anchor date YYYY-MM-DD (default today)")
	return cmd
}

func validateClicks(cfg *config.Config) error {
	if cfg.Sources.InHouseClicks == "" || cfg.Sources.SerpClixClicks == "" {
		return &config.ValidationError{Field: "sources", Message: "in_house_clicks and serpclix_clicks are required"}
	}
	return nil
}
