package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonesrussell/rankrecon/internal/storage"
)

func newMigrateCommand(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:       "migrate up|down",
		Short:     "Apply or roll back the report store migrations",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{storage.DirectionUp, storage.DirectionDown},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			direction := args[0]

			changed, err := storage.Migrate(cfg.Database.MigrateURL(), direction)
			if err != nil {
				return err
			}
			if !changed {
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "Migration %s: no change\n", direction)
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Migration %s completed successfully\n", direction)
			return err
		},
	}
}
