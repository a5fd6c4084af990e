// Package cmd implements the rankrecon command-line interface.
package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonesrussell/rankrecon/internal/bootstrap"
	"github.com/jonesrussell/rankrecon/internal/config"
)

// globalFlags are the persistent flags shared by every subcommand.
type globalFlags struct {
	configPath string
	debug      bool
}

// NewRootCommand builds the rankrecon command tree.
func NewRootCommand() *cobra.Command {
	g := &globalFlags{}

	root := &cobra.Command{
		Use:   "rankrecon",
		Short: "Search ranking and click reconciliation reports",
		Long: `rankrecon joins Search Console analytics with simulated click logs,
buckets both into rolling date windows and writes a wide ranking report.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	root.PersistentFlags().StringVar(&g.configPath, "config", "",
		"config file (default is $CONFIG_PATH or ./"+config.DefaultPath+")")
	root.PersistentFlags().BoolVar(&g.debug, "debug", false, "enable debug logging")

	root.AddCommand(
		newReportCommand(g),
		newClicksCommand(g),
		newRanksCommand(g),
		newWindowsCommand(),
		newShowCommand(g),
		newServeCommand(g),
		newMigrateCommand(g),
		newVersionCommand(g),
	)
	return root
}

// Execute runs the command tree with ctx.
func Execute(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}

// loadConfig reads and validates the configuration, applying --debug.
func (g *globalFlags) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(config.ResolvePath(g.configPath, config.DefaultPath))
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if g.debug {
		cfg.Service.Debug = true
		cfg.Logging.Level = "debug"
	}
	if err = cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// setup builds the logger and backends for command. validate runs extra
// command-specific checks before anything connects.
func (g *globalFlags) setup(ctx context.Context, command string, validate func(*config.Config) error) (*bootstrap.App, error) {
	cfg, err := g.loadConfig()
	if err != nil {
		return nil, err
	}
	if validate != nil {
		if err = validate(cfg); err != nil {
			return nil, fmt.Errorf("invalid config: %w", err)
		}
	}

	log, err := bootstrap.SetupLogger(cfg, command)
	if err != nil {
		return nil, err
	}
	return bootstrap.New(ctx, cfg, log)
}

// parseDate parses a YYYY-MM-DD flag value. An empty value is today in UTC.
func parseDate(flag, value string) (time.Time, error) {
	if value == "" {
		return time.Now().UTC(), nil
	}
	t, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("--%s must be YYYY-MM-DD: %w", flag, err)
	}
	return t, nil
}

func newVersionCommand(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(config.ResolvePath(g.configPath, config.DefaultPath))
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", cfg.Service.Name, cfg.Service.Version)
			return err
		},
	}
}
