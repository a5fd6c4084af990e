package cmd

import (
	"github.com/spf13/cobra"

	"github.com/jonesrussell/rankrecon/internal/api"
	"github.com/jonesrussell/rankrecon/internal/config"
	"github.com/jonesrussell/rankrecon/internal/logger"
	"github.com/jonesrussell/rankrecon/internal/scheduler"
)

func newServeCommand(g *globalFlags) *cobra.Command {
	var runNow bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve stored runs over HTTP and run the report schedule",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			app, err := g.setup(ctx, "serve", (*config.Config).ValidateServe)
			if err != nil {
				return err
			}
			defer app.Close()
			cfg := app.Config

			if cfg.Schedule.Cron != "" {
				svc, perr := app.ReportPipeline(ctx)
				if perr != nil {
					return perr
				}
				sched, serr := scheduler.New(cfg.Schedule.Cron, svc, app.Log)
				if serr != nil {
					return serr
				}
				sched.Start()
				defer sched.Stop()
				if runNow {
					sched.TriggerAsync()
				}
			} else {
				app.Log.Info("No schedule configured, serving stored runs only")
			}

			srv := api.NewServer(api.Config{
				Port:           cfg.Server.Port,
				Debug:          cfg.Service.Debug,
				ServiceName:    cfg.Service.Name,
				ServiceVersion: cfg.Service.Version,
			}, app.RunReader(), app.HealthChecks(), app.Metrics, app.Log)

			if err = srv.Run(ctx); err != nil {
				app.Log.Error("Server stopped with error", logger.Error(err))
				return err
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&runNow, "run-now", false, "trigger one report run at startup")
	return cmd
}
