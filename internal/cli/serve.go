package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/PatelGH0512/stocklabs/internal/alerts"
	"github.com/PatelGH0512/stocklabs/internal/api"
	"github.com/PatelGH0512/stocklabs/internal/digest"
	"github.com/PatelGH0512/stocklabs/internal/events"
)

func newServeCmd(app *App) *cobra.Command {
	var digestHour int
	var enableDigest bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the API server and background jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			bus := events.NewBus()

			evaluator := alerts.NewEvaluator(app.Store, app.Market, app.Notifier, app.Logger, app.Config.Alerts.BatchLimit)
			scheduler := alerts.NewScheduler(evaluator, bus, app.Config.Alerts.Interval, app.Logger)
			scheduler.Start(ctx)
			app.Logger.Info().
				Dur("interval", app.Config.Alerts.Interval).
				Int("batch_limit", app.Config.Alerts.BatchLimit).
				Msg("alert scheduler started")

			if enableDigest {
				job := digest.NewJob(app.Store, app.Market, app.Generator, app.Notifier, app.Logger)
				job.Start(ctx, digestHour)
				app.Logger.Info().Int("hour_utc", digestHour).Msg("news digest job started")
			}

			server := api.NewServer(app.Config.Server, app.Store, app.Market, bus, app.Generator, app.Logger)
			return server.Run(ctx)
		},
	}

	cmd.Flags().BoolVar(&enableDigest, "digest", false, "enable the daily news digest job")
	cmd.Flags().IntVar(&digestHour, "digest-hour", 12, "UTC hour for the daily news digest")

	return cmd
}
