package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/PatelGH0512/stocklabs/internal/alerts"
)

func newEvaluateCmd(app *App) *cobra.Command {
	var alertID string

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Run one alert evaluation pass and exit",
		Long: `Runs a single evaluation pass over the active alert set, or over one
alert when --alert is given, and prints the summary. Useful for cron-style
deployments and for debugging alert conditions.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			evaluator := alerts.NewEvaluator(app.Store, app.Market, app.Notifier, app.Logger, app.Config.Alerts.BatchLimit)

			summary, err := evaluator.Run(context.Background(), alerts.Trigger{AlertID: alertID})
			if err != nil {
				return fmt.Errorf("evaluation failed: %w", err)
			}

			fmt.Printf("checked: %d\ntriggered: %d\n", summary.Checked, summary.Triggered)
			return nil
		},
	}

	cmd.Flags().StringVar(&alertID, "alert", "", "evaluate a single alert by id")

	return cmd
}
