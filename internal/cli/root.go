// Package cli provides the command-line interface for the stocklabs service.
package cli

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/PatelGH0512/stocklabs/internal/commentary"
	"github.com/PatelGH0512/stocklabs/internal/config"
	"github.com/PatelGH0512/stocklabs/internal/logging"
	"github.com/PatelGH0512/stocklabs/internal/market"
	"github.com/PatelGH0512/stocklabs/internal/notify"
	"github.com/PatelGH0512/stocklabs/internal/store"
)

// Version information
const (
	Version = "0.1.0"
)

// App holds the application dependencies.
type App struct {
	Config    *config.Config
	Logger    zerolog.Logger
	Store     store.DataStore
	Market    *market.Client
	Notifier  *notify.MultiNotifier
	Generator *commentary.Generator
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(cfg *config.Config, logger zerolog.Logger) *cobra.Command {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	rootCmd := &cobra.Command{
		Use:   "stocklabs",
		Short: "StockLabs - market data dashboard backend",
		Long: `StockLabs serves the dashboard API (quotes, news, search, holdings,
watchlists, alerts) and runs the price alert evaluation job on a fixed
schedule and on alert creation.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			debug, _ := cmd.Flags().GetBool("debug")
			if debug {
				logging.SetDebugLevel()
				app.Logger = app.Logger.Level(zerolog.DebugLevel)
			}
			return app.initDependencies()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if app.Store != nil {
				app.Store.Close()
			}
		},
	}

	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	rootCmd.AddCommand(newServeCmd(app))
	rootCmd.AddCommand(newEvaluateCmd(app))
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

// initDependencies wires the store, market client, and notifier.
func (a *App) initDependencies() error {
	dataStore, err := store.NewSQLiteStore(a.Config.Database.Path)
	if err != nil {
		return fmt.Errorf("initializing store: %w", err)
	}
	a.Store = dataStore
	a.Logger.Debug().Str("path", a.Config.Database.Path).Msg("SQLite store initialized")

	a.Market = market.NewClient(a.Config.Market, a.Logger)
	if !a.Market.Configured() {
		a.Logger.Warn().Msg("market API key not configured; quotes and alert evaluation unavailable")
	}

	a.Notifier = notify.NewMultiNotifier(a.Config.Mail, a.Config.Notifications)

	var llm commentary.LLMClient
	if a.Config.Commentary.APIKey != "" {
		llm = commentary.NewOpenAIClient(a.Config.Commentary)
		a.Logger.Debug().Str("model", a.Config.Commentary.Model).Msg("LLM client initialized")
	}
	a.Generator = commentary.NewGenerator(llm)

	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("stocklabs %s\n", Version)
		},
	}
}
