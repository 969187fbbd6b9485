package commands

import (
	"cyclecast/internal/config"
	"cyclecast/internal/forecast"
	"cyclecast/internal/linear"
	"cyclecast/internal/logging"
	"cyclecast/internal/mcp"
	"cyclecast/internal/metrics"
	"cyclecast/internal/store"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	// Version, Commit, and BuildDate are set at build time via ldflags.
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"

	verbose bool
	cfg     *config.AppConfig

	db            *store.DB
	trackerClient linear.Client
)

var rootCmd = &cobra.Command{
	Use:   "cyclecast",
	Short: "Cyclecast derives sprint metrics and Monte Carlo delivery forecasts from Linear data",
	Long: `Cyclecast syncs issues, cycles, and state history from Linear into a local SQLite
database, derives cycle/user/daily performance metrics, and runs Monte Carlo
simulations to forecast completion dates, tracking how well past forecasts
matched reality. The root command serves the results over an MCP stdio loop.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Init(verbose)

		var err error
		cfg, err = config.Load()
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to load configuration")
		}

		db, err = store.Open(cfg.DataPath)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to open entity store")
		}

		trackerClient = linear.NewClient(cfg.Linear)

		log.Info().
			Str("version", Version).
			Str("commit", Commit).
			Str("buildDate", BuildDate).
			Str("db", db.Path()).
			Msg("Cyclecast starting")
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if db != nil {
			if err := db.Close(); err != nil {
				log.Warn().Err(err).Msg("Failed to close entity store")
			}
		}
	},
	Run: func(cmd *cobra.Command, args []string) {
		log.Info().Msg("MCP Server starting Stdio loop")
		server := mcp.NewServer(db, newSyncer(), newAggregator(), newSimulator())
		if err := server.Serve(); err != nil {
			log.Fatal().Err(err).Msg("Server terminated")
		}
	},
}

func newSyncer() *linear.Syncer {
	return linear.NewSyncer(trackerClient, db, linear.SyncOptions{
		BlockedStates:         cfg.BlockedStates,
		DefaultCapacityHours:  cfg.DefaultCapacityHours,
		DefaultCapacityPoints: cfg.DefaultCapacityPoints,
	})
}

func newAggregator() *metrics.Aggregator {
	return metrics.NewAggregator(db, nil)
}

func newSimulator() *forecast.Simulator {
	sim := forecast.NewSimulator(db, nil)
	sim.SetDefaults(cfg.SimulationCount, cfg.SimulationBatchSize)
	return sim
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
}
