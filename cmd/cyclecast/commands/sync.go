package commands

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run a one-shot tracker sync and recompute all derived metrics",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := newSyncer().Run(); err != nil {
			return err
		}
		if err := newAggregator().Run(); err != nil {
			return err
		}
		log.Info().Msg("Sync and aggregation complete")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
}
