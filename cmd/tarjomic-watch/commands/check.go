package commands

import (
	"context"
	"fmt"
	"tarjomic-watch/internal/orderstore"
	"tarjomic-watch/internal/pipeline"
	"tarjomic-watch/lib/serviceutil"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(checkCmd)
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Checks every account once and notifies about new orders.",
	RunE: func(cmd *cobra.Command, args []string) error {
		config := mustLoadConfig()

		store, closeStore, err := openStore(config.State, tel())
		if err != nil {
			serviceutil.Fatal("failed to open order state", err)
		}
		defer closeStore()

		_, err = runOnce(cmd.Context(), newPipeline(config, store, tel()), store)
		return err
	},
}

func mustLoadConfig() Config {
	config, err := LoadConfig(configPath)
	if err != nil {
		serviceutil.Fatal("failed to read config", err)
	}
	err = config.Validate()
	if err != nil {
		serviceutil.Fatal("invalid config", err)
	}
	return config
}

// runOnce reloads the store so edits made between runs are picked up, then runs the
// pipeline. Nothing runs when the store could not be loaded.
func runOnce(ctx context.Context, p pipeline.Pipeline, store *orderstore.Store) ([]pipeline.Result, error) {
	err := store.Load(ctx)
	if err != nil {
		return nil, err
	}
	results, err := p.Run(ctx)
	for _, r := range results {
		if r.Stage == pipeline.StageFailed {
			tel().ReportWarning("check", fmt.Errorf("%s failed while %s: %w", r.Account, r.FailedAt, r.Err))
			continue
		}
		tel().ReportDebug("account checked", r.Account, r.Fetched, len(r.New))
	}
	return results, err
}
