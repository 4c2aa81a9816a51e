package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"tarjomic-watch/internal/components/telemetry"
	"tarjomic-watch/internal/marketplace"
	"tarjomic-watch/internal/notify"
	"tarjomic-watch/lib/restyutil"
	"tarjomic-watch/lib/serviceutil"
	libtelemetry "tarjomic-watch/lib/telemetry"
	"time"

	"github.com/mazen160/go-random"
	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool
)

var otelProviders libtelemetry.Telemetry

var rootCmd = &cobra.Command{
	Use:   "tarjomic-watch",
	Short: "tarjomic-watch logs into the translation marketplace and reports new orders.",
	// errors returned by a command are run failures, not usage mistakes
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		runId, err := random.String(8)
		if err != nil {
			runId = "unknown"
		}
		libtelemetry.InitSlog(verbose, "run", runId)

		otelProviders, err = libtelemetry.SetupFromEnv(cmd.Context(), "tarjomic-watch")
		if err != nil {
			slog.Warn("failed to setup telemetry, continuing without it", "err", err)
		}

		if verbose {
			out, err := restyutil.NewFilesystemOutput("<dev_state>/resty/marketplace")
			if err != nil {
				slog.Warn("http dumps disabled", "err", err)
				return
			}
			marketplace.SetRestyInstrumentOutput(out)
			notify.SetRestyInstrumentOutput(out)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.json5", "path to the config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logs and http dumps")
}

func tel() telemetry.API {
	return telemetry.SlogAPI{}
}

// flushTelemetry exports whatever spans and metrics are still buffered.
func flushTelemetry() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := otelProviders.Shutdown(ctx)
	if err != nil {
		slog.Warn("failed to flush telemetry", "err", err)
	}
}

// execute runs `cmd` and flushes telemetry afterwards, including when the command
// failed (cobra skips post run hooks then).
func execute(ctx context.Context, cmd *cobra.Command) error {
	defer flushTelemetry()
	return cmd.ExecuteContext(ctx)
}

func Execute() {
	if err := execute(serviceutil.SignalContext(), rootCmd); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
