package commands

import (
	"sync"
	"tarjomic-watch/internal/components/chrono"
	"tarjomic-watch/lib/serviceutil"
	libtelemetry "tarjomic-watch/lib/telemetry"
	"time"

	"github.com/spf13/cobra"
)

var skipFirst bool

func init() {
	watchCmd.Flags().BoolVar(&skipFirst, "skip-first", false, "wait for the first scheduled tick instead of checking right away")
	rootCmd.AddCommand(watchCmd)
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Checks every account on the configured cron schedule until interrupted.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		config := mustLoadConfig()

		store, closeStore, err := openStore(config.State, tel())
		if err != nil {
			serviceutil.Fatal("failed to open order state", err)
		}
		defer closeStore()

		clock, err := chrono.NewStandardImpl(config.Schedule.Timezone)
		if err != nil {
			serviceutil.Fatal("failed to load schedule timezone", err)
		}

		libtelemetry.InstrumentPerfStats(ctx, 15*time.Second)

		p := newPipeline(config, store, tel())
		var running sync.Mutex
		check := func() {
			if !running.TryLock() {
				tel().ReportWarning("watch", "previous check is still running, skipping this one")
				return
			}
			defer running.Unlock()
			if ctx.Err() != nil {
				return
			}
			_, err := runOnce(ctx, p, store)
			if err != nil {
				tel().ReportBroken("watch", err)
			}
		}

		cron := chrono.NewStandardCron(tel(), clock)
		err = cron.Cron(config.Schedule.Cron, check)
		if err != nil {
			serviceutil.Fatal("invalid cron schedule", err)
		}
		tel().ReportInfo("watching", config.Schedule.Cron, clock.Location().String())

		if !skipFirst {
			go check()
		}

		<-ctx.Done()
		<-cron.Stop()
		running.Lock()
		running.Unlock()
	},
}
