package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"pricing-engine/internal/scheduler"
)

var (
	scheduleRunNow  bool
	scheduleRetries int
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run the pipeline on the cron schedule and serve the read API",
	Long: `Runs the daily pipeline on SCHEDULE_CRON (six fields, seconds first;
default 02:30 UTC). A tick that fires while the previous run is still
in progress is skipped. The read API and /metrics are served on HTTP_ADDR.`,
	RunE: runSchedule,
}

func init() {
	rootCmd.AddCommand(scheduleCmd)

	scheduleCmd.Flags().BoolVar(&scheduleRunNow, "run-now", false, "Run once immediately on start")
	scheduleCmd.Flags().IntVar(&scheduleRetries, "retries", 0, "Retries after a failed run (0 disables)")
	scheduleCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default HTTP_ADDR)")
}

func runSchedule(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := openStores(ctx)
	if err != nil {
		return err
	}
	defer s.close()

	daily, err := buildPipeline(s)
	if err != nil {
		return err
	}

	sched, err := scheduler.New(scheduler.PipelineJob{Daily: daily}, cfg.Pipeline.Schedule, logger,
		scheduler.WithRetries(scheduleRetries, time.Minute))
	if err != nil {
		return err
	}
	sched.Start()
	if scheduleRunNow {
		go sched.Trigger()
	}

	return serveUntilDone(ctx, newAPIServer(s), sched.Stop)
}
