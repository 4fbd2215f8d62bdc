package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/quadrant/internal/batch"
	"github.com/wonny/quadrant/internal/report"
	"github.com/wonny/quadrant/internal/scheduler"
	"github.com/wonny/quadrant/internal/scheduler/jobs"
)

// watchCmd represents the watch command
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-classify a watchlist on a schedule",
	Long: `Runs the watchlist (WATCH_SYMBOLS) through the classifier on a
cron schedule (WATCH_SCHEDULE, six fields with seconds) and logs every
symbol whose quadrant changed since the previous run. When
WATCH_EXPORT_PATH is set each run rewrites that file.

Example:
  go run ./cmd/quadrant watch
  go run ./cmd/quadrant watch --once
  go run ./cmd/quadrant watch --schedule "@every 15m" --symbols TCS,INFY`,
	RunE: runWatch,
}

var (
	watchOnce     bool
	watchSchedule string
	watchSymbols  string
	watchExport   string
)

func init() {
	rootCmd.AddCommand(watchCmd)

	// Flags
	watchCmd.Flags().BoolVar(&watchOnce, "once", false, "run a single refresh, print it and exit")
	watchCmd.Flags().StringVar(&watchSchedule, "schedule", "", "cron schedule (default WATCH_SCHEDULE)")
	watchCmd.Flags().StringVar(&watchSymbols, "symbols", "", "comma separated watchlist (default WATCH_SYMBOLS)")
	watchCmd.Flags().StringVar(&watchExport, "export", "", "export path (default WATCH_EXPORT_PATH)")
}

func runWatch(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	wcfg := a.cfg.Watch
	if watchSchedule != "" {
		wcfg.Schedule = watchSchedule
	}
	if watchSymbols != "" {
		wcfg.Symbols = batch.ParseSymbolList(watchSymbols)
	}
	if watchExport != "" {
		wcfg.ExportPath = watchExport
	}
	if len(wcfg.Symbols) == 0 {
		return fmt.Errorf("watchlist is empty")
	}

	job := jobs.NewQuadrantJob(a.runner, wcfg.Symbols, wcfg.Schedule, wcfg.ExportPath, a.log)

	s := scheduler.New(a.log, scheduler.WithRetry(1, 30*time.Second))
	if err := s.AddJob(job); err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	if watchOnce {
		res, err := s.RunNow(cmd.Context(), job.Name())
		if err != nil {
			return err
		}
		if !res.Success {
			return fmt.Errorf("refresh failed: %s", res.Error)
		}
		return report.WriteTable(out, job.Last())
	}

	// Metrics on their own port so a watcher can be scraped without the API
	var metricsServer *http.Server
	if a.recorder != nil {
		metricsServer = &http.Server{
			Addr:              ":" + a.cfg.MetricsPort,
			Handler:           a.recorder.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.log.WithError(err).Error("Metrics server failed")
			}
		}()
	}

	s.Start()
	PrintSuccess(out, fmt.Sprintf("Watching %d symbols on %q", len(wcfg.Symbols), wcfg.Schedule))
	fmt.Fprintln(out, "\nPress Ctrl+C to stop")

	<-cmd.Context().Done()
	s.Stop()

	if metricsServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(ctx)
	}

	for name, st := range s.GetJobStats() {
		a.log.WithFields(map[string]interface{}{
			"job":          name,
			"total_runs":   st.TotalRuns,
			"success_rate": st.SuccessRate,
		}).Info("Job summary")
	}
	return nil
}
