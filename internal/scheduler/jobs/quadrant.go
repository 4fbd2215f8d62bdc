package jobs

import (
	"context"
	"fmt"
	"sync"

	"github.com/wonny/quadrant/internal/batch"
	"github.com/wonny/quadrant/internal/contracts"
	"github.com/wonny/quadrant/internal/report"
	"github.com/wonny/quadrant/pkg/logger"
)

// QuadrantJob re-classifies a watchlist on a schedule
// ⭐ SSOT: 워치리스트 주기 분류는 여기서만
type QuadrantJob struct {
	runner     *batch.Runner
	symbols    []string
	schedule   string
	exportPath string
	logger     *logger.Logger

	mu   sync.RWMutex
	last []contracts.ClassificationResult
}

// NewQuadrantJob creates a watchlist job. An empty exportPath skips the export.
func NewQuadrantJob(runner *batch.Runner, symbols []string, schedule, exportPath string, log *logger.Logger) *QuadrantJob {
	return &QuadrantJob{
		runner:     runner,
		symbols:    batch.NormalizeSymbols(symbols),
		schedule:   schedule,
		exportPath: exportPath,
		logger:     log,
	}
}

// Name implements scheduler.Job
func (j *QuadrantJob) Name() string { return "quadrant_refresh" }

// Schedule implements scheduler.Job
func (j *QuadrantJob) Schedule() string { return j.schedule }

// Run implements scheduler.Job.
// Per-symbol failures are part of the results; only export errors fail the job.
func (j *QuadrantJob) Run(ctx context.Context) error {
	results := j.runner.Run(ctx, j.symbols)

	j.mu.Lock()
	prev := j.last
	j.last = results
	j.mu.Unlock()

	if prev != nil {
		for _, c := range report.Diff(prev, results) {
			j.logger.WithFields(map[string]interface{}{
				"symbol": c.Symbol,
				"from":   string(c.From),
				"to":     string(c.To),
			}).Info("Quadrant changed")
		}
	}

	counts := report.Counts(results)
	fields := make(map[string]interface{}, len(counts)+1)
	for q, n := range counts {
		fields[string(q)] = n
	}
	fields["symbols"] = len(results)
	j.logger.WithFields(fields).Info("Watchlist classified")

	if j.exportPath == "" {
		return nil
	}
	if err := report.WriteFile(j.exportPath, results); err != nil {
		return fmt.Errorf("export %s: %w", j.exportPath, err)
	}
	return nil
}

// Last returns the results of the most recent run, nil before the first run
func (j *QuadrantJob) Last() []contracts.ClassificationResult {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.last
}
