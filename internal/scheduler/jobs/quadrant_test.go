package jobs

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/quadrant/internal/batch"
	"github.com/wonny/quadrant/internal/contracts"
	"github.com/wonny/quadrant/internal/source"
	"github.com/wonny/quadrant/pkg/logger"
)

func TestQuadrantJob_RunAndExport(t *testing.T) {
	src := source.NewStatic(
		contracts.RawObservation{Symbol: "TCS", PERatioText: "28", NetMarginText: "21.5"},
		contracts.RawObservation{Symbol: "COALINDIA", PERatioText: "9", NetMarginText: "25.3"},
	)
	runner := batch.NewRunner(src, nil, logger.Nop())
	path := filepath.Join(t.TempDir(), "watch.csv")

	job := NewQuadrantJob(runner, []string{"tcs", "coalindia", "missing"}, "@hourly", path, logger.Nop())
	assert.Equal(t, "quadrant_refresh", job.Name())
	assert.Equal(t, "@hourly", job.Schedule())
	assert.Nil(t, job.Last())

	require.NoError(t, job.Run(context.Background()))

	last := job.Last()
	require.Len(t, last, 3)
	assert.Equal(t, contracts.QuadrantQ4, last[0].Quadrant)
	assert.Equal(t, contracts.QuadrantQ3, last[1].Quadrant)
	assert.Equal(t, contracts.QuadrantNotClassified, last[2].Quadrant)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[1], "TCS,28,21.5,Q4"))

	// second run diffs against the first
	require.NoError(t, job.Run(context.Background()))
	assert.Len(t, job.Last(), 3)
}

func TestQuadrantJob_ExportError(t *testing.T) {
	runner := batch.NewRunner(source.NewStatic(), nil, logger.Nop())
	job := NewQuadrantJob(runner, []string{"TCS"}, "@hourly", filepath.Join(t.TempDir(), "no", "such", "dir.csv"), logger.Nop())

	assert.Error(t, job.Run(context.Background()))
}

func TestQuadrantJob_NoExport(t *testing.T) {
	runner := batch.NewRunner(source.NewStatic(), nil, logger.Nop())
	job := NewQuadrantJob(runner, []string{"TCS"}, "@hourly", "", logger.Nop())

	require.NoError(t, job.Run(context.Background()))
	assert.Len(t, job.Last(), 1)
}
