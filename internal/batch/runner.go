package batch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode"

	"golang.org/x/sync/errgroup"

	"github.com/wonny/quadrant/internal/classifier"
	"github.com/wonny/quadrant/internal/contracts"
	"github.com/wonny/quadrant/internal/normalize"
	"github.com/wonny/quadrant/pkg/logger"
)

// Fetch outcomes reported to the Recorder
const (
	OutcomeOK     = "ok"
	OutcomeNoData = "no_data"
	OutcomeError  = "error"
	OutcomeSkip   = "skipped"
)

// Recorder receives batch telemetry
type Recorder interface {
	ObserveFetch(source, outcome string, d time.Duration)
	ObserveResult(q contracts.Quadrant)
	ObserveBatch(size int)
}

type nopRecorder struct{}

func (nopRecorder) ObserveFetch(string, string, time.Duration) {}
func (nopRecorder) ObserveResult(contracts.Quadrant)           {}
func (nopRecorder) ObserveBatch(int)                           {}

// Runner classifies a list of symbols against one data source
// ⭐ SSOT: 심볼 배치 분류는 여기서만
type Runner struct {
	source     contracts.DataSource
	classifier *classifier.Classifier
	logger     *logger.Logger
	recorder   Recorder
	workers    int
}

// Option configures a Runner
type Option func(*Runner)

// WithWorkers bounds concurrent fetches. Values below 1 mean sequential.
func WithWorkers(n int) Option {
	return func(r *Runner) {
		if n < 1 {
			n = 1
		}
		r.workers = n
	}
}

// WithRecorder sets the telemetry sink
func WithRecorder(rec Recorder) Option {
	return func(r *Runner) {
		if rec != nil {
			r.recorder = rec
		}
	}
}

// NewRunner creates a sequential runner unless WithWorkers says otherwise
func NewRunner(src contracts.DataSource, c *classifier.Classifier, log *logger.Logger, opts ...Option) *Runner {
	if c == nil {
		c = classifier.Default()
	}
	r := &Runner{
		source:     src,
		classifier: c,
		logger:     log,
		recorder:   nopRecorder{},
		workers:    1,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Classifier returns the classifier in use
func (r *Runner) Classifier() *classifier.Classifier { return r.classifier }

// WithClassifier returns a copy of the runner that classifies with c
func (r *Runner) WithClassifier(c *classifier.Classifier) *Runner {
	cp := *r
	cp.classifier = c
	return &cp
}

// Source returns the data source in use
func (r *Runner) Source() contracts.DataSource { return r.source }

// Run classifies every symbol. The result has the same length and order as symbols.
func (r *Runner) Run(ctx context.Context, symbols []string) []contracts.ClassificationResult {
	results := make([]contracts.ClassificationResult, len(symbols))
	r.Stream(ctx, symbols, func(i int, res contracts.ClassificationResult) {
		results[i] = res
	})
	return results
}

// Stream classifies every symbol and calls fn once per symbol as results become ready.
// With more than one worker fn may see indexes out of order; calls are never concurrent.
func (r *Runner) Stream(ctx context.Context, symbols []string, fn func(index int, res contracts.ClassificationResult)) {
	start := time.Now()
	r.recorder.ObserveBatch(len(symbols))

	var mu sync.Mutex
	emit := func(i int, res contracts.ClassificationResult) {
		r.recorder.ObserveResult(res.Quadrant)
		mu.Lock()
		defer mu.Unlock()
		fn(i, res)
	}

	if r.workers <= 1 {
		for i, sym := range symbols {
			emit(i, r.classifyOne(ctx, sym))
		}
	} else {
		g := new(errgroup.Group)
		g.SetLimit(r.workers)
		for i, sym := range symbols {
			g.Go(func() error {
				emit(i, r.classifyOne(ctx, sym))
				return nil
			})
		}
		_ = g.Wait()
	}

	r.logger.WithFields(map[string]interface{}{
		"symbols":  len(symbols),
		"source":   r.source.Name(),
		"workers":  r.workers,
		"duration": time.Since(start).String(),
	}).Info("Batch classified")
}

// classifyOne never fails: every problem becomes a not-classified result
func (r *Runner) classifyOne(ctx context.Context, symbol string) contracts.ClassificationResult {
	symbol = normalizeSymbol(symbol)
	if symbol == "" {
		r.recorder.ObserveFetch(r.source.Name(), OutcomeSkip, 0)
		return r.notClassified(symbol, errors.New("empty symbol"))
	}

	if err := ctx.Err(); err != nil {
		r.recorder.ObserveFetch(r.source.Name(), OutcomeSkip, 0)
		return r.notClassified(symbol, err)
	}

	start := time.Now()
	obs, err := r.fetch(ctx, symbol)
	elapsed := time.Since(start)

	switch {
	case err == nil && obs == nil:
		err = contracts.ErrNoData
		fallthrough
	case errors.Is(err, contracts.ErrNoData):
		r.recorder.ObserveFetch(r.source.Name(), OutcomeNoData, elapsed)
		r.logger.WithField("symbol", symbol).Debug("No data for symbol")
		return r.notClassified(symbol, err)
	case err != nil:
		r.recorder.ObserveFetch(r.source.Name(), OutcomeError, elapsed)
		r.logger.WithError(err).WithField("symbol", symbol).Warn("Fetch failed")
		return r.notClassified(symbol, err)
	}

	r.recorder.ObserveFetch(r.source.Name(), OutcomeOK, elapsed)

	res := r.classifier.Result(symbol, normalize.Metrics(obs))
	res.Source = obs.Source
	return res
}

// fetch calls the adapter, turning a panic into an error
func (r *Runner) fetch(ctx context.Context, symbol string) (obs *contracts.RawObservation, err error) {
	defer func() {
		if p := recover(); p != nil {
			obs = nil
			err = fmt.Errorf("data source panic: %v", p)
		}
	}()
	return r.source.Fetch(ctx, symbol)
}

func (r *Runner) notClassified(symbol string, err error) contracts.ClassificationResult {
	res := r.classifier.Result(symbol, contracts.FinancialMetrics{})
	if err != nil {
		res.Error = err.Error()
	}
	return res
}

// NormalizeSymbols trims and uppercases each symbol, keeping order and duplicates
func NormalizeSymbols(symbols []string) []string {
	out := make([]string, len(symbols))
	for i, s := range symbols {
		out[i] = normalizeSymbol(s)
	}
	return out
}

// ParseSymbolList splits "TCS, infy HDFCBANK" into normalized symbols, dropping empty tokens
func ParseSymbolList(list string) []string {
	fields := strings.FieldsFunc(list, func(r rune) bool {
		return r == ',' || r == ';' || unicode.IsSpace(r)
	})
	return NormalizeSymbols(fields)
}

func normalizeSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
