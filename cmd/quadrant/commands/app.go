package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/quadrant/internal/batch"
	"github.com/wonny/quadrant/internal/classifier"
	"github.com/wonny/quadrant/internal/metrics"
	"github.com/wonny/quadrant/internal/source"
	"github.com/wonny/quadrant/internal/thresholdconfig"
	"github.com/wonny/quadrant/pkg/config"
	"github.com/wonny/quadrant/pkg/httputil"
	"github.com/wonny/quadrant/pkg/logger"
	"github.com/wonny/quadrant/pkg/redis"
)

// app holds everything a command needs, wired from config
type app struct {
	cfg        *config.Config
	log        *logger.Logger
	redis      *redis.Client
	recorder   *metrics.Recorder // nil when metrics are disabled
	classifier *classifier.Classifier
	runner     *batch.Runner
}

// loadConfig reads env config and applies global flags on top
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.LoadFrom(configFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if env != "" {
		switch env {
		case "development", "staging", "production":
			cfg.Env = env
		default:
			return nil, fmt.Errorf("--env must be one of: development, staging, production")
		}
	}
	if verbose {
		cfg.LogLevel = "debug"
	}

	flags := cmd.Flags()
	if flags.Changed("preset") {
		cfg.Thresholds.Preset = presetFlag
	}
	if flags.Changed("margin") {
		v := marginFlag
		cfg.Thresholds.MarginPct = &v
	}
	if flags.Changed("multiple") {
		v := multipleFlag
		cfg.Thresholds.Multiple = &v
	}

	return cfg, nil
}

// newApp wires config, logger, source, classifier and runner
func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	log := logger.New(cfg)

	// Thresholds: fatal on any invalid value
	thresholds, err := thresholdconfig.Resolve(cfg.Thresholds)
	if err != nil {
		return nil, fmt.Errorf("resolve thresholds: %w", err)
	}
	c, err := classifier.New(thresholds)
	if err != nil {
		return nil, err
	}
	hash, err := thresholdconfig.Hash(thresholds)
	if err != nil {
		return nil, fmt.Errorf("hash thresholds: %w", err)
	}

	log.WithFields(map[string]interface{}{
		"margin_pct": thresholds.MarginPct,
		"multiple":   thresholds.Multiple,
		"hash":       hash,
	}).Info("Thresholds loaded")

	// Redis is optional; disabled means no cache and no shared rate limit
	rdb, err := redis.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	httpClient := httputil.New(cfg, log)
	if rdb.Enabled() {
		httpClient.WithRateLimiter(
			redis.NewRateLimiter(rdb, "quadrant"),
			redis.SourceRateLimit(cfg.Source.Kind, cfg.HTTP.RequestsPerSecond),
		)
	}

	src, err := source.Build(cfg, httpClient, redis.NewCache(rdb, "quadrant"), log)
	if err != nil {
		rdb.Close()
		return nil, fmt.Errorf("build data source: %w", err)
	}

	opts := []batch.Option{batch.WithWorkers(cfg.Batch.Workers)}

	var rec *metrics.Recorder
	if cfg.MetricsEnabled {
		rec = metrics.NewRecorder()
		opts = append(opts, batch.WithRecorder(rec))
	}

	return &app{
		cfg:        cfg,
		log:        log,
		redis:      rdb,
		recorder:   rec,
		classifier: c,
		runner:     batch.NewRunner(src, c, log, opts...),
	}, nil
}

// Close releases connections
func (a *app) Close() {
	if err := a.redis.Close(); err != nil {
		a.log.WithError(err).Warn("Failed to close redis")
	}
}
