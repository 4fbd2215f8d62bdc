package source

import (
	"fmt"

	"github.com/wonny/quadrant/internal/contracts"
	"github.com/wonny/quadrant/pkg/config"
	"github.com/wonny/quadrant/pkg/httputil"
	"github.com/wonny/quadrant/pkg/logger"
	"github.com/wonny/quadrant/pkg/redis"
)

// Build assembles the configured data source with its decorators
// ⭐ SSOT: 데이터 소스 조립은 여기서만
func Build(cfg *config.Config, httpClient *httputil.Client, cache *redis.Cache, log *logger.Logger) (contracts.DataSource, error) {
	src, err := build(cfg.Source.Kind, cfg, httpClient, log)
	if err != nil {
		return nil, err
	}

	if cache.Enabled() && cfg.Source.Kind != config.SourceStatic {
		src = NewCached(src, cache, cfg.Source.CacheTTL, log)
	}

	log.WithFields(map[string]interface{}{
		"source":  src.Name(),
		"cached":  cache.Enabled(),
		"breaker": cfg.Source.BreakerEnabled,
	}).Info("Data source ready")

	return src, nil
}

func build(kind string, cfg *config.Config, httpClient *httputil.Client, log *logger.Logger) (contracts.DataSource, error) {
	switch kind {
	case config.SourceStatic:
		if cfg.Source.FixturePath == "" {
			return NewStatic(), nil
		}
		return LoadFixture(cfg.Source.FixturePath)

	case config.SourceHTML:
		src := NewHTML(HTMLConfig{
			URLTemplate: cfg.Source.HTMLURLTemplate,
			PELabel:     cfg.Source.HTMLPELabel,
			MarginLabel: cfg.Source.HTMLMarginLabel,
		}, httpClient, log)
		return withBreaker(src, cfg, log), nil

	case config.SourceJSONAPI:
		src := NewJSONAPI(JSONAPIConfig{
			URLTemplate:  cfg.Source.JSONURLTemplate,
			PEPath:       cfg.Source.JSONPEPath,
			MarginPath:   cfg.Source.JSONMarginPath,
			APIKey:       cfg.Source.APIKey,
			APIKeyHeader: cfg.Source.APIKeyHeader,
			APIKeyParam:  cfg.Source.APIKeyParam,
		}, httpClient, log)
		return withBreaker(src, cfg, log), nil

	case config.SourceChain:
		sources := make([]contracts.DataSource, 0, len(cfg.Source.Chain))
		for _, k := range cfg.Source.Chain {
			if k == config.SourceChain {
				return nil, fmt.Errorf("source chain cannot nest %q", k)
			}
			s, err := build(k, cfg, httpClient, log)
			if err != nil {
				return nil, fmt.Errorf("build chain member %s: %w", k, err)
			}
			sources = append(sources, s)
		}
		return NewChain(log, sources...), nil

	default:
		return nil, fmt.Errorf("unknown source kind %q", kind)
	}
}

func withBreaker(src contracts.DataSource, cfg *config.Config, log *logger.Logger) contracts.DataSource {
	if !cfg.Source.BreakerEnabled {
		return src
	}
	return NewBreaker(src, DefaultBreakerSettings(), log)
}
