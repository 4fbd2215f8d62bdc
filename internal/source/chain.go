package source

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/wonny/quadrant/internal/contracts"
	"github.com/wonny/quadrant/internal/normalize"
	"github.com/wonny/quadrant/pkg/logger"
)

// Chain queries sources in order and fills each field from the first source that has it
// ⭐ SSOT: 멀티 소스 폴백은 여기서만
type Chain struct {
	sources []contracts.DataSource
	logger  *logger.Logger
}

// NewChain creates a fallback chain
func NewChain(log *logger.Logger, sources ...contracts.DataSource) *Chain {
	return &Chain{
		sources: sources,
		logger:  log,
	}
}

// Name implements contracts.DataSource
func (c *Chain) Name() string {
	names := make([]string, len(c.sources))
	for i, s := range c.sources {
		names[i] = s.Name()
	}
	return "chain(" + strings.Join(names, ",") + ")"
}

// Fetch implements contracts.DataSource
func (c *Chain) Fetch(ctx context.Context, symbol string) (*contracts.RawObservation, error) {
	merged := &contracts.RawObservation{Symbol: symbol}
	var used []string
	var lastErr error

	for _, src := range c.sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		obs, err := src.Fetch(ctx, symbol)
		if err != nil {
			if !errors.Is(err, contracts.ErrNoData) {
				lastErr = err
			}
			c.logger.WithError(err).WithFields(map[string]interface{}{
				"symbol": symbol,
				"source": src.Name(),
			}).Debug("Source failed, trying next")
			continue
		}
		if obs == nil {
			continue
		}

		contributed := false
		if usable(obs.PERatioText) && !usable(merged.PERatioText) {
			merged.PERatioText = obs.PERatioText
			contributed = true
		}
		if usable(obs.NetMarginText) && !usable(merged.NetMarginText) {
			merged.NetMarginText = obs.NetMarginText
			contributed = true
		}
		if contributed {
			used = append(used, src.Name())
		}

		if usable(merged.PERatioText) && usable(merged.NetMarginText) {
			break
		}
	}

	if len(used) == 0 {
		if lastErr != nil {
			return nil, fmt.Errorf("%w (last error: %v)", contracts.ErrNoData, lastErr)
		}
		return nil, contracts.ErrNoData
	}

	merged.Source = strings.Join(used, "+")
	return merged, nil
}

// usable reports whether text would survive normalization
func usable(text string) bool {
	return normalize.Parse(text) != nil
}
