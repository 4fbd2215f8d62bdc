package source

import (
	"context"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/wonny/quadrant/internal/contracts"
)

// Static serves observations from memory. Used for offline runs and tests.
type Static struct {
	name         string
	observations map[string]contracts.RawObservation
	failures     map[string]error
}

// NewStatic builds a static source keyed by uppercase symbol
func NewStatic(observations ...contracts.RawObservation) *Static {
	s := &Static{
		name:         "static",
		observations: make(map[string]contracts.RawObservation, len(observations)),
		failures:     make(map[string]error),
	}
	for _, obs := range observations {
		obs.Symbol = strings.ToUpper(strings.TrimSpace(obs.Symbol))
		s.observations[obs.Symbol] = obs
	}
	return s
}

// WithFailure makes Fetch return err for symbol
func (s *Static) WithFailure(symbol string, err error) *Static {
	s.failures[strings.ToUpper(symbol)] = err
	return s
}

// Name implements contracts.DataSource
func (s *Static) Name() string { return s.name }

// Len returns the number of symbols with observations
func (s *Static) Len() int { return len(s.observations) }

// Fetch implements contracts.DataSource
func (s *Static) Fetch(ctx context.Context, symbol string) (*contracts.RawObservation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err, ok := s.failures[symbol]; ok {
		return nil, err
	}

	obs, ok := s.observations[symbol]
	if !ok {
		return nil, contracts.ErrNoData
	}
	obs.Source = s.name
	return &obs, nil
}

// fixture is the on-disk layout of a static source file
type fixture struct {
	Observations []contracts.RawObservation `yaml:"observations"`
}

// LoadFixture reads a YAML (or JSON) file of observations
//
//	observations:
//	  - symbol: TCS
//	    pe_ratio: "28.0"
//	    net_margin: "21.5%"
func LoadFixture(path string) (*Static, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}

	var fx fixture
	if err := yaml.Unmarshal(data, &fx); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}

	for i, obs := range fx.Observations {
		if strings.TrimSpace(obs.Symbol) == "" {
			return nil, fmt.Errorf("fixture %s: observation %d has no symbol", path, i)
		}
	}

	s := NewStatic(fx.Observations...)
	s.name = "fixture"
	return s, nil
}
