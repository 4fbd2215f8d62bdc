package thresholdconfig

import (
	"github.com/wonny/quadrant/internal/classifier"
	"github.com/wonny/quadrant/pkg/config"
)

// Resolve builds the effective thresholds: defaults, then file, then preset, then overrides
// ⭐ SSOT: 분류 임계값 결정은 여기서만
func Resolve(cfg config.ThresholdConfig) (classifier.Thresholds, error) {
	t := classifier.DefaultThresholds()

	if cfg.File != "" {
		f, _, err := Load(cfg.File)
		if err != nil {
			return classifier.Thresholds{}, err
		}
		if t, err = f.Thresholds(); err != nil {
			return classifier.Thresholds{}, err
		}
	}

	if cfg.Preset != "" {
		p, err := classifier.LookupPreset(cfg.Preset)
		if err != nil {
			return classifier.Thresholds{}, err
		}
		t.MarginPct = p.MarginPct
		t.Multiple = p.Multiple
	}

	if cfg.MarginPct != nil {
		t.MarginPct = *cfg.MarginPct
	}
	if cfg.Multiple != nil {
		t.Multiple = *cfg.Multiple
	}

	if err := t.Validate(); err != nil {
		return classifier.Thresholds{}, err
	}
	return t, nil
}

// Classifier resolves thresholds and builds a classifier from them
func Classifier(cfg config.ThresholdConfig) (*classifier.Classifier, error) {
	t, err := Resolve(cfg)
	if err != nil {
		return nil, err
	}
	return classifier.New(t)
}
