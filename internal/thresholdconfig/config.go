package thresholdconfig

import "github.com/wonny/quadrant/internal/classifier"

// File is the on-disk threshold configuration
//
//	preset: "25-15"      # optional starting point
//	margin_pct: 12.5     # required unless preset is set
//	multiple: 18
//	labels:              # optional, partial overrides allowed
//	  q4: "Premium compounders"
type File struct {
	Preset    string      `yaml:"preset,omitempty" json:"preset,omitempty"`
	MarginPct *float64    `yaml:"margin_pct,omitempty" json:"margin_pct,omitempty"`
	Multiple  *float64    `yaml:"multiple,omitempty" json:"multiple,omitempty"`
	Labels    *LabelsFile `yaml:"labels,omitempty" json:"labels,omitempty"`
}

// LabelsFile overrides individual labels; empty entries keep the default
type LabelsFile struct {
	Q1            string `yaml:"q1,omitempty" json:"q1,omitempty"`
	Q2            string `yaml:"q2,omitempty" json:"q2,omitempty"`
	Q3            string `yaml:"q3,omitempty" json:"q3,omitempty"`
	Q4            string `yaml:"q4,omitempty" json:"q4,omitempty"`
	NotClassified string `yaml:"not_classified,omitempty" json:"not_classified,omitempty"`
}

// apply overlays non-empty labels on base
func (l *LabelsFile) apply(base classifier.Labels) classifier.Labels {
	if l == nil {
		return base
	}
	if l.Q1 != "" {
		base.Q1 = l.Q1
	}
	if l.Q2 != "" {
		base.Q2 = l.Q2
	}
	if l.Q3 != "" {
		base.Q3 = l.Q3
	}
	if l.Q4 != "" {
		base.Q4 = l.Q4
	}
	if l.NotClassified != "" {
		base.NotClassified = l.NotClassified
	}
	return base
}

// Thresholds turns the file into classifier thresholds
func (f *File) Thresholds() (classifier.Thresholds, error) {
	t := classifier.DefaultThresholds()
	if f.Preset != "" {
		p, err := classifier.LookupPreset(f.Preset)
		if err != nil {
			return classifier.Thresholds{}, err
		}
		t = p
	}
	if f.MarginPct != nil {
		t.MarginPct = *f.MarginPct
	}
	if f.Multiple != nil {
		t.Multiple = *f.Multiple
	}
	t.Labels = f.Labels.apply(t.Labels)
	return t, nil
}
