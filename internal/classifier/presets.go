package classifier

import (
	"fmt"
	"sort"
)

// Preset is a named threshold pair seen across dashboard variants
type Preset struct {
	Name      string  `json:"name"`
	MarginPct float64 `json:"margin_pct"`
	Multiple  float64 `json:"multiple"`
}

var presets = map[string]Preset{
	"default": {Name: "default", MarginPct: 10, Multiple: 15},
	"20-20":   {Name: "20-20", MarginPct: 20, Multiple: 20},
	"25-15":   {Name: "25-15", MarginPct: 15, Multiple: 25},
	"30-20":   {Name: "30-20", MarginPct: 20, Multiple: 30},
	"25-20":   {Name: "25-20", MarginPct: 20, Multiple: 25},
}

// LookupPreset returns thresholds for a preset name with default labels
// Preset names are "<multiple>-<margin>" to match how the variants were titled.
func LookupPreset(name string) (Thresholds, error) {
	p, ok := presets[name]
	if !ok {
		return Thresholds{}, fmt.Errorf("%w: unknown preset %q", ErrInvalidThresholds, name)
	}
	return Thresholds{
		MarginPct: p.MarginPct,
		Multiple:  p.Multiple,
		Labels:    DefaultLabels(),
	}, nil
}

// Presets lists all presets sorted by name
func Presets() []Preset {
	out := make([]Preset, 0, len(presets))
	for _, p := range presets {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
