package classifier

import (
	"errors"
	"fmt"
	"math"

	"github.com/wonny/quadrant/internal/contracts"
)

// ErrInvalidThresholds is returned when a classifier cannot be built from its thresholds
var ErrInvalidThresholds = errors.New("invalid thresholds")

// Default grid boundaries
const (
	DefaultMarginPct = 10.0
	DefaultMultiple  = 15.0
)

// Labels holds the display text per quadrant
type Labels struct {
	Q1            string `json:"q1" yaml:"q1"`
	Q2            string `json:"q2" yaml:"q2"`
	Q3            string `json:"q3" yaml:"q3"`
	Q4            string `json:"q4" yaml:"q4"`
	NotClassified string `json:"not_classified" yaml:"not_classified"`
}

// DefaultLabels returns the standard label set
func DefaultLabels() Labels {
	return Labels{
		Q1:            "Q1: Low margin, Low multiple",
		Q2:            "Q2: Low margin, High multiple",
		Q3:            "Q3: High margin, Low multiple",
		Q4:            "Q4: High margin, High multiple",
		NotClassified: "Not classified",
	}
}

// For returns the label for q
func (l Labels) For(q contracts.Quadrant) string {
	switch q {
	case contracts.QuadrantQ1:
		return l.Q1
	case contracts.QuadrantQ2:
		return l.Q2
	case contracts.QuadrantQ3:
		return l.Q3
	case contracts.QuadrantQ4:
		return l.Q4
	default:
		return l.NotClassified
	}
}

// Thresholds are the grid boundaries. Values at a boundary fall on the high side.
type Thresholds struct {
	MarginPct float64 `json:"margin_pct"`
	Multiple  float64 `json:"multiple"`
	Labels    Labels  `json:"labels"`
}

// DefaultThresholds returns 10% margin and 15x multiple with the standard labels
func DefaultThresholds() Thresholds {
	return Thresholds{
		MarginPct: DefaultMarginPct,
		Multiple:  DefaultMultiple,
		Labels:    DefaultLabels(),
	}
}

// Validate rejects non-finite boundaries and empty or duplicated labels
func (t Thresholds) Validate() error {
	if math.IsNaN(t.MarginPct) || math.IsInf(t.MarginPct, 0) {
		return fmt.Errorf("%w: margin threshold must be finite, got %v", ErrInvalidThresholds, t.MarginPct)
	}
	if math.IsNaN(t.Multiple) || math.IsInf(t.Multiple, 0) {
		return fmt.Errorf("%w: multiple threshold must be finite, got %v", ErrInvalidThresholds, t.Multiple)
	}

	seen := make(map[string]contracts.Quadrant, len(contracts.AllQuadrants))
	for _, q := range contracts.AllQuadrants {
		label := t.Labels.For(q)
		if label == "" {
			return fmt.Errorf("%w: label for %s is empty", ErrInvalidThresholds, q)
		}
		if other, dup := seen[label]; dup {
			return fmt.Errorf("%w: label %q used for both %s and %s", ErrInvalidThresholds, label, other, q)
		}
		seen[label] = q
	}

	return nil
}

// Classifier assigns quadrants using a fixed set of thresholds
// ⭐ SSOT: 사분면 분류는 여기서만
type Classifier struct {
	thresholds Thresholds
}

// New builds a classifier. Invalid thresholds are refused, never defaulted.
func New(t Thresholds) (*Classifier, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &Classifier{thresholds: t}, nil
}

// Default returns a classifier with DefaultThresholds
func Default() *Classifier {
	return &Classifier{thresholds: DefaultThresholds()}
}

// Thresholds returns the active thresholds
func (c *Classifier) Thresholds() Thresholds {
	return c.thresholds
}

// Quadrant maps a (margin, multiple) pair to its code.
// Either value absent yields QuadrantNotClassified.
func (c *Classifier) Quadrant(marginPct, peRatio *float64) contracts.Quadrant {
	if marginPct == nil || peRatio == nil {
		return contracts.QuadrantNotClassified
	}

	highMargin := *marginPct >= c.thresholds.MarginPct
	highMultiple := *peRatio >= c.thresholds.Multiple

	switch {
	case !highMargin && !highMultiple:
		return contracts.QuadrantQ1
	case !highMargin && highMultiple:
		return contracts.QuadrantQ2
	case highMargin && !highMultiple:
		return contracts.QuadrantQ3
	default:
		return contracts.QuadrantQ4
	}
}

// Classify returns the code and its configured label
func (c *Classifier) Classify(marginPct, peRatio *float64) (contracts.Quadrant, string) {
	q := c.Quadrant(marginPct, peRatio)
	return q, c.thresholds.Labels.For(q)
}

// Label returns the configured label for q
func (c *Classifier) Label(q contracts.Quadrant) string {
	return c.thresholds.Labels.For(q)
}

// Result builds a ClassificationResult for symbol from normalized metrics
func (c *Classifier) Result(symbol string, m contracts.FinancialMetrics) contracts.ClassificationResult {
	q, label := c.Classify(m.NetMarginPercent, m.PERatio)
	return contracts.ClassificationResult{
		Symbol:           symbol,
		PERatio:          m.PERatio,
		NetMarginPercent: m.NetMarginPercent,
		Quadrant:         q,
		Label:            label,
	}
}
