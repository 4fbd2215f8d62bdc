package classifier

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/quadrant/internal/contracts"
)

func f(v float64) *float64 { return &v }

func TestClassifier_DecisionTable(t *testing.T) {
	c := Default()

	tests := []struct {
		name      string
		margin    *float64
		pe        *float64
		wantCode  contracts.Quadrant
		wantLabel string
	}{
		{"margin absent", nil, f(12), contracts.QuadrantNotClassified, "Not classified"},
		{"pe absent", f(20), nil, contracts.QuadrantNotClassified, "Not classified"},
		{"both absent", nil, nil, contracts.QuadrantNotClassified, "Not classified"},
		{"low low", f(5), f(10), contracts.QuadrantQ1, "Q1: Low margin, Low multiple"},
		{"low high", f(5), f(20), contracts.QuadrantQ2, "Q2: Low margin, High multiple"},
		{"high low", f(20), f(10), contracts.QuadrantQ3, "Q3: High margin, Low multiple"},
		{"high high", f(20), f(20), contracts.QuadrantQ4, "Q4: High margin, High multiple"},
		{"boundary both", f(10), f(15), contracts.QuadrantQ4, "Q4: High margin, High multiple"},
		{"just below both", f(9.999), f(14.999), contracts.QuadrantQ1, "Q1: Low margin, Low multiple"},
		{"margin on boundary", f(10), f(14.999), contracts.QuadrantQ3, "Q3: High margin, Low multiple"},
		{"pe on boundary", f(9.999), f(15), contracts.QuadrantQ2, "Q2: Low margin, High multiple"},
		{"negative earnings", f(12), f(-8), contracts.QuadrantQ3, "Q3: High margin, Low multiple"},
		{"loss making", f(-2.4), f(120), contracts.QuadrantQ2, "Q2: Low margin, High multiple"},
		{"zero is a value", f(0), f(0), contracts.QuadrantQ1, "Q1: Low margin, Low multiple"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, label := c.Classify(tt.margin, tt.pe)
			assert.Equal(t, tt.wantCode, code)
			assert.Equal(t, tt.wantLabel, label)
		})
	}
}

func TestClassifier_AbsencePropagation(t *testing.T) {
	c := Default()
	for _, v := range []float64{-1e9, -1, 0, 9.99, 10, 15, 1e9} {
		assert.Equal(t, contracts.QuadrantNotClassified, c.Quadrant(nil, f(v)))
		assert.Equal(t, contracts.QuadrantNotClassified, c.Quadrant(f(v), nil))
	}
}

func TestClassifier_Totality(t *testing.T) {
	c := Default()
	labels := map[string]bool{}
	for _, q := range contracts.AllQuadrants {
		labels[c.Label(q)] = true
	}

	values := []*float64{nil, f(-100), f(0), f(9.999), f(10), f(14.999), f(15), f(500)}
	for _, m := range values {
		for _, p := range values {
			_, label := c.Classify(m, p)
			assert.True(t, labels[label], "unexpected label %q", label)
		}
	}
}

func TestClassifier_EndToEndScenario(t *testing.T) {
	c := Default()

	assert.Equal(t, contracts.QuadrantQ4, c.Quadrant(f(21.5), f(28)), "TCS")
	assert.Equal(t, contracts.QuadrantQ2, c.Quadrant(f(-2.4), f(120)), "Zomato")
	assert.Equal(t, contracts.QuadrantQ3, c.Quadrant(f(25.3), f(9)), "CoalIndia")
}

func TestClassifier_ThresholdOverride(t *testing.T) {
	th := DefaultThresholds()
	th.MarginPct = 20
	th.Multiple = 25

	c, err := New(th)
	require.NoError(t, err)

	// 21.5 still clears a 20% bar, so it stays Q4. 19% is where the grids disagree.
	assert.Equal(t, contracts.QuadrantQ4, c.Quadrant(f(21.5), f(28)))

	code, label := c.Classify(f(19), f(28))
	assert.Equal(t, contracts.QuadrantQ2, code)
	assert.Equal(t, "Q2: Low margin, High multiple", label)
	assert.Equal(t, contracts.QuadrantQ4, Default().Quadrant(f(19), f(28)))
}

func TestNew_InvalidThresholds(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Thresholds)
	}{
		{"nan margin", func(th *Thresholds) { th.MarginPct = math.NaN() }},
		{"inf multiple", func(th *Thresholds) { th.Multiple = math.Inf(1) }},
		{"empty label", func(th *Thresholds) { th.Labels.Q3 = "" }},
		{"duplicate label", func(th *Thresholds) { th.Labels.Q2 = th.Labels.Q1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			th := DefaultThresholds()
			tt.mutate(&th)

			c, err := New(th)
			assert.Nil(t, c)
			assert.ErrorIs(t, err, ErrInvalidThresholds)
		})
	}
}

func TestClassifier_CustomLabels(t *testing.T) {
	th := DefaultThresholds()
	th.Labels = Labels{
		Q1:            "Value trap",
		Q2:            "Story stock",
		Q3:            "Bargain",
		Q4:            "Compounder",
		NotClassified: "Unknown",
	}

	c, err := New(th)
	require.NoError(t, err)

	_, label := c.Classify(f(25.3), f(9))
	assert.Equal(t, "Bargain", label)

	_, label = c.Classify(nil, f(9))
	assert.Equal(t, "Unknown", label)
}

func TestClassifier_Result(t *testing.T) {
	c := Default()
	r := c.Result("TCS", contracts.FinancialMetrics{PERatio: f(28), NetMarginPercent: f(21.5)})

	assert.Equal(t, "TCS", r.Symbol)
	assert.Equal(t, contracts.QuadrantQ4, r.Quadrant)
	assert.True(t, r.Classified())
	require.NotNil(t, r.PERatio)
	assert.Equal(t, 28.0, *r.PERatio)
}

func TestLookupPreset(t *testing.T) {
	th, err := LookupPreset("25-20")
	require.NoError(t, err)
	assert.Equal(t, 20.0, th.MarginPct)
	assert.Equal(t, 25.0, th.Multiple)
	assert.NoError(t, th.Validate())

	c, err := New(th)
	require.NoError(t, err)
	assert.Equal(t, contracts.QuadrantQ2, c.Quadrant(f(19), f(28)))

	_, err = LookupPreset("nope")
	assert.ErrorIs(t, err, ErrInvalidThresholds)

	names := []string{}
	for _, p := range Presets() {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{"20-20", "25-15", "25-20", "30-20", "default"}, names)
}
