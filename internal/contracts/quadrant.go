package contracts

// Quadrant is the closed set of classification codes
type Quadrant string

const (
	QuadrantQ1            Quadrant = "Q1" // low margin, low multiple
	QuadrantQ2            Quadrant = "Q2" // low margin, high multiple
	QuadrantQ3            Quadrant = "Q3" // high margin, low multiple
	QuadrantQ4            Quadrant = "Q4" // high margin, high multiple
	QuadrantNotClassified Quadrant = "NC"
)

// AllQuadrants lists every code in display order
var AllQuadrants = []Quadrant{
	QuadrantQ1,
	QuadrantQ2,
	QuadrantQ3,
	QuadrantQ4,
	QuadrantNotClassified,
}

// IsClassified reports whether q is one of the four grid cells
func (q Quadrant) IsClassified() bool {
	switch q {
	case QuadrantQ1, QuadrantQ2, QuadrantQ3, QuadrantQ4:
		return true
	default:
		return false
	}
}

// FinancialMetrics is the normalized numeric form of an observation
// nil means absent. Zero is a real value, never a placeholder.
type FinancialMetrics struct {
	PERatio          *float64 `json:"pe_ratio"`
	NetMarginPercent *float64 `json:"net_margin_pct"`
}

// ClassificationResult is one labeled record per requested symbol
// ⭐ SSOT: Batch Runner → Reporting 결과 전달
type ClassificationResult struct {
	Symbol           string   `json:"symbol"`
	PERatio          *float64 `json:"pe_ratio"`
	NetMarginPercent *float64 `json:"net_margin_pct"`
	Quadrant         Quadrant `json:"quadrant"`
	Label            string   `json:"label"`
	Source           string   `json:"source,omitempty"`
	Error            string   `json:"error,omitempty"`
}

// Classified reports whether the result landed in one of the four cells
func (r ClassificationResult) Classified() bool {
	return r.Quadrant.IsClassified()
}

// Float returns a pointer to v. Handy for building metrics in tests and fixtures.
func Float(v float64) *float64 {
	return &v
}
