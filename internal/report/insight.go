package report

import (
	"fmt"

	"github.com/wonny/quadrant/internal/contracts"
)

var insights = map[contracts.Quadrant]string{
	contracts.QuadrantQ4: "a premium valued strong performer",
	contracts.QuadrantQ3: "a potentially undervalued high performer",
	contracts.QuadrantQ2: "a lower margin stock with higher valuation",
	contracts.QuadrantQ1: "a lower margin stock with lower valuation",
}

// Summaries returns one sentence per classified result, in input order
func Summaries(results []contracts.ClassificationResult) []string {
	var out []string
	for _, r := range results {
		text, ok := insights[r.Quadrant]
		if !ok {
			continue
		}
		out = append(out, fmt.Sprintf("%s is in %s, suggesting it is %s.", r.Symbol, r.Label, text))
	}
	return out
}

// FilterOptions bounds a result set. Nil bounds are not applied.
type FilterOptions struct {
	MinMarginPct *float64
	MaxPERatio   *float64
}

// Filter keeps results whose bounded metrics are present and within bounds.
// An absent metric never passes a bound on that metric.
func Filter(results []contracts.ClassificationResult, opts FilterOptions) []contracts.ClassificationResult {
	out := make([]contracts.ClassificationResult, 0, len(results))
	for _, r := range results {
		if opts.MinMarginPct != nil {
			if r.NetMarginPercent == nil || *r.NetMarginPercent < *opts.MinMarginPct {
				continue
			}
		}
		if opts.MaxPERatio != nil {
			if r.PERatio == nil || *r.PERatio > *opts.MaxPERatio {
				continue
			}
		}
		out = append(out, r)
	}
	return out
}

// Point is one symbol on the margin/multiple map
type Point struct {
	Symbol    string  `json:"symbol"`
	PERatio   float64 `json:"x"`
	MarginPct float64 `json:"y"`
}

// ScatterPoints groups classified results by quadrant for plotting.
// x is the P/E ratio, y the net margin.
func ScatterPoints(results []contracts.ClassificationResult) map[contracts.Quadrant][]Point {
	out := make(map[contracts.Quadrant][]Point)
	for _, r := range results {
		if !r.Classified() || r.PERatio == nil || r.NetMarginPercent == nil {
			continue
		}
		out[r.Quadrant] = append(out[r.Quadrant], Point{
			Symbol:    r.Symbol,
			PERatio:   *r.PERatio,
			MarginPct: *r.NetMarginPercent,
		})
	}
	return out
}

// Counts tallies results per quadrant code. Every code is present, possibly zero.
func Counts(results []contracts.ClassificationResult) map[contracts.Quadrant]int {
	out := make(map[contracts.Quadrant]int, len(contracts.AllQuadrants))
	for _, q := range contracts.AllQuadrants {
		out[q] = 0
	}
	for _, r := range results {
		out[r.Quadrant]++
	}
	return out
}

// Change is a symbol whose quadrant moved between two runs
type Change struct {
	Symbol string             `json:"symbol"`
	From   contracts.Quadrant `json:"from"`
	To     contracts.Quadrant `json:"to"`
}

// Diff lists symbols whose quadrant differs between prev and next.
// Repeated symbols are matched by occurrence, so the second TCS is compared with the second TCS.
// Symbols only present in next are reported with an empty From.
func Diff(prev, next []contracts.ClassificationResult) []Change {
	type key struct {
		symbol string
		n      int
	}

	seen := make(map[string]int, len(prev))
	before := make(map[key]contracts.Quadrant, len(prev))
	for _, r := range prev {
		before[key{r.Symbol, seen[r.Symbol]}] = r.Quadrant
		seen[r.Symbol]++
	}

	clear(seen)
	var out []Change
	for _, r := range next {
		k := key{r.Symbol, seen[r.Symbol]}
		seen[r.Symbol]++

		from, ok := before[k]
		if ok && from == r.Quadrant {
			continue
		}
		out = append(out, Change{Symbol: r.Symbol, From: from, To: r.Quadrant})
	}
	return out
}
