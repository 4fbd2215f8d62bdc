package commands

import (
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/wonny/quadrant/internal/contracts"
	"github.com/wonny/quadrant/internal/report"
)

// ═══════════════════════════════════════════════════════════
// Common Formatting Utilities
// 모든 커맨드가 동일한 출력 포맷을 사용하도록 통일
// ═══════════════════════════════════════════════════════════

// PrintHeader prints a boxed section title
func PrintHeader(w io.Writer, title string) {
	fmt.Fprintln(w)
	PrintDoubleSeparator(w)
	fmt.Fprintf(w, "  %s\n", title)
	PrintSeparator(w)
}

// PrintSeparator prints a visual separator
func PrintSeparator(w io.Writer) {
	fmt.Fprintln(w, "───────────────────────────────────────────────────────────")
}

// PrintDoubleSeparator prints a double-line separator
func PrintDoubleSeparator(w io.Writer) {
	fmt.Fprintln(w, "═══════════════════════════════════════════════════════════")
}

// PrintWarning prints a one-line warning
func PrintWarning(w io.Writer, message string) {
	fmt.Fprintf(w, "⚠️  %s\n", message)
}

// PrintSuccess prints a success message
func PrintSuccess(w io.Writer, message string) {
	fmt.Fprintf(w, "✅ %s\n", message)
}

// PrintInfo prints an info message
func PrintInfo(w io.Writer, message string) {
	fmt.Fprintf(w, "ℹ️  %s\n", message)
}

// PrintList prints a bulleted list
func PrintList(w io.Writer, items []string) {
	for _, item := range items {
		fmt.Fprintf(w, "   • %s\n", item)
	}
}

// PrintKeyValue prints key-value pairs
func PrintKeyValue(w io.Writer, key string, value string, keyWidth int) {
	fmt.Fprintf(w, "   %-*s : %s\n", keyWidth, key, value)
}

// PrintCounts prints the number of results per quadrant in display order
func PrintCounts(w io.Writer, results []contracts.ClassificationResult) {
	counts := report.Counts(results)
	for _, q := range contracts.AllQuadrants {
		PrintKeyValue(w, string(q), strconv.Itoa(counts[q]), 3)
	}
}

// PrintScatter prints the plot points grouped by quadrant
func PrintScatter(w io.Writer, results []contracts.ClassificationResult) {
	points := report.ScatterPoints(results)

	quads := make([]string, 0, len(points))
	for q := range points {
		quads = append(quads, string(q))
	}
	sort.Strings(quads)

	for _, q := range quads {
		items := make([]string, 0, len(points[contracts.Quadrant(q)]))
		for _, p := range points[contracts.Quadrant(q)] {
			items = append(items, fmt.Sprintf("%s (P/E %s, margin %s%%)", p.Symbol, fmtFloat(p.PERatio), fmtFloat(p.MarginPct)))
		}
		fmt.Fprintf(w, "  %s\n", q)
		PrintList(w, items)
	}
}

func fmtFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
