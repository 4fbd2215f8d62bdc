package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wonny/quadrant/internal/batch"
	"github.com/wonny/quadrant/internal/report"
)

// classifyCmd represents the classify command
var classifyCmd = &cobra.Command{
	Use:   "classify [symbol...]",
	Short: "Classify symbols into quadrants",
	Long: `Fetches P/E and net margin for each symbol from the configured
data source and prints one row per symbol, in input order.

A symbol that cannot be fetched or parsed is reported as "Not classified";
it never aborts the batch.

Example:
  go run ./cmd/quadrant classify TCS INFY ZOMATO
  go run ./cmd/quadrant classify --symbols "TCS, INFY" --summary
  go run ./cmd/quadrant classify TCS INFY --min-margin 10 --max-pe 30
  go run ./cmd/quadrant classify TCS INFY -o json --export quadrants.csv
  go run ./cmd/quadrant classify TCS --margin 20 --multiple 25`,
	RunE: runClassify,
}

var (
	classifySymbols string
	classifyOutput  string
	classifyExport  string
	classifySummary bool
	classifyScatter bool
	classifyMinPct  float64
	classifyMaxPE   float64
)

func init() {
	rootCmd.AddCommand(classifyCmd)

	// Flags
	classifyCmd.Flags().StringVar(&classifySymbols, "symbols", "", "comma separated symbols (added to args)")
	classifyCmd.Flags().StringVarP(&classifyOutput, "output", "o", report.FormatTable, "output format: table, csv, json")
	classifyCmd.Flags().StringVar(&classifyExport, "export", "", "also write results to this file (.csv, .json, .txt)")
	classifyCmd.Flags().BoolVar(&classifySummary, "summary", false, "print insight summary and quadrant counts")
	classifyCmd.Flags().BoolVar(&classifyScatter, "scatter", false, "print plot points grouped by quadrant")
	classifyCmd.Flags().Float64Var(&classifyMinPct, "min-margin", 0, "only show rows with net margin >= value")
	classifyCmd.Flags().Float64Var(&classifyMaxPE, "max-pe", 0, "only show rows with P/E <= value")
}

func runClassify(cmd *cobra.Command, args []string) error {
	symbols := batch.NormalizeSymbols(args)
	symbols = append(symbols, batch.ParseSymbolList(classifySymbols)...)
	if len(symbols) == 0 {
		return fmt.Errorf("no symbols given")
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	results := a.runner.Run(cmd.Context(), symbols)

	if classifyExport != "" {
		if err := report.WriteFile(classifyExport, results); err != nil {
			return err
		}
		a.log.WithField("path", classifyExport).Info("Results exported")
	}

	var opts report.FilterOptions
	if cmd.Flags().Changed("min-margin") {
		v := classifyMinPct
		opts.MinMarginPct = &v
	}
	if cmd.Flags().Changed("max-pe") {
		v := classifyMaxPE
		opts.MaxPERatio = &v
	}
	shown := report.Filter(results, opts)

	out := cmd.OutOrStdout()
	if err := report.Write(out, classifyOutput, shown); err != nil {
		return err
	}

	// Extra sections only make sense next to a table
	if strings.ToLower(classifyOutput) != report.FormatTable {
		return nil
	}

	if classifySummary {
		PrintHeader(out, "Insight Summary")
		if summaries := report.Summaries(shown); len(summaries) > 0 {
			PrintList(out, summaries)
		} else {
			PrintInfo(out, "No data available for summary.")
		}
		PrintHeader(out, "Quadrant Counts")
		PrintCounts(out, shown)

		for _, r := range shown {
			if !r.Classified() {
				PrintWarning(out, fmt.Sprintf("%s not classified: %s", r.Symbol, r.Error))
			}
		}
	}

	if classifyScatter {
		PrintHeader(out, "Quadrant Map")
		PrintScatter(out, shown)
	}

	return nil
}
