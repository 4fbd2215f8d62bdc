package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/quadrant/internal/classifier"
	"github.com/wonny/quadrant/internal/thresholdconfig"
)

// thresholdsCmd represents the thresholds command
var thresholdsCmd = &cobra.Command{
	Use:   "thresholds",
	Short: "Show active thresholds and presets",
	Long: `Prints the thresholds that classify would use after applying
QUADRANT_THRESHOLDS_FILE, QUADRANT_PRESET and the override variables
or flags, followed by the built-in presets.

Example:
  go run ./cmd/quadrant thresholds
  go run ./cmd/quadrant thresholds --preset 25-15`,
	RunE: runThresholds,
}

func init() {
	rootCmd.AddCommand(thresholdsCmd)
}

func runThresholds(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	t, err := thresholdconfig.Resolve(cfg.Thresholds)
	if err != nil {
		return fmt.Errorf("resolve thresholds: %w", err)
	}
	hash, err := thresholdconfig.Hash(t)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	PrintHeader(out, "Active Thresholds")
	PrintKeyValue(out, "Net margin", fmtFloat(t.MarginPct)+" %", 12)
	PrintKeyValue(out, "P/E multiple", fmtFloat(t.Multiple)+" x", 12)
	PrintKeyValue(out, "Hash", hash[:12], 12)
	PrintSeparator(out)
	PrintList(out, []string{t.Labels.Q1, t.Labels.Q2, t.Labels.Q3, t.Labels.Q4, t.Labels.NotClassified})

	PrintHeader(out, "Presets")
	for _, p := range classifier.Presets() {
		PrintKeyValue(out, p.Name, fmt.Sprintf("margin %s%%, multiple %sx", fmtFloat(p.MarginPct), fmtFloat(p.Multiple)), 8)
	}

	return nil
}
