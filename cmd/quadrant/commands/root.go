package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	configFile string
	env        string
	verbose    bool

	// Threshold overrides shared by every command that classifies
	presetFlag   string
	marginFlag   float64
	multipleFlag float64
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "quadrant",
	Short: "Margin/valuation quadrant classifier",
	Long: `Quadrant classifies listed companies into a 2x2 grid by
net profit margin and P/E multiple.

  Q1  low margin,  low multiple
  Q2  low margin,  high multiple
  Q3  high margin, low multiple
  Q4  high margin, high multiple

Usage:
  go run ./cmd/quadrant [command]

Examples:
  go run ./cmd/quadrant classify TCS INFY ZOMATO
  go run ./cmd/quadrant classify --symbols TCS,INFY -o csv --export out.csv
  go run ./cmd/quadrant api
  go run ./cmd/quadrant watch --once
  go run ./cmd/quadrant thresholds`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). Ctrl+C cancels the command context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return rootCmd.ExecuteContext(ctx)
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "env file (default is .env)")
	rootCmd.PersistentFlags().StringVar(&env, "env", "", "environment (development|staging|production)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.PersistentFlags().StringVar(&presetFlag, "preset", "", "threshold preset (default, 20-20, 25-15, 25-20, 30-20)")
	rootCmd.PersistentFlags().Float64Var(&marginFlag, "margin", 0, "net margin threshold in percent")
	rootCmd.PersistentFlags().Float64Var(&multipleFlag, "multiple", 0, "P/E multiple threshold")
}
