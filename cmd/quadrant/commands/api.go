package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/quadrant/internal/api"
	"github.com/wonny/quadrant/internal/api/handlers"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the HTTP API server",
	Long: `Starts the REST API server.

Endpoints:
  GET  /health                    - Health check
  GET  /api/quadrants?symbols=... - Classify symbols (optional margin, multiple)
  POST /api/quadrants             - Classify symbols from a JSON body
  GET  /api/thresholds            - Active thresholds and hash
  GET  /api/thresholds/presets    - Built-in presets
  GET  /ws/quadrants?symbols=...  - Stream results over a websocket
  GET  /metrics                   - Prometheus metrics (METRICS_ENABLED)

Example:
  go run ./cmd/quadrant api
  go run ./cmd/quadrant api --port 8080`,
	RunE: runAPIServer,
}

var (
	apiPort string
)

func init() {
	rootCmd.AddCommand(apiCmd)

	// Flags
	apiCmd.Flags().StringVar(&apiPort, "port", "", "API server port (default PORT or 8089)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	// 1. Wire config, logger, source and runner
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	// Override port if flag is set
	if apiPort != "" {
		a.cfg.Port = apiPort
	}
	log := a.log

	// 2. Create handlers
	quadrants := handlers.NewQuadrantHandler(a.runner, log)
	h := api.Handlers{
		Quadrants:  quadrants,
		Thresholds: handlers.NewThresholdHandler(a.classifier, log),
		Stream:     handlers.NewStreamHandler(quadrants, log),
	}
	if a.recorder != nil {
		h.Metrics = a.recorder.Handler()
	}

	// 3. Create router and server
	server := api.New(a.cfg, log, api.NewRouter(h, log))

	// 4. Start server with graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	out := cmd.OutOrStdout()
	PrintSuccess(out, fmt.Sprintf("Server running on http://localhost:%s", a.cfg.Port))
	fmt.Fprintln(out, "\nPress Ctrl+C to stop")

	select {
	case err := <-errCh:
		return err
	case <-cmd.Context().Done():
	}

	log.Info("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info("Server stopped")
	return nil
}
