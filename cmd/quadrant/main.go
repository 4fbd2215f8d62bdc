package main

import (
	"os"

	"github.com/wonny/quadrant/cmd/quadrant/commands"
)

// main is the entry point for the quadrant CLI
// ⭐ 통합 CLI 진입점: go run ./cmd/quadrant [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
