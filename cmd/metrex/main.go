package main

import (
	"os"

	"github.com/wonny/metrex/cmd/metrex/commands"
)

// main is the entry point for the metrex CLI
// ⭐ 통합 CLI 진입점: go run ./cmd/metrex [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
