package main

import (
	"os"

	"github.com/wonny/stockcast/backend/cmd/stockcast/commands"
)

// main is the entry point for the stockcast CLI
// ⭐ 통합 CLI 진입점: go run ./cmd/stockcast [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
