package main

import (
	"os"

	"github.com/wonny/stagegate/cmd/stagectl/commands"
)

// main is the entry point for the stagegate CLI
// ⭐ 통합 CLI 진입점: go run ./cmd/stagectl [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
