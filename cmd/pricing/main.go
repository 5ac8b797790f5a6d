package main

import (
	"os"

	"pricing-engine/cmd/pricing/commands"
)

// main is the entry point: go run ./cmd/pricing [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
