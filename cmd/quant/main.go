package main

import (
	"os"

	"github.com/minqi/bottomfisher/cmd/quant/commands"
)

// main is the entry point for the bottomfisher CLI
// ⭐ 统一 CLI 入口: go run ./cmd/quant [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
