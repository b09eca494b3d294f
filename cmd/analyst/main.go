package main

import (
	"os"

	"MarketAnalyst/cmd/analyst/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
