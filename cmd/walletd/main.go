package main

import (
	"os"

	"github.com/x402-foundation/walletsession/cmd/walletd/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
