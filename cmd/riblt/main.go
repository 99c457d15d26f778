package main

import (
	"os"

	"github.com/yangl1996/rateless-reconcile/cmd/riblt/commands"
)

func main() {
	if err := commands.RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
