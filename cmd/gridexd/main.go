package main

import (
	"os"

	"github.com/gridexchange/gridex/cmd/gridexd/cmd"
)

func main() {
	if err := cmd.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
