package main

import (
	"os"

	"leaselane/cmd/leasectl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
