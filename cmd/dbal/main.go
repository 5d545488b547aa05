package main

import (
	"os"

	"github.com/satishbabariya/dbal/cmd/dbal/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
