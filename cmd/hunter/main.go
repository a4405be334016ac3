package main

import (
	"os"

	"github.com/bigbit0987/stock-trans/cmd/hunter/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
