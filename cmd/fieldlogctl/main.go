package main

import (
	"os"

	"github.com/apresai/fieldlog/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
