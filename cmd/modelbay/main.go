package main

import (
	"os"

	"github.com/modelbay/modelbay/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
