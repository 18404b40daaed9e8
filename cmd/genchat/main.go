package main

import (
	"os"

	"github.com/leofalp/genchat/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
