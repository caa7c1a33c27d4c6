package main

import (
	"os"

	"github.com/roach88/kagami/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
