package main

import (
	"os"

	"github.com/jmgilman/simplefs/internal/cli"
)

func main() {
	os.Exit(cli.Run(os.Args, cli.DefaultEnv()))
}
