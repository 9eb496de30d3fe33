package main

import (
	"os"

	"github.com/nonibytes/docfilter/internal/cli"
)

func main() {
	os.Exit(cli.Execute(os.Args[1:]))
}
