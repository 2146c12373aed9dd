// Package main implements the pgraph CLI. It turns C sources, through the
// fact stream of an external front end, into program graphs and their
// numeric artifacts.
package main

import (
	"os"

	"github.com/l3aro/go-program-graph/cmd/pgraph/commands"
)

var (
	version   = "dev"
	buildTime = ""
)

func main() {
	commands.RootCmd.Version = version
	if buildTime != "" {
		commands.RootCmd.Version = version + " (built " + buildTime + ")"
	}
	commands.RootCmd.SetVersionTemplate(`pgraph version {{.Version}}
`)

	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
