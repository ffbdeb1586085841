package main

import (
	"os"

	"github.com/livefir/htmlinclude/cmd/htmlinclude/commands"
)

// Version information (can be overridden at build time with -ldflags)
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	os.Exit(commands.Execute(commands.BuildInfo{
		Version: version,
		Commit:  commit,
		Date:    date,
	}))
}
