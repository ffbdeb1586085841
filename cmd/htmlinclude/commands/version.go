package commands

import (
	"fmt"
	"io"
	"runtime/debug"
	"time"

	"github.com/spf13/cobra"
)

// BuildInfo is stamped into the binary with -ldflags
type BuildInfo struct {
	Version string
	Commit  string
	Date    string
}

func versionCmd(build BuildInfo) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			printVersion(cmd.OutOrStdout(), build)
		},
	}
}

func printVersion(w io.Writer, build BuildInfo) {
	fmt.Fprintf(w, "htmlinclude version %s\n", build.Version)

	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}

	var vcsRevision, vcsTime, vcsModified string
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			vcsRevision = setting.Value
		case "vcs.time":
			vcsTime = setting.Value
		case "vcs.modified":
			vcsModified = setting.Value
		}
	}

	if build.Commit != "" && build.Commit != "unknown" {
		fmt.Fprintf(w, "commit: %s\n", build.Commit)
	} else if vcsRevision != "" {
		if len(vcsRevision) > 12 {
			vcsRevision = vcsRevision[:12]
		}
		fmt.Fprintf(w, "commit: %s\n", vcsRevision)
	}

	// Build date from ldflags wins over the commit time
	if build.Date != "" && build.Date != "unknown" {
		fmt.Fprintf(w, "built: %s\n", build.Date)
	} else if vcsTime != "" {
		if t, err := time.Parse(time.RFC3339, vcsTime); err == nil {
			fmt.Fprintf(w, "commit date: %s\n", t.Format("2006-01-02 15:04:05 MST"))
		}
	}

	if vcsModified == "true" {
		fmt.Fprintf(w, "modified: true (uncommitted changes)\n")
	}

	fmt.Fprintf(w, "go: %s\n", info.GoVersion)
}
