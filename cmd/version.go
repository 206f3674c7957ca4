package cmd

import (
	"fmt"
	"runtime/debug"

	"github.com/spf13/cobra"
)

const shortRevisionLen = 12

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show the version information",
		Long:  "Displays the build version of sasspipe, the VCS revision it was built from and the Go version used to build it.",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			info, _ := debug.ReadBuildInfo()

			cmd.Println(versionLine(info))
		},
	}
}

// versionLine renders "sasspipe <version> [(<revision>[-dirty])] <go version>".
func versionLine(info *debug.BuildInfo) string {
	if info == nil {
		return "sasspipe (unknown version)"
	}

	version := info.Main.Version
	if version == "" {
		version = "(devel)"
	}

	var revision string

	var dirty bool

	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			revision = setting.Value
		case "vcs.modified":
			dirty = setting.Value == "true"
		}
	}

	if len(revision) > shortRevisionLen {
		revision = revision[:shortRevisionLen]
	}

	if revision != "" {
		if dirty {
			revision += "-dirty"
		}

		version += " (" + revision + ")"
	}

	return fmt.Sprintf("sasspipe %s %s", version, info.GoVersion)
}

// versionCmd represents the version command.
var versionCmd = newVersionCmd()

func init() {
	rootCmd.AddCommand(versionCmd)
}
