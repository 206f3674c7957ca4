package cmd

import (
	"github.com/spf13/cobra"

	m "sasspipe.dev/pkg/sasspipe/internal/model"
)

// depsCmd represents the deps command.
var depsCmd = newDepsCmd()

func newDepsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "deps [stylesheet]",
		Short: "List the files that feed a stylesheet's fingerprint",
		Long: `List every stylesheet considered a dependency of the given one, with the
modification time that goes into its fingerprint.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := m.Path(args[0])

			workflow, err := newWorkflow(cmd, workflowOptions{entries: []m.Path{path}})
			if err != nil {
				return err
			}

			return workflow.Dependencies(cmd.Context(), path)
		},
	}
}

func init() {
	rootCmd.AddCommand(depsCmd)
}
