package cmd

import (
	"github.com/spf13/cobra"

	m "sasspipe.dev/pkg/sasspipe/internal/model"
)

// fingerprintCmd represents the fingerprint command.
var fingerprintCmd = newFingerprintCmd()

func newFingerprintCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fingerprint [stylesheet]",
		Short: "Print the cache fingerprint of a stylesheet",
		Long: `Print the fingerprint used as the cache key of a stylesheet. It changes
whenever the stylesheet, a stylesheet next to it, or the compiler
configuration changes.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := m.Path(args[0])

			workflow, err := newWorkflow(cmd, workflowOptions{entries: []m.Path{path}})
			if err != nil {
				return err
			}

			return workflow.Fingerprint(cmd.Context(), path)
		},
	}
}

func init() {
	rootCmd.AddCommand(fingerprintCmd)
}
