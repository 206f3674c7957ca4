package cmd

import (
	"github.com/spf13/cobra"
)

// cacheCmd groups artifact cache maintenance commands.
var cacheCmd = newCacheCmd()

func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the artifact cache",
	}

	cmd.AddCommand(newCacheClearCmd())

	return cmd
}

func newCacheClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached artifact",
		Long: `Remove every artifact from the cache directory. The directory itself is
kept. This works even when caching is disabled in the configuration.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			workflow, err := newWorkflow(cmd, workflowOptions{forceStore: true})
			if err != nil {
				return err
			}

			return workflow.ClearCache(cmd.Context())
		},
	}
}

func init() {
	rootCmd.AddCommand(cacheCmd)
}
