package cmd

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"sasspipe.dev/pkg/sasspipe/internal/controller"
	"sasspipe.dev/pkg/sasspipe/internal/domain"
	m "sasspipe.dev/pkg/sasspipe/internal/model"
)

// watchCmd represents the watch command.
var watchCmd = newWatchCmd()

func newWatchCmd() *cobra.Command {
	var outDir string

	var debounce string

	var useTUI bool

	cmd := &cobra.Command{
		Use:   "watch [stylesheets...]",
		Short: "Recompile stylesheets when their sources change",
		Long:  watchLongDescription,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			paths := parsePaths(args)

			workflow, err := newWorkflow(cmd, workflowOptions{
				entries: paths,
				useTUI:  viper.GetBool(watchTUIKey) && controller.IsTTY(os.Stdout),
			})
			if err != nil {
				return err
			}

			return workflow.Watch(cmd.Context(), domain.WatchArgs{
				Paths:  paths,
				OutDir: m.Path(viper.GetString(watchOutDirKey)),
			})
		},
	}

	cmd.Flags().StringVarP(&outDir, outDirFlagName, "o", viper.GetString(watchOutDirKey), "write <name>.css files to this directory on every recompile")
	bindFlagToConfig(cmd.Flags().Lookup(outDirFlagName), watchOutDirKey)

	cmd.Flags().StringVar(&debounce, debounceFlagName, viper.GetString(watchDebounceKey), "quiet period after a change before recompiling")
	bindFlagToConfig(cmd.Flags().Lookup(debounceFlagName), watchDebounceKey)

	cmd.Flags().BoolVar(&useTUI, tuiFlagName, viper.GetBool(watchTUIKey), "show an interactive dashboard when stdout is a terminal")
	bindFlagToConfig(cmd.Flags().Lookup(tuiFlagName), watchTUIKey)

	return cmd
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
