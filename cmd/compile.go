package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"sasspipe.dev/pkg/sasspipe/internal/domain"
	m "sasspipe.dev/pkg/sasspipe/internal/model"
)

// compileCmd represents the compile command.
var compileCmd = newCompileCmd()

func newCompileCmd() *cobra.Command {
	var outDir string

	var parallel int

	cmd := &cobra.Command{
		Use:   "compile [stylesheets...]",
		Short: "Compile stylesheets to CSS",
		Long:  compileLongDescription,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			paths := parsePaths(args)

			workflow, err := newWorkflow(cmd, workflowOptions{entries: paths})
			if err != nil {
				return err
			}

			return workflow.Compile(cmd.Context(), domain.CompileArgs{
				Paths:    paths,
				OutDir:   m.Path(viper.GetString(compileOutDirKey)),
				Parallel: viper.GetInt(compileParallelKey),
			})
		},
	}

	cmd.Flags().StringVarP(&outDir, outDirFlagName, "o", viper.GetString(compileOutDirKey), "write <name>.css files to this directory instead of stdout")
	bindFlagToConfig(cmd.Flags().Lookup(outDirFlagName), compileOutDirKey)

	cmd.Flags().IntVarP(&parallel, parallelFlagName, "p", viper.GetInt(compileParallelKey), "number of stylesheets to compile concurrently")
	bindFlagToConfig(cmd.Flags().Lookup(parallelFlagName), compileParallelKey)

	return cmd
}

func init() {
	rootCmd.AddCommand(compileCmd)
}
