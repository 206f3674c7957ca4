// Package cmd provides the root command and CLI setup for sasspipe.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	m "sasspipe.dev/pkg/sasspipe/internal/model"
)

// cacheDirFlag is a root-level flag shared by commands that read/write the artifact cache.
var cacheDirFlag string

// noCacheFlag disables the artifact cache when set.
var noCacheFlag bool

// logFileFlag overrides the log file location.
var logFileFlag string

// verboseFlag enables debug logging.
var verboseFlag bool

// stylesheetsFlag overrides the import root passed to the compiler.
var stylesheetsFlag string

const rootLongDescription = `sasspipe compiles Sass and SCSS stylesheets through an external compiler
(compass by default) and caches the resulting CSS.

The cache key covers every stylesheet next to the requested one, so editing
a partial invalidates the stylesheets that may import it. When compilation
fails a fallback stylesheet is served that flags the problem on the page and
carries the compiler's error output in a comment.`

const compileLongDescription = `Compile the given stylesheets.

Without --out-dir the CSS of every stylesheet is printed to stdout in the
order given. Compile failures produce a fallback stylesheet and do not fail
the command; a missing or unusable compiler does.`

const watchLongDescription = `Compile the given stylesheets, then recompile them whenever a stylesheet
in their tree changes. Press Ctrl+C (or q with --tui) to stop.`

// rootCmd represents the base command when called without any subcommands.
var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "sasspipe",
		Short:        "Cached Sass compilation with fallback stylesheets",
		Long:         rootLongDescription,
		SilenceUsage: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			configureLogger(viper.GetString(logFilenameKey), viper.GetBool(logVerboseKey))
			logConfigWarnings()
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	configureRootFlags(cmd)

	return cmd
}

func configureRootFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(&cacheDirFlag, cacheDirFlagName, viper.GetString(cacheDirKey), "directory of the artifact cache")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(cacheDirFlagName), cacheDirKey)

	cmd.PersistentFlags().BoolVar(&noCacheFlag, noCacheFlagName, viper.GetBool(cacheDisabledKey), "disable the artifact cache (always recompile)")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(noCacheFlagName), cacheDisabledKey)

	cmd.PersistentFlags().StringVar(&logFileFlag, logFileFlagName, viper.GetString(logFilenameKey), "log file path")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(logFileFlagName), logFilenameKey)

	cmd.PersistentFlags().BoolVarP(&verboseFlag, verboseFlagName, "v", viper.GetBool(logVerboseKey), "log at debug level")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(verboseFlagName), logVerboseKey)

	cmd.PersistentFlags().StringVar(&stylesheetsFlag, stylesheetsFlagName, viper.GetString(stylesheetsPathKey), "import root passed to the compiler (default: directory of the first stylesheet)")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(stylesheetsFlagName), stylesheetsPathKey)
}

// bindFlagToConfig wires a Cobra flag to a Viper key so config/env values feed the flag.
func bindFlagToConfig(flag *pflag.Flag, key string) {
	if flag == nil {
		cobra.CheckErr(fmt.Errorf("flag for config key %q not found", key))
		return
	}

	cobra.CheckErr(viper.BindPFlag(key, flag))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := rootCmd.ExecuteContext(ctx)

	stop()

	if err != nil {
		os.Exit(1)
	}
}

func parsePaths(args []string) []m.Path {
	paths := make([]m.Path, 0, len(args))
	for _, arg := range args {
		paths = append(paths, m.Path(arg))
	}

	return paths
}
