package cmd

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"sasspipe.dev/pkg/sasspipe/internal/adapter"
	"sasspipe.dev/pkg/sasspipe/internal/controller"
	"sasspipe.dev/pkg/sasspipe/internal/domain"
	m "sasspipe.dev/pkg/sasspipe/internal/model"
)

const fallbackCompileTimeout = 2 * time.Minute

// workflowOptions selects how newWorkflow assembles the workflow.
type workflowOptions struct {
	entries    []m.Path
	useTUI     bool
	forceStore bool // open the artifact store even when caching is disabled
}

// newWorkflow builds the workflow and everything under it from the current
// configuration.
func newWorkflow(cmd *cobra.Command, options workflowOptions) (domain.Workflow, error) {
	fsAdapter := adapter.NewLocalSourceFSAdapter()
	runner := adapter.NewLocalProcessRunner(configDuration(compileTimeoutKey, fallbackCompileTimeout))

	fingerprinter := domain.NewFingerprinter(fsAdapter, domain.SassExtensions(), configDuration(mtimeResolutionKey, 0))

	compiler := domain.NewSassCompiler(
		sassConfig(),
		adapter.NewStaticThemePaths(stylesheetsPath(options.entries)),
		runner,
		fingerprinter,
	)

	registry, err := domain.NewRegistry(compiler)
	if err != nil {
		return nil, err
	}

	store, err := artifactStore(options.forceStore)
	if err != nil {
		return nil, err
	}

	pipeline := domain.NewPipeline(registry, store, fsAdapter)
	watcher := domain.NewWatcher(pipeline, registry, fsAdapter, configDuration(watchDebounceKey, domain.DefaultDebounce))

	return domain.NewWorkflow(
		fsAdapter,
		store,
		controller.NewUI(cmd, options.useTUI),
		pipeline,
		fingerprinter,
		watcher,
	), nil
}

func sassConfig() domain.SassConfig {
	return domain.SassConfig{
		CompilerPath: viper.GetString(compassPathKey),
		OutputStyle:  viper.GetString(outputStyleKey),
		RequireLibs:  viper.GetStringSlice(requireLibsKey),
		Compress:     viper.GetBool(yuiCompressKey),
		Munge:        viper.GetBool(yuiMungeKey),
	}
}

// stylesheetsPath returns the compiler import root: the configured theme
// path, or the directory of the first entry.
func stylesheetsPath(entries []m.Path) string {
	if configured := strings.TrimSpace(viper.GetString(stylesheetsPathKey)); configured != "" {
		return configured
	}

	if len(entries) == 0 {
		return ""
	}

	return filepath.Dir(string(entries[0]))
}

// artifactStore opens the configured store. It returns a nil store when
// caching is disabled and force is false.
func artifactStore(force bool) (adapter.ArtifactStore, error) {
	if viper.GetBool(cacheDisabledKey) && !force {
		return nil, nil
	}

	store, err := adapter.NewArtifactStore(viper.GetString(cacheDirKey))
	if err != nil {
		return nil, fmt.Errorf("failed to open artifact cache: %w", err)
	}

	return store, nil
}
