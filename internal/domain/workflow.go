package domain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"sasspipe.dev/pkg/sasspipe/internal/adapter"
	"sasspipe.dev/pkg/sasspipe/internal/controller"
	m "sasspipe.dev/pkg/sasspipe/internal/model"
)

// ErrCacheDisabled is returned by cache operations when no store is configured.
var ErrCacheDisabled = errors.New("artifact cache is disabled")

const outputPerm = 0o644

// CompileArgs contains the arguments for a one-shot compile.
type CompileArgs struct {
	Paths    []m.Path
	OutDir   m.Path // empty prints artifacts instead of writing them
	Parallel int
}

// WatchArgs contains the arguments for watch mode.
type WatchArgs struct {
	Paths  []m.Path
	OutDir m.Path // empty only reports recompiles
}

// Workflow runs the user-facing operations on top of the pipeline and
// reports their results through a UI.
type Workflow interface {
	Compile(ctx context.Context, args CompileArgs) error
	Fingerprint(ctx context.Context, path m.Path) error
	Dependencies(ctx context.Context, path m.Path) error
	Watch(ctx context.Context, args WatchArgs) error
	ClearCache(ctx context.Context) error
}

type workflow struct {
	fsAdapter     adapter.SourceFSAdapter
	store         adapter.ArtifactStore
	ui            controller.UI
	pipeline      Pipeline
	fingerprinter Fingerprinter
	watcher       *Watcher
}

// NewWorkflow creates a new Workflow instance with the provided dependencies.
// store may be nil when caching is disabled.
func NewWorkflow(
	fsAdapter adapter.SourceFSAdapter,
	store adapter.ArtifactStore,
	ui controller.UI,
	pipeline Pipeline,
	fingerprinter Fingerprinter,
	watcher *Watcher,
) Workflow {
	return &workflow{
		fsAdapter:     fsAdapter,
		store:         store,
		ui:            ui,
		pipeline:      pipeline,
		fingerprinter: fingerprinter,
		watcher:       watcher,
	}
}

func (w *workflow) Compile(ctx context.Context, args CompileArgs) error {
	if len(args.Paths) == 0 {
		return fmt.Errorf("no stylesheets to compile")
	}

	if err := w.ui.Start(ctx, controller.WithCompileMode()); err != nil {
		slog.Error("Failed to start workflow UI", "error", err)
		return err
	}
	defer w.ui.Close(ctx)

	artifacts, err := w.pipeline.ProcessAll(ctx, args.Paths, args.Parallel)
	if err != nil {
		slog.Error("Failed to compile stylesheets", "error", err)
		return fmt.Errorf("compile: %w", err)
	}

	for _, artifact := range artifacts {
		output, err := w.writeArtifact(ctx, artifact, args.OutDir)
		if err != nil {
			return err
		}

		if err := w.ui.DisplayArtifact(ctx, artifact, output); err != nil {
			slog.Error("Failed to display artifact", "source", artifact.Source, "error", err)
			return fmt.Errorf("display: %w", err)
		}
	}

	w.ui.DisplayCompileSummary(ctx, artifacts)

	return nil
}

// writeArtifact stores artifact inside outDir and returns the written path.
// Nothing is written when outDir is empty.
func (w *workflow) writeArtifact(ctx context.Context, artifact m.Artifact, outDir m.Path) (m.Path, error) {
	if outDir == "" {
		return "", nil
	}

	output, err := w.pipeline.OutputPath(artifact.Source, outDir)
	if err != nil {
		return "", err
	}

	if err := w.fsAdapter.WriteFile(ctx, output, artifact.Body, outputPerm); err != nil {
		slog.Error("Failed to write artifact", "output", output, "error", err)
		return "", fmt.Errorf("failed to write %s: %w", output, err)
	}

	return output, nil
}

func (w *workflow) Fingerprint(ctx context.Context, path m.Path) error {
	abs, err := w.fsAdapter.AbsPath(ctx, path)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", path, err)
	}

	fingerprint, err := w.fingerprinter.Fingerprint(ctx, abs)
	if err != nil {
		return err
	}

	return w.ui.DisplayFingerprint(ctx, abs, fingerprint)
}

func (w *workflow) Dependencies(ctx context.Context, path m.Path) error {
	abs, err := w.fsAdapter.AbsPath(ctx, path)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", path, err)
	}

	deps, err := w.fingerprinter.DependencySet(ctx, abs)
	if err != nil {
		return err
	}

	return w.ui.DisplayDependencies(ctx, abs, deps)
}

func (w *workflow) Watch(ctx context.Context, args WatchArgs) error {
	if w.watcher == nil {
		return fmt.Errorf("watch mode is not configured")
	}

	// Events carry absolute entries.
	entries := make([]m.Path, 0, len(args.Paths))
	for _, path := range args.Paths {
		abs, err := w.fsAdapter.AbsPath(ctx, path)
		if err != nil {
			return fmt.Errorf("failed to resolve %s: %w", path, err)
		}

		entries = append(entries, abs)
	}

	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := w.ui.Start(watchCtx, controller.WithWatchMode(entries), controller.WithQuitFunc(cancel)); err != nil {
		slog.Error("Failed to start workflow UI", "error", err)
		return err
	}
	defer w.ui.Close(ctx)

	return w.watcher.Watch(watchCtx, entries, func(event m.WatchEvent) {
		if event.Err == nil {
			output, err := w.writeArtifact(watchCtx, event.Artifact, args.OutDir)
			event.Output = output
			event.Err = err
		}

		w.ui.DisplayWatchEvent(watchCtx, event)
	})
}

func (w *workflow) ClearCache(ctx context.Context) error {
	if w.store == nil {
		return ErrCacheDisabled
	}

	if err := w.store.Clear(ctx); err != nil {
		slog.Error("Failed to clear artifact cache", "root", w.store.Root(), "error", err)
		return err
	}

	w.ui.DisplayCacheCleared(ctx, w.store.Root())

	return nil
}
