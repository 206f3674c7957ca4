package domain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"sasspipe.dev/pkg/sasspipe/internal/adapter"
	m "sasspipe.dev/pkg/sasspipe/internal/model"
)

// Pipeline is the caller side of a Compiler. It decides whether a stored
// artifact is still valid, compiles on a miss and converts compile failures
// into fallback artifacts.
type Pipeline interface {
	// Process returns an artifact for path. Compile failures yield a fallback
	// artifact and a nil error; only configuration and I/O problems are errors.
	Process(ctx context.Context, path m.Path) (m.Artifact, error)

	// ProcessAll processes paths with at most parallel compiles in flight and
	// returns the artifacts in input order. It stops at the first error.
	ProcessAll(ctx context.Context, paths []m.Path, parallel int) ([]m.Artifact, error)

	// OutputPath returns where the artifact for path belongs inside outDir.
	OutputPath(path m.Path, outDir m.Path) (m.Path, error)
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*pipeline)

// WithoutCache disables reads from and writes to the artifact store.
func WithoutCache() PipelineOption {
	return func(p *pipeline) {
		p.useCache = false
	}
}

type pipeline struct {
	registry  *Registry
	store     adapter.ArtifactStore
	fsAdapter adapter.SourceFSAdapter
	useCache  bool
	group     singleflight.Group
}

// NewPipeline constructs a Pipeline. store may be nil, which disables caching.
func NewPipeline(
	registry *Registry,
	store adapter.ArtifactStore,
	fsAdapter adapter.SourceFSAdapter,
	options ...PipelineOption,
) Pipeline {
	p := &pipeline{
		registry:  registry,
		store:     store,
		fsAdapter: fsAdapter,
		useCache:  store != nil,
	}

	for _, option := range options {
		option(p)
	}

	return p
}

func (p *pipeline) Process(ctx context.Context, path m.Path) (m.Artifact, error) {
	if err := ctx.Err(); err != nil {
		return m.Artifact{}, err
	}

	abs, err := p.fsAdapter.AbsPath(ctx, path)
	if err != nil {
		return m.Artifact{}, fmt.Errorf("failed to resolve %s: %w", path, err)
	}

	info, err := p.fsAdapter.FileInfo(ctx, abs)
	if err != nil || info.IsDir() {
		return m.Artifact{}, fmt.Errorf("%w: %s", ErrSourceNotFound, abs)
	}

	compiler, err := p.registry.For(abs)
	if err != nil {
		return m.Artifact{}, err
	}

	fingerprint, err := compiler.Fingerprint(ctx, abs)
	if err != nil {
		return m.Artifact{}, fmt.Errorf("failed to fingerprint %s: %w", abs, err)
	}

	key, err := compiler.CacheKey(ctx, abs, fingerprint)
	if err != nil {
		return m.Artifact{}, fmt.Errorf("failed to derive cache key for %s: %w", abs, err)
	}

	// Callers with the same key share one compile. It ignores caller
	// cancellation and is bounded by the runner timeout.
	detached := context.WithoutCancel(ctx)
	results := p.group.DoChan(string(key), func() (interface{}, error) {
		return p.produce(detached, compiler, abs, key)
	})

	select {
	case <-ctx.Done():
		return m.Artifact{}, ctx.Err()
	case result := <-results:
		if result.Err != nil {
			return m.Artifact{}, result.Err
		}

		if result.Shared {
			slog.Debug("Shared in-flight compile", "source", abs, "key", key)
		}

		return result.Val.(m.Artifact), nil
	}
}

// produce serves key from the store or compiles path. Artifacts carry key
// as their fingerprint.
func (p *pipeline) produce(ctx context.Context, compiler Compiler, path m.Path, fingerprint m.Fingerprint) (m.Artifact, error) {
	if p.useCache {
		artifact, err := p.store.Get(ctx, fingerprint)
		if err == nil {
			slog.Debug("Cache hit", "source", path, "fingerprint", fingerprint)
			return artifact, nil
		}

		if !errors.Is(err, adapter.ErrCacheMiss) {
			slog.Warn("Failed to read artifact store, compiling", "source", path, "error", err)
		}
	}

	artifact, err := compiler.Compile(ctx, path)
	if err != nil {
		var compileErr *CompileError
		if !errors.As(err, &compileErr) {
			return m.Artifact{}, err
		}

		slog.Warn("Compile failed, serving fallback", "source", path, "exitCode", compileErr.ExitCode, "error", compileErr)

		fallback := compiler.FormatError(compileErr.Report())
		fallback.Source = path
		fallback.Fingerprint = fingerprint
		fallback.Fallback = true

		return fallback, nil
	}

	header := compiler.CommentLine(fmt.Sprintf("%s compiled by %s, fingerprint %s",
		filepath.Base(string(path)), compiler.Name(), fingerprint.Short()))

	artifact.Body = append([]byte(header), artifact.Body...)
	artifact.Source = path
	artifact.Fingerprint = fingerprint
	artifact.ContentType = compiler.ContentType()

	if p.useCache {
		if err := p.store.Put(ctx, artifact); err != nil {
			slog.Warn("Failed to store artifact", "source", path, "fingerprint", fingerprint, "error", err)
		}
	}

	return artifact, nil
}

func (p *pipeline) ProcessAll(ctx context.Context, paths []m.Path, parallel int) ([]m.Artifact, error) {
	if parallel < 1 {
		parallel = 1
	}

	artifacts := make([]m.Artifact, len(paths))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(parallel)

	for i, path := range paths {
		group.Go(func() error {
			artifact, err := p.Process(groupCtx, path)
			if err != nil {
				return err
			}

			artifacts[i] = artifact

			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}

	return artifacts, nil
}

func (p *pipeline) OutputPath(path m.Path, outDir m.Path) (m.Path, error) {
	compiler, err := p.registry.For(path)
	if err != nil {
		return "", err
	}

	base := filepath.Base(string(path))
	name := strings.TrimSuffix(base, filepath.Ext(base)) + "." + compiler.OutputExtension()

	return m.Path(filepath.Join(string(outDir), name)), nil
}
