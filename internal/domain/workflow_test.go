package domain

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"sasspipe.dev/pkg/sasspipe/internal/adapter"
	"sasspipe.dev/pkg/sasspipe/internal/adapter/mocks"
	"sasspipe.dev/pkg/sasspipe/internal/controller"
	m "sasspipe.dev/pkg/sasspipe/internal/model"
)

type workflowFixture struct {
	fs       afero.Fs
	stdout   *bytes.Buffer
	stderr   *bytes.Buffer
	compiler *fakeCompiler
	workflow Workflow
}

func newWorkflowFixture(t *testing.T, store adapter.ArtifactStore) *workflowFixture {
	t.Helper()

	fs := newThemeFs(t)
	fsAdapter := adapter.NewSourceFSAdapter(fs)

	compiler := newSass()

	registry, err := NewRegistry(compiler)
	require.NoError(t, err)

	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}

	cmd := &cobra.Command{Use: "test"}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	pipeline := NewPipeline(registry, store, fsAdapter)

	return &workflowFixture{
		fs:       fs,
		stdout:   stdout,
		stderr:   stderr,
		compiler: compiler,
		workflow: NewWorkflow(
			fsAdapter,
			store,
			controller.NewSimpleUI(cmd),
			pipeline,
			NewFingerprinter(fsAdapter, SassExtensions(), 0),
			NewWatcher(pipeline, registry, fsAdapter, 0),
		),
	}
}

func TestWorkflow_Compile_ToOutDir(t *testing.T) {
	fixture := newWorkflowFixture(t, nil)

	err := fixture.workflow.Compile(context.Background(), CompileArgs{
		Paths:    []m.Path{"/theme/assets/stylesheets/site.scss", "/theme/assets/stylesheets/admin.scss"},
		OutDir:   "/public/css",
		Parallel: 2,
	})
	require.NoError(t, err)

	for _, name := range []string{"site.css", "admin.css"} {
		content, err := afero.ReadFile(fixture.fs, "/public/css/"+name)
		require.NoError(t, err, name)
		assert.True(t, strings.HasSuffix(string(content), "body{}"))
	}

	assert.Empty(t, fixture.stdout.String())
	assert.Contains(t, fixture.stderr.String(), "/theme/assets/stylesheets/site.scss -> /public/css/site.css")
	assert.Contains(t, fixture.stderr.String(), "2 stylesheet(s): 2 compiled, 0 cached, 0 fallback")
}

func TestWorkflow_Compile_ToStdout(t *testing.T) {
	fixture := newWorkflowFixture(t, nil)

	err := fixture.workflow.Compile(context.Background(), CompileArgs{
		Paths: []m.Path{"/theme/assets/stylesheets/site.scss"},
	})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(fixture.stdout.String(), "/* site.scss compiled by fake"))
	assert.True(t, strings.HasSuffix(fixture.stdout.String(), "body{}"))
}

func TestWorkflow_Compile_FallbackIsNotAnError(t *testing.T) {
	fixture := newWorkflowFixture(t, nil)
	fixture.compiler.compileFn = func(_ context.Context, _ m.Path) (m.Artifact, error) {
		return m.Artifact{}, &CompileError{Description: "Failed to run the following command: compass", Stderr: "boom", ExitCode: 1}
	}

	err := fixture.workflow.Compile(context.Background(), CompileArgs{
		Paths:  []m.Path{"/theme/assets/stylesheets/site.scss"},
		OutDir: "/public/css",
	})
	require.NoError(t, err)

	content, err := afero.ReadFile(fixture.fs, "/public/css/site.css")
	require.NoError(t, err)
	assert.Contains(t, string(content), errorBanner)
	assert.Contains(t, fixture.stderr.String(), "1 fallback")
}

func TestWorkflow_Compile_Errors(t *testing.T) {
	t.Run("no paths", func(t *testing.T) {
		fixture := newWorkflowFixture(t, nil)
		require.Error(t, fixture.workflow.Compile(context.Background(), CompileArgs{}))
	})

	t.Run("missing source", func(t *testing.T) {
		fixture := newWorkflowFixture(t, nil)

		err := fixture.workflow.Compile(context.Background(), CompileArgs{
			Paths: []m.Path{"/theme/assets/stylesheets/missing.scss"},
		})
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrSourceNotFound))
	})

	t.Run("compiler unavailable", func(t *testing.T) {
		fixture := newWorkflowFixture(t, nil)
		fixture.compiler.compileFn = func(_ context.Context, _ m.Path) (m.Artifact, error) {
			return m.Artifact{}, &ExecutableError{Path: "/usr/bin/compass", Reason: "cannot be found"}
		}

		err := fixture.workflow.Compile(context.Background(), CompileArgs{
			Paths:  []m.Path{"/theme/assets/stylesheets/site.scss"},
			OutDir: "/public/css",
		})
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrCompilerUnavailable))

		exists, err := afero.Exists(fixture.fs, "/public/css/site.css")
		require.NoError(t, err)
		assert.False(t, exists)
	})
}

func TestWorkflow_Fingerprint(t *testing.T) {
	fixture := newWorkflowFixture(t, nil)

	require.NoError(t, fixture.workflow.Fingerprint(context.Background(), "/theme/assets/stylesheets/site.scss"))

	expected, err := newTestFingerprinter(fixture.fs, 0).Fingerprint(context.Background(), "/theme/assets/stylesheets/site.scss")
	require.NoError(t, err)

	assert.Equal(t, string(expected)+"\n", fixture.stdout.String())
}

func TestWorkflow_Dependencies(t *testing.T) {
	fixture := newWorkflowFixture(t, nil)

	require.NoError(t, fixture.workflow.Dependencies(context.Background(), "/theme/assets/stylesheets/site.scss"))

	output := fixture.stdout.String()
	assert.Contains(t, output, "/theme/assets/stylesheets/partials/_grid.scss")
	assert.Contains(t, output, "/theme/assets/vendor/reset.sass")
	assert.NotContains(t, output, "notes.txt")
	assert.Contains(t, output, "TOTAL FILES 4")
}

func TestWorkflow_ClearCache(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		fixture := newWorkflowFixture(t, nil)

		err := fixture.workflow.ClearCache(context.Background())
		assert.True(t, errors.Is(err, ErrCacheDisabled))
	})

	t.Run("clears store", func(t *testing.T) {
		store := mocks.NewMockArtifactStore(t)
		store.On("Clear", mock.Anything).Return(nil).Once()
		store.On("Root").Return("/cache")

		fixture := newWorkflowFixture(t, store)

		require.NoError(t, fixture.workflow.ClearCache(context.Background()))
		assert.Contains(t, fixture.stderr.String(), "Cleared artifact cache at /cache")
	})

	t.Run("store error", func(t *testing.T) {
		store := mocks.NewMockArtifactStore(t)
		store.On("Clear", mock.Anything).Return(errors.New("read-only")).Once()
		store.On("Root").Return("/cache")

		fixture := newWorkflowFixture(t, store)

		require.Error(t, fixture.workflow.ClearCache(context.Background()))
		assert.Empty(t, fixture.stderr.String())
	})
}

func TestWorkflow_Watch_NotConfigured(t *testing.T) {
	w := NewWorkflow(nil, nil, nil, nil, nil, nil)

	require.Error(t, w.Watch(context.Background(), WatchArgs{Paths: []m.Path{"/theme/site.scss"}}))
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.String()
}

func TestWorkflow_Watch_WritesArtifacts(t *testing.T) {
	root := t.TempDir()
	stylesheets := filepath.Join(root, "theme", "stylesheets")
	require.NoError(t, os.MkdirAll(stylesheets, 0o755))

	entry := filepath.Join(stylesheets, "site.scss")
	require.NoError(t, os.WriteFile(entry, []byte("body {}\n"), 0o644))

	outDir := filepath.Join(root, "public")

	fsAdapter := adapter.NewLocalSourceFSAdapter()
	registry, err := NewRegistry(newSass())
	require.NoError(t, err)

	pipeline := NewPipeline(registry, nil, fsAdapter)

	stderr := &lockedBuffer{}
	cmd := &cobra.Command{Use: "test"}
	cmd.SetOut(&lockedBuffer{})
	cmd.SetErr(stderr)

	w := NewWorkflow(
		fsAdapter,
		nil,
		controller.NewSimpleUI(cmd),
		pipeline,
		NewFingerprinter(fsAdapter, SassExtensions(), 0),
		NewWatcher(pipeline, registry, fsAdapter, 50*time.Millisecond),
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() {
		done <- w.Watch(ctx, WatchArgs{Paths: []m.Path{m.Path(entry)}, OutDir: m.Path(outDir)})
	}()

	output := filepath.Join(outDir, "site.css")

	assert.Eventually(t, func() bool {
		return strings.Contains(stderr.String(), entry+" -> "+output)
	}, 5*time.Second, 20*time.Millisecond)

	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop after cancel")
	}

	content, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(string(content), "body{}"))
}
