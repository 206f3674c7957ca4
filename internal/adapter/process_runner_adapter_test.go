package adapter

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	m "sasspipe.dev/pkg/sasspipe/internal/model"
)

// These tests exercise LocalProcessRunner against small shell scripts written
// into a temp dir instead of a real Sass toolchain.

func writeScript(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "tool.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755))

	return path
}

func TestLocalProcessRunner_Run_CapturesStreamsSeparately(t *testing.T) {
	script := writeScript(t, "echo out-$1\necho err-$2 >&2\nexit 0\n")
	runner := NewLocalProcessRunner(10 * time.Second)

	result, err := runner.Run(context.Background(), m.ProcessSpec{
		Executable: script,
		Args:       []string{"a", "b"},
	})
	require.NoError(t, err)

	assert.Equal(t, 0, result.ExitCode)
	assert.Equal(t, "out-a\n", string(result.Stdout))
	assert.Equal(t, "err-b\n", string(result.Stderr))
}

func TestLocalProcessRunner_Run_NonZeroExitIsNotAnError(t *testing.T) {
	script := writeScript(t, "printf 'syntax error' >&2\nexit 3\n")
	runner := NewLocalProcessRunner(10 * time.Second)

	result, err := runner.Run(context.Background(), m.ProcessSpec{Executable: script})
	require.NoError(t, err)

	assert.Equal(t, 3, result.ExitCode)
	assert.Equal(t, "syntax error", string(result.Stderr))
}

func TestLocalProcessRunner_Run_AppliesEnvOverrides(t *testing.T) {
	t.Setenv("SASSPIPE_TEST_INHERITED", "kept")
	t.Setenv("SASSPIPE_TEST_CLEARED", "should-vanish")

	script := writeScript(t, "printf '%s|%s|%s' \"$SASSPIPE_TEST_INHERITED\" \"$SASSPIPE_TEST_CLEARED\" \"$SASSPIPE_TEST_ADDED\"\n")
	runner := NewLocalProcessRunner(10 * time.Second)

	result, err := runner.Run(context.Background(), m.ProcessSpec{
		Executable: script,
		Env: map[string]string{
			"SASSPIPE_TEST_CLEARED": "",
			"SASSPIPE_TEST_ADDED":   "new",
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "kept||new", string(result.Stdout))
}

func TestLocalProcessRunner_Run_MissingExecutable(t *testing.T) {
	runner := NewLocalProcessRunner(10 * time.Second)

	_, err := runner.Run(context.Background(), m.ProcessSpec{
		Executable: filepath.Join(t.TempDir(), "missing"),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrProcessStart))
}

func TestLocalProcessRunner_Run_TimeoutKillsProcess(t *testing.T) {
	script := writeScript(t, "exec sleep 30\n")
	runner := NewLocalProcessRunner(200 * time.Millisecond)

	start := time.Now()
	result, err := runner.Run(context.Background(), m.ProcessSpec{Executable: script})

	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Equal(t, -1, result.ExitCode)
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestMergeEnv(t *testing.T) {
	base := []string{"A=1", "DYLD_LIBRARY_PATH=/opt/lib", "B=2"}

	got := mergeEnv(base, map[string]string{"DYLD_LIBRARY_PATH": "", "Z": "9", "C": "3"})

	assert.Equal(t, []string{"A=1", "DYLD_LIBRARY_PATH=", "B=2", "C=3", "Z=9"}, got)
	assert.Equal(t, base, mergeEnv(base, nil))
}
