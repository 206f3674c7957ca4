package adapter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	m "sasspipe.dev/pkg/sasspipe/internal/model"
)

// ErrProcessStart is returned when the executable could not be spawned at all.
var ErrProcessStart = errors.New("failed to start process")

// ProcessRunner abstracts running an external process to completion.
type ProcessRunner interface {
	// Run spawns the process described by spec, waits for it to exit and
	// returns its exit code along with both captured streams. A non-zero exit
	// code is not an error; errors are reserved for spawn failures and for
	// processes cut short by ctx.
	Run(ctx context.Context, spec m.ProcessSpec) (m.ProcessResult, error)
}

// LocalProcessRunner provides a concrete implementation using os/exec.
type LocalProcessRunner struct {
	timeout   time.Duration
	waitDelay time.Duration
}

// NewLocalProcessRunner constructs a LocalProcessRunner. A zero timeout means
// the process may run for as long as ctx allows.
func NewLocalProcessRunner(timeout time.Duration) *LocalProcessRunner {
	return &LocalProcessRunner{
		timeout:   timeout,
		waitDelay: time.Second,
	}
}

// Run executes spec and captures stdout and stderr separately.
func (a *LocalProcessRunner) Run(ctx context.Context, spec m.ProcessSpec) (m.ProcessResult, error) {
	if a.timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, spec.Executable, spec.Args...)
	cmd.Dir = spec.Dir
	cmd.Env = mergeEnv(os.Environ(), spec.Env)
	// Children that inherit our pipes must not keep Wait blocked after a kill.
	cmd.WaitDelay = a.waitDelay

	var stdout, stderr bytes.Buffer

	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	result := m.ProcessResult{
		Stdout: stdout.Bytes(),
		Stderr: stderr.Bytes(),
	}

	if err == nil {
		return result, nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		result.ExitCode = -1
		return result, fmt.Errorf("process %s interrupted: %w", spec.Executable, ctxErr)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		result.ExitCode = exitErr.ExitCode()
		return result, nil
	}

	result.ExitCode = -1

	return result, fmt.Errorf("%w %s: %w", ErrProcessStart, spec.Executable, err)
}

// mergeEnv applies overrides on top of base. Keys present in base are
// replaced in place; new keys are appended in sorted order.
func mergeEnv(base []string, overrides map[string]string) []string {
	if len(overrides) == 0 {
		return base
	}

	merged := make([]string, 0, len(base)+len(overrides))
	applied := make(map[string]bool, len(overrides))

	for _, entry := range base {
		key, _, _ := strings.Cut(entry, "=")
		if value, ok := overrides[key]; ok {
			merged = append(merged, key+"="+value)
			applied[key] = true

			continue
		}

		merged = append(merged, entry)
	}

	keys := m.ProcessSpec{Env: overrides}.EnvKeys()
	for _, key := range keys {
		if !applied[key] {
			merged = append(merged, key+"="+overrides[key])
		}
	}

	return merged
}
