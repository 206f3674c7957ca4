// Package controller provides output adapters for displaying compile results.
package controller

import (
	"context"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	m "sasspipe.dev/pkg/sasspipe/internal/model"
)

// StartMode defines the mode of operation for the UI.
type StartMode int

// Available StartMode values.
const (
	ModeCompile StartMode = iota
	ModeWatch
)

// StartOption is a functional option for Start method.
type StartOption func(*StartConfig)

// StartConfig holds configuration for starting the UI.
type StartConfig struct {
	mode    StartMode
	entries []m.Path
	onQuit  func()
}

// WithCompileMode sets the UI to one-shot compile mode.
func WithCompileMode() StartOption {
	return func(c *StartConfig) {
		c.mode = ModeCompile
	}
}

// WithWatchMode sets the UI to watch mode for the given entries.
func WithWatchMode(entries []m.Path) StartOption {
	return func(c *StartConfig) {
		c.mode = ModeWatch
		c.entries = entries
	}
}

// WithQuitFunc registers a function called when the user closes the UI.
func WithQuitFunc(onQuit func()) StartOption {
	return func(c *StartConfig) {
		c.onQuit = onQuit
	}
}

func newStartConfig(options ...StartOption) StartConfig {
	config := StartConfig{mode: ModeCompile}
	for _, option := range options {
		option(&config)
	}

	return config
}

// UI defines the interface for displaying pipeline results.
// Implementations can use different output methods (simple text, TUI, etc).
type UI interface {
	Start(ctx context.Context, options ...StartOption) error
	Close(ctx context.Context)
	Wait(ctx context.Context) // Wait for UI to finish (user closes it)

	// DisplayArtifact shows a produced artifact. An empty output means the
	// body itself is the command's result and is printed.
	DisplayArtifact(ctx context.Context, artifact m.Artifact, output m.Path) error
	DisplayCompileSummary(ctx context.Context, artifacts []m.Artifact)
	DisplayFingerprint(ctx context.Context, path m.Path, fingerprint m.Fingerprint) error
	DisplayDependencies(ctx context.Context, path m.Path, deps m.DependencySet) error
	DisplayWatchEvent(ctx context.Context, event m.WatchEvent)
	DisplayCacheCleared(ctx context.Context, root string)
}

// NewUI returns the interactive TUI when useTUI is set, SimpleUI otherwise.
func NewUI(cmd *cobra.Command, useTUI bool) UI {
	if useTUI {
		return NewTUI(cmd)
	}

	return NewSimpleUI(cmd)
}

// IsTTY reports whether f is attached to a terminal.
func IsTTY(f *os.File) bool {
	if f == nil {
		return false
	}

	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
