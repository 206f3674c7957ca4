package domain

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"sasspipe.dev/pkg/sasspipe/internal/adapter"
	m "sasspipe.dev/pkg/sasspipe/internal/model"
)

// Compiler turns one kind of source file into a servable artifact. The
// Pipeline depends only on this interface.
type Compiler interface {
	Name() string
	SupportedExtensions() []string
	OutputExtension() string
	ContentType() string

	// Fingerprint digests the file-system state path depends on.
	Fingerprint(ctx context.Context, path m.Path) (m.Fingerprint, error)

	// CacheKey combines fingerprint with every compiler setting that changes
	// the output for path.
	CacheKey(ctx context.Context, path m.Path, fingerprint m.Fingerprint) (m.Fingerprint, error)

	// Compile produces a fresh artifact for path. It fails with a
	// *CompileError when the tool runs but reports failure, and with an
	// error matching ErrCompilerUnavailable when the tool cannot run.
	Compile(ctx context.Context, path m.Path) (m.Artifact, error)

	// FormatError renders a failure description as a valid artifact.
	FormatError(description string) m.Artifact

	// CommentLine renders line as a comment in the output format.
	CommentLine(line string) string
}

// SassConfig holds the settings the Sass compiler reads.
type SassConfig struct {
	CompilerPath string
	OutputStyle  string
	RequireLibs  []string
	Compress     bool
	Munge        bool
}

const (
	compileSubcommand = "compile"

	// libraryPathEnv breaks Ruby-based compilers on some bundled-PHP hosts
	// (MAMP) and is always cleared.
	libraryPathEnv = "DYLD_LIBRARY_PATH"
)

type sassCompiler struct {
	config        SassConfig
	themePaths    adapter.ThemePaths
	runner        adapter.ProcessRunner
	fingerprinter Fingerprinter
}

// NewSassCompiler constructs the Compiler for .sass and .scss sources.
func NewSassCompiler(
	config SassConfig,
	themePaths adapter.ThemePaths,
	runner adapter.ProcessRunner,
	fingerprinter Fingerprinter,
) Compiler {
	return &sassCompiler{
		config:        config,
		themePaths:    themePaths,
		runner:        runner,
		fingerprinter: fingerprinter,
	}
}

func (c *sassCompiler) Name() string {
	return "sass"
}

func (c *sassCompiler) SupportedExtensions() []string {
	return SassExtensions()
}

func (c *sassCompiler) OutputExtension() string {
	return OutputExtensionCSS
}

func (c *sassCompiler) ContentType() string {
	return ContentTypeCSS
}

func (c *sassCompiler) Fingerprint(ctx context.Context, path m.Path) (m.Fingerprint, error) {
	return c.fingerprinter.Fingerprint(ctx, path)
}

func (c *sassCompiler) CacheKey(_ context.Context, path m.Path, fingerprint m.Fingerprint) (m.Fingerprint, error) {
	spec, err := c.commandSpec(path)
	if err != nil {
		return "", err
	}

	h := sha256.New()
	writeSeed(h, string(fingerprint), spec.Executable)

	for _, arg := range spec.Args {
		writeSeed(h, "arg", arg)
	}

	for _, key := range spec.EnvKeys() {
		writeSeed(h, "env "+key, spec.Env[key])
	}

	return m.Fingerprint(hex.EncodeToString(h.Sum(nil))), nil
}

func (c *sassCompiler) FormatError(description string) m.Artifact {
	return m.Artifact{
		Body:        FormatCSSError(description),
		ContentType: ContentTypeCSS,
		Fallback:    true,
	}
}

func (c *sassCompiler) CommentLine(line string) string {
	return CSSCommentLine(line)
}

func (c *sassCompiler) Compile(ctx context.Context, path m.Path) (m.Artifact, error) {
	if err := validateExecutable(c.config.CompilerPath); err != nil {
		slog.Error("Compiler executable unavailable", "path", c.config.CompilerPath, "error", err)
		return m.Artifact{}, err
	}

	spec, err := c.commandSpec(path)
	if err != nil {
		return m.Artifact{}, err
	}

	slog.Debug("Running compiler", "command", spec.CommandLine())

	result, err := c.runner.Run(ctx, spec)
	if err != nil {
		return m.Artifact{}, c.runError(spec, result, err)
	}

	if result.ExitCode != 0 {
		slog.Warn("Compiler exited with failure", "source", path, "exitCode", result.ExitCode)

		return m.Artifact{}, &CompileError{
			Description: "Failed to run the following command: " + spec.CommandLine(),
			Stderr:      string(result.Stderr),
			ExitCode:    result.ExitCode,
		}
	}

	return m.Artifact{
		Body:        result.Stdout,
		ContentType: ContentTypeCSS,
		Source:      path,
	}, nil
}

func (c *sassCompiler) runError(spec m.ProcessSpec, result m.ProcessResult, err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		slog.Warn("Compiler timed out", "command", spec.CommandLine())

		return &CompileError{
			Description: "Timed out running the following command: " + spec.CommandLine(),
			Stderr:      string(result.Stderr),
			ExitCode:    -1,
		}
	case errors.Is(err, adapter.ErrProcessStart):
		slog.Error("Failed to start compiler", "command", spec.CommandLine(), "error", err)
		return &ExecutableError{Path: spec.Executable, Reason: "could not be started", Err: err}
	default:
		return fmt.Errorf("failed to run compiler: %w", err)
	}
}

// commandSpec builds the compiler invocation for path.
func (c *sassCompiler) commandSpec(path m.Path) (m.ProcessSpec, error) {
	stylesheets, err := c.themePaths.StylesheetsPath()
	if err != nil {
		slog.Error("Failed to resolve theme stylesheets path", "error", err)
		return m.ProcessSpec{}, fmt.Errorf("failed to resolve import path: %w", err)
	}

	args := []string{compileSubcommand, string(path), "--paths", string(stylesheets)}

	if c.config.OutputStyle != "" {
		args = append(args, "--output-style", c.config.OutputStyle)
	}

	for _, lib := range c.config.RequireLibs {
		args = append(args, "--require", lib)
	}

	if c.config.Compress {
		args = append(args, "--compress")
	}

	if c.config.Munge {
		args = append(args, "--munge")
	}

	return m.ProcessSpec{
		Executable: c.config.CompilerPath,
		Args:       args,
		Env:        map[string]string{libraryPathEnv: ""},
	}, nil
}

// validateExecutable checks that path names a regular file with an execute bit.
func validateExecutable(path string) error {
	if path == "" {
		return &ExecutableError{Path: path, Reason: "is not configured"}
	}

	info, err := os.Stat(path)
	if err != nil {
		return &ExecutableError{Path: path, Reason: "cannot be found", Err: err}
	}

	if info.IsDir() {
		return &ExecutableError{Path: path, Reason: "is a directory"}
	}

	if info.Mode().Perm()&0o111 == 0 {
		return &ExecutableError{Path: path, Reason: "is not executable"}
	}

	return nil
}
