// Package adapter contains filesystem, process and storage adapters for sasspipe.
package adapter

import (
	"context"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	m "sasspipe.dev/pkg/sasspipe/internal/model"
)

// SourceFSAdapter abstracts filesystem-specific operations that the domain layer
// relies on when scanning stylesheet trees. It hides direct `os` access so the
// fingerprint logic can be tested against an in-memory filesystem.
type SourceFSAdapter interface {
	// Walk traverses the provided root path in lexical order. When recursive is
	// false the implementation limits itself to the root directory.
	Walk(ctx context.Context, root m.Path, recursive bool, fn FilepathWalkFunc) error

	// FileInfo returns metadata for a path.
	FileInfo(ctx context.Context, path m.Path) (os.FileInfo, error)

	// ReadFile loads a file and returns its contents.
	ReadFile(ctx context.Context, path m.Path) ([]byte, error)

	// WriteFile writes content to a file, creating parent directories.
	WriteFile(ctx context.Context, path m.Path, content []byte, perm os.FileMode) error

	// AbsPath resolves path against the working directory.
	AbsPath(ctx context.Context, path m.Path) (m.Path, error)
}

// FilepathWalkFunc mirrors the callback shape used by filepath.Walk. It is
// defined here to avoid leaking the afero type directly into the domain layer.
type FilepathWalkFunc func(path string, info os.FileInfo, err error) error

// LocalSourceFSAdapter implements SourceFSAdapter on top of an afero.Fs.
type LocalSourceFSAdapter struct {
	fs afero.Fs
}

// NewLocalSourceFSAdapter constructs an adapter backed by the OS filesystem.
func NewLocalSourceFSAdapter() *LocalSourceFSAdapter {
	return NewSourceFSAdapter(afero.NewOsFs())
}

// NewSourceFSAdapter constructs an adapter backed by the given filesystem.
func NewSourceFSAdapter(fs afero.Fs) *LocalSourceFSAdapter {
	return &LocalSourceFSAdapter{fs: fs}
}

// Walk iterates over files under root, optionally descending into subdirectories.
func (a *LocalSourceFSAdapter) Walk(ctx context.Context, root m.Path, recursive bool, fn FilepathWalkFunc) error {
	rootStr := string(root)

	return afero.Walk(a.fs, rootStr, func(path string, info os.FileInfo, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if err != nil {
			return fn(path, info, err)
		}

		if info.IsDir() && !recursive && path != rootStr {
			return filepath.SkipDir
		}

		return fn(path, info, nil)
	})
}

// FileInfo returns os.FileInfo metadata for the given path.
func (a *LocalSourceFSAdapter) FileInfo(_ context.Context, path m.Path) (os.FileInfo, error) {
	return a.fs.Stat(string(path))
}

// ReadFile loads file contents.
func (a *LocalSourceFSAdapter) ReadFile(_ context.Context, path m.Path) ([]byte, error) {
	return afero.ReadFile(a.fs, string(path))
}

// WriteFile writes content to a file with the given permissions.
func (a *LocalSourceFSAdapter) WriteFile(_ context.Context, path m.Path, content []byte, perm os.FileMode) error {
	if err := a.fs.MkdirAll(filepath.Dir(string(path)), 0o750); err != nil {
		return err
	}

	return afero.WriteFile(a.fs, string(path), content, perm)
}

// AbsPath returns an absolute, cleaned version of path.
func (a *LocalSourceFSAdapter) AbsPath(_ context.Context, path m.Path) (m.Path, error) {
	abs, err := filepath.Abs(string(path))
	if err != nil {
		return "", err
	}

	return m.Path(abs), nil
}
