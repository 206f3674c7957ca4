package domain

import (
	"context"
	"crypto/sha256"
	"fmt"
	"hash"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"sasspipe.dev/pkg/sasspipe/internal/adapter"
	m "sasspipe.dev/pkg/sasspipe/internal/model"
)

// Fingerprinter derives cache keys for stylesheet sources from the state of
// every stylesheet that shares the source's grandparent directory.
type Fingerprinter interface {
	// Fingerprint returns a digest that changes whenever a file in the
	// dependency set of path is added, removed or touched.
	Fingerprint(ctx context.Context, path m.Path) (m.Fingerprint, error)

	// DependencySet returns the sorted sources the fingerprint is built from.
	DependencySet(ctx context.Context, path m.Path) (m.DependencySet, error)
}

type fingerprinter struct {
	fsAdapter  adapter.SourceFSAdapter
	extensions map[string]bool
	resolution time.Duration
}

// NewFingerprinter constructs a Fingerprinter matching files by extensions.
// Modification times are truncated to resolution before hashing; a zero
// resolution hashes them at full precision.
func NewFingerprinter(fsAdapter adapter.SourceFSAdapter, extensions []string, resolution time.Duration) Fingerprinter {
	exts := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		exts["."+ext] = true
	}

	return &fingerprinter{
		fsAdapter:  fsAdapter,
		extensions: exts,
		resolution: resolution,
	}
}

// BaseDir returns the directory scanned for the dependencies of path.
func BaseDir(path m.Path) m.Path {
	return m.Path(filepath.Dir(filepath.Dir(string(path))))
}

func (f *fingerprinter) DependencySet(ctx context.Context, path m.Path) (m.DependencySet, error) {
	baseDir := BaseDir(path)

	var set m.DependencySet

	err := f.fsAdapter.Walk(ctx, baseDir, true, func(walked string, info os.FileInfo, err error) error {
		if err != nil {
			// A missing base dir, or a file removed mid-walk, just contributes nothing.
			if os.IsNotExist(err) {
				return nil
			}

			return err
		}

		if info.IsDir() || !f.extensions[filepath.Ext(walked)] {
			return nil
		}

		set = append(set, m.SourceFile{Path: m.Path(walked), ModTime: info.ModTime()})

		return nil
	})
	if err != nil {
		slog.Error("Failed to scan dependency set", "path", path, "baseDir", baseDir, "error", err)
		return nil, fmt.Errorf("failed to scan dependencies of %s: %w", path, err)
	}

	sort.Slice(set, func(i, j int) bool {
		return set[i].Path < set[j].Path
	})

	return set, nil
}

func (f *fingerprinter) Fingerprint(ctx context.Context, path m.Path) (m.Fingerprint, error) {
	set, err := f.DependencySet(ctx, path)
	if err != nil {
		return "", err
	}

	h := sha256.New()
	for _, file := range set {
		writeSeed(h, string(file.Path), f.bucket(file.ModTime))
	}

	_, _ = h.Write([]byte(path))

	fingerprint := m.Fingerprint(fmt.Sprintf("%x", h.Sum(nil)))
	slog.Debug("Computed fingerprint", "path", path, "files", len(set), "fingerprint", fingerprint)

	return fingerprint, nil
}

func (f *fingerprinter) bucket(modTime time.Time) string {
	if f.resolution > 0 {
		modTime = modTime.Truncate(f.resolution)
	}

	return strconv.FormatInt(modTime.UnixNano(), 10)
}

// writeSeed writes one path/bucket pair. The separators keep adjacent
// entries from running together.
func writeSeed(h hash.Hash, path, bucket string) {
	_, _ = h.Write([]byte(path))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(bucket))
	_, _ = h.Write([]byte{'\n'})
}
