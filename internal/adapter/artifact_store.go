package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/spf13/afero"

	m "sasspipe.dev/pkg/sasspipe/internal/model"
)

var (
	// ErrCacheMiss is returned when no artifact is stored for a fingerprint.
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidFingerprint is returned for fingerprints too short to address an entry.
	ErrInvalidFingerprint = errors.New("invalid fingerprint")
)

// ArtifactStore persists compiled artifacts keyed by fingerprint.
type ArtifactStore interface {
	Get(ctx context.Context, fingerprint m.Fingerprint) (m.Artifact, error)
	Put(ctx context.Context, artifact m.Artifact) error
	Clear(ctx context.Context) error
	Root() string
}

// manifest describes one stored artifact. The object file holds the body.
type manifest struct {
	Fingerprint string    `json:"fingerprint"`
	Source      string    `json:"source"`
	ContentType string    `json:"contentType"`
	Checksum    string    `json:"checksum"` // xxhash64 of the body
	Size        int       `json:"size"`
	CreatedAt   time.Time `json:"createdAt"`
}

// FSArtifactStore keeps artifacts on an afero filesystem using the layout
//
//	<root>/manifests/<fp[:2]>/<fp>.json
//	<root>/objects/<fp[:2]>/<fp>
type FSArtifactStore struct {
	root    string
	fs      afero.Fs
	nowFunc func() time.Time
	mu      sync.RWMutex
}

// StoreOption configures an FSArtifactStore.
type StoreOption func(*FSArtifactStore)

// WithStoreFs sets the filesystem the store writes to.
func WithStoreFs(fs afero.Fs) StoreOption {
	return func(s *FSArtifactStore) {
		s.fs = fs
	}
}

// WithStoreNowFunc sets the clock used for manifest timestamps.
func WithStoreNowFunc(now func() time.Time) StoreOption {
	return func(s *FSArtifactStore) {
		s.nowFunc = now
	}
}

// NewArtifactStore opens a store rooted at root, creating its directories.
func NewArtifactStore(root string, options ...StoreOption) (*FSArtifactStore, error) {
	store := &FSArtifactStore{
		root:    root,
		fs:      afero.NewOsFs(),
		nowFunc: time.Now,
	}

	for _, option := range options {
		option(store)
	}

	if err := store.ensureDirs(); err != nil {
		return nil, err
	}

	return store, nil
}

// Get loads the artifact stored for fingerprint. Entries whose body no longer
// matches the recorded checksum are removed and reported as ErrCacheMiss.
func (s *FSArtifactStore) Get(ctx context.Context, fingerprint m.Fingerprint) (m.Artifact, error) {
	if err := ctx.Err(); err != nil {
		return m.Artifact{}, err
	}

	if len(fingerprint) < 2 {
		return m.Artifact{}, fmt.Errorf("%w: %q", ErrInvalidFingerprint, fingerprint)
	}

	artifact, corrupt, err := s.load(fingerprint)
	if err != nil {
		return m.Artifact{}, err
	}

	if corrupt {
		slog.Warn("Discarding corrupt cache entry", "fingerprint", fingerprint, "root", s.root)

		if err := s.remove(fingerprint); err != nil {
			slog.Error("Failed to remove corrupt cache entry", "fingerprint", fingerprint, "error", err)
		}

		return m.Artifact{}, ErrCacheMiss
	}

	return artifact, nil
}

func (s *FSArtifactStore) load(fingerprint m.Fingerprint) (m.Artifact, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	manifestPath := s.manifestPath(fingerprint)

	exists, err := afero.Exists(s.fs, manifestPath)
	if err != nil {
		return m.Artifact{}, false, fmt.Errorf("failed to check manifest: %w", err)
	}

	if !exists {
		return m.Artifact{}, false, ErrCacheMiss
	}

	data, err := afero.ReadFile(s.fs, manifestPath)
	if err != nil {
		return m.Artifact{}, false, fmt.Errorf("failed to read manifest: %w", err)
	}

	var entry manifest
	if err := json.Unmarshal(data, &entry); err != nil {
		return m.Artifact{}, true, nil
	}

	body, err := afero.ReadFile(s.fs, s.objectPath(fingerprint))
	if err != nil {
		return m.Artifact{}, true, nil
	}

	if checksum(body) != entry.Checksum {
		return m.Artifact{}, true, nil
	}

	return m.Artifact{
		Body:        body,
		ContentType: entry.ContentType,
		Source:      m.Path(entry.Source),
		Fingerprint: fingerprint,
		Cached:      true,
	}, false, nil
}

// Put stores artifact under its fingerprint. The object is written before
// the manifest so a manifest only ever points at a complete body.
func (s *FSArtifactStore) Put(ctx context.Context, artifact m.Artifact) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if len(artifact.Fingerprint) < 2 {
		return fmt.Errorf("%w: %q", ErrInvalidFingerprint, artifact.Fingerprint)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry := manifest{
		Fingerprint: string(artifact.Fingerprint),
		Source:      string(artifact.Source),
		ContentType: artifact.ContentType,
		Checksum:    checksum(artifact.Body),
		Size:        len(artifact.Body),
		CreatedAt:   s.nowFunc().UTC(),
	}

	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}

	if err := s.writeAtomic(s.objectPath(artifact.Fingerprint), artifact.Body); err != nil {
		return fmt.Errorf("failed to write object: %w", err)
	}

	if err := s.writeAtomic(s.manifestPath(artifact.Fingerprint), data); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}

	slog.Debug("Stored artifact", "fingerprint", artifact.Fingerprint, "source", artifact.Source, "size", len(artifact.Body))

	return nil
}

// Clear removes all entries from the store.
func (s *FSArtifactStore) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fs.RemoveAll(s.manifestDir()); err != nil {
		return fmt.Errorf("failed to remove manifests: %w", err)
	}

	if err := s.fs.RemoveAll(s.objectsDir()); err != nil {
		return fmt.Errorf("failed to remove objects: %w", err)
	}

	return s.ensureDirs()
}

// Root returns the directory the store lives in.
func (s *FSArtifactStore) Root() string {
	return s.root
}

func (s *FSArtifactStore) remove(fingerprint m.Fingerprint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, path := range []string{s.manifestPath(fingerprint), s.objectPath(fingerprint)} {
		if err := s.fs.Remove(path); err != nil {
			if exists, _ := afero.Exists(s.fs, path); exists {
				return err
			}
		}
	}

	return nil
}

func (s *FSArtifactStore) writeAtomic(path string, data []byte) error {
	if err := s.fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	tmp := path + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, data, 0o644); err != nil {
		return err
	}

	return s.fs.Rename(tmp, path)
}

func (s *FSArtifactStore) ensureDirs() error {
	if err := s.fs.MkdirAll(s.manifestDir(), 0o755); err != nil {
		return fmt.Errorf("failed to create manifests directory: %w", err)
	}

	if err := s.fs.MkdirAll(s.objectsDir(), 0o755); err != nil {
		return fmt.Errorf("failed to create objects directory: %w", err)
	}

	return nil
}

func (s *FSArtifactStore) manifestDir() string {
	return filepath.Join(s.root, "manifests")
}

func (s *FSArtifactStore) objectsDir() string {
	return filepath.Join(s.root, "objects")
}

func (s *FSArtifactStore) manifestPath(fingerprint m.Fingerprint) string {
	fp := string(fingerprint)
	return filepath.Join(s.manifestDir(), fp[:2], fp+".json")
}

func (s *FSArtifactStore) objectPath(fingerprint m.Fingerprint) string {
	fp := string(fingerprint)
	return filepath.Join(s.objectsDir(), fp[:2], fp)
}

func checksum(body []byte) string {
	return fmt.Sprintf("%016x", xxhash.Sum64(body))
}
