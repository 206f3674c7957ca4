package domain

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sasspipe.dev/pkg/sasspipe/internal/adapter"
	m "sasspipe.dev/pkg/sasspipe/internal/model"
)

var baseTime = time.Date(2024, 5, 6, 10, 0, 0, 0, time.UTC)

// newThemeFs lays out a small theme tree: the requested files live in
// /theme/assets/stylesheets, so the scanned base dir is /theme/assets.
func newThemeFs(t *testing.T) afero.Fs {
	t.Helper()

	fs := afero.NewMemMapFs()
	writeSource(t, fs, "/theme/assets/stylesheets/site.scss", "@import 'partials/grid';", baseTime)
	writeSource(t, fs, "/theme/assets/stylesheets/admin.scss", "@import 'partials/grid';", baseTime)
	writeSource(t, fs, "/theme/assets/stylesheets/partials/_grid.scss", ".grid {}", baseTime)
	writeSource(t, fs, "/theme/assets/vendor/reset.sass", "html\n  margin: 0", baseTime)
	writeSource(t, fs, "/theme/assets/vendor/notes.txt", "not a stylesheet", baseTime)
	writeSource(t, fs, "/theme/other/outside.scss", "p {}", baseTime)

	return fs
}

func writeSource(t *testing.T, fs afero.Fs, path, content string, modTime time.Time) {
	t.Helper()

	require.NoError(t, fs.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0o644))
	require.NoError(t, fs.Chtimes(path, modTime, modTime))
}

func newTestFingerprinter(fs afero.Fs, resolution time.Duration) Fingerprinter {
	return NewFingerprinter(adapter.NewSourceFSAdapter(fs), SassExtensions(), resolution)
}

func TestBaseDir(t *testing.T) {
	assert.Equal(t, m.Path("/theme/assets"), BaseDir("/theme/assets/stylesheets/site.scss"))
	assert.Equal(t, m.Path("/"), BaseDir("/site.scss"))
}

func TestFingerprinter_DependencySet(t *testing.T) {
	fp := newTestFingerprinter(newThemeFs(t), 0)

	set, err := fp.DependencySet(context.Background(), "/theme/assets/stylesheets/site.scss")
	require.NoError(t, err)

	assert.Equal(t, []m.Path{
		"/theme/assets/stylesheets/admin.scss",
		"/theme/assets/stylesheets/partials/_grid.scss",
		"/theme/assets/stylesheets/site.scss",
		"/theme/assets/vendor/reset.sass",
	}, set.Paths())

	for _, file := range set {
		assert.True(t, file.ModTime.Equal(baseTime), "mtime of %s", file.Path)
	}
}

func TestFingerprinter_IgnoresDirectoriesWithStylesheetExtension(t *testing.T) {
	fs := newThemeFs(t)
	require.NoError(t, fs.MkdirAll("/theme/assets/fake.scss", 0o755))

	set, err := newTestFingerprinter(fs, 0).DependencySet(context.Background(), "/theme/assets/stylesheets/site.scss")
	require.NoError(t, err)

	assert.NotContains(t, set.Paths(), m.Path("/theme/assets/fake.scss"))
}

func TestFingerprinter_Deterministic(t *testing.T) {
	ctx := context.Background()
	fp := newTestFingerprinter(newThemeFs(t), 0)

	first, err := fp.Fingerprint(ctx, "/theme/assets/stylesheets/site.scss")
	require.NoError(t, err)

	second, err := fp.Fingerprint(ctx, "/theme/assets/stylesheets/site.scss")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, string(first), 64)
}

func TestFingerprinter_SameStateAcrossFilesystems(t *testing.T) {
	ctx := context.Background()

	a, err := newTestFingerprinter(newThemeFs(t), 0).Fingerprint(ctx, "/theme/assets/stylesheets/site.scss")
	require.NoError(t, err)

	b, err := newTestFingerprinter(newThemeFs(t), 0).Fingerprint(ctx, "/theme/assets/stylesheets/site.scss")
	require.NoError(t, err)

	assert.Equal(t, a, b)
}

func TestFingerprinter_SensitiveToSiblingChanges(t *testing.T) {
	ctx := context.Background()
	target := m.Path("/theme/assets/stylesheets/site.scss")

	tests := []struct {
		name   string
		mutate func(t *testing.T, fs afero.Fs)
	}{
		{
			name: "sibling mtime",
			mutate: func(t *testing.T, fs afero.Fs) {
				later := baseTime.Add(time.Minute)
				require.NoError(t, fs.Chtimes("/theme/assets/vendor/reset.sass", later, later))
			},
		},
		{
			name: "nested partial mtime",
			mutate: func(t *testing.T, fs afero.Fs) {
				later := baseTime.Add(time.Nanosecond)
				require.NoError(t, fs.Chtimes("/theme/assets/stylesheets/partials/_grid.scss", later, later))
			},
		},
		{
			name: "file added",
			mutate: func(t *testing.T, fs afero.Fs) {
				writeSource(t, fs, "/theme/assets/stylesheets/new.scss", "a {}", baseTime)
			},
		},
		{
			name: "file removed",
			mutate: func(t *testing.T, fs afero.Fs) {
				require.NoError(t, fs.Remove("/theme/assets/stylesheets/admin.scss"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := newThemeFs(t)
			fp := newTestFingerprinter(fs, 0)

			before, err := fp.Fingerprint(ctx, target)
			require.NoError(t, err)

			tt.mutate(t, fs)

			after, err := fp.Fingerprint(ctx, target)
			require.NoError(t, err)

			assert.NotEqual(t, before, after)
		})
	}
}

func TestFingerprinter_InsensitiveToUnrelatedFiles(t *testing.T) {
	ctx := context.Background()
	target := m.Path("/theme/assets/stylesheets/site.scss")

	fs := newThemeFs(t)
	fp := newTestFingerprinter(fs, 0)

	before, err := fp.Fingerprint(ctx, target)
	require.NoError(t, err)

	later := baseTime.Add(time.Hour)
	require.NoError(t, fs.Chtimes("/theme/assets/vendor/notes.txt", later, later))
	require.NoError(t, fs.Chtimes("/theme/other/outside.scss", later, later))

	after, err := fp.Fingerprint(ctx, target)
	require.NoError(t, err)

	assert.Equal(t, before, after)
}

func TestFingerprinter_PathUniqueness(t *testing.T) {
	ctx := context.Background()
	fp := newTestFingerprinter(newThemeFs(t), 0)

	// site.scss and admin.scss have identical content and share a dependency set.
	site, err := fp.Fingerprint(ctx, "/theme/assets/stylesheets/site.scss")
	require.NoError(t, err)

	admin, err := fp.Fingerprint(ctx, "/theme/assets/stylesheets/admin.scss")
	require.NoError(t, err)

	assert.NotEqual(t, site, admin)
}

func TestFingerprinter_DegenerateTree(t *testing.T) {
	ctx := context.Background()

	t.Run("no stylesheets under base dir", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		writeSource(t, fs, "/empty/assets/stylesheets/readme.md", "nothing", baseTime)

		fingerprint, err := newTestFingerprinter(fs, 0).Fingerprint(ctx, "/empty/assets/stylesheets/site.scss")
		require.NoError(t, err)
		assert.Len(t, string(fingerprint), 64)
	})

	t.Run("base dir does not exist", func(t *testing.T) {
		fingerprint, err := newTestFingerprinter(afero.NewMemMapFs(), 0).Fingerprint(ctx, "/missing/dir/site.scss")
		require.NoError(t, err)
		assert.NotEmpty(t, fingerprint)
	})
}

func TestFingerprinter_Resolution(t *testing.T) {
	ctx := context.Background()
	target := m.Path("/theme/assets/stylesheets/site.scss")

	t.Run("coarse buckets hide edits within the bucket", func(t *testing.T) {
		fs := newThemeFs(t)
		fp := newTestFingerprinter(fs, time.Hour)

		before, err := fp.Fingerprint(ctx, target)
		require.NoError(t, err)

		later := baseTime.Add(10 * time.Minute)
		require.NoError(t, fs.Chtimes("/theme/assets/vendor/reset.sass", later, later))

		after, err := fp.Fingerprint(ctx, target)
		require.NoError(t, err)

		assert.Equal(t, before, after)
	})

	t.Run("coarse buckets still change across buckets", func(t *testing.T) {
		fs := newThemeFs(t)
		fp := newTestFingerprinter(fs, time.Hour)

		before, err := fp.Fingerprint(ctx, target)
		require.NoError(t, err)

		later := baseTime.Add(2 * time.Hour)
		require.NoError(t, fs.Chtimes("/theme/assets/vendor/reset.sass", later, later))

		after, err := fp.Fingerprint(ctx, target)
		require.NoError(t, err)

		assert.NotEqual(t, before, after)
	})
}
