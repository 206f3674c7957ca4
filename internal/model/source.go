// Package model defines the data structures shared by the compile pipeline.
package model

import (
	"path/filepath"
	"strings"
	"time"
)

// Path represents a file system path.
type Path string

// Ext returns the extension of the path without the leading dot.
func (p Path) Ext() string {
	return strings.TrimPrefix(filepath.Ext(string(p)), ".")
}

// SourceFile is a stylesheet source observed on disk.
type SourceFile struct {
	Path    Path
	ModTime time.Time
}

// DependencySet is the sorted list of stylesheet sources assumed to affect
// a compiled artifact.
type DependencySet []SourceFile

// Paths returns the paths of the set in order.
func (d DependencySet) Paths() []Path {
	paths := make([]Path, 0, len(d))
	for _, file := range d {
		paths = append(paths, file.Path)
	}

	return paths
}

// Fingerprint is a hex digest of the file-system state relevant to a source.
type Fingerprint string

// Short returns the first 12 characters of the fingerprint for display.
func (f Fingerprint) Short() string {
	if len(f) <= 12 {
		return string(f)
	}

	return string(f[:12])
}
