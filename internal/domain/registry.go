package domain

import (
	"fmt"
	"sort"

	m "sasspipe.dev/pkg/sasspipe/internal/model"
)

// Registry routes source files to the compiler registered for their extension.
type Registry struct {
	byExt map[string]Compiler
}

// NewRegistry builds a Registry. Two compilers claiming the same extension is an error.
func NewRegistry(compilers ...Compiler) (*Registry, error) {
	registry := &Registry{byExt: make(map[string]Compiler)}

	for _, compiler := range compilers {
		for _, ext := range compiler.SupportedExtensions() {
			if existing, ok := registry.byExt[ext]; ok {
				return nil, fmt.Errorf("extension %q claimed by both %s and %s", ext, existing.Name(), compiler.Name())
			}

			registry.byExt[ext] = compiler
		}
	}

	return registry, nil
}

// For returns the compiler responsible for path.
func (r *Registry) For(path m.Path) (Compiler, error) {
	compiler, ok := r.byExt[path.Ext()]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedExtension, path)
	}

	return compiler, nil
}

// Supports reports whether some compiler handles path.
func (r *Registry) Supports(path m.Path) bool {
	_, ok := r.byExt[path.Ext()]
	return ok
}

// Extensions returns every registered extension in sorted order.
func (r *Registry) Extensions() []string {
	exts := make([]string, 0, len(r.byExt))
	for ext := range r.byExt {
		exts = append(exts, ext)
	}

	sort.Strings(exts)

	return exts
}
