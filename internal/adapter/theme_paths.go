package adapter

import (
	"fmt"
	"path/filepath"
	"strings"

	m "sasspipe.dev/pkg/sasspipe/internal/model"
)

// ThemePaths resolves directories inside the active theme.
type ThemePaths interface {
	// StylesheetsPath returns the absolute path of the theme's stylesheet root.
	StylesheetsPath() (m.Path, error)
}

// StaticThemePaths resolves the stylesheet root from a fixed, possibly relative, directory.
type StaticThemePaths struct {
	stylesheets string
}

// NewStaticThemePaths constructs StaticThemePaths for the given stylesheet root.
func NewStaticThemePaths(stylesheets string) *StaticThemePaths {
	return &StaticThemePaths{stylesheets: stylesheets}
}

// StylesheetsPath implements ThemePaths.
func (p *StaticThemePaths) StylesheetsPath() (m.Path, error) {
	if strings.TrimSpace(p.stylesheets) == "" {
		return "", fmt.Errorf("theme stylesheets path is not configured")
	}

	abs, err := filepath.Abs(p.stylesheets)
	if err != nil {
		return "", fmt.Errorf("failed to resolve theme stylesheets path: %w", err)
	}

	return m.Path(abs), nil
}
