package controller

import (
	"io"

	"github.com/charmbracelet/lipgloss"

	m "sasspipe.dev/pkg/sasspipe/internal/model"
)

var (
	colorSuccess = lipgloss.Color("#8BC34A")
	colorWarning = lipgloss.Color("#FFC107")
	colorError   = lipgloss.Color("#e53935")
	colorInfo    = lipgloss.Color("#2196F3")
	colorMuted   = lipgloss.Color("#6c757d")
)

// styles holds the status styles for one output stream. Colors are dropped
// automatically when the stream is not a terminal.
type styles struct {
	title    lipgloss.Style
	ok       lipgloss.Style
	cached   lipgloss.Style
	fallback lipgloss.Style
	failed   lipgloss.Style
	muted    lipgloss.Style
}

func newStyles(w io.Writer) styles {
	renderer := lipgloss.NewRenderer(w)

	return styles{
		title:    renderer.NewStyle().Bold(true).Foreground(colorInfo),
		ok:       renderer.NewStyle().Bold(true).Foreground(colorSuccess),
		cached:   renderer.NewStyle().Foreground(colorInfo),
		fallback: renderer.NewStyle().Bold(true).Foreground(colorWarning),
		failed:   renderer.NewStyle().Bold(true).Foreground(colorError),
		muted:    renderer.NewStyle().Foreground(colorMuted),
	}
}

const (
	labelCompiled = "compiled"
	labelCached   = "cached"
	labelFallback = "fallback"
	labelFailed   = "failed"
	labelPending  = "pending"
)

// status returns the label and style describing an artifact outcome.
func (s styles) status(artifact m.Artifact, err error) (string, lipgloss.Style) {
	switch {
	case err != nil:
		return labelFailed, s.failed
	case artifact.Fallback:
		return labelFallback, s.fallback
	case artifact.Cached:
		return labelCached, s.cached
	default:
		return labelCompiled, s.ok
	}
}
