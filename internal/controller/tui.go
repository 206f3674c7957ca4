package controller

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	m "sasspipe.dev/pkg/sasspipe/internal/model"
)

// TUI implements UI using Bubble Tea for an interactive watch dashboard.
// Outside of watch mode it behaves like SimpleUI.
type TUI struct {
	cmd    *cobra.Command
	simple *SimpleUI

	mu      sync.Mutex
	program *tea.Program
	done    chan struct{}
}

// NewTUI creates a new TUI.
func NewTUI(cmd *cobra.Command) *TUI {
	return &TUI{cmd: cmd, simple: NewSimpleUI(cmd)}
}

// Start launches the dashboard in watch mode.
func (t *TUI) Start(ctx context.Context, options ...StartOption) error {
	if err := t.simple.Start(ctx, options...); err != nil {
		return err
	}

	config := newStartConfig(options...)
	if config.mode != ModeWatch {
		return nil
	}

	model := newWatchModel(config.entries, newStyles(t.cmd.OutOrStdout()))
	program := tea.NewProgram(
		model,
		tea.WithContext(ctx),
		tea.WithInput(t.cmd.InOrStdin()),
		tea.WithOutput(t.cmd.OutOrStdout()),
		tea.WithAltScreen(),
	)

	done := make(chan struct{})

	t.mu.Lock()
	t.program = program
	t.done = done
	t.mu.Unlock()

	go func() {
		defer close(done)

		if _, err := program.Run(); err != nil {
			slog.Debug("Watch dashboard stopped", "error", err)
		}

		// The user closed the dashboard, or ctx ended. Either way the watch is over.
		if config.onQuit != nil {
			config.onQuit()
		}
	}()

	return nil
}

// Close stops the dashboard and waits for the terminal to be restored.
func (t *TUI) Close(_ context.Context) {
	program, done := t.running()
	if program == nil {
		return
	}

	program.Quit()
	<-done
}

// Wait blocks until the user closes the dashboard.
func (t *TUI) Wait(ctx context.Context) {
	_, done := t.running()
	if done == nil {
		return
	}

	select {
	case <-done:
	case <-ctx.Done():
	}
}

func (t *TUI) running() (*tea.Program, chan struct{}) {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.program, t.done
}

// DisplayArtifact delegates to SimpleUI.
func (t *TUI) DisplayArtifact(ctx context.Context, artifact m.Artifact, output m.Path) error {
	return t.simple.DisplayArtifact(ctx, artifact, output)
}

// DisplayCompileSummary delegates to SimpleUI.
func (t *TUI) DisplayCompileSummary(ctx context.Context, artifacts []m.Artifact) {
	t.simple.DisplayCompileSummary(ctx, artifacts)
}

// DisplayFingerprint delegates to SimpleUI.
func (t *TUI) DisplayFingerprint(ctx context.Context, path m.Path, fingerprint m.Fingerprint) error {
	return t.simple.DisplayFingerprint(ctx, path, fingerprint)
}

// DisplayDependencies delegates to SimpleUI.
func (t *TUI) DisplayDependencies(ctx context.Context, path m.Path, deps m.DependencySet) error {
	return t.simple.DisplayDependencies(ctx, path, deps)
}

// DisplayWatchEvent forwards event to the dashboard.
func (t *TUI) DisplayWatchEvent(ctx context.Context, event m.WatchEvent) {
	program, _ := t.running()
	if program == nil {
		t.simple.DisplayWatchEvent(ctx, event)
		return
	}

	program.Send(watchEventMsg(event))
}

// DisplayCacheCleared delegates to SimpleUI.
func (t *TUI) DisplayCacheCleared(ctx context.Context, root string) {
	t.simple.DisplayCacheCleared(ctx, root)
}

type watchEventMsg m.WatchEvent

// watchModel is the Bubble Tea model of the watch dashboard: one row per
// entry showing the outcome of its latest compile.
type watchModel struct {
	entries    []m.Path
	latest     map[m.Path]m.WatchEvent
	recompiles int
	spinner    spinner.Model
	styles     styles
	width      int
	quitting   bool
}

func newWatchModel(entries []m.Path, st styles) watchModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = st.muted

	return watchModel{
		entries: entries,
		latest:  make(map[m.Path]m.WatchEvent, len(entries)),
		spinner: sp,
		styles:  st,
	}
}

func (wm watchModel) Init() tea.Cmd {
	return wm.spinner.Tick
}

func (wm watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		wm.width = msg.Width

		return wm, nil

	case tea.KeyMsg:
		return wm.handleKeyPress(msg)

	case watchEventMsg:
		event := m.WatchEvent(msg)
		if !event.Initial() {
			wm.recompiles++
		}

		wm.latest[event.Entry] = event

		return wm, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		wm.spinner, cmd = wm.spinner.Update(msg)

		return wm, cmd
	}

	return wm, nil
}

//nolint:exhaustive // only quit keys are handled
func (wm watchModel) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		wm.quitting = true
		return wm, tea.Quit
	default:
	}

	if msg.String() == "q" {
		wm.quitting = true
		return wm, tea.Quit
	}

	return wm, nil
}

func (wm watchModel) View() string {
	if wm.quitting {
		return ""
	}

	var b strings.Builder

	b.WriteString(wm.styles.title.Render("sasspipe watch"))
	b.WriteString("\n\n")

	for _, entry := range wm.entries {
		wm.renderRow(&b, entry)
	}

	b.WriteString("\n")
	b.WriteString(wm.styles.muted.Render(fmt.Sprintf("%d recompile(s) · press q to quit", wm.recompiles)))
	b.WriteString("\n")

	return b.String()
}

func (wm watchModel) renderRow(b *strings.Builder, entry m.Path) {
	event, ok := wm.latest[entry]
	if !ok {
		fmt.Fprintf(b, "  %s %s %s\n", wm.spinner.View(), wm.styles.muted.Render(labelPending), entry)
		return
	}

	label, style := wm.styles.status(event.Artifact, event.Err)

	line := fmt.Sprintf("  %s %s", style.Render(label), entry)

	switch {
	case event.Err != nil:
		line += ": " + event.Err.Error()
	case event.Output != "":
		line += " -> " + string(event.Output)
	}

	if wm.width > 0 {
		line = lipgloss.NewStyle().MaxWidth(wm.width).Render(line)
	}

	b.WriteString(line)
	b.WriteString("\n")
}
