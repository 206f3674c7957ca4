package controller

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	m "sasspipe.dev/pkg/sasspipe/internal/model"
)

// SimpleUI implements UI on top of a cobra command's streams. Results go to
// the command's stdout, status lines to its stderr.
type SimpleUI struct {
	cmd    *cobra.Command
	styles styles
}

// NewSimpleUI creates a new SimpleUI.
func NewSimpleUI(cmd *cobra.Command) *SimpleUI {
	return &SimpleUI{cmd: cmd, styles: newStyles(cmd.ErrOrStderr())}
}

// Start initializes the UI.
func (s *SimpleUI) Start(ctx context.Context, _ ...StartOption) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	// Streams may be replaced after construction, resolve styles late.
	s.styles = newStyles(s.cmd.ErrOrStderr())

	return nil
}

// Close finalizes the UI.
func (s *SimpleUI) Close(ctx context.Context) {
	if err := ctx.Err(); err != nil {
		return
	}
}

// Wait blocks until the UI is closed (no-op for SimpleUI).
func (s *SimpleUI) Wait(ctx context.Context) {
	if err := ctx.Err(); err != nil {
		return
	}
}

// DisplayArtifact prints the artifact body when it was not written to a
// file, then a status line.
func (s *SimpleUI) DisplayArtifact(ctx context.Context, artifact m.Artifact, output m.Path) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if output == "" {
		if _, err := s.cmd.OutOrStdout().Write(artifact.Body); err != nil {
			return fmt.Errorf("failed to write artifact: %w", err)
		}
	}

	label, style := s.styles.status(artifact, nil)

	line := fmt.Sprintf("%s %s", style.Render(label), artifact.Source)
	if output != "" {
		line += " -> " + string(output)
	}

	s.statusf("%s %s\n", line, s.styles.muted.Render(artifact.Fingerprint.Short()))

	return nil
}

// DisplayCompileSummary prints how many artifacts were compiled, served from
// cache or replaced by a fallback.
func (s *SimpleUI) DisplayCompileSummary(ctx context.Context, artifacts []m.Artifact) {
	if err := ctx.Err(); err != nil {
		return
	}

	s.statusf("%s\n", summarize(artifacts))
}

func summarize(artifacts []m.Artifact) string {
	var compiled, cached, fallback int

	for _, artifact := range artifacts {
		switch {
		case artifact.Fallback:
			fallback++
		case artifact.Cached:
			cached++
		default:
			compiled++
		}
	}

	return fmt.Sprintf("%d stylesheet(s): %d compiled, %d cached, %d fallback",
		len(artifacts), compiled, cached, fallback)
}

// DisplayFingerprint prints the fingerprint of path.
func (s *SimpleUI) DisplayFingerprint(ctx context.Context, _ m.Path, fingerprint m.Fingerprint) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, err := fmt.Fprintln(s.cmd.OutOrStdout(), fingerprint)

	return err
}

// DisplayDependencies prints the dependency set of path as a table.
func (s *SimpleUI) DisplayDependencies(ctx context.Context, _ m.Path, deps m.DependencySet) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, err := io.WriteString(s.cmd.OutOrStdout(), renderDependencyTable(deps))

	return err
}

func renderDependencyTable(deps m.DependencySet) string {
	var tableBuffer bytes.Buffer

	table := tablewriter.NewWriter(&tableBuffer)
	table.SetHeader([]string{"Path", "Modified"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_LEFT})

	for _, file := range deps {
		table.Append([]string{string(file.Path), file.ModTime.Format(time.RFC3339Nano)})
	}

	table.SetFooter([]string{fmt.Sprintf("Total Files %d", len(deps)), ""})

	table.Render()

	return tableBuffer.String()
}

// DisplayWatchEvent prints one status line per recompile.
func (s *SimpleUI) DisplayWatchEvent(ctx context.Context, event m.WatchEvent) {
	if err := ctx.Err(); err != nil {
		return
	}

	label, style := s.styles.status(event.Artifact, event.Err)

	line := fmt.Sprintf("%s %s", style.Render(label), event.Entry)

	switch {
	case event.Err != nil:
		line += ": " + event.Err.Error()
	case event.Output != "":
		line += " -> " + string(event.Output)
	}

	if !event.Initial() {
		line += s.styles.muted.Render(fmt.Sprintf(" (%d change(s))", len(event.Changed)))
	}

	s.statusf("%s\n", line)
}

// DisplayCacheCleared confirms the artifact store was emptied.
func (s *SimpleUI) DisplayCacheCleared(ctx context.Context, root string) {
	if err := ctx.Err(); err != nil {
		return
	}

	s.statusf("Cleared artifact cache at %s\n", root)
}

func (s *SimpleUI) statusf(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(s.cmd.ErrOrStderr(), format, args...)
}
