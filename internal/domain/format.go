package domain

import (
	"strings"
)

const (
	// ContentTypeCSS is the content type of every stylesheet artifact.
	ContentTypeCSS = "text/css"

	// OutputExtensionCSS is the extension compiled stylesheets are written with.
	OutputExtensionCSS = "css"

	errorCommentOpen  = "/************************\n"
	errorCommentClose = "************************/\n\n"

	errorBanner = "Damn, we're having problems compiling the Sass. Check the CSS source code for more infos!"

	errorRule = `body::before { content: "` + errorBanner + `"; font-family: monospace; white-space: pre; ` +
		`display: block; background: #eee; padding: 20px; }` + "\n"
)

// SassExtensions returns the source extensions handled by the Sass compiler.
// A fresh slice is returned on every call.
func SassExtensions() []string {
	return []string{"sass", "scss"}
}

// FormatCSSError renders description as a servable stylesheet: a comment
// holding the description followed by a single rule that shows a fixed
// banner above the page content.
func FormatCSSError(description string) []byte {
	description = sanitizeComment(description)
	if !strings.HasSuffix(description, "\n") {
		description += "\n"
	}

	var b strings.Builder

	b.Grow(len(errorCommentOpen) + len(description) + len(errorCommentClose) + len(errorRule))
	b.WriteString(errorCommentOpen)
	b.WriteString(description)
	b.WriteString(errorCommentClose)
	b.WriteString(errorRule)

	return []byte(b.String())
}

// CSSCommentLine wraps line in a CSS comment.
func CSSCommentLine(line string) string {
	return "/* " + sanitizeComment(line) + " */\n"
}

// sanitizeComment breaks every comment terminator so text cannot escape
// the comment it is embedded in.
func sanitizeComment(s string) string {
	return strings.ReplaceAll(s, "*/", "* /")
}
