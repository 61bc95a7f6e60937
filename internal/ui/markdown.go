package ui

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/muesli/reflow/wordwrap"
)

// RenderMarkdown renders card text for the terminal. When markdown is off or
// rendering fails, the text is only word-wrapped.
func RenderMarkdown(md string, width int, markdown bool) string {
	if width <= 0 {
		width = 80
	}
	if !markdown {
		return wordwrap.String(md, width)
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		Logger.Debug("Markdown renderer unavailable", "err", err)
		return wordwrap.String(md, width)
	}

	out, err := renderer.Render(md)
	if err != nil {
		Logger.Debug("Markdown render failed", "err", err)
		return wordwrap.String(md, width)
	}
	return strings.Trim(out, "\n")
}
