package ui

import (
	"fmt"

	"github.com/charmbracelet/glamour"
)

// DefaultWrapWidth is used when the terminal width is unknown.
const DefaultWrapWidth = 100

// NewGlamourRenderer returns a renderer that picks a dark or light style from
// the terminal's background.
func NewGlamourRenderer(width int) (MarkdownRenderer, error) {
	return newGlamour(glamour.WithAutoStyle(), width)
}

// NewPlainRenderer returns a renderer without colours, for non-terminals.
func NewPlainRenderer(width int) (MarkdownRenderer, error) {
	return newGlamour(glamour.WithStandardStyle("notty"), width)
}

func newGlamour(style glamour.TermRendererOption, width int) (MarkdownRenderer, error) {
	if width <= 0 {
		width = DefaultWrapWidth
	}
	r, err := glamour.NewTermRenderer(style, glamour.WithWordWrap(width))
	if err != nil {
		return nil, fmt.Errorf("failed to create markdown renderer: %w", err)
	}
	return r, nil
}

// RenderMarkdown renders content, falling back to the raw text on failure.
func RenderMarkdown(content string, renderer MarkdownRenderer) string {
	if renderer == nil {
		return content
	}
	out, err := renderer.Render(content)
	if err != nil {
		return content
	}
	return out
}
