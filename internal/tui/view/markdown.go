package view

import (
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
)

// MarkdownFunc renders Markdown for a pane of the given width in a glamour style.
type MarkdownFunc func(markdown string, width int, style string) (string, error)

type rendererKey struct {
	width int
	style string
}

// GlamourMarkdown renders with glamour, reusing one renderer per width and style.
type GlamourMarkdown struct {
	mu        sync.Mutex
	renderers map[rendererKey]*glamour.TermRenderer
}

func NewGlamourMarkdown() *GlamourMarkdown {
	return &GlamourMarkdown{renderers: make(map[rendererKey]*glamour.TermRenderer)}
}

func (g *GlamourMarkdown) Render(markdown string, width int, style string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	key := rendererKey{width: width, style: style}
	r, ok := g.renderers[key]
	if !ok {
		var err error
		r, err = glamour.NewTermRenderer(
			glamour.WithStandardStyle(style),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			return "", fmt.Errorf("create markdown renderer: %w", err)
		}
		g.renderers[key] = r
	}
	out, err := r.Render(markdown)
	if err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return strings.Trim(out, "\n"), nil
}

// PlainMarkdown wraps text without styling. It backs tests and dumb terminals.
func PlainMarkdown(markdown string, width int, _ string) (string, error) {
	return strings.Join(WrapText(markdown, width), "\n"), nil
}
