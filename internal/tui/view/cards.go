package view

import (
	"fmt"
	"strings"

	tuitheme "github.com/glabrego/odyssey-reader/internal/tui/theme"
)

type CardState int

const (
	CardDone CardState = iota
	CardPending
	CardFailed
)

// Card is one entry in the commentary pane: a stored record, an in-flight
// request, or a failed one.
type Card struct {
	Key      string
	Title    string
	Meta     string
	Quote    string
	Body     string
	Hint     string
	State    CardState
	Expanded bool
	Focused  bool
}

type CardsInput struct {
	Cards   []Card
	Width   int
	Spinner string
	Render  MarkdownFunc
	Style   string
	// Cache holds rendered bodies keyed by card key, width and style.
	Cache map[string]string
}

const emptyCommentaryHint = "No analysis for this page yet. Press a to Analyze Current Page."

// RenderCards lays out the commentary pane. Bodies of expanded cards go
// through the Markdown renderer; collapsed cards show a one-line preview.
func RenderCards(in CardsInput, th tuitheme.Theme) string {
	width := in.Width
	if width < 10 {
		width = 10
	}
	if len(in.Cards) == 0 {
		return strings.Join(WrapText(th.Hint.Render(emptyCommentaryHint), width), "\n")
	}

	blocks := make([]string, 0, len(in.Cards))
	for _, c := range in.Cards {
		lines := []string{th.CardHeading(c.Focused, truncateRunes(c.Title, width-2))}
		if c.Meta != "" {
			lines = append(lines, "  "+th.MetaLabel.Render(c.Meta))
		}
		if c.Quote != "" {
			for _, q := range WrapText(c.Quote, width-4) {
				lines = append(lines, "  "+th.Hint.Render("│ "+q))
			}
		}
		switch c.State {
		case CardPending:
			lines = append(lines, "  "+th.StateLoad.Render(strings.TrimSpace(in.Spinner+" Analyzing...")))
		case CardFailed:
			for _, l := range WrapText(c.Body, width-2) {
				lines = append(lines, "  "+th.CardError.Render(l))
			}
			if c.Hint != "" {
				lines = append(lines, "  "+th.Hint.Render(c.Hint))
			}
		default:
			if c.Expanded {
				lines = append(lines, renderBody(in, c, width))
			} else {
				lines = append(lines, "  "+th.Hint.Render(truncateRunes(firstLine(c.Body), width-2)))
			}
		}
		blocks = append(blocks, strings.Join(lines, "\n"))
	}
	return strings.Join(blocks, "\n\n")
}

func renderBody(in CardsInput, c Card, width int) string {
	render := in.Render
	if render == nil {
		render = PlainMarkdown
	}
	key := fmt.Sprintf("%s|%s|%d", c.Key, in.Style, width)
	if in.Cache != nil {
		if out, ok := in.Cache[key]; ok {
			return out
		}
	}
	out, err := render(c.Body, width, in.Style)
	if err != nil {
		out, _ = PlainMarkdown(c.Body, width, in.Style)
	}
	if in.Cache != nil {
		in.Cache[key] = out
	}
	return out
}

func firstLine(s string) string {
	for _, line := range strings.Split(strings.TrimSpace(s), "\n") {
		line = strings.TrimSpace(strings.TrimLeft(line, "#*>- "))
		if line != "" {
			return line
		}
	}
	return ""
}
