package book

import (
	"fmt"
	"io"
	"strings"

	nethtml "golang.org/x/net/html"
)

func parseHTML(r io.Reader) ([]Segment, error) {
	doc, err := nethtml.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html source: %w", err)
	}

	p := &htmlSplitter{}
	p.walk(doc)
	p.flush()
	return p.segments, nil
}

type htmlSplitter struct {
	segments []Segment
	current  Segment
	started  bool
	blocks   []string
	inline   []string
}

func (p *htmlSplitter) walk(node *nethtml.Node) {
	switch node.Type {
	case nethtml.TextNode:
		p.inline = append(p.inline, node.Data)
		return
	case nethtml.ElementNode:
		tag := strings.ToLower(node.Data)
		switch tag {
		case "script", "style", "noscript", "head", "nav":
			return
		case "h1", "h2", "h3", "h4", "h5", "h6":
			text := normalizeSpace(collectText(node))
			if number, ok := headingNumber(text); ok {
				p.flush()
				p.current = Segment{Number: number}
				p.started = true
				return
			}
			p.endBlock()
			p.blocks = append(p.blocks, text)
			return
		case "br":
			p.endBlock()
			return
		}
		if isBlockElement(tag) {
			p.endBlock()
			for c := node.FirstChild; c != nil; c = c.NextSibling {
				p.walk(c)
			}
			p.endBlock()
			return
		}
	}
	for c := node.FirstChild; c != nil; c = c.NextSibling {
		p.walk(c)
	}
}

func (p *htmlSplitter) endBlock() {
	text := normalizeSpace(strings.Join(p.inline, ""))
	p.inline = p.inline[:0]
	if text != "" {
		p.blocks = append(p.blocks, text)
	}
}

func (p *htmlSplitter) flush() {
	p.endBlock()
	text := strings.Join(p.blocks, "\n\n")
	p.blocks = p.blocks[:0]
	if !p.started && text == "" {
		return
	}
	p.current.Text = text
	p.segments = append(p.segments, p.current)
	p.current = Segment{}
	p.started = false
}

func collectText(node *nethtml.Node) string {
	var b strings.Builder
	var visit func(*nethtml.Node)
	visit = func(n *nethtml.Node) {
		if n.Type == nethtml.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	visit(node)
	return b.String()
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func isBlockElement(tag string) bool {
	switch tag {
	case "p", "div", "section", "article", "main", "header", "footer", "aside",
		"blockquote", "ul", "ol", "li", "table", "tr", "pre", "figure", "figcaption", "body":
		return true
	default:
		return false
	}
}
