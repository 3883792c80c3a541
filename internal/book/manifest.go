package book

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

// entry is one element of a source document. Either Text or File is set.
type entry struct {
	Book  Label  `json:"book" yaml:"book"`
	Title string `json:"title,omitempty" yaml:"title,omitempty"`
	Text  string `json:"text,omitempty" yaml:"text,omitempty"`
	File  string `json:"file,omitempty" yaml:"file,omitempty"`
}

// manifest is the object form: a title plus a list of entries.
type manifest struct {
	Title string  `json:"title" yaml:"title"`
	Books []entry `json:"books" yaml:"books"`
}

const maxConcurrentFiles = 4

func decodeJSON(ctx context.Context, data []byte, baseDir string) ([]Segment, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var entries []entry
		if err := json.Unmarshal(trimmed, &entries); err != nil {
			return nil, fmt.Errorf("decode source json: %w", err)
		}
		return resolveEntries(ctx, entries, baseDir)
	}
	var m manifest
	if err := json.Unmarshal(trimmed, &m); err != nil {
		return nil, fmt.Errorf("decode source json: %w", err)
	}
	return resolveEntries(ctx, m.Books, baseDir)
}

func decodeYAML(ctx context.Context, data []byte, baseDir string) ([]Segment, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("decode source yaml: %w", err)
	}
	if len(root.Content) == 0 {
		return nil, ErrEmptySource
	}
	doc := root.Content[0]
	if doc.Kind == yaml.SequenceNode {
		var entries []entry
		if err := doc.Decode(&entries); err != nil {
			return nil, fmt.Errorf("decode source yaml: %w", err)
		}
		return resolveEntries(ctx, entries, baseDir)
	}
	var m manifest
	if err := doc.Decode(&m); err != nil {
		return nil, fmt.Errorf("decode source yaml: %w", err)
	}
	return resolveEntries(ctx, m.Books, baseDir)
}

// UnmarshalYAML lets the book label be any scalar.
func (l *Label) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return errors.New("book label must be a scalar")
	}
	*l = Label(node.Value)
	return nil
}

// resolveEntries loads referenced files concurrently and keeps entry order.
func resolveEntries(ctx context.Context, entries []entry, baseDir string) ([]Segment, error) {
	segments := make([]Segment, len(entries))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentFiles)
	for i, e := range entries {
		segments[i] = Segment{Number: string(e.Book), Title: e.Title, Text: e.Text}
		if e.File == "" {
			continue
		}
		path := e.File
		if !filepath.IsAbs(path) {
			path = filepath.Join(baseDir, path)
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			loaded, err := load(ctx, path)
			if err != nil {
				return fmt.Errorf("load book %s: %w", e.Book, err)
			}
			texts := make([]string, 0, len(loaded))
			for _, seg := range loaded {
				texts = append(texts, seg.Text)
			}
			segments[i].Text = strings.Join(texts, "\n\n")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return segments, nil
}
