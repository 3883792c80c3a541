// Package book loads the source text of a work as an ordered list of segments.
package book

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// ErrEmptySource is returned when a source yields no readable words.
var ErrEmptySource = errors.New("error loading book content")

// Segment is one book of the work in reading order.
type Segment struct {
	Number string
	Title  string
	Text   string
}

// Label accepts either a JSON string or a JSON number.
type Label string

func (l *Label) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*l = Label(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("book label must be a string or number: %s", string(data))
	}
	*l = Label(n.String())
	return nil
}

// Load reads path and returns its segments. The format follows the extension.
func Load(ctx context.Context, path string) ([]Segment, error) {
	segments, err := load(ctx, path)
	if err != nil {
		return nil, err
	}
	return finalize(segments)
}

func load(ctx context.Context, path string) ([]Segment, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read source %s: %w", path, err)
		}
		return decodeJSON(ctx, data, filepath.Dir(path))
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read source %s: %w", path, err)
		}
		return decodeYAML(ctx, data, filepath.Dir(path))
	case ".html", ".htm":
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open source %s: %w", path, err)
		}
		defer f.Close()
		return parseHTML(f)
	case ".pdf":
		return loadPDF(path)
	default:
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read source %s: %w", path, err)
		}
		return splitText(string(data)), nil
	}
}

func finalize(segments []Segment) ([]Segment, error) {
	out := make([]Segment, 0, len(segments))
	words := 0
	for _, seg := range segments {
		seg.Number = strings.TrimSpace(norm.NFC.String(seg.Number))
		seg.Text = norm.NFC.String(seg.Text)
		if seg.Title == "" {
			seg.Title = Title(seg.Number)
		}
		words += len(strings.Fields(seg.Text))
		out = append(out, seg)
	}
	if len(out) == 0 || words == 0 {
		return nil, ErrEmptySource
	}
	return out, nil
}

var titleCaser = cases.Title(language.English)

// Title renders a display label such as "Book One" or "Book 4".
func Title(number string) string {
	number = strings.TrimSpace(number)
	if number == "" {
		return "Front Matter"
	}
	return "Book " + titleCaser.String(strings.ToLower(number))
}
