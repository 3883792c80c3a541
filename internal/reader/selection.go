package reader

import "strings"

// Range is a half-open word interval within the current page.
type Range struct {
	Start int
	End   int
}

// Selection holds the most recently captured passage.
type Selection struct {
	text  string
	rng   Range
	valid bool
}

// Capture stores trimmed text. Empty or whitespace-only text clears the selection.
func (s *Selection) Capture(text string, rng Range) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		s.Clear()
		return
	}
	s.text = trimmed
	s.rng = rng
	s.valid = true
}

func (s *Selection) Clear() {
	*s = Selection{}
}

func (s *Selection) Text() (string, bool) {
	return s.text, s.valid
}

func (s *Selection) Range() (Range, bool) {
	return s.rng, s.valid
}

func (s *Selection) WordCount() int {
	if !s.valid {
		return 0
	}
	return len(strings.Fields(s.text))
}

// IsSingleWord gates the definition lookup.
func (s *Selection) IsSingleWord() bool {
	return s.WordCount() == 1
}

// WordsIn returns the words of text covered by rng, clamped to the text.
func WordsIn(text string, rng Range) string {
	words := strings.Fields(text)
	start := max(0, min(rng.Start, rng.End))
	end := min(len(words), max(rng.Start, rng.End))
	if start >= end {
		return ""
	}
	return strings.Join(words[start:end], " ")
}
