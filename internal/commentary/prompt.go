package commentary

import (
	"fmt"
	"strings"

	"github.com/glabrego/odyssey-reader/internal/reader"
)

const (
	contextWindow   = 200
	questionExcerpt = 500
)

// Placeholders understood by the editable templates.
const (
	PlaceholderText          = "{TEXT}"
	PlaceholderBook          = "{BOOK}"
	PlaceholderContextBefore = "{CONTEXT_BEFORE}"
	PlaceholderSelection     = "{SELECTION}"
	PlaceholderContextAfter  = "{CONTEXT_AFTER}"
)

// PagePrompt fills {TEXT} with the page text.
func PagePrompt(template string, page reader.Page) string {
	return strings.Replace(template, PlaceholderText, page.Text, 1)
}

// SelectionContext returns up to 200 characters on each side of the first
// occurrence of selection in text. A repeated phrase always resolves to its
// first occurrence, wherever the reader actually selected it.
func SelectionContext(text, selection string) (before, after string) {
	runes := []rune(text)
	sel := []rune(selection)
	idx := runeIndex(text, selection)

	before = substring(runes, max(0, idx-contextWindow), idx)
	end := idx + len(sel)
	after = substring(runes, end, min(len(runes), end+contextWindow))
	return before, after
}

// SelectionPrompt fills the selection template for page.
func SelectionPrompt(template string, page reader.Page, selection string) string {
	before, after := SelectionContext(page.Text, selection)
	out := strings.Replace(template, PlaceholderBook, page.BookNumber, 1)
	out = strings.Replace(out, PlaceholderContextBefore, before, 1)
	out = strings.Replace(out, PlaceholderSelection, selection, 1)
	out = strings.Replace(out, PlaceholderContextAfter, after, 1)
	return out
}

// QuestionPrompt frames a free-form question with the start of the page.
func QuestionPrompt(page reader.Page, question string) string {
	runes := []rune(page.Text)
	excerpt := string(runes[:min(len(runes), questionExcerpt)])
	return fmt.Sprintf(`I'm reading The Odyssey (Robert Fagles translation), currently on page %d in %s.

Current page content:
%s...

Question: %s

Please provide a helpful answer based on your knowledge of The Odyssey and the context provided.`, page.Number, page.BookTitle, excerpt, question)
}

func DefinitionPrompt(word string) string {
	return fmt.Sprintf(`Define the word "%s" as it would be used in Homer's Odyssey (Robert Fagles translation). Include:
1. The basic definition
2. How it's used in ancient Greek context
3. Any cultural or historical significance

Keep it concise but informative.`, word)
}

// runeIndex is strings.Index counted in runes; -1 when absent.
func runeIndex(s, sub string) int {
	i := strings.Index(s, sub)
	if i < 0 {
		return -1
	}
	return len([]rune(s[:i]))
}

// substring clamps both bounds into [0, len] and swaps them when reversed,
// so a missing selection (index -1) still yields well-defined windows.
func substring(runes []rune, start, end int) string {
	start = max(0, min(start, len(runes)))
	end = max(0, min(end, len(runes)))
	if start > end {
		start, end = end, start
	}
	return string(runes[start:end])
}
