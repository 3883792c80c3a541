package book

import (
	"regexp"
	"strings"
)

// reBookHeading matches lines such as "BOOK ONE" or "BOOK 12: The Cattle of the Sun".
var reBookHeading = regexp.MustCompile(`^\s*BOOK\s+([A-Za-z0-9-]+)\b`)

// splitText cuts plain text at book headings. Text without headings is one segment.
func splitText(text string) []Segment {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	lines := strings.Split(text, "\n")

	var segments []Segment
	current := Segment{}
	var body []string
	flush := func() {
		joined := strings.TrimSpace(strings.Join(body, "\n"))
		body = body[:0]
		if current.Number == "" && joined == "" {
			return
		}
		current.Text = joined
		segments = append(segments, current)
	}

	for _, line := range lines {
		if m := reBookHeading.FindStringSubmatch(line); m != nil {
			flush()
			current = Segment{Number: m[1]}
			continue
		}
		body = append(body, line)
	}
	flush()
	return segments
}

// Markup headings are matched without regard to case.
var reHeadingLabel = regexp.MustCompile(`(?i)^\s*book\s+([a-z0-9-]+)\b`)

// headingNumber extracts the book label from a heading, if it is one.
func headingNumber(heading string) (string, bool) {
	m := reHeadingLabel.FindStringSubmatch(heading)
	if m == nil {
		return "", false
	}
	return m[1], true
}
