package book

import (
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
)

func loadPDF(path string) ([]Segment, error) {
	file, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf source: %w", err)
	}
	defer file.Close()

	content, err := reader.GetPlainText()
	if err != nil {
		return nil, fmt.Errorf("extract pdf text: %w", err)
	}

	var builder strings.Builder
	if _, err := io.Copy(&builder, content); err != nil {
		return nil, fmt.Errorf("read pdf text: %w", err)
	}
	return splitText(builder.String()), nil
}
