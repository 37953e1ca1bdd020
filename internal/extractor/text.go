package extractor

import (
	"bufio"
	"io"
	"strings"

	"github.com/dgallion1/wikigest/internal/doctree"
)

// TextExtractor handles plain text: headerless markdown, paragraphs
// delimited by blank lines.
type TextExtractor struct{}

func (e *TextExtractor) Extract(r io.Reader, filename string) (*doctree.Document, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var paragraphs []string
	var current strings.Builder

	flush := func() {
		if current.Len() > 0 {
			paragraphs = append(paragraphs, current.String())
			current.Reset()
		}
	}

	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		if current.Len() > 0 {
			current.WriteString("\n")
		}
		current.WriteString(line)
	}
	flush()

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	markdown := strings.Join(paragraphs, "\n\n")
	return &doctree.Document{
		Title:    titleFromFilename(filename),
		Markdown: markdown,
		Abstract: abstractOf(markdown),
	}, nil
}
