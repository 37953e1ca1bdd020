package extractor

import (
	"io"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/dgallion1/wikigest/internal/doctree"
)

// MarkdownExtractor passes markdown through untouched, since the structure
// parser consumes it directly. The title and outline come from the goldmark
// AST, which also understands setext headings and skips headings inside
// code fences.
type MarkdownExtractor struct{}

func (e *MarkdownExtractor) Extract(r io.Reader, filename string) (*doctree.Document, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	md := goldmark.New()
	root := md.Parser().Parse(text.NewReader(src))

	out := &doctree.Document{
		Title:    titleFromFilename(filename),
		Markdown: string(src),
	}

	for n := root.FirstChild(); n != nil; n = n.NextSibling() {
		h, ok := n.(*ast.Heading)
		if !ok {
			continue
		}
		title := strings.TrimSpace(headingText(h, src))
		if title == "" {
			continue
		}
		if h.Level == 1 && out.Title == titleFromFilename(filename) {
			out.Title = title
		}
		out.TOC = append(out.TOC, doctree.TOCEntry{Level: h.Level, Title: title})
	}

	out.Abstract = abstractOf(out.Markdown)
	return out, nil
}

func headingText(n ast.Node, src []byte) string {
	var b strings.Builder
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*ast.Text); ok {
			b.Write(t.Value(src))
		} else {
			b.WriteString(headingText(c, src))
		}
	}
	return b.String()
}
