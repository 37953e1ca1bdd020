package extractor

import (
	"fmt"
	"io"
	"os"
	"strings"

	pdflib "github.com/ledongthuc/pdf"

	"github.com/dgallion1/wikigest/internal/doctree"
)

// PDFExtractor handles PDF files. Page text becomes markdown with one
// level-2 header per page; PDFs carry no reliable heading structure, so
// pages are the only hierarchy offered to the chunker.
type PDFExtractor struct{}

func (e *PDFExtractor) Extract(r io.Reader, filename string) (*doctree.Document, error) {
	// ledongthuc/pdf requires a ReadSeeker plus size, so spool to disk.
	tmp, err := os.CreateTemp("", "wikigest-pdf-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	tmp.Close()

	f, reader, err := pdflib.Open(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	var md strings.Builder
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		md.WriteString(fmt.Sprintf("## Page %d\n\n%s\n\n", i, text))
	}

	markdown := strings.TrimSpace(md.String())
	return &doctree.Document{
		Title:    titleFromFilename(filename),
		Markdown: markdown,
		Abstract: abstractOf(markdown),
		TOC:      tocOf(markdown),
	}, nil
}
