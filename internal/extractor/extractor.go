package extractor

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/dgallion1/wikigest/internal/doctree"
)

// Extractor converts raw document bytes into a Document: ATX-header
// markdown plus sidecar assets lifted out of the body.
type Extractor interface {
	Extract(r io.Reader, filename string) (*doctree.Document, error)
}

// SupportedExtensions lists file extensions this service can ingest.
var SupportedExtensions = map[string]bool{
	".txt":      true,
	".md":       true,
	".markdown": true,
	".csv":      true,
	".html":     true,
	".htm":      true,
	".pdf":      true,
	".docx":     true,
}

// ForFile returns the appropriate extractor for a filename.
func ForFile(filename string) (Extractor, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".txt":
		return &TextExtractor{}, nil
	case ".md", ".markdown":
		return &MarkdownExtractor{}, nil
	case ".csv":
		return &CSVExtractor{}, nil
	case ".html", ".htm":
		return &HTMLExtractor{}, nil
	case ".pdf":
		return &PDFExtractor{}, nil
	case ".docx":
		return &DOCXExtractor{}, nil
	default:
		return nil, fmt.Errorf("unsupported file extension: %s", filepath.Ext(filename))
	}
}

// IsSupportedExtension checks if a file extension is supported.
func IsSupportedExtension(filename string) bool {
	return SupportedExtensions[strings.ToLower(filepath.Ext(filename))]
}

// assetID derives a sidecar asset id from its content, so re-ingesting the
// same article reproduces the same ids and asset upserts stay idempotent.
func assetID(prefix, content string) string {
	sum := md5.Sum([]byte(content))
	return prefix + "_" + hex.EncodeToString(sum[:])[:8]
}

func titleFromFilename(filename string) string {
	return strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
}

const abstractCap = 2000

// abstractOf returns the markdown text before the first header line,
// capped. When the document opens with a header it falls back to a prefix
// of the whole text.
func abstractOf(markdown string) string {
	var lines []string
	for _, line := range strings.Split(markdown, "\n") {
		if strings.HasPrefix(line, "#") {
			break
		}
		lines = append(lines, line)
	}
	abstract := strings.TrimSpace(strings.Join(lines, "\n"))
	if abstract == "" {
		if len(markdown) > 1000 {
			return markdown[:1000]
		}
		return markdown
	}
	if len(abstract) > abstractCap {
		return abstract[:abstractCap]
	}
	return abstract
}

// tocOf collects the heading outline from ATX markdown.
func tocOf(markdown string) []doctree.TOCEntry {
	var toc []doctree.TOCEntry
	for _, line := range strings.Split(markdown, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "#") {
			continue
		}
		level := 0
		for level < len(line) && line[level] == '#' {
			level++
		}
		title := strings.TrimSpace(line[level:])
		if title != "" {
			toc = append(toc, doctree.TOCEntry{Level: level, Title: title})
		}
	}
	return toc
}
