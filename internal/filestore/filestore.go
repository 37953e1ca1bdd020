package filestore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/dgallion1/wikigest/internal/doctree"
)

// FileStore exports processed articles as browsable files:
//
//	root/
//	  articles/
//	    {safe_title}/
//	      content.md
//	      abstract.md
//	      toc.json
//	      sidecar.json
type FileStore struct {
	root string
}

// New prepares the export directory under root.
func New(root string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Join(root, "articles"), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create export directory: %w", err)
	}
	return &FileStore{root: root}, nil
}

// SaveArticle writes one article's files and returns its directory.
// Re-exporting the same title overwrites in place.
func (fs *FileStore) SaveArticle(docID string, doc *doctree.Document) (string, error) {
	name := safeTitle(doc.Title)
	if name == "" {
		name = "untitled_" + docID
	}
	dir := filepath.Join(fs.root, "articles", name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create article directory: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "content.md"), []byte(doc.Markdown), 0o644); err != nil {
		return "", err
	}
	if err := os.WriteFile(filepath.Join(dir, "abstract.md"), []byte(doc.Abstract), 0o644); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(dir, "toc.json"), doc.TOC); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(dir, "sidecar.json"), doc.Assets); err != nil {
		return "", err
	}
	return dir, nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", filepath.Base(path), err)
	}
	return os.WriteFile(path, data, 0o644)
}

// safeTitle keeps alphanumerics, spaces, dashes and underscores, then
// replaces spaces with underscores.
func safeTitle(title string) string {
	var b strings.Builder
	for _, r := range title {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' || r == '-' || r == '_' {
			b.WriteRune(r)
		}
	}
	return strings.ReplaceAll(strings.TrimSpace(b.String()), " ", "_")
}
