package extractor

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/wikigest/internal/doctree"
)

// CSVExtractor turns tabular data into markdown row groups plus one table
// asset holding the raw rows, so the sidecar keeps the machine-readable
// form while the text side stays chunkable.
type CSVExtractor struct{}

func (e *CSVExtractor) Extract(r io.Reader, filename string) (*doctree.Document, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}

	out := &doctree.Document{Title: titleFromFilename(filename)}
	if len(records) == 0 {
		return out, nil
	}

	headers := records[0]
	dataRows := records[1:]

	var raw strings.Builder
	w := csv.NewWriter(&raw)
	w.WriteAll(records)
	w.Flush()
	out.Assets = append(out.Assets, doctree.Asset{
		ID:      assetID("TBL", raw.String()),
		Type:    "table",
		Summary: out.Title,
		Data:    map[string]any{"rows": len(records), "csv": raw.String()},
	})

	// Group rows into batches so each section chunks independently.
	const batchSize = 20
	var md strings.Builder
	for i := 0; i < len(dataRows); i += batchSize {
		end := min(i+batchSize, len(dataRows))
		// 1-indexed source rows, skipping the header row.
		md.WriteString(fmt.Sprintf("## Rows %d-%d\n\n", i+2, end+1))
		for _, row := range dataRows[i:end] {
			var cells []string
			for j, cell := range row {
				if j < len(headers) {
					cells = append(cells, headers[j]+": "+cell)
				} else {
					cells = append(cells, cell)
				}
			}
			md.WriteString(strings.Join(cells, ", "))
			md.WriteString("\n\n")
		}
	}

	out.Markdown = strings.TrimSpace(md.String())
	out.Abstract = abstractOf(out.Markdown)
	out.TOC = tocOf(out.Markdown)
	return out, nil
}
