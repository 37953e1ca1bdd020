package extractor

import (
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/dgallion1/wikigest/internal/doctree"
)

// HTMLExtractor shreds wiki-style HTML: infoboxes, large data tables and
// images are lifted into sidecar assets (leaving reference tokens in the
// text), and the remaining DOM is converted to ATX markdown.
type HTMLExtractor struct{}

func (e *HTMLExtractor) Extract(r io.Reader, filename string) (*doctree.Document, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	out := &doctree.Document{Title: titleFromFilename(filename)}
	if t := strings.TrimSpace(doc.Find("title").First().Text()); t != "" {
		out.Title = t
	}

	// Strip chrome and wiki editing artifacts before any extraction.
	doc.Find("script, style, link, meta, noscript").Remove()
	doc.Find(".mw-editsection").Remove()

	e.extractInfoboxes(doc, out)
	e.extractTables(doc, out)
	e.processImages(doc, out)
	e.convertMath(doc)

	body := doc.Find("body")
	var buf strings.Builder
	if len(body.Nodes) > 0 {
		for _, n := range body.Nodes {
			renderMarkdown(n, &buf)
		}
	} else {
		for _, n := range doc.Selection.Nodes {
			renderMarkdown(n, &buf)
		}
	}

	out.Markdown = collapseBlankLines(buf.String())
	out.Abstract = abstractOf(out.Markdown)
	out.TOC = tocOf(out.Markdown)
	return out, nil
}

// extractInfoboxes lifts each infobox table into a sidecar asset and leaves
// a reference token where it stood.
func (e *HTMLExtractor) extractInfoboxes(doc *goquery.Document, out *doctree.Document) {
	doc.Find("table.infobox").Each(func(_ int, s *goquery.Selection) {
		fields := make(map[string]any)
		s.Find("tr").Each(func(_ int, row *goquery.Selection) {
			key := strings.TrimSpace(row.Find("th").First().Text())
			val := strings.TrimSpace(row.Find("td").First().Text())
			if key != "" && val != "" {
				fields[key] = val
			}
		})
		raw, _ := goquery.OuterHtml(s)
		id := assetID("INFO", raw)
		summary := strings.TrimSpace(s.Find("caption").First().Text())

		out.Assets = append(out.Assets, doctree.Asset{
			ID:      id,
			Type:    "infobox",
			Summary: summary,
			Data:    map[string]any{"fields": fields},
		})
		s.ReplaceWithHtml(fmt.Sprintf("<p>[[INFOBOX:%s]]</p>", id))
	})
}

// extractTables lifts large data tables (wikitable class, five rows or
// more) into CSV sidecar assets. Small tables stay inline as markdown.
func (e *HTMLExtractor) extractTables(doc *goquery.Document, out *doctree.Document) {
	doc.Find("table.wikitable").Each(func(_ int, s *goquery.Selection) {
		rows := s.Find("tr").Length()
		if rows < 5 {
			return
		}

		grid := tableGrid(s)
		var csvBuf strings.Builder
		w := csv.NewWriter(&csvBuf)
		for _, row := range grid {
			w.Write(row)
		}
		w.Flush()

		summary := strings.TrimSpace(s.Find("caption").First().Text())
		if summary == "" {
			summary = "Data table"
		}
		id := assetID("TBL", csvBuf.String())

		out.Assets = append(out.Assets, doctree.Asset{
			ID:      id,
			Type:    "table",
			Summary: summary,
			Data:    map[string]any{"rows": rows, "csv": csvBuf.String()},
		})
		s.ReplaceWithHtml(fmt.Sprintf("<p>[[TABLE:%s %s]]</p>", id, summary))
	})
}

// processImages records image references in the sidecar and rewrites srcs
// to the archive namespace. Bytes are never fetched.
func (e *HTMLExtractor) processImages(doc *goquery.Document, out *doctree.Document) {
	doc.Find("img").Each(func(_ int, s *goquery.Selection) {
		src, _ := s.Attr("src")
		if src == "" {
			return
		}
		alt := s.AttrOr("alt", "Image")

		parts := strings.Split(src, "/")
		name := parts[len(parts)-1]

		out.Assets = append(out.Assets, doctree.Asset{
			ID:      assetID("IMG", src),
			Type:    "image",
			Summary: alt,
			Data: map[string]any{
				"filename":     name,
				"archive_path": "I/" + name,
				"original_src": src,
			},
		})
		s.SetAttr("src", "zim://I/"+name)
	})
}

// convertMath replaces rendered math elements with their LaTeX source when
// it can be recovered from the alt text or the a11y annotation.
func (e *HTMLExtractor) convertMath(doc *goquery.Document) {
	doc.Find(".mwe-math-element").Each(func(_ int, s *goquery.Selection) {
		latex := s.Find("img").AttrOr("alt", "")
		if latex == "" {
			latex = strings.TrimSpace(s.Find(".mwe-math-mathml-a11y").Text())
		}
		if latex != "" {
			s.ReplaceWithHtml("<span> $ " + html.EscapeString(latex) + " $ </span>")
		}
	})
}

// tableGrid flattens an HTML table into a 2D grid, expanding rowspan and
// colspan so every cell lands at its visual coordinates.
func tableGrid(table *goquery.Selection) [][]string {
	type coord struct{ r, c int }
	cellMap := make(map[coord]string)
	rows := table.Find("tr")
	maxRows := rows.Length()
	maxCols := 0

	rows.Each(func(rIdx int, row *goquery.Selection) {
		if strings.Contains(row.AttrOr("style", ""), "display:none") {
			return
		}
		cIdx := 0
		row.Find("td, th").Each(func(_ int, cell *goquery.Selection) {
			for {
				if _, taken := cellMap[coord{rIdx, cIdx}]; !taken {
					break
				}
				cIdx++
			}
			rowSpan := spanAttr(cell, "rowspan")
			colSpan := spanAttr(cell, "colspan")

			cell.Find(".reference").Remove()
			text := strings.Join(strings.Fields(cell.Text()), " ")

			for r := 0; r < rowSpan && rIdx+r < maxRows; r++ {
				for c := 0; c < colSpan; c++ {
					cellMap[coord{rIdx + r, cIdx + c}] = text
				}
			}
			cIdx += colSpan
			if cIdx > maxCols {
				maxCols = cIdx
			}
		})
	})

	var grid [][]string
	for r := 0; r < maxRows; r++ {
		rowData := make([]string, maxCols)
		empty := true
		for c := 0; c < maxCols; c++ {
			rowData[c] = cellMap[coord{r, c}]
			if rowData[c] != "" {
				empty = false
			}
		}
		if !empty {
			grid = append(grid, rowData)
		}
	}
	return grid
}

func spanAttr(cell *goquery.Selection, name string) int {
	n, err := strconv.Atoi(cell.AttrOr(name, "1"))
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// renderMarkdown converts a cleaned DOM subtree to ATX markdown. Links and
// emphasis collapse to plain text; the chunker only consumes text anyway.
func renderMarkdown(n *html.Node, buf *strings.Builder) {
	if n.Type == html.ElementNode {
		switch n.Data {
		case "h1", "h2", "h3", "h4", "h5", "h6":
			level := int(n.Data[1] - '0')
			if t := nodeText(n); t != "" {
				buf.WriteString("\n\n" + strings.Repeat("#", level) + " " + t + "\n\n")
			}
			return
		case "p", "blockquote", "figcaption", "dd", "dt":
			if t := nodeText(n); t != "" {
				buf.WriteString("\n\n" + t + "\n\n")
			}
			return
		case "li":
			if t := nodeText(n); t != "" {
				buf.WriteString("\n- " + t)
			}
			return
		case "ul", "ol":
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				renderMarkdown(c, buf)
			}
			buf.WriteString("\n\n")
			return
		case "table":
			// Small inline table: one line per row, cells pipe-separated.
			buf.WriteString("\n\n")
			for _, row := range tableGrid(wrapSelection(n)) {
				buf.WriteString(strings.Join(row, " | ") + "\n")
			}
			buf.WriteString("\n")
			return
		case "img":
			alt, src := attrOf(n, "alt"), attrOf(n, "src")
			if src != "" {
				buf.WriteString(fmt.Sprintf("![%s](%s)", alt, src))
			}
			return
		case "br":
			buf.WriteString("\n")
			return
		}
	}
	if n.Type == html.TextNode {
		if t := strings.TrimSpace(n.Data); t != "" {
			buf.WriteString(t + " ")
		}
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		renderMarkdown(c, buf)
	}
}

// nodeText flattens a node's inline content to single-spaced text,
// rendering nested images as markdown references.
func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteString(" ")
			return
		}
		if n.Type == html.ElementNode && n.Data == "img" {
			if src := attrOf(n, "src"); src != "" {
				b.WriteString(fmt.Sprintf("![%s](%s) ", attrOf(n, "alt"), src))
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(b.String()), " ")
}

func attrOf(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// wrapSelection adapts a bare html.Node to a goquery selection so the grid
// parser can be shared between the sidecar path and inline rendering.
func wrapSelection(n *html.Node) *goquery.Selection {
	return goquery.NewDocumentFromNode(n).Selection
}

var blankRunRe = regexp.MustCompile(`\n{3,}`)

func collapseBlankLines(s string) string {
	return strings.TrimSpace(blankRunRe.ReplaceAllString(s, "\n\n"))
}
