package extractor

import (
	"fmt"
	"strings"
	"testing"
)

func TestForFile(t *testing.T) {
	cases := []struct {
		filename string
		want     string
		wantErr  bool
	}{
		{"report.txt", "*extractor.TextExtractor", false},
		{"notes.MD", "*extractor.MarkdownExtractor", false},
		{"data.csv", "*extractor.CSVExtractor", false},
		{"page.html", "*extractor.HTMLExtractor", false},
		{"page.htm", "*extractor.HTMLExtractor", false},
		{"paper.pdf", "*extractor.PDFExtractor", false},
		{"memo.docx", "*extractor.DOCXExtractor", false},
		{"archive.zip", "", true},
		{"noext", "", true},
	}

	for _, tc := range cases {
		e, err := ForFile(tc.filename)
		if tc.wantErr {
			if err == nil {
				t.Errorf("%s: expected error", tc.filename)
			}
			continue
		}
		if err != nil {
			t.Errorf("%s: %v", tc.filename, err)
			continue
		}
		if got := fmt.Sprintf("%T", e); got != tc.want {
			t.Errorf("%s: got %s, want %s", tc.filename, got, tc.want)
		}
	}
}

func TestIsSupportedExtension(t *testing.T) {
	if !IsSupportedExtension("a.HTML") {
		t.Error("extension match should be case-insensitive")
	}
	if IsSupportedExtension("a.exe") {
		t.Error(".exe should not be supported")
	}
}

func TestAssetID_ContentDerived(t *testing.T) {
	a := assetID("infobox", "Crew=3")
	b := assetID("infobox", "Crew=3")
	c := assetID("infobox", "Crew=4")

	if a != b {
		t.Errorf("same content must yield same id: %s vs %s", a, b)
	}
	if a == c {
		t.Error("different content must yield different ids")
	}
	if !strings.HasPrefix(a, "infobox_") || len(a) != len("infobox_")+8 {
		t.Errorf("unexpected id shape: %s", a)
	}
}

func TestAbstractOf(t *testing.T) {
	md := "Lead one.\nLead two.\n\n# First\n\nBody."
	if got := abstractOf(md); got != "Lead one.\nLead two." {
		t.Errorf("abstract: got %q", got)
	}

	headerFirst := "# Title\n\nBody."
	if got := abstractOf(headerFirst); got != headerFirst {
		t.Errorf("header-first fallback: got %q", got)
	}
}

func TestTextExtractor_Paragraphs(t *testing.T) {
	input := "First line.\nSecond line.\n\nNext paragraph.\n\n\nLast one.\n"
	e := &TextExtractor{}
	doc, err := e.Extract(strings.NewReader(input), "plain.txt")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}

	want := "First line.\nSecond line.\n\nNext paragraph.\n\nLast one."
	if doc.Markdown != want {
		t.Errorf("markdown:\ngot  %q\nwant %q", doc.Markdown, want)
	}
	if doc.Title != "plain" {
		t.Errorf("title: got %q", doc.Title)
	}
}
