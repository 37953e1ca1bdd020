package chunker

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/dgallion1/wikigest/internal/doctree"
)

// words builds a paragraph of exactly n whitespace-separated words, so the
// default tokenizer reports exactly n tokens.
func words(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = "word"
	}
	return strings.Join(parts, " ")
}

// sentenceOf builds a single sentence of exactly n words ending in a period.
func sentenceOf(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = "alpha"
	}
	parts[n-1] = "omega."
	return strings.Join(parts, " ")
}

func testOptions() Options {
	return Options{MinTokens: 80, TargetTokens: 220, MaxTokens: 300, SentenceOverlap: 1}
}

func mustChunker(t *testing.T, opts Options) *Chunker {
	t.Helper()
	c, err := New(nil, opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestChunkDocument_MergeThenParagraph(t *testing.T) {
	// Three paragraphs of 30, 40 and 250 tokens: the first two merge into
	// one chunk (70 tokens, under MAX), the third is emitted verbatim.
	sec := &doctree.Section{
		Title:   "History",
		Level:   1,
		Path:    []string{"History"},
		Content: []string{words(30), words(40), words(250)},
	}
	root := &doctree.Section{Subsections: []*doctree.Section{sec}}

	c := mustChunker(t, testOptions())
	chunks, err := c.ChunkDocument("doc-1", root)
	if err != nil {
		t.Fatalf("ChunkDocument: %v", err)
	}

	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}

	merged := chunks[0]
	if merged.ChunkType != doctree.ChunkMerged {
		t.Errorf("chunk 0: expected type merged, got %s", merged.ChunkType)
	}
	if merged.TokenCount != 70 {
		t.Errorf("chunk 0: expected 70 tokens, got %d", merged.TokenCount)
	}
	if merged.ParagraphIndex != 0 {
		t.Errorf("chunk 0: expected paragraph index 0, got %d", merged.ParagraphIndex)
	}
	if !strings.Contains(merged.Text, "\n\n") {
		t.Errorf("chunk 0: merged paragraphs should be joined by a blank line")
	}

	para := chunks[1]
	if para.ChunkType != doctree.ChunkParagraph {
		t.Errorf("chunk 1: expected type paragraph, got %s", para.ChunkType)
	}
	if para.TokenCount != 250 {
		t.Errorf("chunk 1: expected 250 tokens, got %d", para.TokenCount)
	}
	if para.ParagraphIndex != 2 {
		t.Errorf("chunk 1: expected paragraph index 2, got %d", para.ParagraphIndex)
	}
}

func TestChunkDocument_BufferNeverAbsorbsParagraphAtMinimum(t *testing.T) {
	// A 30-token buffer followed by a 100-token paragraph would fit merged
	// (130 <= 300), but the policy flushes the buffer instead: the buffer
	// only grows by accepting undersized paragraphs.
	sec := &doctree.Section{
		Path:    []string{"A"},
		Content: []string{words(30), words(100)},
	}

	c := mustChunker(t, testOptions())
	chunks, err := c.chunkSection("doc-1", sec)
	if err != nil {
		t.Fatalf("chunkSection: %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if chunks[0].ChunkType != doctree.ChunkMerged || chunks[0].TokenCount != 30 {
		t.Errorf("chunk 0: expected 30-token merged flush, got %s/%d", chunks[0].ChunkType, chunks[0].TokenCount)
	}
	if chunks[1].ChunkType != doctree.ChunkParagraph || chunks[1].TokenCount != 100 {
		t.Errorf("chunk 1: expected 100-token paragraph, got %s/%d", chunks[1].ChunkType, chunks[1].TokenCount)
	}
}

func TestChunkDocument_MergeRespectsMaxCeiling(t *testing.T) {
	// Four undersized paragraphs of 79 tokens each. Merging re-checks the
	// MAX ceiling: 79+79+79 joined is 237 tokens, adding a fourth would be
	// 316 > 300, so the buffer flushes and a new one starts.
	sec := &doctree.Section{
		Path:    []string{"A"},
		Content: []string{words(79), words(79), words(79), words(79)},
	}

	c := mustChunker(t, testOptions())
	chunks, err := c.chunkSection("doc-1", sec)
	if err != nil {
		t.Fatalf("chunkSection: %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("expected 2 merged chunks, got %d", len(chunks))
	}
	if chunks[0].TokenCount != 237 {
		t.Errorf("chunk 0: expected 237 tokens, got %d", chunks[0].TokenCount)
	}
	if chunks[0].ParagraphIndex != 0 {
		t.Errorf("chunk 0: expected paragraph index 0, got %d", chunks[0].ParagraphIndex)
	}
	if chunks[1].TokenCount != 79 || chunks[1].ParagraphIndex != 3 {
		t.Errorf("chunk 1: expected 79-token chunk at index 3, got %d at %d", chunks[1].TokenCount, chunks[1].ParagraphIndex)
	}
	for i, ch := range chunks {
		if ch.TokenCount > 300 {
			t.Errorf("chunk %d: merged chunk exceeds MAX (%d tokens)", i, ch.TokenCount)
		}
	}
}

func TestChunkDocument_TrailingBufferFlushes(t *testing.T) {
	sec := &doctree.Section{
		Path:    []string{"A"},
		Content: []string{words(200), words(10)},
	}
	c := mustChunker(t, testOptions())
	chunks, err := c.chunkSection("doc-1", sec)
	if err != nil {
		t.Fatalf("chunkSection: %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	last := chunks[1]
	if last.ChunkType != doctree.ChunkMerged || last.TokenCount != 10 || last.ParagraphIndex != 1 {
		t.Errorf("trailing buffer: expected 10-token merged chunk at index 1, got %s/%d at %d",
			last.ChunkType, last.TokenCount, last.ParagraphIndex)
	}
}

func TestSplitParagraph_SentenceWindows(t *testing.T) {
	// Ten sentences of 70 tokens each: windows accumulate four sentences
	// (280 >= 220), overlap by exactly one, and the cursor lands on the
	// final sentence with nothing left over: [0-3], [3-6], [6-9].
	sentences := make([]string, 10)
	for i := range sentences {
		sentences[i] = sentenceOf(70)
	}
	paragraph := strings.Join(sentences, " ")

	sec := &doctree.Section{Path: []string{"Long"}}
	c := mustChunker(t, testOptions())
	chunks, err := c.splitParagraph("doc-1", sec, paragraph, 0)
	if err != nil {
		t.Fatalf("splitParagraph: %v", err)
	}

	if len(chunks) != 3 {
		t.Fatalf("expected 3 split windows, got %d", len(chunks))
	}
	for i, ch := range chunks {
		if ch.ChunkType != doctree.ChunkSplit {
			t.Errorf("window %d: expected type split, got %s", i, ch.ChunkType)
		}
		if ch.TokenCount != 280 {
			t.Errorf("window %d: expected 280 tokens, got %d", i, ch.TokenCount)
		}
		if ch.ParagraphIndex != 0 {
			t.Errorf("window %d: expected paragraph index 0, got %d", i, ch.ParagraphIndex)
		}
		if ch.SubchunkIndex == nil || *ch.SubchunkIndex != i {
			t.Errorf("window %d: expected subchunk index %d, got %v", i, i, ch.SubchunkIndex)
		}
	}

	// Consecutive windows share exactly one sentence.
	for i := 1; i < len(chunks); i++ {
		prev := SplitSentences(chunks[i-1].Text)
		cur := SplitSentences(chunks[i].Text)
		if prev[len(prev)-1] != cur[0] {
			t.Errorf("windows %d/%d: expected one-sentence overlap", i-1, i)
		}
	}
}

func TestSplitParagraph_WindowMayExceedMax(t *testing.T) {
	// A single 400-token sentence: the window overshoots MAX rather than
	// truncating mid-sentence. This is a documented property, not a bug.
	paragraph := sentenceOf(400)
	sec := &doctree.Section{Path: []string{"Long"}}

	c := mustChunker(t, testOptions())
	chunks, err := c.splitParagraph("doc-1", sec, paragraph, 0)
	if err != nil {
		t.Fatalf("splitParagraph: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("expected 1 window, got %d", len(chunks))
	}
	if chunks[0].TokenCount != 400 {
		t.Errorf("expected 400 tokens, got %d", chunks[0].TokenCount)
	}
}

func TestSplitParagraph_SingleSentenceWindowsTerminate(t *testing.T) {
	// Every sentence exceeds TARGET on its own, so every window holds one
	// sentence. Overlap clamps to zero and the cursor still advances.
	sentences := []string{sentenceOf(250), sentenceOf(250), sentenceOf(250)}
	paragraph := strings.Join(sentences, " ")
	sec := &doctree.Section{Path: []string{"Long"}}

	c := mustChunker(t, testOptions())
	chunks, err := c.splitParagraph("doc-1", sec, paragraph, 0)
	if err != nil {
		t.Fatalf("splitParagraph: %v", err)
	}
	if len(chunks) != 3 {
		t.Fatalf("expected 3 windows, got %d", len(chunks))
	}
	for i, ch := range chunks {
		if ch.SubchunkIndex == nil || *ch.SubchunkIndex != i {
			t.Errorf("window %d: expected subchunk index %d, got %v", i, i, ch.SubchunkIndex)
		}
	}
}

func TestSplitParagraph_Completeness(t *testing.T) {
	// Ignoring overlap repeats, the windows reconstruct the sentence
	// sequence in order.
	sentences := make([]string, 9)
	for i := range sentences {
		sentences[i] = fmt.Sprintf("Sentence number %d has %s in it.", i, words(60))
	}
	paragraph := strings.Join(sentences, " ")
	sec := &doctree.Section{Path: []string{"Long"}}

	c := mustChunker(t, testOptions())
	chunks, err := c.splitParagraph("doc-1", sec, paragraph, 4)
	if err != nil {
		t.Fatalf("splitParagraph: %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected multiple windows, got %d", len(chunks))
	}

	var rebuilt []string
	for i, ch := range chunks {
		ws := SplitSentences(ch.Text)
		if i > 0 {
			// Drop the overlap repeats at the head of each window.
			ws = ws[1:]
		}
		rebuilt = append(rebuilt, ws...)
	}
	if !reflect.DeepEqual(rebuilt, SplitSentences(paragraph)) {
		t.Errorf("windows do not reconstruct the original sentence sequence")
	}
}

func TestChunkDocument_PreOrderTraversal(t *testing.T) {
	leaf := &doctree.Section{
		Title: "Deep", Level: 2,
		Path:    []string{"Top", "Deep"},
		Content: []string{words(100)},
	}
	top := &doctree.Section{
		Title: "Top", Level: 1,
		Path:        []string{"Top"},
		Content:     []string{words(90)},
		Subsections: []*doctree.Section{leaf},
	}
	root := &doctree.Section{Subsections: []*doctree.Section{top}}

	c := mustChunker(t, testOptions())
	chunks, err := c.ChunkDocument("doc-1", root)
	if err != nil {
		t.Fatalf("ChunkDocument: %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if !reflect.DeepEqual(chunks[0].SectionPath, []string{"Top"}) {
		t.Errorf("chunk 0: expected parent section first, got path %v", chunks[0].SectionPath)
	}
	if !reflect.DeepEqual(chunks[1].SectionPath, []string{"Top", "Deep"}) {
		t.Errorf("chunk 1: expected child section second, got path %v", chunks[1].SectionPath)
	}
}

func TestChunkDocument_Deterministic(t *testing.T) {
	raw := "# Alpha\n\n" + words(50) + "\n\n" + words(40) + "\n\n## Beta\n\n" +
		strings.Join([]string{sentenceOf(120), sentenceOf(120), sentenceOf(120)}, " ") + "\n"

	c := mustChunker(t, testOptions())
	first, err := c.ChunkDocument("doc-42", ParseStructure(raw))
	if err != nil {
		t.Fatalf("ChunkDocument: %v", err)
	}
	second, err := c.ChunkDocument("doc-42", ParseStructure(raw))
	if err != nil {
		t.Fatalf("ChunkDocument (second run): %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("identical input produced different chunk sequences")
	}
	if len(first) == 0 {
		t.Fatalf("expected chunks from non-trivial document")
	}
	seen := make(map[string]bool)
	for _, ch := range first {
		if seen[ch.ChunkID] {
			t.Errorf("duplicate chunk id %s within one document", ch.ChunkID)
		}
		seen[ch.ChunkID] = true
	}
}

func TestChunkDocument_ParagraphOrderWithinSection(t *testing.T) {
	sec := &doctree.Section{
		Path:    []string{"A"},
		Content: []string{words(10), words(100), words(10), words(400), words(10)},
	}
	c := mustChunker(t, testOptions())
	chunks, err := c.chunkSection("doc-1", sec)
	if err != nil {
		t.Fatalf("chunkSection: %v", err)
	}
	last := -1
	for i, ch := range chunks {
		if ch.ParagraphIndex < last {
			t.Errorf("chunk %d: paragraph index went backwards (%d after %d)", i, ch.ParagraphIndex, last)
		}
		last = ch.ParagraphIndex
	}
}

func TestChunkDocument_EmptyInputs(t *testing.T) {
	c := mustChunker(t, testOptions())

	chunks, err := c.ChunkDocument("doc-1", nil)
	if err != nil || len(chunks) != 0 {
		t.Errorf("nil root: expected no chunks and no error, got %d, %v", len(chunks), err)
	}

	chunks, err = c.ChunkDocument("doc-1", &doctree.Section{})
	if err != nil || len(chunks) != 0 {
		t.Errorf("empty root: expected no chunks and no error, got %d, %v", len(chunks), err)
	}

	chunks, err = c.ChunkDocument("doc-1", ParseStructure("# Title\n\n## Empty\n"))
	if err != nil || len(chunks) != 0 {
		t.Errorf("headers only: expected no chunks and no error, got %d, %v", len(chunks), err)
	}
}

func TestChunkDocument_TokenizerErrorIsAtomic(t *testing.T) {
	boom := errors.New("tokenizer offline")
	calls := 0
	failing := func(text string) (int, error) {
		calls++
		if calls > 2 {
			return 0, boom
		}
		return len(strings.Fields(text)), nil
	}

	c, err := New(failing, testOptions())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	root := ParseStructure("# A\n\npara one\n\npara two\n\npara three\n")
	chunks, err := c.ChunkDocument("doc-1", root)
	if !errors.Is(err, boom) {
		t.Fatalf("expected tokenizer error, got %v", err)
	}
	if chunks != nil {
		t.Errorf("expected no partial chunks on tokenizer failure, got %d", len(chunks))
	}
}

func TestOptions_Validate(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		wantErr bool
	}{
		{"defaults", DefaultOptions, false},
		{"target equals max", Options{MinTokens: 10, TargetTokens: 50, MaxTokens: 50, SentenceOverlap: 0}, false},
		{"min equals target", Options{MinTokens: 50, TargetTokens: 50, MaxTokens: 60, SentenceOverlap: 1}, true},
		{"min above target", Options{MinTokens: 90, TargetTokens: 50, MaxTokens: 100, SentenceOverlap: 1}, true},
		{"target above max", Options{MinTokens: 10, TargetTokens: 120, MaxTokens: 100, SentenceOverlap: 1}, true},
		{"negative overlap", Options{MinTokens: 10, TargetTokens: 50, MaxTokens: 100, SentenceOverlap: -1}, true},
		{"zero min", Options{MinTokens: 0, TargetTokens: 50, MaxTokens: 100, SentenceOverlap: 1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(nil, tt.opts)
			if (err != nil) != tt.wantErr {
				t.Errorf("New(%+v): err = %v, wantErr = %v", tt.opts, err, tt.wantErr)
			}
		})
	}
}

func TestCountTokens(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"", 0},
		{"   ", 0},
		{"one", 1},
		{"one two three", 3},
		{"  spaced \t out\nwords  ", 3},
	}
	for _, tt := range tests {
		got, err := CountTokens(tt.text)
		if err != nil {
			t.Fatalf("CountTokens(%q): %v", tt.text, err)
		}
		if got != tt.want {
			t.Errorf("CountTokens(%q) = %d, want %d", tt.text, got, tt.want)
		}
	}
}
