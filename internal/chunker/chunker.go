package chunker

import (
	"fmt"
	"strings"

	"github.com/dgallion1/wikigest/internal/doctree"
)

// Options controls the token-budget policy.
type Options struct {
	MinTokens       int // Paragraphs below this merge with neighbors.
	TargetTokens    int // Sentence windows accumulate to this size.
	MaxTokens       int // Ceiling for paragraph and merged chunks.
	SentenceOverlap int // Sentences repeated between consecutive split windows.
}

// DefaultOptions is the standard token budget.
var DefaultOptions = Options{
	MinTokens:       80,
	TargetTokens:    220,
	MaxTokens:       300,
	SentenceOverlap: 1,
}

// Validate rejects inconsistent thresholds. Invalid options are a
// construction-time error, never silently clamped.
func (o Options) Validate() error {
	if o.MinTokens <= 0 || o.TargetTokens <= 0 || o.MaxTokens <= 0 {
		return fmt.Errorf("chunker: token thresholds must be positive (min=%d target=%d max=%d)",
			o.MinTokens, o.TargetTokens, o.MaxTokens)
	}
	if o.MinTokens >= o.TargetTokens {
		return fmt.Errorf("chunker: MinTokens (%d) must be below TargetTokens (%d)", o.MinTokens, o.TargetTokens)
	}
	if o.TargetTokens > o.MaxTokens {
		return fmt.Errorf("chunker: TargetTokens (%d) must not exceed MaxTokens (%d)", o.TargetTokens, o.MaxTokens)
	}
	if o.SentenceOverlap < 0 {
		return fmt.Errorf("chunker: SentenceOverlap must not be negative (got %d)", o.SentenceOverlap)
	}
	return nil
}

// Chunker turns a Section tree into an ordered sequence of bounded-size
// chunks. A single document is chunked sequentially (the merge buffer is
// inherently ordered); distinct documents may be chunked concurrently as
// long as the injected Tokenizer tolerates it.
type Chunker struct {
	tokens Tokenizer
	opts   Options
}

// New builds a Chunker. A nil tokenizer falls back to whitespace counting.
func New(tokens Tokenizer, opts Options) (*Chunker, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if tokens == nil {
		tokens = CountTokens
	}
	return &Chunker{tokens: tokens, opts: opts}, nil
}

// ChunkDocument walks the section tree pre-order, a section's own chunks
// before its children's, and concatenates per-section output. Chunks never
// span sections. A tokenizer failure aborts the whole call with no partial
// result.
func (c *Chunker) ChunkDocument(documentID string, root *doctree.Section) ([]doctree.Chunk, error) {
	if root == nil {
		return nil, nil
	}

	var chunks []doctree.Chunk
	var walk func(sec *doctree.Section) error
	walk = func(sec *doctree.Section) error {
		out, err := c.chunkSection(documentID, sec)
		if err != nil {
			return err
		}
		chunks = append(chunks, out...)
		for _, sub := range sec.Subsections {
			if err := walk(sub); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(root); err != nil {
		return nil, err
	}
	return chunks, nil
}

// mergeBuffer holds undersized paragraphs pending combination into one
// merged chunk. firstIndex is the index of the first paragraph folded in.
type mergeBuffer struct {
	text       string
	firstIndex int
}

// chunkSection applies the merge/split policy to one section's direct
// paragraphs. Undersized paragraphs (< MinTokens) accumulate in the merge
// buffer as long as the combination stays within MaxTokens; any paragraph
// at or above the minimum flushes the buffer first and is emitted on its
// own: verbatim when it fits, sentence-windowed when it exceeds MaxTokens.
func (c *Chunker) chunkSection(documentID string, sec *doctree.Section) ([]doctree.Chunk, error) {
	var chunks []doctree.Chunk
	var buf *mergeBuffer

	flush := func() error {
		if buf == nil {
			return nil
		}
		n, err := c.tokens(buf.text)
		if err != nil {
			return fmt.Errorf("count tokens: %w", err)
		}
		chunks = append(chunks, c.newChunk(documentID, sec.Path, buf.text, n, doctree.ChunkMerged, buf.firstIndex, nil))
		buf = nil
		return nil
	}

	for i, paragraph := range sec.Content {
		n, err := c.tokens(paragraph)
		if err != nil {
			return nil, fmt.Errorf("count tokens: %w", err)
		}

		if n < c.opts.MinTokens {
			if buf == nil {
				buf = &mergeBuffer{text: paragraph, firstIndex: i}
				continue
			}
			candidate := buf.text + "\n\n" + paragraph
			cn, err := c.tokens(candidate)
			if err != nil {
				return nil, fmt.Errorf("count tokens: %w", err)
			}
			if cn <= c.opts.MaxTokens {
				buf.text = candidate
			} else {
				if err := flush(); err != nil {
					return nil, err
				}
				buf = &mergeBuffer{text: paragraph, firstIndex: i}
			}
			continue
		}

		// At or above the minimum: the buffer never absorbs this paragraph,
		// even when the combination would fit. It only grows by accepting
		// subsequent undersized paragraphs.
		if err := flush(); err != nil {
			return nil, err
		}

		if n <= c.opts.MaxTokens {
			chunks = append(chunks, c.newChunk(documentID, sec.Path, paragraph, n, doctree.ChunkParagraph, i, nil))
			continue
		}

		split, err := c.splitParagraph(documentID, sec, paragraph, i)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, split...)
	}

	if err := flush(); err != nil {
		return nil, err
	}
	return chunks, nil
}

// splitParagraph windows an oversized paragraph over its sentences. Each
// window accumulates whole sentences until the running token sum reaches
// TargetTokens, so a window holding very long sentences can exceed
// MaxTokens; sentence boundaries are never broken mid-way. Consecutive
// windows repeat up to SentenceOverlap sentences, clamped so the cursor
// always advances.
func (c *Chunker) splitParagraph(documentID string, sec *doctree.Section, text string, paragraphIndex int) ([]doctree.Chunk, error) {
	sentences := SplitSentences(text)
	if len(sentences) == 0 {
		return nil, nil
	}

	counts := make([]int, len(sentences))
	for i, s := range sentences {
		n, err := c.tokens(s)
		if err != nil {
			return nil, fmt.Errorf("count tokens: %w", err)
		}
		counts[i] = n
	}

	var chunks []doctree.Chunk
	i := 0
	subIndex := 0

	for i < len(sentences) {
		start := i
		sum := 0
		for i < len(sentences) {
			sum += counts[i]
			i++
			if sum >= c.opts.TargetTokens {
				break
			}
		}

		window := sentences[start:i]
		sub := subIndex
		chunks = append(chunks, c.newChunk(documentID, sec.Path, strings.Join(window, " "), sum, doctree.ChunkSplit, paragraphIndex, &sub))
		subIndex++

		// Backtrack for overlap only while sentences remain; clamp to
		// window size minus one so single-sentence windows still advance.
		if i < len(sentences) {
			overlap := c.opts.SentenceOverlap
			if overlap > len(window)-1 {
				overlap = len(window) - 1
			}
			i -= overlap
		}
	}
	return chunks, nil
}

func (c *Chunker) newChunk(documentID string, path []string, text string, tokens int, ct doctree.ChunkType, paragraphIndex int, subIndex *int) doctree.Chunk {
	sp := make([]string, len(path))
	copy(sp, path)
	return doctree.Chunk{
		ChunkID:        ChunkID(documentID, path, paragraphIndex, subIndex),
		DocumentID:     documentID,
		Text:           text,
		TokenCount:     tokens,
		ChunkType:      ct,
		SectionPath:    sp,
		ParagraphIndex: paragraphIndex,
		SubchunkIndex:  subIndex,
	}
}
