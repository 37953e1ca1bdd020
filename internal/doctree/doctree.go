package doctree

// Section is a node in a document's heading-derived outline.
type Section struct {
	Title       string     // Heading text that opened this section (empty for the synthetic root)
	Level       int        // Nesting depth; root is 0, a level-N heading becomes level N
	Path        []string   // Ancestor titles outermost-first, including this section, excluding the root
	Content     []string   // Paragraphs belonging directly to this section (not descendants)
	Subsections []*Section // Child sections in document order
}

// ChunkType classifies how a chunk was produced.
type ChunkType string

const (
	ChunkParagraph ChunkType = "paragraph" // single paragraph within budget
	ChunkMerged    ChunkType = "merged"    // one or more undersized paragraphs combined
	ChunkSplit     ChunkType = "split"     // one sentence window of an oversized paragraph
)

// Chunk is a sized text segment with structural context, ready for embedding
// and storage. ChunkID is a pure function of (DocumentID, SectionPath,
// ParagraphIndex, SubchunkIndex), so reprocessing the same document
// reproduces the same IDs.
type Chunk struct {
	ChunkID        string    `json:"chunk_id"`
	DocumentID     string    `json:"document_id"`
	Text           string    `json:"text"`
	TokenCount     int       `json:"token_count"`
	ChunkType      ChunkType `json:"chunk_type"`
	SectionPath    []string  `json:"section_path"`
	ParagraphIndex int       `json:"paragraph_index"`

	// SubchunkIndex is set only for split chunks. Its absence (nil) for
	// paragraph and merged chunks is meaningful: it feeds chunk identity.
	SubchunkIndex *int `json:"subchunk_index,omitempty"`
}

// Document is the extractor's output: markdown text plus the sidecar
// metadata lifted out of the source format.
type Document struct {
	Title    string     `json:"title"`
	Markdown string     `json:"markdown"` // ATX-header markdown feeding the structure parser
	Abstract string     `json:"abstract"` // text before the first heading
	TOC      []TOCEntry `json:"toc"`
	Assets   []Asset    `json:"assets"`
}

// TOCEntry is one heading in the document outline.
type TOCEntry struct {
	Level int    `json:"level"`
	Title string `json:"title"`
}

// Asset is a table, image or infobox lifted out of the article body into
// the sidecar. Data holds type-specific fields (rows, src, key/values).
type Asset struct {
	ID      string         `json:"asset_id"`
	Type    string         `json:"type"` // table | image | infobox
	Summary string         `json:"summary,omitempty"`
	Data    map[string]any `json:"data,omitempty"`
}
