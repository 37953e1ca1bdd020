package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/dgallion1/wikigest/internal/doctree"
)

// ErrNotFound is returned when a requested article does not exist.
var ErrNotFound = errors.New("storage: not found")

// Store persists articles, sidecar assets and chunks in SQLite.
type Store struct {
	db *sql.DB
}

// Article is the stored form of an ingested document.
type Article struct {
	DocID       string             `json:"doc_id"`
	Title       string             `json:"title"`
	Markdown    string             `json:"markdown,omitempty"`
	Abstract    string             `json:"abstract,omitempty"`
	TOC         []doctree.TOCEntry `json:"toc,omitempty"`
	ContentHash string             `json:"content_hash"`
	ChunkCount  int                `json:"chunk_count"`
	CreatedAt   time.Time          `json:"created_at"`
}

// SearchResult pairs a chunk with its cosine similarity to the query.
type SearchResult struct {
	Chunk doctree.Chunk `json:"chunk"`
	Score float64       `json:"score"`
}

// Stats summarizes store contents.
type Stats struct {
	Articles       int `json:"articles"`
	Assets         int `json:"assets"`
	Chunks         int `json:"chunks"`
	EmbeddedChunks int `json:"embedded_chunks"`
}

// Open opens or creates the database at path and applies the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// modernc sqlite is single-writer; serialize access through one conn.
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply pragma %q: %w", pragma, err)
		}
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS articles (
			doc_id       TEXT PRIMARY KEY,
			title        TEXT NOT NULL,
			markdown     TEXT,
			abstract     TEXT,
			toc          TEXT,
			content_hash TEXT NOT NULL,
			created_at   TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_articles_content_hash ON articles(content_hash)`,
		`CREATE TABLE IF NOT EXISTS assets (
			asset_id TEXT PRIMARY KEY,
			doc_id   TEXT NOT NULL REFERENCES articles(doc_id) ON DELETE CASCADE,
			type     TEXT NOT NULL,
			summary  TEXT,
			data     TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_assets_doc ON assets(doc_id)`,
		`CREATE TABLE IF NOT EXISTS chunks (
			chunk_id        TEXT PRIMARY KEY,
			doc_id          TEXT NOT NULL REFERENCES articles(doc_id) ON DELETE CASCADE,
			text            TEXT NOT NULL,
			token_count     INTEGER NOT NULL,
			chunk_type      TEXT NOT NULL,
			section_path    TEXT NOT NULL,
			paragraph_index INTEGER NOT NULL,
			subchunk_index  INTEGER,
			embedding       BLOB
		)`,
		`CREATE INDEX IF NOT EXISTS idx_chunks_doc ON chunks(doc_id)`,
	}
	for _, stmt := range schema {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// UpsertArticle inserts an article. Re-ingesting the same doc_id is a
// no-op, matching the insert-or-ignore contract of the chunk tables.
func (s *Store) UpsertArticle(ctx context.Context, a *Article) error {
	toc, err := json.Marshal(a.TOC)
	if err != nil {
		return fmt.Errorf("failed to encode toc: %w", err)
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO articles (doc_id, title, markdown, abstract, toc, content_hash, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(doc_id) DO NOTHING`,
		a.DocID, a.Title, a.Markdown, a.Abstract, string(toc), a.ContentHash,
		a.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to insert article: %w", err)
	}
	return nil
}

// UpsertAssets stores sidecar assets for an article, skipping duplicates.
func (s *Store) UpsertAssets(ctx context.Context, docID string, assets []doctree.Asset) error {
	if len(assets) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO assets (asset_id, doc_id, type, summary, data)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(asset_id) DO NOTHING`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, a := range assets {
		data, err := json.Marshal(a.Data)
		if err != nil {
			return fmt.Errorf("failed to encode asset %s: %w", a.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, a.ID, docID, a.Type, a.Summary, string(data)); err != nil {
			return fmt.Errorf("failed to insert asset %s: %w", a.ID, err)
		}
	}
	return tx.Commit()
}

// UpsertChunks stores chunks with optional embeddings in one transaction.
// embeddings may be nil, or must have one vector per chunk. Existing
// chunk ids are left untouched.
func (s *Store) UpsertChunks(ctx context.Context, chunks []doctree.Chunk, embeddings [][]float32) error {
	if len(chunks) == 0 {
		return nil
	}
	if embeddings != nil && len(embeddings) != len(chunks) {
		return fmt.Errorf("storage: %d embeddings for %d chunks", len(embeddings), len(chunks))
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (chunk_id, doc_id, text, token_count, chunk_type,
			section_path, paragraph_index, subchunk_index, embedding)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(chunk_id) DO NOTHING`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, c := range chunks {
		path, err := json.Marshal(c.SectionPath)
		if err != nil {
			return fmt.Errorf("failed to encode section path: %w", err)
		}
		var sub any
		if c.SubchunkIndex != nil {
			sub = *c.SubchunkIndex
		}
		var blob any
		if embeddings != nil && embeddings[i] != nil {
			blob = serializeVector(embeddings[i])
		}
		if _, err := stmt.ExecContext(ctx, c.ChunkID, c.DocumentID, c.Text,
			c.TokenCount, c.ChunkType, string(path), c.ParagraphIndex, sub, blob); err != nil {
			return fmt.Errorf("failed to insert chunk %s: %w", c.ChunkID, err)
		}
	}
	return tx.Commit()
}

// GetArticle loads one article by id.
func (s *Store) GetArticle(ctx context.Context, docID string) (*Article, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT a.doc_id, a.title, a.markdown, a.abstract, a.toc, a.content_hash, a.created_at,
			(SELECT COUNT(*) FROM chunks c WHERE c.doc_id = a.doc_id)
		FROM articles a WHERE a.doc_id = ?`, docID)
	return scanArticle(row)
}

// FindByContentHash returns the article already holding this content, if any.
func (s *Store) FindByContentHash(ctx context.Context, hash string) (*Article, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT a.doc_id, a.title, a.markdown, a.abstract, a.toc, a.content_hash, a.created_at,
			(SELECT COUNT(*) FROM chunks c WHERE c.doc_id = a.doc_id)
		FROM articles a WHERE a.content_hash = ? LIMIT 1`, hash)
	return scanArticle(row)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanArticle(row rowScanner) (*Article, error) {
	var a Article
	var toc, createdAt string
	err := row.Scan(&a.DocID, &a.Title, &a.Markdown, &a.Abstract, &toc,
		&a.ContentHash, &createdAt, &a.ChunkCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if toc != "" {
		if err := json.Unmarshal([]byte(toc), &a.TOC); err != nil {
			return nil, fmt.Errorf("failed to decode toc: %w", err)
		}
	}
	a.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return &a, nil
}

// ListArticles returns article summaries, newest first. Markdown bodies
// are omitted.
func (s *Store) ListArticles(ctx context.Context, limit, offset int) ([]*Article, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT a.doc_id, a.title, '', a.abstract, a.toc, a.content_hash, a.created_at,
			(SELECT COUNT(*) FROM chunks c WHERE c.doc_id = a.doc_id)
		FROM articles a ORDER BY a.created_at DESC LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Article
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// DeleteArticle removes an article with its assets and chunks.
func (s *Store) DeleteArticle(ctx context.Context, docID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM articles WHERE doc_id = ?`, docID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// AssetsForArticle returns the sidecar assets of one article.
func (s *Store) AssetsForArticle(ctx context.Context, docID string) ([]doctree.Asset, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT asset_id, type, summary, data FROM assets WHERE doc_id = ? ORDER BY asset_id`, docID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []doctree.Asset
	for rows.Next() {
		var a doctree.Asset
		var data string
		if err := rows.Scan(&a.ID, &a.Type, &a.Summary, &data); err != nil {
			return nil, err
		}
		if data != "" {
			if err := json.Unmarshal([]byte(data), &a.Data); err != nil {
				return nil, fmt.Errorf("failed to decode asset %s: %w", a.ID, err)
			}
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// ChunksForArticle returns an article's chunks in traversal order.
func (s *Store) ChunksForArticle(ctx context.Context, docID string) ([]doctree.Chunk, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT chunk_id, doc_id, text, token_count, chunk_type,
			section_path, paragraph_index, subchunk_index
		FROM chunks WHERE doc_id = ? ORDER BY rowid`, docID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []doctree.Chunk
	for rows.Next() {
		c, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func scanChunk(rows *sql.Rows) (*doctree.Chunk, error) {
	var c doctree.Chunk
	var path string
	var sub sql.NullInt64
	if err := rows.Scan(&c.ChunkID, &c.DocumentID, &c.Text, &c.TokenCount,
		&c.ChunkType, &path, &c.ParagraphIndex, &sub); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(path), &c.SectionPath); err != nil {
		return nil, fmt.Errorf("failed to decode section path: %w", err)
	}
	if sub.Valid {
		v := int(sub.Int64)
		c.SubchunkIndex = &v
	}
	return &c, nil
}

// CountStats returns row counts for the stats endpoint.
func (s *Store) CountStats(ctx context.Context) (*Stats, error) {
	var st Stats
	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM articles),
			(SELECT COUNT(*) FROM assets),
			(SELECT COUNT(*) FROM chunks),
			(SELECT COUNT(*) FROM chunks WHERE embedding IS NOT NULL)`).
		Scan(&st.Articles, &st.Assets, &st.Chunks, &st.EmbeddedChunks)
	if err != nil {
		return nil, err
	}
	return &st, nil
}
