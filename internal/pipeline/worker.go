package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgallion1/wikigest/internal/chunker"
	"github.com/dgallion1/wikigest/internal/doctree"
	"github.com/dgallion1/wikigest/internal/embedder"
	"github.com/dgallion1/wikigest/internal/extractor"
	"github.com/dgallion1/wikigest/internal/filestore"
	"github.com/dgallion1/wikigest/internal/storage"
)

// Worker processes a single document job: extract, dedup, chunk, embed,
// store.
type Worker struct {
	store     *storage.Store
	embed     embedder.Embedder // nil disables embeddings
	files     *filestore.FileStore
	log       *slog.Logger
	chunker   *chunker.Chunker
	batchSize int
}

func NewWorker(store *storage.Store, embed embedder.Embedder, files *filestore.FileStore, log *slog.Logger, ch *chunker.Chunker, batchSize int) *Worker {
	if batchSize <= 0 {
		batchSize = 32
	}
	return &Worker{
		store:     store,
		embed:     embed,
		files:     files,
		log:       log,
		chunker:   ch,
		batchSize: batchSize,
	}
}

// Process runs the full ingest pipeline for a job.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "doc_id", job.DocID)

	// Phase 1: Extract
	job.SetStatus(StatusExtracting, "extract")
	ex, err := extractor.ForFile(job.Filename)
	if err != nil {
		log.Error("unsupported format", "error", err)
		job.AddError(err.Error())
		job.SetStatus(StatusFailed, "extract")
		return
	}

	doc, err := ex.Extract(bytes.NewReader(job.FileData()), job.Filename)
	if err != nil {
		log.Error("extract failed", "error", err)
		job.AddError(fmt.Sprintf("extract: %s", err))
		job.SetStatus(StatusFailed, "extract")
		return
	}
	if job.Title != "" {
		doc.Title = job.Title
	}
	job.SetTitle(doc.Title)
	job.SetAssets(len(doc.Assets))

	// Phase 2: Dedup on the extracted markdown, so identical content in
	// different containers (html vs md) still collides.
	hash := ContentHashHex([]byte(doc.Markdown))
	job.SetContentHash(hash)
	if existing, err := w.store.FindByContentHash(ctx, hash); err == nil {
		log.Info("duplicate document, skipping", "existing_doc_id", existing.DocID)
		job.SetStatus(StatusDupSkipped, "dedup")
		return
	} else if !errors.Is(err, storage.ErrNotFound) {
		log.Warn("dedup check failed, proceeding", "error", err)
	}

	// Phase 3: Chunk
	job.SetStatus(StatusChunking, "chunk")
	root := chunker.ParseStructure(doc.Markdown)
	chunks, err := w.chunker.ChunkDocument(job.DocID, root)
	if err != nil {
		log.Error("chunking failed", "error", err)
		job.AddError(fmt.Sprintf("chunk: %s", err))
		job.SetStatus(StatusFailed, "chunk")
		return
	}
	job.SetTotalChunks(len(chunks))
	log.Info("chunked document", "chunks", len(chunks))

	// Phase 4: Embed in batches. A batch that keeps failing leaves its
	// chunks vector-less and the job ends partial instead of failed.
	embeddings, embedErrors := w.embedChunks(ctx, job, chunks, log)

	// Phase 5: Store
	job.SetStatus(StatusStoring, "store")
	if err := w.storeAll(ctx, job, doc, hash, chunks, embeddings); err != nil {
		log.Error("store failed", "error", err)
		job.AddError(fmt.Sprintf("store: %s", err))
		job.SetStatus(StatusFailed, "store")
		return
	}

	if w.files != nil {
		if dir, err := w.files.SaveArticle(job.DocID, doc); err != nil {
			log.Warn("file export failed", "error", err)
			job.AddError(fmt.Sprintf("export: %s", err))
		} else {
			log.Debug("exported article", "dir", dir)
		}
	}

	if embedErrors {
		job.SetStatus(StatusPartial, "done")
	} else {
		job.SetStatus(StatusCompleted, "done")
	}
	log.Info("ingest complete", "status", job.Snapshot().Status, "chunks", len(chunks))
}

// embedChunks returns one vector per chunk (nil entries where embedding
// failed or is disabled) and whether any batch failed.
func (w *Worker) embedChunks(ctx context.Context, job *Job, chunks []doctree.Chunk, log *slog.Logger) ([][]float32, bool) {
	if w.embed == nil || len(chunks) == 0 {
		return nil, false
	}

	job.SetStatus(StatusEmbedding, "embed")
	embeddings := make([][]float32, len(chunks))
	hadErrors := false

	for start := 0; start < len(chunks); start += w.batchSize {
		end := start + w.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		texts := make([]string, 0, end-start)
		for _, c := range chunks[start:end] {
			texts = append(texts, c.Text)
		}

		var vecs [][]float32
		var lastErr error
		for attempt := range MaxRetries {
			vecs, lastErr = w.embed.Embed(ctx, texts)
			if lastErr == nil || !IsRetryable(lastErr) {
				break
			}
			log.Warn("retryable embed error", "batch_start", start, "attempt", attempt, "error", lastErr)
			select {
			case <-time.After(Backoff(attempt)):
			case <-ctx.Done():
				lastErr = ctx.Err()
			}
			if ctx.Err() != nil {
				break
			}
		}
		if lastErr != nil {
			log.Error("embed batch failed", "batch_start", start, "error", lastErr)
			job.AddError(fmt.Sprintf("embed batch %d: %s", start/w.batchSize, lastErr))
			hadErrors = true
			continue
		}
		copy(embeddings[start:end], vecs)
		job.AddChunksEmbedded(len(vecs))
	}
	return embeddings, hadErrors
}

func (w *Worker) storeAll(ctx context.Context, job *Job, doc *doctree.Document, hash string, chunks []doctree.Chunk, embeddings [][]float32) error {
	article := &storage.Article{
		DocID:       job.DocID,
		Title:       doc.Title,
		Markdown:    doc.Markdown,
		Abstract:    doc.Abstract,
		TOC:         doc.TOC,
		ContentHash: hash,
	}
	if err := w.store.UpsertArticle(ctx, article); err != nil {
		return err
	}
	if err := w.store.UpsertAssets(ctx, job.DocID, doc.Assets); err != nil {
		return err
	}
	return w.store.UpsertChunks(ctx, chunks, embeddings)
}
