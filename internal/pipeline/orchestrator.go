package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dgallion1/wikigest/internal/chunker"
	"github.com/dgallion1/wikigest/internal/config"
	"github.com/dgallion1/wikigest/internal/embedder"
	"github.com/dgallion1/wikigest/internal/filestore"
	"github.com/dgallion1/wikigest/internal/storage"
)

// Orchestrator manages the document ingestion pipeline.
type Orchestrator struct {
	jobs    *JobStore
	queue   chan *Job
	store   *storage.Store
	embed   embedder.Embedder
	files   *filestore.FileStore
	log     *slog.Logger
	cfg     config.Config
	chunker *chunker.Chunker

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewOrchestrator wires up the pipeline. The chunker is built once from
// config; invalid thresholds surface here rather than per job.
func NewOrchestrator(cfg config.Config, store *storage.Store, embed embedder.Embedder, files *filestore.FileStore, log *slog.Logger) (*Orchestrator, error) {
	ch, err := chunker.New(nil, cfg.Chunking)
	if err != nil {
		return nil, err
	}
	return &Orchestrator{
		jobs:    NewJobStore(cfg.JobTTL),
		queue:   make(chan *Job, cfg.MaxQueueSize),
		store:   store,
		embed:   embed,
		files:   files,
		log:     log,
		cfg:     cfg,
		chunker: ch,
	}, nil
}

// Start launches worker goroutines.
func (o *Orchestrator) Start(ctx context.Context) {
	workerCtx, cancel := context.WithCancel(ctx)
	o.cancel = cancel

	for range o.cfg.WorkerCount {
		o.wg.Add(1)
		go func() {
			defer o.wg.Done()
			w := NewWorker(o.store, o.embed, o.files, o.log, o.chunker, o.cfg.EmbedBatchSize)
			for {
				select {
				case <-workerCtx.Done():
					return
				case job, ok := <-o.queue:
					if !ok {
						return
					}
					w.Process(workerCtx, job)
				}
			}
		}()
	}

	// Start job store cleanup.
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-workerCtx.Done():
				return
			case <-ticker.C:
				o.jobs.Cleanup()
			}
		}
	}()
}

// Stop gracefully shuts down the pipeline.
func (o *Orchestrator) Stop() {
	if o.cancel != nil {
		o.cancel()
	}
	close(o.queue)
	o.wg.Wait()
}

// Submit queues a new job for processing.
func (o *Orchestrator) Submit(job *Job) error {
	o.jobs.Put(job)
	select {
	case o.queue <- job:
		return nil
	default:
		job.SetStatus(StatusFailed, "queue_full")
		return fmt.Errorf("job queue is full (%d)", o.cfg.MaxQueueSize)
	}
}

// GetJob returns a job by ID.
func (o *Orchestrator) GetJob(id string) *Job {
	return o.jobs.Get(id)
}

// QueueDepth returns current queue depth.
func (o *Orchestrator) QueueDepth() int {
	return len(o.queue)
}

// NewJobID returns a fresh ULID for job identifiers.
func NewJobID() string {
	return generateULID()
}

// Store exposes the backing store for read-side API handlers.
func (o *Orchestrator) Store() *storage.Store {
	return o.store
}
