package bot

import (
	"context"
	"os"
	"sync"
	"time"

	"hermes/internal/metrics"
	"hermes/pkg/errors"
	"hermes/pkg/logger"
	"hermes/pkg/whatsapp"
)

// Fetcher performs the blocking fetch of a selected resource rendition
// and returns a local file path the caller must clean up.
type Fetcher interface {
	Fetch(ctx context.Context, ref string, selector string) (string, error)
}

// DownloadJob is one queued fetch-and-deliver task
type DownloadJob struct {
	ChatID   string
	Ref      string
	Selector string
	Label    string
}

// DownloadQueue runs resource fetches on a bounded worker pool so the
// webhook response can return immediately. Results are delivered to the
// chat out-of-band when the fetch completes.
type DownloadQueue struct {
	fetcher   Fetcher
	responder whatsapp.Sender
	queue     chan DownloadJob
	workers   int
	log       *logger.Logger
	wg        sync.WaitGroup
	stopCh    chan struct{}
	mu        sync.Mutex
	running   bool
}

// Queue errors
var (
	ErrQueueFull    = errors.New("download queue is full")
	ErrQueueStopped = errors.New("download queue is stopped")
)

// NewDownloadQueue creates a download queue
func NewDownloadQueue(fetcher Fetcher, responder whatsapp.Sender, workers, queueSize int, log *logger.Logger) *DownloadQueue {
	if workers <= 0 {
		workers = 3
	}
	if queueSize <= 0 {
		queueSize = 50
	}

	return &DownloadQueue{
		fetcher:   fetcher,
		responder: responder,
		queue:     make(chan DownloadJob, queueSize),
		workers:   workers,
		log:       log.With("component", "download_queue"),
		stopCh:    make(chan struct{}),
	}
}

// Start starts queue workers
func (dq *DownloadQueue) Start() {
	dq.mu.Lock()
	defer dq.mu.Unlock()

	if dq.running {
		dq.log.Warnw("Download queue already running")
		return
	}

	dq.running = true
	dq.log.Infow("Starting download queue", "workers", dq.workers)

	for i := 0; i < dq.workers; i++ {
		dq.wg.Add(1)
		go dq.worker(i)
	}
}

// Stop stops queue workers gracefully. Jobs already accepted are
// processed before workers exit: their users were told a download is
// on the way.
func (dq *DownloadQueue) Stop() {
	dq.mu.Lock()
	defer dq.mu.Unlock()

	if !dq.running {
		return
	}

	dq.log.Infow("Stopping download queue")
	close(dq.stopCh)
	dq.wg.Wait()
	dq.running = false
	dq.log.Infow("Download queue stopped")
}

// Enqueue submits a job for background processing
func (dq *DownloadQueue) Enqueue(job DownloadJob) error {
	select {
	case <-dq.stopCh:
		return ErrQueueStopped
	default:
	}

	select {
	case dq.queue <- job:
		metrics.DownloadsQueued.Inc()
		return nil
	default:
		dq.log.Warnw("Download queue full, job dropped",
			"chat_id", job.ChatID,
			"queue_size", len(dq.queue),
		)
		metrics.DownloadsCompleted.WithLabelValues("dropped").Inc()
		return ErrQueueFull
	}
}

// worker processes jobs from the queue
func (dq *DownloadQueue) worker(id int) {
	defer dq.wg.Done()

	dq.log.Debugw("Worker started", "worker_id", id)

	for {
		select {
		case job := <-dq.queue:
			dq.process(job, id)

		case <-dq.stopCh:
			dq.drain(id)
			dq.log.Debugw("Worker stopping", "worker_id", id)
			return
		}
	}
}

// drain finishes jobs that were accepted before the stop signal.
// Enqueue rejects once stopCh is closed, so this terminates.
func (dq *DownloadQueue) drain(id int) {
	for {
		select {
		case job := <-dq.queue:
			dq.process(job, id)
		default:
			return
		}
	}
}

// process runs one fetch-and-deliver cycle
func (dq *DownloadQueue) process(job DownloadJob, workerID int) {
	start := time.Now()
	ctx := context.Background()

	dq.log.Infow("Processing download",
		"worker_id", workerID,
		"chat_id", job.ChatID,
		"label", job.Label,
	)

	localPath, err := dq.fetcher.Fetch(ctx, job.Ref, job.Selector)
	if err != nil {
		dq.log.Errorw("Fetch failed",
			"worker_id", workerID,
			"chat_id", job.ChatID,
			"ref", job.Ref,
			"error", err,
		)
		metrics.DownloadsCompleted.WithLabelValues("error").Inc()
		dq.apologize(ctx, job.ChatID)
		return
	}
	defer os.Remove(localPath)

	caption := job.Label
	if err := dq.responder.SendFile(ctx, job.ChatID, localPath, caption); err != nil {
		dq.log.Errorw("File delivery failed",
			"worker_id", workerID,
			"chat_id", job.ChatID,
			"error", err,
		)
		metrics.DownloadsCompleted.WithLabelValues("error").Inc()
		dq.apologize(ctx, job.ChatID)
		return
	}

	metrics.DownloadsCompleted.WithLabelValues("success").Inc()
	dq.log.Infow("Download delivered",
		"worker_id", workerID,
		"chat_id", job.ChatID,
		"duration", time.Since(start).Round(time.Second),
	)
}

// apologize sends the generic failure message; delivery errors here are
// only logged, there is nothing further to do for the user
func (dq *DownloadQueue) apologize(ctx context.Context, chatID string) {
	if err := dq.responder.SendMessage(ctx, chatID, "😔 Sorry, that download failed. Please try again from the beginning."); err != nil {
		dq.log.Errorw("Failed to deliver failure notice", "chat_id", chatID, "error", err)
	}
}

// QueueSize returns current queue depth
func (dq *DownloadQueue) QueueSize() int {
	return len(dq.queue)
}

// IsRunning checks if queue is running
func (dq *DownloadQueue) IsRunning() bool {
	dq.mu.Lock()
	defer dq.mu.Unlock()
	return dq.running
}
