package ingestion_engine

import (
	"context"
	"errors"
	"log"

	"github.com/markdave123-py/docingest/internal/models"
)

// Ingestor is what the HTTP layer and the inbox watcher depend on.
type Ingestor interface {
	Ingest(ctx context.Context, data []byte, filename, userID string) *models.IngestionResult
	Start(ctx context.Context, numWorkers int)
	Enqueue(ctx context.Context, job IngestJob) (string, error)
	Wait()
}

var _ Ingestor = (*DocumentIngestor)(nil)

var (
	// ErrQueueFull is returned by Enqueue when the queue stays full until ctx ends.
	ErrQueueFull = errors.New("ingest queue full")
	// ErrShuttingDown is returned by Enqueue once the workers are stopping,
	// and recorded on jobs that were still queued when they stopped.
	ErrShuttingDown = errors.New("ingestor shutting down")
)

// IngestJob is one queued upload.
type IngestJob struct {
	Data     []byte
	FileName string
	UserID   string

	// Done, when set, receives the result after processing.
	Done func(*models.IngestionResult)
}

// Start runs numWorkers goroutines reading from the jobs channel until
// ctx is cancelled. Jobs still queued at that point are marked failed.
func (i *DocumentIngestor) Start(ctx context.Context, numWorkers int) {
	go func() {
		<-ctx.Done()
		i.stopOnce.Do(func() { close(i.stopping) })
	}()
	for w := 1; w <= numWorkers; w++ {
		i.wg.Add(1)
		go func(w int) {
			defer i.wg.Done()
			for {
				select {
				case <-ctx.Done():
					if n := i.drain(); n > 0 {
						log.Printf("DocumentIngestor: worker %d failed %d queued jobs", w, n)
					}
					log.Printf("DocumentIngestor: worker %d shutting down", w)
					return
				case job := <-i.jobs:
					i.processOne(ctx, w, job)
				}
			}
		}(w)
	}
}

// Wait blocks until every worker started by Start has returned, then fails
// any job that was queued after the last worker drained the queue. Enqueue
// is refused from then on.
func (i *DocumentIngestor) Wait() {
	i.wg.Wait()
	i.stopOnce.Do(func() { close(i.stopping) })
	i.drain()
}

// Enqueue records the upload as pending and schedules it. It blocks while
// the queue is full, until ctx is done. A document that is already
// completed or being processed keeps its status.
func (i *DocumentIngestor) Enqueue(ctx context.Context, job IngestJob) (string, error) {
	fp := Fingerprint(job.Data)
	select {
	case <-i.stopping:
		return fp, ErrShuttingDown
	default:
	}

	settled := i.settled(ctx, fp)
	if !settled {
		i.setStatus(ctx, fp, models.StatusPending, "queued")
	}
	select {
	case i.jobs <- job:
		return fp, nil
	case <-i.stopping:
		if !settled {
			i.setStatus(ctx, fp, models.StatusFailed, ErrShuttingDown.Error())
		}
		return fp, ErrShuttingDown
	case <-ctx.Done():
		if !settled {
			i.setStatus(ctx, fp, models.StatusFailed, ErrQueueFull.Error())
		}
		return fp, ErrQueueFull
	}
}

// settled reports whether fp is completed or currently being processed,
// so that queueing a duplicate must not overwrite its status.
func (i *DocumentIngestor) settled(ctx context.Context, fp string) bool {
	if _, ok := i.Results.Get(ctx, ResultCacheKey(fp)); ok {
		return true
	}
	st, err := i.Meta.GetStatus(ctx, fp)
	if err != nil {
		return false
	}
	return st.Status == models.StatusCompleted || st.Status == models.StatusProcessing
}

// drain empties the queue without processing, marking each job failed.
func (i *DocumentIngestor) drain() int {
	n := 0
	for {
		select {
		case job := <-i.jobs:
			n++
			ctx := context.Background()
			fp := Fingerprint(job.Data)
			ierr := models.NewIngestError(models.KindInternal, ErrShuttingDown)
			if !i.settled(ctx, fp) {
				i.setStatus(ctx, fp, models.StatusFailed, ierr.Error())
			}
			if job.Done != nil {
				job.Done(&models.IngestionResult{Success: false, Fingerprint: fp, Error: ierr})
			}
		default:
			return n
		}
	}
}

func (i *DocumentIngestor) processOne(ctx context.Context, worker int, job IngestJob) {
	jobCtx, cancel := context.WithTimeout(ctx, i.cfg.JobTimeout)
	defer cancel()

	res := i.ingest(jobCtx, job.Data, job.FileName, job.UserID, true)
	if res.Success {
		log.Printf("DocumentIngestor: worker %d stored %s (%d chunks, cached=%t)", worker, res.Fingerprint, res.DocumentsCount, res.Cached)
	} else {
		log.Printf("DocumentIngestor: worker %d failed %s: %v", worker, res.Fingerprint, res.Error)
	}
	if job.Done != nil {
		job.Done(res)
	}
}
