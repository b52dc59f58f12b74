package dispatch

import (
	"context"
	"log"
	"sync"

	accountdomain "mailsync-backend/internal/account/domain"
	syncdomain "mailsync-backend/internal/emailsync/domain"
)

// Job is one sync dispatch queued by the webhook router
type Job struct {
	Account *accountdomain.Account
	Cursor  uint64
}

// Dispatcher decouples webhook acknowledgement from sync work: the router
// enqueues and answers the provider immediately, a fixed worker pool does
// the slow part. A full queue drops the job (logged) rather than blocking
// the webhook response; provider redelivery and the hourly pass cover drops.
type Dispatcher struct {
	syncer      syncdomain.Syncer
	jobQueue    chan Job
	workerWg    sync.WaitGroup
	workerCount int
	started     bool
	stopped     bool
	mu          sync.Mutex
}

func NewDispatcher(syncer syncdomain.Syncer, workerCount, queueSize int) *Dispatcher {
	if workerCount <= 0 {
		workerCount = 3
	}
	if queueSize <= 0 {
		queueSize = 500
	}

	return &Dispatcher{
		syncer:      syncer,
		jobQueue:    make(chan Job, queueSize),
		workerCount: workerCount,
	}
}

// Start launches the worker pool. Idempotent.
func (d *Dispatcher) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.started || d.stopped {
		return
	}

	for i := 0; i < d.workerCount; i++ {
		d.workerWg.Add(1)
		go d.worker(i)
	}
	d.started = true
	log.Printf("[Dispatcher] Started %d workers", d.workerCount)
}

// Stop drains the queue and waits for all workers. The channel is closed
// under the same lock Enqueue sends under, so a webhook racing shutdown
// gets a clean drop instead of a send on a closed channel.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if !d.started || d.stopped {
		d.mu.Unlock()
		return
	}
	d.started = false
	d.stopped = true
	close(d.jobQueue)
	d.mu.Unlock()

	d.workerWg.Wait()
	log.Println("[Dispatcher] All workers stopped")
}

// Enqueue adds a job without blocking. Returns false when the queue is full
// or the dispatcher has been stopped. Jobs enqueued before Start buffer in
// the queue and are picked up once workers launch.
func (d *Dispatcher) Enqueue(job Job) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		log.Printf("[Dispatcher] Stopped, dropping sync for account %s", job.Account.ID)
		return false
	}

	select {
	case d.jobQueue <- job:
		return true
	default:
		log.Printf("[Dispatcher] Queue full, dropping sync for account %s", job.Account.ID)
		return false
	}
}

func (d *Dispatcher) worker(id int) {
	defer d.workerWg.Done()

	for job := range d.jobQueue {
		result, err := d.syncer.SyncAccount(context.Background(), job.Account, job.Cursor)
		if err != nil {
			log.Printf("[Dispatcher] Sync failed for account %s: %v", job.Account.ID, err)
			continue
		}
		log.Printf("[Dispatcher] Synced account %s: %d messages", job.Account.ID, result.Processed)
	}

	log.Printf("[Dispatcher] Worker %d stopped", id)
}
