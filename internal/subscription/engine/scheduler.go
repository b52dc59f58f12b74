package engine

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler owns the periodic reconciliation triggers: an hourly
// renewal/health pass and a daily deep-cleanup sweep. Each trigger is
// single-flight: a tick that fires while the previous run of the same
// trigger is still executing is skipped, never run concurrently.
type Scheduler struct {
	engine *Engine
	cron   *cron.Cron

	reconcileSpec string
	cleanupSpec   string

	reconcileMu sync.Mutex
	cleanupMu   sync.Mutex

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc

	reconcileEntry cron.EntryID
	cleanupEntry   cron.EntryID
	lastReconcile  time.Time
	lastCleanup    time.Time
}

func NewScheduler(engine *Engine, reconcileSpec, cleanupSpec string) *Scheduler {
	return &Scheduler{
		engine:        engine,
		cron:          cron.New(),
		reconcileSpec: reconcileSpec,
		cleanupSpec:   cleanupSpec,
	}
}

// Start registers both triggers and starts the cron loop. Idempotent.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	var err error
	s.reconcileEntry, err = s.cron.AddFunc(s.reconcileSpec, func() { s.runReconcile(ctx) })
	if err != nil {
		cancel()
		return err
	}
	s.cleanupEntry, err = s.cron.AddFunc(s.cleanupSpec, func() { s.runCleanup(ctx) })
	if err != nil {
		cancel()
		return err
	}

	s.cron.Start()
	s.started = true
	log.Printf("[Scheduler] Started (reconcile %q, cleanup %q)", s.reconcileSpec, s.cleanupSpec)
	return nil
}

// Stop halts the cron loop and cancels any in-flight run
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx := s.cron.Stop()
	s.cancel()
	<-ctx.Done()
	s.started = false
	log.Println("[Scheduler] Stopped")
}

func (s *Scheduler) runReconcile(ctx context.Context) {
	if !s.reconcileMu.TryLock() {
		log.Println("[Scheduler] Previous reconcile run still in flight, skipping tick")
		return
	}
	defer s.reconcileMu.Unlock()

	start := time.Now()
	s.engine.ReconcileAll(ctx)
	s.mu.Lock()
	s.lastReconcile = start
	s.mu.Unlock()
}

func (s *Scheduler) runCleanup(ctx context.Context) {
	if !s.cleanupMu.TryLock() {
		log.Println("[Scheduler] Previous cleanup run still in flight, skipping tick")
		return
	}
	defer s.cleanupMu.Unlock()

	start := time.Now()
	s.engine.CleanupSweep(ctx)
	s.mu.Lock()
	s.lastCleanup = start
	s.mu.Unlock()
}

// Status describes the scheduler for the admin API
type Status struct {
	Running       bool       `json:"running"`
	NextReconcile *time.Time `json:"next_reconcile,omitempty"`
	NextCleanup   *time.Time `json:"next_cleanup,omitempty"`
	LastReconcile *time.Time `json:"last_reconcile,omitempty"`
	LastCleanup   *time.Time `json:"last_cleanup,omitempty"`
}

func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := Status{Running: s.started}
	if !s.started {
		return status
	}

	if next := s.cron.Entry(s.reconcileEntry).Next; !next.IsZero() {
		status.NextReconcile = &next
	}
	if next := s.cron.Entry(s.cleanupEntry).Next; !next.IsZero() {
		status.NextCleanup = &next
	}
	if !s.lastReconcile.IsZero() {
		last := s.lastReconcile
		status.LastReconcile = &last
	}
	if !s.lastCleanup.IsZero() {
		last := s.lastCleanup
		status.LastCleanup = &last
	}
	return status
}
