package dispatch

import (
	"context"
	"sync"
	"testing"
	"time"

	accountdomain "mailsync-backend/internal/account/domain"
	syncdomain "mailsync-backend/internal/emailsync/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSyncer struct {
	mu     sync.Mutex
	synced []string
	done   chan struct{}
}

func (s *recordingSyncer) SyncAccount(ctx context.Context, account *accountdomain.Account, cursor uint64) (*syncdomain.Result, error) {
	s.mu.Lock()
	s.synced = append(s.synced, account.ID)
	s.mu.Unlock()
	if s.done != nil {
		s.done <- struct{}{}
	}
	return &syncdomain.Result{Processed: 1}, nil
}

func TestDispatcherDeliversJobsToSyncer(t *testing.T) {
	syncer := &recordingSyncer{done: make(chan struct{}, 2)}
	d := NewDispatcher(syncer, 2, 10)
	d.Start()
	defer d.Stop()

	require.True(t, d.Enqueue(Job{Account: &accountdomain.Account{ID: "acc-1"}, Cursor: 10}))
	require.True(t, d.Enqueue(Job{Account: &accountdomain.Account{ID: "acc-2"}, Cursor: 20}))

	for i := 0; i < 2; i++ {
		select {
		case <-syncer.done:
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for sync dispatch")
		}
	}

	syncer.mu.Lock()
	defer syncer.mu.Unlock()
	assert.ElementsMatch(t, []string{"acc-1", "acc-2"}, syncer.synced)
}

func TestDispatcherFullQueueDropsWithoutBlocking(t *testing.T) {
	// Workers never started, so the buffer is the whole capacity
	d := NewDispatcher(&recordingSyncer{}, 1, 1)

	require.True(t, d.Enqueue(Job{Account: &accountdomain.Account{ID: "acc-1"}}))

	start := time.Now()
	accepted := d.Enqueue(Job{Account: &accountdomain.Account{ID: "acc-2"}})

	assert.False(t, accepted)
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestDispatcherStartIsIdempotent(t *testing.T) {
	syncer := &recordingSyncer{done: make(chan struct{}, 1)}
	d := NewDispatcher(syncer, 1, 5)
	d.Start()
	d.Start()
	defer d.Stop()

	require.True(t, d.Enqueue(Job{Account: &accountdomain.Account{ID: "acc-1"}}))

	select {
	case <-syncer.done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for sync dispatch")
	}
}

func TestDispatcherStopDrainsQueue(t *testing.T) {
	syncer := &recordingSyncer{}
	d := NewDispatcher(syncer, 1, 5)
	d.Start()

	for i, id := range []string{"a", "b", "c"} {
		require.True(t, d.Enqueue(Job{Account: &accountdomain.Account{ID: id}, Cursor: uint64(i)}))
	}

	d.Stop()

	syncer.mu.Lock()
	defer syncer.mu.Unlock()
	assert.Len(t, syncer.synced, 3)
}

func TestDispatcherEnqueueAfterStopDropsWithoutPanic(t *testing.T) {
	d := NewDispatcher(&recordingSyncer{}, 1, 5)
	d.Start()
	d.Stop()

	accepted := d.Enqueue(Job{Account: &accountdomain.Account{ID: "acc-1"}})

	assert.False(t, accepted)
}
