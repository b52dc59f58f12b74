package engine

import (
	"testing"
	"time"

	accountdomain "mailsync-backend/internal/account/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchedulerStartStop(t *testing.T) {
	repo := new(mockAccountRepo)
	repo.On("FindActive").Return([]*accountdomain.Account{}, nil).Maybe()
	repo.On("FindWatching").Return([]*accountdomain.Account{}, nil).Maybe()
	repo.On("FindOrphaned").Return([]*accountdomain.Account{}, nil).Maybe()

	eng := newTestEngine(repo, new(mockResolver), new(mockClient))
	s := NewScheduler(eng, "0 * * * *", "30 3 * * *")

	require.NoError(t, s.Start())
	require.NoError(t, s.Start()) // idempotent

	status := s.Status()
	assert.True(t, status.Running)
	require.NotNil(t, status.NextReconcile)
	assert.True(t, status.NextReconcile.After(time.Now()))
	require.NotNil(t, status.NextCleanup)
	assert.Nil(t, status.LastReconcile)

	s.Stop()
	s.Stop() // idempotent

	assert.False(t, s.Status().Running)
}

func TestSchedulerRejectsBadSpec(t *testing.T) {
	eng := newTestEngine(new(mockAccountRepo), new(mockResolver), new(mockClient))
	s := NewScheduler(eng, "not a cron spec", "30 3 * * *")

	assert.Error(t, s.Start())
}
