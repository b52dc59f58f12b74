package usecase

import (
	"context"
	"testing"

	accountdomain "mailsync-backend/internal/account/domain"
	syncdomain "mailsync-backend/internal/emailsync/domain"
	subdomain "mailsync-backend/internal/subscription/domain"
	"mailsync-backend/internal/subscription/dispatch"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockAccountRepo struct {
	mock.Mock
}

func (m *mockAccountRepo) Create(account *accountdomain.Account) error {
	return m.Called(account).Error(0)
}

func (m *mockAccountRepo) Update(account *accountdomain.Account) error {
	return m.Called(account).Error(0)
}

func (m *mockAccountRepo) FindByID(id string) (*accountdomain.Account, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*accountdomain.Account), args.Error(1)
}

func (m *mockAccountRepo) FindByEmail(email string) (*accountdomain.Account, error) {
	args := m.Called(email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*accountdomain.Account), args.Error(1)
}

func (m *mockAccountRepo) FindByRoutingKey(provider, routingKey string) (*accountdomain.Account, error) {
	args := m.Called(provider, routingKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*accountdomain.Account), args.Error(1)
}

func (m *mockAccountRepo) FindActive() ([]*accountdomain.Account, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*accountdomain.Account), args.Error(1)
}

func (m *mockAccountRepo) FindWatching() ([]*accountdomain.Account, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*accountdomain.Account), args.Error(1)
}

func (m *mockAccountRepo) FindOrphaned() ([]*accountdomain.Account, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*accountdomain.Account), args.Error(1)
}

func (m *mockAccountRepo) UpdateSyncState(accountID string, fields map[string]interface{}, precondition map[string]interface{}) (bool, error) {
	args := m.Called(accountID, fields, precondition)
	return args.Bool(0), args.Error(1)
}

func (m *mockAccountRepo) UpdateCredentials(accountID string, fields map[string]interface{}) error {
	return m.Called(accountID, fields).Error(0)
}

func (m *mockAccountRepo) RoutingKeyTaken(provider, routingKey, excludeAccountID string) (bool, error) {
	args := m.Called(provider, routingKey, excludeAccountID)
	return args.Bool(0), args.Error(1)
}

type noopSyncer struct{}

func (noopSyncer) SyncAccount(ctx context.Context, account *accountdomain.Account, cursor uint64) (*syncdomain.Result, error) {
	return &syncdomain.Result{}, nil
}

// Unstarted dispatcher: enqueued jobs stay buffered where the tests can
// reason about them.
func newTestDispatcher(queueSize int) *dispatch.Dispatcher {
	return dispatch.NewDispatcher(noopSyncer{}, 1, queueSize)
}

func TestRouteGmailByEmail(t *testing.T) {
	repo := new(mockAccountRepo)
	account := &accountdomain.Account{
		ID:          "acc-1",
		Email:       "alice@example.com",
		Provider:    accountdomain.ProviderGmail,
		Active:      true,
		AccessToken: "enc",
	}
	repo.On("FindByEmail", "alice@example.com").Return(account, nil)

	router := NewRouter(repo, newTestDispatcher(10))
	outcome, err := router.Route(subdomain.Notification{
		Provider:     accountdomain.ProviderGmail,
		EmailAddress: "alice@example.com",
		HistoryID:    1234,
	})

	require.NoError(t, err)
	assert.Equal(t, subdomain.OutcomeDispatched, outcome)
}

func TestRouteOutlookByRoutingKey(t *testing.T) {
	repo := new(mockAccountRepo)
	account := &accountdomain.Account{
		ID:          "acc-1",
		Email:       "a.x+com@example.com",
		Provider:    accountdomain.ProviderOutlook,
		Active:      true,
		AccessToken: "enc",
		RoutingKey:  "axcom",
	}
	repo.On("FindByRoutingKey", accountdomain.ProviderOutlook, "axcom").Return(account, nil)

	router := NewRouter(repo, newTestDispatcher(10))
	outcome, err := router.Route(subdomain.Notification{
		Provider:   accountdomain.ProviderOutlook,
		RoutingKey: "axcom",
		ChangeType: "created",
	})

	require.NoError(t, err)
	assert.Equal(t, subdomain.OutcomeDispatched, outcome)
}

func TestRouteOrphanNotification(t *testing.T) {
	repo := new(mockAccountRepo)
	repo.On("FindByRoutingKey", accountdomain.ProviderOutlook, "zzz").Return(nil, nil)

	router := NewRouter(repo, newTestDispatcher(10))
	outcome, err := router.Route(subdomain.Notification{
		Provider:   accountdomain.ProviderOutlook,
		RoutingKey: "zzz",
	})

	require.NoError(t, err)
	assert.Equal(t, subdomain.OutcomeOrphaned, outcome)
}

func TestRouteInactiveAccountRejected(t *testing.T) {
	repo := new(mockAccountRepo)
	account := &accountdomain.Account{
		ID:          "acc-1",
		Email:       "gone@example.com",
		Provider:    accountdomain.ProviderGmail,
		Active:      false,
		AccessToken: "enc",
	}
	repo.On("FindByEmail", "gone@example.com").Return(account, nil)

	router := NewRouter(repo, newTestDispatcher(10))
	outcome, err := router.Route(subdomain.Notification{
		Provider:     accountdomain.ProviderGmail,
		EmailAddress: "gone@example.com",
	})

	require.NoError(t, err)
	assert.Equal(t, subdomain.OutcomeRejected, outcome)
}

func TestRouteCredentialLessAccountRejected(t *testing.T) {
	repo := new(mockAccountRepo)
	account := &accountdomain.Account{
		ID:       "acc-1",
		Email:    "bare@example.com",
		Provider: accountdomain.ProviderGmail,
		Active:   true,
	}
	repo.On("FindByEmail", "bare@example.com").Return(account, nil)

	router := NewRouter(repo, newTestDispatcher(10))
	outcome, err := router.Route(subdomain.Notification{
		Provider:     accountdomain.ProviderGmail,
		EmailAddress: "bare@example.com",
	})

	require.NoError(t, err)
	assert.Equal(t, subdomain.OutcomeRejected, outcome)
}

func TestRouteFullQueueRejectedWithoutBlocking(t *testing.T) {
	repo := new(mockAccountRepo)
	account := &accountdomain.Account{
		ID:          "acc-1",
		Email:       "busy@example.com",
		Provider:    accountdomain.ProviderGmail,
		Active:      true,
		AccessToken: "enc",
	}
	repo.On("FindByEmail", "busy@example.com").Return(account, nil)

	dispatcher := newTestDispatcher(1)
	require.True(t, dispatcher.Enqueue(dispatch.Job{Account: account}))

	router := NewRouter(repo, dispatcher)
	outcome, err := router.Route(subdomain.Notification{
		Provider:     accountdomain.ProviderGmail,
		EmailAddress: "busy@example.com",
	})

	require.NoError(t, err)
	assert.Equal(t, subdomain.OutcomeRejected, outcome)
}
