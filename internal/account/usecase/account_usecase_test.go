package usecase

import (
	"testing"
	"time"

	accountdomain "mailsync-backend/internal/account/domain"
	"mailsync-backend/pkg/secrets"

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

type mockDeviceTokenRepo struct {
	mock.Mock
}

func (m *mockDeviceTokenRepo) Register(token *accountdomain.DeviceToken) error {
	return m.Called(token).Error(0)
}

func (m *mockDeviceTokenRepo) GetTokensByAccountID(accountID string) ([]accountdomain.DeviceToken, error) {
	args := m.Called(accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]accountdomain.DeviceToken), args.Error(1)
}

func (m *mockDeviceTokenRepo) DeleteToken(token string) error {
	return m.Called(token).Error(0)
}

const testKeyHex = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func newTestUsecase(t *testing.T, accounts *mockAccountRepo, deviceTokens *mockDeviceTokenRepo) (AccountUsecase, *secrets.Cipher) {
	t.Helper()
	cipher, err := secrets.NewCipher(testKeyHex)
	require.NoError(t, err)
	return NewAccountUsecase(accounts, deviceTokens, cipher), cipher
}

func TestRegisterEncryptsTokensAtRest(t *testing.T) {
	accounts := new(mockAccountRepo)
	accounts.On("FindByEmail", "alice@example.com").Return(nil, nil)
	accounts.On("Create", mock.Anything).Return(nil)

	uc, cipher := newTestUsecase(t, accounts, new(mockDeviceTokenRepo))

	expiry := time.Now().Add(time.Hour)
	account, err := uc.Register("alice@example.com", accountdomain.ProviderGmail, "access-1", "refresh-1", &expiry)

	require.NoError(t, err)
	assert.True(t, account.Active)
	assert.NotEqual(t, "access-1", account.AccessToken)
	assert.NotEqual(t, "refresh-1", account.RefreshToken)

	access, err := cipher.Decrypt(account.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "access-1", access)
	refresh, err := cipher.Decrypt(account.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, "refresh-1", refresh)
}

func TestRegisterRejectsUnknownProvider(t *testing.T) {
	uc, _ := newTestUsecase(t, new(mockAccountRepo), new(mockDeviceTokenRepo))

	_, err := uc.Register("a@b.com", "yahoo", "t", "r", nil)
	assert.Error(t, err)
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	accounts := new(mockAccountRepo)
	accounts.On("FindByEmail", "alice@example.com").Return(&accountdomain.Account{ID: "existing"}, nil)

	uc, _ := newTestUsecase(t, accounts, new(mockDeviceTokenRepo))

	_, err := uc.Register("alice@example.com", accountdomain.ProviderGmail, "t", "r", nil)
	assert.Error(t, err)
	accounts.AssertNotCalled(t, "Create", mock.Anything)
}

func TestDeactivateKeepsSyncState(t *testing.T) {
	subID := "sub-1"
	account := &accountdomain.Account{
		ID: "acc-1", Active: true, Watching: true, SubscriptionID: &subID,
	}

	accounts := new(mockAccountRepo)
	accounts.On("FindByID", "acc-1").Return(account, nil)
	accounts.On("Update", account).Return(nil)

	uc, _ := newTestUsecase(t, accounts, new(mockDeviceTokenRepo))

	require.NoError(t, uc.Deactivate("acc-1"))
	assert.False(t, account.Active)
	// Sync state untouched: the reconciler tears it down on its next pass
	assert.True(t, account.Watching)
	assert.NotNil(t, account.SubscriptionID)
}

func TestDeactivateUnknownAccount(t *testing.T) {
	accounts := new(mockAccountRepo)
	accounts.On("FindByID", "ghost").Return(nil, nil)

	uc, _ := newTestUsecase(t, accounts, new(mockDeviceTokenRepo))

	assert.Error(t, uc.Deactivate("ghost"))
}

func TestRegisterDeviceToken(t *testing.T) {
	accounts := new(mockAccountRepo)
	accounts.On("FindByID", "acc-1").Return(&accountdomain.Account{ID: "acc-1"}, nil)

	deviceTokens := new(mockDeviceTokenRepo)
	deviceTokens.On("Register", mock.MatchedBy(func(dt *accountdomain.DeviceToken) bool {
		return dt.AccountID == "acc-1" && dt.Token == "fcm-token-1"
	})).Return(nil)

	uc, _ := newTestUsecase(t, accounts, deviceTokens)

	require.NoError(t, uc.RegisterDeviceToken("acc-1", "fcm-token-1"))
	deviceTokens.AssertExpectations(t)
}
