package usecase

import (
	"errors"
	"time"

	accountdomain "mailsync-backend/internal/account/domain"
	"mailsync-backend/internal/account/repository"
	"mailsync-backend/pkg/secrets"
)

// AccountUsecase manages account registration and lifecycle. Subscription
// sync state is never touched here; the reconciler owns it.
type AccountUsecase interface {
	Register(email, provider, accessToken, refreshToken string, tokenExpiry *time.Time) (*accountdomain.Account, error)
	Deactivate(accountID string) error
	Reactivate(accountID string) error
	RegisterDeviceToken(accountID, token string) error
	List() ([]*accountdomain.Account, error)
}

type accountUsecase struct {
	accounts     repository.AccountRepository
	deviceTokens repository.DeviceTokenRepository
	cipher       *secrets.Cipher
}

func NewAccountUsecase(accounts repository.AccountRepository, deviceTokens repository.DeviceTokenRepository, cipher *secrets.Cipher) AccountUsecase {
	return &accountUsecase{
		accounts:     accounts,
		deviceTokens: deviceTokens,
		cipher:       cipher,
	}
}

func (u *accountUsecase) Register(email, provider, accessToken, refreshToken string, tokenExpiry *time.Time) (*accountdomain.Account, error) {
	if provider != accountdomain.ProviderGmail && provider != accountdomain.ProviderOutlook {
		return nil, errors.New("provider must be gmail or outlook")
	}

	existing, err := u.accounts.FindByEmail(email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, errors.New("email already registered")
	}

	encAccess, err := u.cipher.Encrypt(accessToken)
	if err != nil {
		return nil, err
	}
	encRefresh, err := u.cipher.Encrypt(refreshToken)
	if err != nil {
		return nil, err
	}

	account := &accountdomain.Account{
		Email:        email,
		Provider:     provider,
		Active:       true,
		AccessToken:  encAccess,
		RefreshToken: encRefresh,
		TokenExpiry:  tokenExpiry,
	}

	if err := u.accounts.Create(account); err != nil {
		return nil, err
	}
	return account, nil
}

func (u *accountUsecase) Deactivate(accountID string) error {
	account, err := u.accounts.FindByID(accountID)
	if err != nil {
		return err
	}
	if account == nil {
		return errors.New("account not found")
	}

	account.Active = false
	// Sync state stays until the next reconciliation cycle deletes the
	// remote subscription and clears it
	return u.accounts.Update(account)
}

func (u *accountUsecase) Reactivate(accountID string) error {
	account, err := u.accounts.FindByID(accountID)
	if err != nil {
		return err
	}
	if account == nil {
		return errors.New("account not found")
	}

	account.Active = true
	return u.accounts.Update(account)
}

func (u *accountUsecase) RegisterDeviceToken(accountID, token string) error {
	account, err := u.accounts.FindByID(accountID)
	if err != nil {
		return err
	}
	if account == nil {
		return errors.New("account not found")
	}

	return u.deviceTokens.Register(&accountdomain.DeviceToken{
		Token:     token,
		AccountID: accountID,
	})
}

func (u *accountUsecase) List() ([]*accountdomain.Account, error) {
	return u.accounts.FindActive()
}
