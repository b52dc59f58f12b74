package repository

import (
	"errors"
	"time"

	accountdomain "mailsync-backend/internal/account/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// accountRepository implements AccountRepository interface
type accountRepository struct {
	db *gorm.DB
}

// NewAccountRepository creates a new instance of accountRepository
func NewAccountRepository(db *gorm.DB) AccountRepository {
	return &accountRepository{
		db: db,
	}
}

func (r *accountRepository) Create(account *accountdomain.Account) error {
	if account.ID == "" {
		account.ID = uuid.New().String()
	}
	if account.RoutingNonce == "" {
		account.RoutingNonce = uuid.New().String()
	}
	account.CreatedAt = time.Now()
	account.UpdatedAt = time.Now()
	return r.db.Create(account).Error
}

func (r *accountRepository) Update(account *accountdomain.Account) error {
	account.UpdatedAt = time.Now()
	return r.db.Save(account).Error
}

func (r *accountRepository) FindByID(id string) (*accountdomain.Account, error) {
	var account accountdomain.Account
	err := r.db.Where("id = ?", id).First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

func (r *accountRepository) FindByEmail(email string) (*accountdomain.Account, error) {
	var account accountdomain.Account
	err := r.db.Where("email = ?", email).First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

func (r *accountRepository) FindByRoutingKey(provider, routingKey string) (*accountdomain.Account, error) {
	var account accountdomain.Account
	err := r.db.Where("provider = ? AND routing_key = ?", provider, routingKey).First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &account, nil
}

func (r *accountRepository) FindActive() ([]*accountdomain.Account, error) {
	var accounts []*accountdomain.Account
	err := r.db.Where("active = ?", true).Order("created_at asc").Find(&accounts).Error
	return accounts, err
}

func (r *accountRepository) FindWatching() ([]*accountdomain.Account, error) {
	var accounts []*accountdomain.Account
	err := r.db.Where("watching = ?", true).Order("created_at asc").Find(&accounts).Error
	return accounts, err
}

func (r *accountRepository) FindOrphaned() ([]*accountdomain.Account, error) {
	var accounts []*accountdomain.Account
	err := r.db.Where("subscription_id IS NOT NULL AND active = ?", false).Find(&accounts).Error
	return accounts, err
}

// UpdateSyncState applies fields only while every precondition column still
// holds its expected value. RowsAffected == 0 means the precondition no
// longer held (a concurrent writer got there first) and nothing was written.
func (r *accountRepository) UpdateSyncState(accountID string, fields map[string]interface{}, precondition map[string]interface{}) (bool, error) {
	fields["updated_at"] = time.Now()

	query := r.db.Model(&accountdomain.Account{}).Where("id = ?", accountID)
	for column, expected := range precondition {
		query = query.Where(column+" = ?", expected)
	}

	result := query.Updates(fields)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *accountRepository) UpdateCredentials(accountID string, fields map[string]interface{}) error {
	fields["updated_at"] = time.Now()
	return r.db.Model(&accountdomain.Account{}).Where("id = ?", accountID).Updates(fields).Error
}

func (r *accountRepository) RoutingKeyTaken(provider, routingKey, excludeAccountID string) (bool, error) {
	var count int64
	err := r.db.Model(&accountdomain.Account{}).
		Where("provider = ? AND routing_key = ? AND id <> ?", provider, routingKey, excludeAccountID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
