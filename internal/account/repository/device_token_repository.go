package repository

import (
	"time"

	accountdomain "mailsync-backend/internal/account/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// deviceTokenRepository implements DeviceTokenRepository interface
type deviceTokenRepository struct {
	db *gorm.DB
}

// NewDeviceTokenRepository creates a new instance of deviceTokenRepository
func NewDeviceTokenRepository(db *gorm.DB) DeviceTokenRepository {
	return &deviceTokenRepository{
		db: db,
	}
}

func (r *deviceTokenRepository) Register(token *accountdomain.DeviceToken) error {
	token.CreatedAt = time.Now()
	// Same token re-registered by another account moves to the new owner
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "token"}},
		DoUpdates: clause.AssignmentColumns([]string{"account_id", "created_at"}),
	}).Create(token).Error
}

func (r *deviceTokenRepository) GetTokensByAccountID(accountID string) ([]accountdomain.DeviceToken, error) {
	var tokens []accountdomain.DeviceToken
	err := r.db.Where("account_id = ?", accountID).Find(&tokens).Error
	return tokens, err
}

func (r *deviceTokenRepository) DeleteToken(token string) error {
	return r.db.Where("token = ?", token).Delete(&accountdomain.DeviceToken{}).Error
}
