package repository

import (
	"time"

	syncdomain "mailsync-backend/internal/emailsync/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SyncHistoryRepository records completed sync dispatches
type SyncHistoryRepository interface {
	Record(history *syncdomain.SyncHistory) error
	LastForAccount(accountID string) (*syncdomain.SyncHistory, error)
}

type syncHistoryRepository struct {
	db *gorm.DB
}

func NewSyncHistoryRepository(db *gorm.DB) SyncHistoryRepository {
	return &syncHistoryRepository{
		db: db,
	}
}

func (r *syncHistoryRepository) Record(history *syncdomain.SyncHistory) error {
	if history.ID == "" {
		history.ID = uuid.New().String()
	}
	history.CreatedAt = time.Now()
	return r.db.Create(history).Error
}

func (r *syncHistoryRepository) LastForAccount(accountID string) (*syncdomain.SyncHistory, error) {
	var history syncdomain.SyncHistory
	err := r.db.Where("account_id = ?", accountID).Order("created_at desc").First(&history).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &history, nil
}
