package domain

import (
	"context"
	"time"

	accountdomain "mailsync-backend/internal/account/domain"
)

// Result summarizes one sync run for observability
type Result struct {
	Processed int
	NewCursor uint64
}

// Syncer pulls an account's mailbox changes after a notification. The
// subscription core only depends on success/failure and the processed count.
type Syncer interface {
	SyncAccount(ctx context.Context, account *accountdomain.Account, cursor uint64) (*Result, error)
}

// SyncHistory is one recorded sync dispatch
type SyncHistory struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	AccountID string    `json:"account_id" gorm:"index;not null"`
	Cursor    uint64    `json:"cursor"`
	Processed int       `json:"processed"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
