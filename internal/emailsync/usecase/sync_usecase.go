package usecase

import (
	"context"
	"fmt"
	"log"
	"time"

	accountdomain "mailsync-backend/internal/account/domain"
	accountrepo "mailsync-backend/internal/account/repository"
	syncdomain "mailsync-backend/internal/emailsync/domain"
	syncrepo "mailsync-backend/internal/emailsync/repository"
	subusecase "mailsync-backend/internal/subscription/usecase"
	"mailsync-backend/pkg/fcm"
	"mailsync-backend/pkg/gmail"
	"mailsync-backend/pkg/outlook"
)

// SyncUsecase pulls mailbox changes for an account after a notification and
// records the outcome. It is the concrete sync collaborator behind
// syncdomain.Syncer.
type SyncUsecase struct {
	accounts     accountrepo.AccountRepository
	deviceTokens accountrepo.DeviceTokenRepository
	history      syncrepo.SyncHistoryRepository
	resolver     *subusecase.CredentialResolver
	gmailService *gmail.Service
	outlookSvc   *outlook.Service
	fcmClient    *fcm.Client
}

func NewSyncUsecase(
	accounts accountrepo.AccountRepository,
	deviceTokens accountrepo.DeviceTokenRepository,
	history syncrepo.SyncHistoryRepository,
	resolver *subusecase.CredentialResolver,
	gmailService *gmail.Service,
	outlookSvc *outlook.Service,
	fcmClient *fcm.Client,
) *SyncUsecase {
	return &SyncUsecase{
		accounts:     accounts,
		deviceTokens: deviceTokens,
		history:      history,
		resolver:     resolver,
		gmailService: gmailService,
		outlookSvc:   outlookSvc,
		fcmClient:    fcmClient,
	}
}

var _ syncdomain.Syncer = (*SyncUsecase)(nil)

// SyncAccount fetches changes since the cursor and advances it. Cursor
// advancement is a conditional write against the previously stored value, so
// two redelivered notifications racing each other cannot rewind it.
func (u *SyncUsecase) SyncAccount(ctx context.Context, account *accountdomain.Account, cursor uint64) (*syncdomain.Result, error) {
	var result *syncdomain.Result
	var err error

	switch account.Provider {
	case accountdomain.ProviderGmail:
		result, err = u.syncGmail(ctx, account, cursor)
	case accountdomain.ProviderOutlook:
		result, err = u.syncOutlook(ctx, account)
	default:
		err = fmt.Errorf("unknown provider %q", account.Provider)
	}

	record := &syncdomain.SyncHistory{AccountID: account.ID, Cursor: cursor}
	if err != nil {
		record.Error = err.Error()
	} else {
		record.Processed = result.Processed
	}
	if recordErr := u.history.Record(record); recordErr != nil {
		log.Printf("[Sync] Failed to record sync history for account %s: %v", account.ID, recordErr)
	}

	if err != nil {
		return nil, err
	}

	if result.Processed > 0 {
		u.notifyDevices(ctx, account, result.Processed)
	}
	return result, nil
}

func (u *SyncUsecase) syncGmail(ctx context.Context, account *accountdomain.Account, cursor uint64) (*syncdomain.Result, error) {
	token, err := u.resolver.Resolve(ctx, account)
	if err != nil {
		return nil, err
	}

	if cursor == 0 {
		cursor = account.HistoryID
	}
	if cursor == 0 {
		// No cursor yet: nothing to resume from, the watch registration
		// seeds it
		return &syncdomain.Result{}, nil
	}

	hist, err := u.gmailService.ListHistory(ctx, token, cursor)
	if err != nil {
		if gmail.IsNotFound(err) {
			// Cursor aged out of gmail's history window; re-seed from the
			// current profile and accept the gap
			return u.reseedGmailCursor(ctx, account, token)
		}
		return nil, err
	}

	u.advanceCursor(account, hist.NewHistoryID)

	return &syncdomain.Result{Processed: hist.MessagesAdded, NewCursor: hist.NewHistoryID}, nil
}

func (u *SyncUsecase) reseedGmailCursor(ctx context.Context, account *accountdomain.Account, token string) (*syncdomain.Result, error) {
	_, historyID, err := u.gmailService.GetProfile(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("unable to reseed history cursor: %w", err)
	}

	log.Printf("[Sync] History gap for account %s, reseeding cursor at %d", account.ID, historyID)
	u.advanceCursor(account, historyID)
	return &syncdomain.Result{NewCursor: historyID}, nil
}

// advanceCursor moves the stored gmail cursor forward, never backward
func (u *SyncUsecase) advanceCursor(account *accountdomain.Account, newCursor uint64) {
	if newCursor <= account.HistoryID {
		return
	}

	applied, err := u.accounts.UpdateSyncState(account.ID,
		map[string]interface{}{"history_id": newCursor},
		map[string]interface{}{"history_id": account.HistoryID})
	if err != nil {
		log.Printf("[Sync] Failed to advance cursor for account %s: %v", account.ID, err)
		return
	}
	if !applied {
		// A concurrent sync advanced it first; theirs wins
		return
	}
	account.HistoryID = newCursor
}

func (u *SyncUsecase) syncOutlook(ctx context.Context, account *accountdomain.Account) (*syncdomain.Result, error) {
	token, err := u.resolver.Resolve(ctx, account)
	if err != nil {
		return nil, err
	}

	since := time.Now().Add(-time.Hour)
	if last, err := u.history.LastForAccount(account.ID); err == nil && last != nil && last.Error == "" {
		since = last.CreatedAt
	}

	count, err := u.outlookSvc.CountInboxMessagesSince(ctx, token, since)
	if err != nil {
		return nil, err
	}

	return &syncdomain.Result{Processed: count}, nil
}

func (u *SyncUsecase) notifyDevices(ctx context.Context, account *accountdomain.Account, processed int) {
	if u.fcmClient == nil || u.deviceTokens == nil {
		return
	}

	tokens, err := u.deviceTokens.GetTokensByAccountID(account.ID)
	if err != nil {
		log.Printf("[FCM] Error getting device tokens for account %s: %v", account.ID, err)
		return
	}
	if len(tokens) == 0 {
		return
	}

	tokenStrings := make([]string, 0, len(tokens))
	for _, t := range tokens {
		tokenStrings = append(tokenStrings, t.Token)
	}

	failedTokens, err := u.fcmClient.SendToDevices(ctx, tokenStrings, fcm.NotificationData{
		Title: "New mail",
		Body:  fmt.Sprintf("%d new messages in %s", processed, account.Email),
		Data: map[string]string{
			"type":    "email_update",
			"email":   account.Email,
			"count":   fmt.Sprintf("%d", processed),
			"account": account.ID,
		},
	})
	if err != nil {
		log.Printf("[FCM] Error sending notifications: %v", err)
		return
	}

	for _, token := range failedTokens {
		if err := u.deviceTokens.DeleteToken(token); err != nil {
			log.Printf("[FCM] Failed to remove stale token: %v", err)
		}
	}
}
