package gormstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/altlive/platform/pkg/alt"
	"github.com/altlive/platform/pkg/live"
	"gorm.io/gorm"
)

// LiveStore implements live.Store using GORM.
type LiveStore struct {
	db *gorm.DB
}

// NewLiveStore returns a LiveStore backed by gorm.DB.
func NewLiveStore(db *gorm.DB) *LiveStore {
	return &LiveStore{db: db}
}

// WithTx executes fn within a transaction.
func (store *LiveStore) WithTx(ctx context.Context, fn func(ctx context.Context, txStore live.Store) error) error {
	return store.db.WithContext(ctx).Transaction(func(transaction *gorm.DB) error {
		return fn(ctx, &LiveStore{db: transaction})
	})
}

func (store *LiveStore) CreateSession(ctx context.Context, session live.Session) (live.Session, error) {
	model := LiveSession{
		CreatorID:            session.CreatorID.String(),
		Title:                session.Title,
		Description:          session.Description,
		PriceALT:             session.PriceALT,
		MaxViewers:           session.MaxViewers,
		Status:               session.Status.String(),
		SubscriptionRequired: session.SubscriptionRequired,
		IsPrivate:            session.IsPrivate,
		StreamKey:            session.StreamKey,
		RoomID:               session.RoomID,
		CreatedAt:            time.Unix(session.CreatedUnixUTC, 0).UTC(),
	}
	if err := store.db.WithContext(ctx).Create(&model).Error; err != nil {
		return live.Session{}, wrapStoreError(errorSubjectSession, errorCodeCreate, err)
	}
	return mapSession(model)
}

func (store *LiveStore) GetSession(ctx context.Context, sessionID string) (live.Session, error) {
	var model LiveSession
	err := store.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Take(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return live.Session{}, wrapStoreError(errorSubjectSession, errorCodeGet, live.ErrSessionNotFound)
		}
		return live.Session{}, wrapStoreError(errorSubjectSession, errorCodeGet, err)
	}
	return mapSession(model)
}

func (store *LiveStore) MarkLive(ctx context.Context, sessionID string, startedUnixUTC int64) error {
	return store.transition(ctx, sessionID,
		[]string{live.StatusScheduled.String()},
		map[string]interface{}{
			"status":     live.StatusLive.String(),
			"started_at": time.Unix(startedUnixUTC, 0).UTC(),
		})
}

func (store *LiveStore) MarkEnded(ctx context.Context, sessionID string, endedUnixUTC int64) error {
	return store.transition(ctx, sessionID,
		[]string{live.StatusLive.String()},
		map[string]interface{}{
			"status":   live.StatusEnded.String(),
			"ended_at": time.Unix(endedUnixUTC, 0).UTC(),
		})
}

func (store *LiveStore) MarkTerminated(ctx context.Context, sessionID string, adminID alt.AccountID, reason string, atUnixUTC int64) error {
	return store.transition(ctx, sessionID,
		[]string{live.StatusScheduled.String(), live.StatusLive.String()},
		map[string]interface{}{
			"status":             live.StatusTerminated.String(),
			"terminated_by":      adminID.String(),
			"termination_reason": reason,
			"ended_at":           time.Unix(atUnixUTC, 0).UTC(),
		})
}

// transition flips session status only from an expected prior status;
// zero affected rows means the state machine forbids the move.
func (store *LiveStore) transition(ctx context.Context, sessionID string, fromStatuses []string, updates map[string]interface{}) error {
	result := store.db.WithContext(ctx).
		Model(&LiveSession{}).
		Where("session_id = ? AND status IN ?", sessionID, fromStatuses).
		Updates(updates)
	if result.Error != nil {
		return wrapStoreError(errorSubjectSession, errorCodeUpdate, result.Error)
	}
	if result.RowsAffected == 0 {
		var count int64
		if err := store.db.WithContext(ctx).Model(&LiveSession{}).
			Where("session_id = ?", sessionID).
			Count(&count).Error; err != nil {
			return wrapStoreError(errorSubjectSession, errorCodeLookup, err)
		}
		if count == 0 {
			return wrapStoreError(errorSubjectSession, errorCodeUpdate, live.ErrSessionNotFound)
		}
		return wrapStoreError(errorSubjectSession, errorCodeUpdate, live.ErrInvalidState)
	}
	return nil
}

func (store *LiveStore) SetTotalEarnings(ctx context.Context, sessionID string, totalALT int64) error {
	result := store.db.WithContext(ctx).
		Model(&LiveSession{}).
		Where("session_id = ?", sessionID).
		Update("total_earnings_alt", totalALT)
	if result.Error != nil {
		return wrapStoreError(errorSubjectSession, errorCodeUpdate, result.Error)
	}
	if result.RowsAffected == 0 {
		return wrapStoreError(errorSubjectSession, errorCodeUpdate, live.ErrSessionNotFound)
	}
	return nil
}

// ReserveSeat is the single conditional update guarding capacity.
func (store *LiveStore) ReserveSeat(ctx context.Context, sessionID string) error {
	result := store.db.WithContext(ctx).
		Model(&LiveSession{}).
		Where("session_id = ? AND current_viewers < max_viewers", sessionID).
		Update("current_viewers", gorm.Expr("current_viewers + 1"))
	if result.Error != nil {
		return wrapStoreError(errorSubjectSession, errorCodeUpdate, result.Error)
	}
	if result.RowsAffected == 0 {
		return wrapStoreError(errorSubjectSession, errorCodeUpdate, live.ErrSessionFull)
	}
	return nil
}

// ReleaseSeat decrements the viewer count, clamped at zero.
func (store *LiveStore) ReleaseSeat(ctx context.Context, sessionID string) error {
	result := store.db.WithContext(ctx).
		Model(&LiveSession{}).
		Where("session_id = ? AND current_viewers > 0", sessionID).
		Update("current_viewers", gorm.Expr("current_viewers - 1"))
	if result.Error != nil {
		return wrapStoreError(errorSubjectSession, errorCodeUpdate, result.Error)
	}
	return nil
}

// AddSeat increments the viewer count without a capacity guard (admin
// observability override).
func (store *LiveStore) AddSeat(ctx context.Context, sessionID string) error {
	result := store.db.WithContext(ctx).
		Model(&LiveSession{}).
		Where("session_id = ?", sessionID).
		Update("current_viewers", gorm.Expr("current_viewers + 1"))
	if result.Error != nil {
		return wrapStoreError(errorSubjectSession, errorCodeUpdate, result.Error)
	}
	if result.RowsAffected == 0 {
		return wrapStoreError(errorSubjectSession, errorCodeUpdate, live.ErrSessionNotFound)
	}
	return nil
}

func (store *LiveStore) InsertViewer(ctx context.Context, viewer live.Viewer) (live.Viewer, error) {
	openKey := fmt.Sprintf("%s:%s", viewer.SessionID, viewer.AccountID.String())
	model := LiveViewer{
		SessionID: viewer.SessionID,
		AccountID: viewer.AccountID.String(),
		AltPaid:   viewer.AltPaid,
		IsAdmin:   viewer.IsAdmin,
		OpenKey:   &openKey,
		JoinedAt:  time.Unix(viewer.JoinedUnixUTC, 0).UTC(),
	}
	err := store.db.WithContext(ctx).Create(&model).Error
	if isUniqueViolation(err) {
		return live.Viewer{}, wrapStoreError(errorSubjectViewer, errorCodeDuplicate, live.ErrAlreadyJoined)
	}
	if err != nil {
		return live.Viewer{}, wrapStoreError(errorSubjectViewer, errorCodeInsert, err)
	}
	return mapViewer(model)
}

func (store *LiveStore) HasOpenViewer(ctx context.Context, sessionID string, accountID alt.AccountID) (bool, error) {
	var count int64
	err := store.db.WithContext(ctx).
		Model(&LiveViewer{}).
		Where("session_id = ? AND account_id = ? AND left_at IS NULL", sessionID, accountID.String()).
		Count(&count).Error
	if err != nil {
		return false, wrapStoreError(errorSubjectViewer, errorCodeLookup, err)
	}
	return count > 0, nil
}

func (store *LiveStore) MarkViewerLeft(ctx context.Context, sessionID string, accountID alt.AccountID, leftUnixUTC int64) error {
	result := store.db.WithContext(ctx).
		Model(&LiveViewer{}).
		Where("session_id = ? AND account_id = ? AND left_at IS NULL", sessionID, accountID.String()).
		Updates(map[string]interface{}{
			"left_at":  time.Unix(leftUnixUTC, 0).UTC(),
			"open_key": nil,
		})
	if result.Error != nil {
		return wrapStoreError(errorSubjectViewer, errorCodeUpdate, result.Error)
	}
	if result.RowsAffected == 0 {
		return wrapStoreError(errorSubjectViewer, errorCodeUpdate, live.ErrViewerNotFound)
	}
	return nil
}

func (store *LiveStore) ListOpenViewerIDs(ctx context.Context, sessionID string) ([]string, error) {
	var accountIDs []string
	err := store.db.WithContext(ctx).
		Model(&LiveViewer{}).
		Where("session_id = ? AND left_at IS NULL", sessionID).
		Pluck("account_id", &accountIDs).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectViewer, errorCodeList, err)
	}
	return accountIDs, nil
}

func (store *LiveStore) SumViewerPayments(ctx context.Context, sessionID string) (int64, error) {
	var sum sqlSum
	err := store.db.WithContext(ctx).
		Model(&LiveViewer{}).
		Select("coalesce(sum(alt_paid),0) as total").
		Where("session_id = ?", sessionID).
		Scan(&sum).Error
	if err != nil {
		return 0, wrapStoreError(errorSubjectViewer, errorCodeSum, err)
	}
	return sum.Total, nil
}

func (store *LiveStore) GetAccountRole(ctx context.Context, accountID alt.AccountID) (alt.Role, error) {
	var model Account
	err := store.db.WithContext(ctx).
		Select("role").
		Where("account_id = ?", accountID.String()).
		Take(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", wrapStoreError(errorSubjectAccount, errorCodeGet, alt.ErrAccountNotFound)
		}
		return "", wrapStoreError(errorSubjectAccount, errorCodeGet, err)
	}
	role, err := alt.ParseRole(model.Role)
	if err != nil {
		return "", wrapStoreError(errorSubjectAccount, errorCodeInvalid, err)
	}
	return role, nil
}

func (store *LiveStore) HasActiveSubscription(ctx context.Context, fanID, creatorID alt.AccountID) (bool, error) {
	var count int64
	err := store.db.WithContext(ctx).
		Model(&Subscription{}).
		Where("fan_id = ? AND creator_id = ? AND status = ?", fanID.String(), creatorID.String(), subscriptionActive).
		Count(&count).Error
	if err != nil {
		return false, wrapStoreError(errorSubjectSubscription, errorCodeLookup, err)
	}
	return count > 0, nil
}

func (store *LiveStore) ListActiveSubscriberIDs(ctx context.Context, creatorID alt.AccountID) ([]string, error) {
	var fanIDs []string
	err := store.db.WithContext(ctx).
		Model(&Subscription{}).
		Where("creator_id = ? AND status = ?", creatorID.String(), subscriptionActive).
		Pluck("fan_id", &fanIDs).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectSubscription, errorCodeList, err)
	}
	return fanIDs, nil
}

func (store *LiveStore) ListActiveFanIDs(ctx context.Context) ([]string, error) {
	var accountIDs []string
	err := store.db.WithContext(ctx).
		Model(&Account{}).
		Where("role = ? AND status = ?", alt.RoleFan.String(), alt.AccountActive.String()).
		Pluck("account_id", &accountIDs).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectAccount, errorCodeList, err)
	}
	return accountIDs, nil
}

func (store *LiveStore) InsertStrike(ctx context.Context, strike live.Strike) error {
	model := Strike{
		AccountID: strike.AccountID.String(),
		SessionID: strike.SessionID,
		Reason:    strike.Reason,
		IssuedBy:  strike.IssuedBy.String(),
		CreatedAt: time.Unix(strike.CreatedUnixUTC, 0).UTC(),
	}
	if err := store.db.WithContext(ctx).Create(&model).Error; err != nil {
		return wrapStoreError(errorSubjectStrike, errorCodeInsert, err)
	}
	return nil
}

type sqlSum struct {
	Total int64
}
