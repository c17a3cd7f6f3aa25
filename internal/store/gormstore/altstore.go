package gormstore

import (
	"context"
	"errors"
	"time"

	"github.com/altlive/platform/pkg/alt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AltStore implements alt.Store using GORM.
type AltStore struct {
	db *gorm.DB
}

// NewAltStore returns an AltStore backed by gorm.DB.
func NewAltStore(db *gorm.DB) *AltStore {
	return &AltStore{db: db}
}

// WithTx executes fn within a transaction.
func (store *AltStore) WithTx(ctx context.Context, fn func(ctx context.Context, txStore alt.Store) error) error {
	return store.db.WithContext(ctx).Transaction(func(transaction *gorm.DB) error {
		return fn(ctx, &AltStore{db: transaction})
	})
}

func (store *AltStore) GetAccount(ctx context.Context, accountID alt.AccountID) (alt.Account, error) {
	var model Account
	err := store.db.WithContext(ctx).
		Where("account_id = ?", accountID.String()).
		Take(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return alt.Account{}, wrapStoreError(errorSubjectAccount, errorCodeGet, alt.ErrAccountNotFound)
		}
		return alt.Account{}, wrapStoreError(errorSubjectAccount, errorCodeGet, err)
	}
	account, err := mapAccount(model)
	if err != nil {
		return alt.Account{}, wrapStoreError(errorSubjectAccount, errorCodeInvalid, err)
	}
	return account, nil
}

func (store *AltStore) ListAdminIDs(ctx context.Context) ([]alt.AccountID, error) {
	var rows []string
	err := store.db.WithContext(ctx).
		Model(&Account{}).
		Where("role = ?", alt.RoleAdmin.String()).
		Pluck("account_id", &rows).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectAccount, errorCodeList, err)
	}
	adminIDs := make([]alt.AccountID, 0, len(rows))
	for _, raw := range rows {
		adminID, err := alt.NewAccountID(raw)
		if err != nil {
			return nil, wrapStoreError(errorSubjectAccount, errorCodeInvalid, err)
		}
		adminIDs = append(adminIDs, adminID)
	}
	return adminIDs, nil
}

func (store *AltStore) CreditBalance(ctx context.Context, accountID alt.AccountID, amountALT int64) error {
	result := store.db.WithContext(ctx).
		Model(&Account{}).
		Where("account_id = ?", accountID.String()).
		Update("balance_alt", gorm.Expr("balance_alt + ?", amountALT))
	if result.Error != nil {
		return wrapStoreError(errorSubjectAccount, errorCodeUpdate, result.Error)
	}
	if result.RowsAffected == 0 {
		return wrapStoreError(errorSubjectAccount, errorCodeUpdate, alt.ErrAccountNotFound)
	}
	return nil
}

// DebitBalance is the single conditional update guarding balance
// non-negativity: the decrement only lands when the balance covers it.
func (store *AltStore) DebitBalance(ctx context.Context, accountID alt.AccountID, amountALT int64) error {
	result := store.db.WithContext(ctx).
		Model(&Account{}).
		Where("account_id = ? AND balance_alt >= ?", accountID.String(), amountALT).
		Update("balance_alt", gorm.Expr("balance_alt - ?", amountALT))
	if result.Error != nil {
		return wrapStoreError(errorSubjectAccount, errorCodeUpdate, result.Error)
	}
	if result.RowsAffected == 0 {
		var count int64
		if err := store.db.WithContext(ctx).Model(&Account{}).
			Where("account_id = ?", accountID.String()).
			Count(&count).Error; err != nil {
			return wrapStoreError(errorSubjectAccount, errorCodeLookup, err)
		}
		if count == 0 {
			return wrapStoreError(errorSubjectAccount, errorCodeUpdate, alt.ErrAccountNotFound)
		}
		return wrapStoreError(errorSubjectAccount, errorCodeUpdate, alt.ErrInsufficientBalance)
	}
	return nil
}

func (store *AltStore) InsertTransaction(ctx context.Context, transaction alt.Transaction) (string, error) {
	model := AltTransaction{
		AccountID: transaction.AccountID.String(),
		Type:      transaction.Type.String(),
		AmountALT: transaction.AmountALT,
		Metadata:  metadataColumn(transaction.Metadata.String()),
		CreatedAt: time.Unix(transaction.CreatedUnixUTC, 0).UTC(),
	}
	if transaction.CounterpartyID != nil {
		value := transaction.CounterpartyID.String()
		model.CounterpartyID = &value
	}
	if transaction.SessionID != "" {
		value := transaction.SessionID
		model.SessionID = &value
	}
	if model.CreatedAt.IsZero() {
		model.CreatedAt = time.Now().UTC()
	}
	if err := store.db.WithContext(ctx).Create(&model).Error; err != nil {
		return "", wrapStoreError(errorSubjectTransaction, errorCodeInsert, err)
	}
	return model.TxID, nil
}

func (store *AltStore) ListTransactions(ctx context.Context, accountID alt.AccountID, limit int) ([]alt.Transaction, error) {
	var rows []AltTransaction
	err := store.db.WithContext(ctx).
		Where("account_id = ?", accountID.String()).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectTransaction, errorCodeList, err)
	}
	transactions := make([]alt.Transaction, 0, len(rows))
	for _, row := range rows {
		transaction, err := mapTransaction(row)
		if err != nil {
			return nil, wrapStoreError(errorSubjectTransaction, errorCodeInvalid, err)
		}
		transactions = append(transactions, transaction)
	}
	return transactions, nil
}

func (store *AltStore) CreateRechargeToken(ctx context.Context, token alt.RechargeToken) (alt.RechargeToken, error) {
	model := RechargeToken{
		AccountID: token.AccountID.String(),
		Token:     token.Token,
		AmountALT: token.AmountALT,
		USDCents:  token.USDCents,
		Status:    string(token.Status),
		CreatedAt: time.Unix(token.CreatedUnixUTC, 0).UTC(),
	}
	err := store.db.WithContext(ctx).Create(&model).Error
	if isUniqueViolation(err) {
		return alt.RechargeToken{}, wrapStoreError(errorSubjectRecharge, errorCodeDuplicate, err)
	}
	if err != nil {
		return alt.RechargeToken{}, wrapStoreError(errorSubjectRecharge, errorCodeCreate, err)
	}
	return mapRechargeToken(model)
}

func (store *AltStore) GetRechargeToken(ctx context.Context, tokenID string) (alt.RechargeToken, error) {
	var model RechargeToken
	err := store.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("token_id = ?", tokenID).
		Take(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return alt.RechargeToken{}, wrapStoreError(errorSubjectRecharge, errorCodeGet, alt.ErrTokenNotFound)
		}
		return alt.RechargeToken{}, wrapStoreError(errorSubjectRecharge, errorCodeGet, err)
	}
	return mapRechargeToken(model)
}

func (store *AltStore) UpdateRechargeStatus(ctx context.Context, tokenID string, from, to alt.RechargeStatus, reviewedBy alt.AccountID, decidedUnixUTC int64) error {
	decidedAt := time.Unix(decidedUnixUTC, 0).UTC()
	result := store.db.WithContext(ctx).
		Model(&RechargeToken{}).
		Where("token_id = ? AND status = ?", tokenID, string(from)).
		Updates(map[string]interface{}{
			"status":      string(to),
			"reviewed_by": reviewedBy.String(),
			"decided_at":  decidedAt,
		})
	if result.Error != nil {
		return wrapStoreError(errorSubjectRecharge, errorCodeUpdate, result.Error)
	}
	if result.RowsAffected == 0 {
		return wrapStoreError(errorSubjectRecharge, errorCodeUpdate, alt.ErrInvalidState)
	}
	return nil
}

func (store *AltStore) CreateWithdrawal(ctx context.Context, withdrawal alt.Withdrawal) (alt.Withdrawal, error) {
	model := WithdrawalRequest{
		AccountID: withdrawal.AccountID.String(),
		AmountALT: withdrawal.AmountALT,
		Method:    withdrawal.Method.String(),
		Details:   metadataColumn(withdrawal.Details.String()),
		Status:    string(withdrawal.Status),
		CreatedAt: time.Unix(withdrawal.CreatedUnixUTC, 0).UTC(),
	}
	if err := store.db.WithContext(ctx).Create(&model).Error; err != nil {
		return alt.Withdrawal{}, wrapStoreError(errorSubjectWithdrawal, errorCodeCreate, err)
	}
	return mapWithdrawal(model)
}

func (store *AltStore) GetWithdrawal(ctx context.Context, withdrawalID string) (alt.Withdrawal, error) {
	var model WithdrawalRequest
	err := store.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("withdrawal_id = ?", withdrawalID).
		Take(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return alt.Withdrawal{}, wrapStoreError(errorSubjectWithdrawal, errorCodeGet, alt.ErrWithdrawalNotFound)
		}
		return alt.Withdrawal{}, wrapStoreError(errorSubjectWithdrawal, errorCodeGet, err)
	}
	return mapWithdrawal(model)
}

func (store *AltStore) UpdateWithdrawalStatus(ctx context.Context, withdrawalID string, from, to alt.WithdrawalStatus, reviewedBy alt.AccountID, reason string, decidedUnixUTC int64) error {
	decidedAt := time.Unix(decidedUnixUTC, 0).UTC()
	updates := map[string]interface{}{
		"status":      string(to),
		"reviewed_by": reviewedBy.String(),
		"decided_at":  decidedAt,
	}
	if reason != "" {
		updates["reason"] = reason
	}
	result := store.db.WithContext(ctx).
		Model(&WithdrawalRequest{}).
		Where("withdrawal_id = ? AND status = ?", withdrawalID, string(from)).
		Updates(updates)
	if result.Error != nil {
		return wrapStoreError(errorSubjectWithdrawal, errorCodeUpdate, result.Error)
	}
	if result.RowsAffected == 0 {
		return wrapStoreError(errorSubjectWithdrawal, errorCodeUpdate, alt.ErrInvalidState)
	}
	return nil
}

func (store *AltStore) GetContent(ctx context.Context, contentID string) (alt.Content, error) {
	var model Content
	err := store.db.WithContext(ctx).
		Where("content_id = ?", contentID).
		Take(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return alt.Content{}, wrapStoreError(errorSubjectContent, errorCodeGet, alt.ErrContentNotFound)
		}
		return alt.Content{}, wrapStoreError(errorSubjectContent, errorCodeGet, err)
	}
	creatorID, err := alt.NewAccountID(model.CreatorID)
	if err != nil {
		return alt.Content{}, wrapStoreError(errorSubjectContent, errorCodeInvalid, err)
	}
	return alt.Content{
		ContentID: model.ContentID,
		CreatorID: creatorID,
		PriceALT:  model.PriceALT,
		Title:     model.Title,
	}, nil
}

func (store *AltStore) UpsertSubscription(ctx context.Context, fanID, creatorID alt.AccountID, nowUnixUTC int64) error {
	now := time.Unix(nowUnixUTC, 0).UTC()
	err := store.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "fan_id"}, {Name: "creator_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"status":     subscriptionActive,
				"updated_at": now,
			}),
		}).
		Create(&Subscription{
			FanID:     fanID.String(),
			CreatorID: creatorID.String(),
			Status:    subscriptionActive,
			CreatedAt: now,
			UpdatedAt: now,
		}).Error
	if err != nil {
		return wrapStoreError(errorSubjectSubscription, errorCodeCreate, err)
	}
	return nil
}
