package gormstore

import (
	"time"

	"github.com/altlive/platform/pkg/alt"
	"github.com/altlive/platform/pkg/live"
	"gorm.io/datatypes"
)

const (
	subscriptionActive  = "active"
	defaultMetadataJSON = "{}"
)

func metadataColumn(raw string) datatypes.JSON {
	if raw == "" {
		return datatypes.JSON([]byte(defaultMetadataJSON))
	}
	return datatypes.JSON([]byte(raw))
}

func timeOrZero(value *time.Time) int64 {
	if value == nil {
		return 0
	}
	return value.Unix()
}

func optionalAccountID(raw *string) (*alt.AccountID, error) {
	if raw == nil {
		return nil, nil
	}
	parsed, err := alt.NewAccountID(*raw)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

func mapAccount(model Account) (alt.Account, error) {
	accountID, err := alt.NewAccountID(model.AccountID)
	if err != nil {
		return alt.Account{}, err
	}
	role, err := alt.ParseRole(model.Role)
	if err != nil {
		return alt.Account{}, err
	}
	status, err := alt.ParseAccountStatus(model.Status)
	if err != nil {
		return alt.Account{}, err
	}
	return alt.Account{
		ID:             accountID,
		Email:          model.Email,
		DisplayName:    model.DisplayName,
		Role:           role,
		Status:         status,
		BalanceALT:     model.BalanceALT,
		LastLoginUnix:  timeOrZero(model.LastLoginAt),
		CreatedUnixUTC: model.CreatedAt.Unix(),
	}, nil
}

func mapTransaction(model AltTransaction) (alt.Transaction, error) {
	accountID, err := alt.NewAccountID(model.AccountID)
	if err != nil {
		return alt.Transaction{}, err
	}
	txType, err := alt.ParseTxType(model.Type)
	if err != nil {
		return alt.Transaction{}, err
	}
	counterparty, err := optionalAccountID(model.CounterpartyID)
	if err != nil {
		return alt.Transaction{}, err
	}
	metadata, err := alt.NewMetadataJSON(string(model.Metadata))
	if err != nil {
		return alt.Transaction{}, err
	}
	sessionID := ""
	if model.SessionID != nil {
		sessionID = *model.SessionID
	}
	return alt.Transaction{
		TxID:           model.TxID,
		AccountID:      accountID,
		Type:           txType,
		AmountALT:      model.AmountALT,
		CounterpartyID: counterparty,
		SessionID:      sessionID,
		Metadata:       metadata,
		CreatedUnixUTC: model.CreatedAt.Unix(),
	}, nil
}

func mapRechargeToken(model RechargeToken) (alt.RechargeToken, error) {
	accountID, err := alt.NewAccountID(model.AccountID)
	if err != nil {
		return alt.RechargeToken{}, wrapStoreError(errorSubjectRecharge, errorCodeInvalid, err)
	}
	reviewedBy, err := optionalAccountID(model.ReviewedBy)
	if err != nil {
		return alt.RechargeToken{}, wrapStoreError(errorSubjectRecharge, errorCodeInvalid, err)
	}
	return alt.RechargeToken{
		TokenID:        model.TokenID,
		AccountID:      accountID,
		Token:          model.Token,
		AmountALT:      model.AmountALT,
		USDCents:       model.USDCents,
		Status:         alt.RechargeStatus(model.Status),
		ReviewedBy:     reviewedBy,
		DecidedUnixUTC: timeOrZero(model.DecidedAt),
		CreatedUnixUTC: model.CreatedAt.Unix(),
	}, nil
}

func mapWithdrawal(model WithdrawalRequest) (alt.Withdrawal, error) {
	accountID, err := alt.NewAccountID(model.AccountID)
	if err != nil {
		return alt.Withdrawal{}, wrapStoreError(errorSubjectWithdrawal, errorCodeInvalid, err)
	}
	method, err := alt.ParsePayoutMethod(model.Method)
	if err != nil {
		return alt.Withdrawal{}, wrapStoreError(errorSubjectWithdrawal, errorCodeInvalid, err)
	}
	details, err := alt.NewMetadataJSON(string(model.Details))
	if err != nil {
		return alt.Withdrawal{}, wrapStoreError(errorSubjectWithdrawal, errorCodeInvalid, err)
	}
	reviewedBy, err := optionalAccountID(model.ReviewedBy)
	if err != nil {
		return alt.Withdrawal{}, wrapStoreError(errorSubjectWithdrawal, errorCodeInvalid, err)
	}
	reason := ""
	if model.Reason != nil {
		reason = *model.Reason
	}
	return alt.Withdrawal{
		WithdrawalID:   model.WithdrawalID,
		AccountID:      accountID,
		AmountALT:      model.AmountALT,
		Method:         method,
		Details:        details,
		Status:         alt.WithdrawalStatus(model.Status),
		ReviewedBy:     reviewedBy,
		Reason:         reason,
		DecidedUnixUTC: timeOrZero(model.DecidedAt),
		CreatedUnixUTC: model.CreatedAt.Unix(),
	}, nil
}

func mapSession(model LiveSession) (live.Session, error) {
	creatorID, err := alt.NewAccountID(model.CreatorID)
	if err != nil {
		return live.Session{}, wrapStoreError(errorSubjectSession, errorCodeInvalid, err)
	}
	status, err := live.ParseSessionStatus(model.Status)
	if err != nil {
		return live.Session{}, wrapStoreError(errorSubjectSession, errorCodeInvalid, err)
	}
	terminatedBy := ""
	if model.TerminatedBy != nil {
		terminatedBy = *model.TerminatedBy
	}
	terminationReason := ""
	if model.TerminationReason != nil {
		terminationReason = *model.TerminationReason
	}
	return live.Session{
		SessionID:            model.SessionID,
		CreatorID:            creatorID,
		Title:                model.Title,
		Description:          model.Description,
		PriceALT:             model.PriceALT,
		MaxViewers:           model.MaxViewers,
		CurrentViewers:       model.CurrentViewers,
		Status:               status,
		SubscriptionRequired: model.SubscriptionRequired,
		IsPrivate:            model.IsPrivate,
		StreamKey:            model.StreamKey,
		RoomID:               model.RoomID,
		TotalEarningsALT:     model.TotalEarningsALT,
		StartedUnixUTC:       timeOrZero(model.StartedAt),
		EndedUnixUTC:         timeOrZero(model.EndedAt),
		TerminatedBy:         terminatedBy,
		TerminationReason:    terminationReason,
		CreatedUnixUTC:       model.CreatedAt.Unix(),
	}, nil
}

func mapViewer(model LiveViewer) (live.Viewer, error) {
	accountID, err := alt.NewAccountID(model.AccountID)
	if err != nil {
		return live.Viewer{}, wrapStoreError(errorSubjectViewer, errorCodeInvalid, err)
	}
	return live.Viewer{
		ViewerID:      model.ViewerID,
		SessionID:     model.SessionID,
		AccountID:     accountID,
		AltPaid:       model.AltPaid,
		IsAdmin:       model.IsAdmin,
		JoinedUnixUTC: model.JoinedAt.Unix(),
		LeftUnixUTC:   timeOrZero(model.LeftAt),
	}, nil
}
