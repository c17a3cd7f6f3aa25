package gormstore

import (
	"errors"

	"github.com/altlive/platform/pkg/alt"
	gosqlite "github.com/glebarez/go-sqlite"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const (
	pgUniqueViolationCode = "23505"
	sqliteConstraintCode  = 19

	errorOperationStore = "store"

	errorSubjectAccount      = "account"
	errorSubjectTransaction  = "transaction"
	errorSubjectRecharge     = "recharge"
	errorSubjectWithdrawal   = "withdrawal"
	errorSubjectContent      = "content"
	errorSubjectSession      = "session"
	errorSubjectViewer       = "viewer"
	errorSubjectSubscription = "subscription"
	errorSubjectNotification = "notification"
	errorSubjectStrike       = "strike"

	errorCodeCreate    = "create"
	errorCodeGet       = "get"
	errorCodeInsert    = "insert"
	errorCodeInvalid   = "invalid"
	errorCodeList      = "list"
	errorCodeLookup    = "lookup"
	errorCodeSum       = "sum"
	errorCodeUpdate    = "update"
	errorCodeDuplicate = "duplicate"
)

func wrapStoreError(subject string, code string, err error) error {
	return alt.WrapError(errorOperationStore, subject, code, err)
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolationCode
	}
	var sqliteErr *gosqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code()&0xFF == sqliteConstraintCode
	}
	return false
}
