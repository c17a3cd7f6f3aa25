package gormstore

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Account represents the accounts table.
type Account struct {
	AccountID            string `gorm:"type:uuid;primaryKey"`
	Email                string `gorm:"not null;uniqueIndex"`
	DisplayName          string `gorm:""`
	Role                 string `gorm:"not null;index"`
	Status               string `gorm:"not null;index"`
	BalanceALT           int64  `gorm:"not null;default:0"`
	LastLoginAt          *time.Time
	LastPasswordChangeAt *time.Time
	CreatedAt            time.Time `gorm:"not null"`
}

func (Account) TableName() string { return "accounts" }

func (account *Account) BeforeCreate(tx *gorm.DB) error {
	if account.AccountID == "" {
		account.AccountID = uuid.NewString()
	}
	return nil
}

// AltTransaction mirrors the append-only alt_transactions table.
type AltTransaction struct {
	TxID           string         `gorm:"type:uuid;primaryKey"`
	AccountID      string         `gorm:"type:uuid;not null;index:idx_alt_tx_account_created,priority:1"`
	Type           string         `gorm:"not null"`
	AmountALT      int64          `gorm:"not null"`
	CounterpartyID *string        `gorm:"type:uuid"`
	SessionID      *string        `gorm:"type:uuid;index"`
	Metadata       datatypes.JSON `gorm:"not null"`
	CreatedAt      time.Time      `gorm:"not null;index:idx_alt_tx_account_created,priority:2"`
}

func (AltTransaction) TableName() string { return "alt_transactions" }

func (transaction *AltTransaction) BeforeCreate(tx *gorm.DB) error {
	if transaction.TxID == "" {
		transaction.TxID = uuid.NewString()
	}
	return nil
}

// RechargeToken mirrors the recharge_tokens table.
type RechargeToken struct {
	TokenID    string  `gorm:"type:uuid;primaryKey"`
	AccountID  string  `gorm:"type:uuid;not null;index"`
	Token      string  `gorm:"not null;uniqueIndex"`
	AmountALT  int64   `gorm:"not null"`
	USDCents   int64   `gorm:"not null"`
	Status     string  `gorm:"not null;index"`
	ReviewedBy *string `gorm:"type:uuid"`
	DecidedAt  *time.Time
	CreatedAt  time.Time `gorm:"not null"`
}

func (RechargeToken) TableName() string { return "recharge_tokens" }

func (token *RechargeToken) BeforeCreate(tx *gorm.DB) error {
	if token.TokenID == "" {
		token.TokenID = uuid.NewString()
	}
	return nil
}

// WithdrawalRequest mirrors the withdrawal_requests table.
type WithdrawalRequest struct {
	WithdrawalID string         `gorm:"type:uuid;primaryKey"`
	AccountID    string         `gorm:"type:uuid;not null;index"`
	AmountALT    int64          `gorm:"not null"`
	Method       string         `gorm:"not null"`
	Details      datatypes.JSON `gorm:"not null"`
	Status       string         `gorm:"not null;index"`
	ReviewedBy   *string        `gorm:"type:uuid"`
	Reason       *string
	DecidedAt    *time.Time
	CreatedAt    time.Time `gorm:"not null"`
}

func (WithdrawalRequest) TableName() string { return "withdrawal_requests" }

func (withdrawal *WithdrawalRequest) BeforeCreate(tx *gorm.DB) error {
	if withdrawal.WithdrawalID == "" {
		withdrawal.WithdrawalID = uuid.NewString()
	}
	return nil
}

// Content mirrors the contents table.
type Content struct {
	ContentID string    `gorm:"type:uuid;primaryKey"`
	CreatorID string    `gorm:"type:uuid;not null;index"`
	Title     string    `gorm:""`
	PriceALT  int64     `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
}

func (Content) TableName() string { return "contents" }

func (content *Content) BeforeCreate(tx *gorm.DB) error {
	if content.ContentID == "" {
		content.ContentID = uuid.NewString()
	}
	return nil
}

// LiveSession mirrors the live_sessions table.
type LiveSession struct {
	SessionID            string  `gorm:"type:uuid;primaryKey"`
	CreatorID            string  `gorm:"type:uuid;not null;index"`
	Title                string  `gorm:"not null"`
	Description          string  `gorm:""`
	PriceALT             int64   `gorm:"not null;default:0"`
	MaxViewers           int     `gorm:"not null"`
	CurrentViewers       int     `gorm:"not null;default:0"`
	Status               string  `gorm:"not null;index"`
	SubscriptionRequired bool    `gorm:"not null;default:false"`
	IsPrivate            bool    `gorm:"not null;default:false"`
	StreamKey            string  `gorm:"not null;uniqueIndex"`
	RoomID               string  `gorm:"not null"`
	TotalEarningsALT     int64   `gorm:"not null;default:0"`
	TerminatedBy         *string `gorm:"type:uuid"`
	TerminationReason    *string
	StartedAt            *time.Time
	EndedAt              *time.Time
	CreatedAt            time.Time `gorm:"not null"`
}

func (LiveSession) TableName() string { return "live_sessions" }

func (session *LiveSession) BeforeCreate(tx *gorm.DB) error {
	if session.SessionID == "" {
		session.SessionID = uuid.NewString()
	}
	return nil
}

// LiveViewer mirrors the live_viewers table. OpenKey is
// "<session>:<account>" while the row is open and NULL after leave, so the
// unique index rejects a second open row without blocking rejoin.
type LiveViewer struct {
	ViewerID  string    `gorm:"type:uuid;primaryKey"`
	SessionID string    `gorm:"type:uuid;not null;index"`
	AccountID string    `gorm:"type:uuid;not null;index"`
	AltPaid   int64     `gorm:"not null;default:0"`
	IsAdmin   bool      `gorm:"not null;default:false"`
	OpenKey   *string   `gorm:"uniqueIndex"`
	JoinedAt  time.Time `gorm:"not null"`
	LeftAt    *time.Time
}

func (LiveViewer) TableName() string { return "live_viewers" }

func (viewer *LiveViewer) BeforeCreate(tx *gorm.DB) error {
	if viewer.ViewerID == "" {
		viewer.ViewerID = uuid.NewString()
	}
	return nil
}

// Subscription mirrors the subscriptions table.
type Subscription struct {
	SubscriptionID string    `gorm:"type:uuid;primaryKey"`
	FanID          string    `gorm:"type:uuid;not null;index:idx_sub_fan_creator,unique,priority:1"`
	CreatorID      string    `gorm:"type:uuid;not null;index:idx_sub_fan_creator,unique,priority:2"`
	Status         string    `gorm:"not null;index"`
	CreatedAt      time.Time `gorm:"not null"`
	UpdatedAt      time.Time `gorm:"not null"`
}

func (Subscription) TableName() string { return "subscriptions" }

func (subscription *Subscription) BeforeCreate(tx *gorm.DB) error {
	if subscription.SubscriptionID == "" {
		subscription.SubscriptionID = uuid.NewString()
	}
	return nil
}

// Notification mirrors the notifications table.
type Notification struct {
	NotificationID string    `gorm:"type:uuid;primaryKey"`
	AccountID      string    `gorm:"type:uuid;not null;index"`
	Title          string    `gorm:"not null"`
	Body           string    `gorm:""`
	Kind           string    `gorm:"not null"`
	Read           bool      `gorm:"not null;default:false"`
	CreatedAt      time.Time `gorm:"not null"`
}

func (Notification) TableName() string { return "notifications" }

func (notification *Notification) BeforeCreate(tx *gorm.DB) error {
	if notification.NotificationID == "" {
		notification.NotificationID = uuid.NewString()
	}
	return nil
}

// Strike mirrors the strikes table.
type Strike struct {
	StrikeID  string    `gorm:"type:uuid;primaryKey"`
	AccountID string    `gorm:"type:uuid;not null;index"`
	SessionID string    `gorm:"type:uuid;not null"`
	Reason    string    `gorm:"not null"`
	IssuedBy  string    `gorm:"type:uuid;not null"`
	CreatedAt time.Time `gorm:"not null"`
}

func (Strike) TableName() string { return "strikes" }

func (strike *Strike) BeforeCreate(tx *gorm.DB) error {
	if strike.StrikeID == "" {
		strike.StrikeID = uuid.NewString()
	}
	return nil
}

// Models lists every table for automigration.
func Models() []any {
	return []any{
		&Account{},
		&AltTransaction{},
		&RechargeToken{},
		&WithdrawalRequest{},
		&Content{},
		&LiveSession{},
		&LiveViewer{},
		&Subscription{},
		&Notification{},
		&Strike{},
	}
}
