package alt

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// AccountID identifies a platform account.
type AccountID struct {
	value string
}

// NewAccountID validates and normalizes an account id.
func NewAccountID(raw string) (AccountID, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return AccountID{}, fmt.Errorf("%w: empty value", ErrInvalidAccountID)
	}
	return AccountID{value: trimmed}, nil
}

// String returns the normalized identifier.
func (id AccountID) String() string {
	return id.value
}

// IsZero reports whether the id carries no value.
func (id AccountID) IsZero() bool {
	return id.value == ""
}

// Role is the closed set of account roles.
type Role string

const (
	RoleFan     Role = "fan"
	RoleCreator Role = "creator"
	RoleAdmin   Role = "admin"
)

// ParseRole validates a raw role string.
func ParseRole(raw string) (Role, error) {
	switch Role(raw) {
	case RoleFan, RoleCreator, RoleAdmin:
		return Role(raw), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidRole, raw)
	}
}

// String returns the role literal.
func (role Role) String() string {
	return string(role)
}

// AccountStatus is the account lifecycle state.
type AccountStatus string

const (
	AccountActive    AccountStatus = "active"
	AccountPending   AccountStatus = "pending"
	AccountSuspended AccountStatus = "suspended"
	AccountBanned    AccountStatus = "banned"
	AccountFrozen    AccountStatus = "frozen"
)

// ParseAccountStatus validates a raw account status string.
func ParseAccountStatus(raw string) (AccountStatus, error) {
	switch AccountStatus(raw) {
	case AccountActive, AccountPending, AccountSuspended, AccountBanned, AccountFrozen:
		return AccountStatus(raw), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidAccountState, raw)
	}
}

// String returns the status literal.
func (status AccountStatus) String() string {
	return string(status)
}

// Account is the ledger's view of a platform account.
type Account struct {
	ID             AccountID
	Email          string
	DisplayName    string
	Role           Role
	Status         AccountStatus
	BalanceALT     int64
	LastLoginUnix  int64
	CreatedUnixUTC int64
}

// Amount is a strictly positive quantity of ALT.
type Amount int64

// NewAmount validates an amount and ensures it is strictly positive.
func NewAmount(raw int64) (Amount, error) {
	if raw <= 0 {
		return 0, fmt.Errorf("%w: must be greater than zero", ErrInvalidAmount)
	}
	return Amount(raw), nil
}

// Int64 returns the raw value.
func (amount Amount) Int64() int64 {
	return int64(amount)
}

// TxType enumerates ledger transaction kinds.
type TxType string

const (
	TxRecharge   TxType = "recharge"
	TxSpend      TxType = "spend"
	TxEarn       TxType = "earn"
	TxWithdrawal TxType = "withdrawal"
	TxTip        TxType = "tip"
	TxReward     TxType = "reward"
	TxTransfer   TxType = "transfer"
)

// ParseTxType validates a raw transaction type string.
func ParseTxType(raw string) (TxType, error) {
	switch TxType(raw) {
	case TxRecharge, TxSpend, TxEarn, TxWithdrawal, TxTip, TxReward, TxTransfer:
		return TxType(raw), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidTxType, raw)
	}
}

// String returns the type literal.
func (txType TxType) String() string {
	return string(txType)
}

// MetadataJSON stores arbitrary transaction metadata.
type MetadataJSON struct {
	value string
}

// NewMetadataJSON validates metadata string (defaulting to "{}" for empty inputs).
func NewMetadataJSON(raw string) (MetadataJSON, error) {
	normalized := strings.TrimSpace(raw)
	if normalized == "" {
		normalized = "{}"
	}
	if !json.Valid([]byte(normalized)) {
		return MetadataJSON{}, fmt.Errorf("%w: must be valid json", ErrInvalidMetadataJSON)
	}
	return MetadataJSON{value: normalized}, nil
}

// MarshalMetadata encodes a map as MetadataJSON, falling back to "{}".
func MarshalMetadata(fields map[string]any) MetadataJSON {
	raw, err := json.Marshal(fields)
	if err != nil {
		return MetadataJSON{value: "{}"}
	}
	return MetadataJSON{value: string(raw)}
}

// String returns the normalized JSON blob.
func (metadata MetadataJSON) String() string {
	if metadata.value == "" {
		return "{}"
	}
	return metadata.value
}

// Transaction is a single immutable line in the ledger. AmountALT carries
// the sign of the movement: credits positive, debits negative.
type Transaction struct {
	TxID           string
	AccountID      AccountID
	Type           TxType
	AmountALT      int64
	CounterpartyID *AccountID
	SessionID      string
	Metadata       MetadataJSON
	CreatedUnixUTC int64
}

// NewTransaction validates a transaction before it is appended.
func NewTransaction(accountID AccountID, txType TxType, amountALT int64, counterparty *AccountID, sessionID string, metadata MetadataJSON, createdUnixUTC int64) (Transaction, error) {
	if accountID.IsZero() {
		return Transaction{}, fmt.Errorf("%w: transaction owner", ErrInvalidAccountID)
	}
	if _, err := ParseTxType(txType.String()); err != nil {
		return Transaction{}, err
	}
	if amountALT == 0 {
		return Transaction{}, fmt.Errorf("%w: zero movement", ErrInvalidAmount)
	}
	return Transaction{
		AccountID:      accountID,
		Type:           txType,
		AmountALT:      amountALT,
		CounterpartyID: counterparty,
		SessionID:      sessionID,
		Metadata:       metadata,
		CreatedUnixUTC: createdUnixUTC,
	}, nil
}

// RechargeStatus is the recharge token lifecycle.
type RechargeStatus string

const (
	RechargePending  RechargeStatus = "pending"
	RechargeApproved RechargeStatus = "approved"
	RechargeRejected RechargeStatus = "rejected"
)

// RechargeToken is a pending credit request awaiting admin review.
type RechargeToken struct {
	TokenID        string
	AccountID      AccountID
	Token          string
	AmountALT      int64
	USDCents       int64
	Status         RechargeStatus
	ReviewedBy     *AccountID
	DecidedUnixUTC int64
	CreatedUnixUTC int64
}

// PayoutMethod enumerates supported withdrawal rails.
type PayoutMethod string

const (
	PayoutBank   PayoutMethod = "bank"
	PayoutPaypal PayoutMethod = "paypal"
	PayoutCrypto PayoutMethod = "crypto"
)

// ParsePayoutMethod validates a raw payout method string.
func ParsePayoutMethod(raw string) (PayoutMethod, error) {
	switch PayoutMethod(raw) {
	case PayoutBank, PayoutPaypal, PayoutCrypto:
		return PayoutMethod(raw), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidPayoutMethod, raw)
	}
}

// String returns the method literal.
func (method PayoutMethod) String() string {
	return string(method)
}

// WithdrawalStatus is the withdrawal request lifecycle.
type WithdrawalStatus string

const (
	WithdrawalPending  WithdrawalStatus = "pending"
	WithdrawalApproved WithdrawalStatus = "approved"
	WithdrawalRejected WithdrawalStatus = "rejected"
)

// Withdrawal is a pending debit request. Funds are locked at request time.
type Withdrawal struct {
	WithdrawalID   string
	AccountID      AccountID
	AmountALT      int64
	Method         PayoutMethod
	Details        MetadataJSON
	Status         WithdrawalStatus
	ReviewedBy     *AccountID
	Reason         string
	DecidedUnixUTC int64
	CreatedUnixUTC int64
}

// Content is priced creator content referenced by PayForContent.
type Content struct {
	ContentID string
	CreatorID AccountID
	PriceALT  int64
	Title     string
}

// PaymentReceipt reports the pair of transactions a payment produced.
type PaymentReceipt struct {
	SpendTxID   string
	EarnTxID    string
	PaidALT     int64
	CreditedALT int64
}

// Store is the persistence contract used by Service.
type Store interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, txStore Store) error) error
	GetAccount(ctx context.Context, accountID AccountID) (Account, error)
	ListAdminIDs(ctx context.Context) ([]AccountID, error)
	CreditBalance(ctx context.Context, accountID AccountID, amountALT int64) error
	// DebitBalance decrements the balance only when it covers amountALT and
	// reports ErrInsufficientBalance otherwise. Single conditional update.
	DebitBalance(ctx context.Context, accountID AccountID, amountALT int64) error
	InsertTransaction(ctx context.Context, transaction Transaction) (string, error)
	ListTransactions(ctx context.Context, accountID AccountID, limit int) ([]Transaction, error)
	CreateRechargeToken(ctx context.Context, token RechargeToken) (RechargeToken, error)
	GetRechargeToken(ctx context.Context, tokenID string) (RechargeToken, error)
	// UpdateRechargeStatus transitions only from the expected status and
	// reports ErrInvalidState when zero rows match.
	UpdateRechargeStatus(ctx context.Context, tokenID string, from, to RechargeStatus, reviewedBy AccountID, decidedUnixUTC int64) error
	CreateWithdrawal(ctx context.Context, withdrawal Withdrawal) (Withdrawal, error)
	GetWithdrawal(ctx context.Context, withdrawalID string) (Withdrawal, error)
	UpdateWithdrawalStatus(ctx context.Context, withdrawalID string, from, to WithdrawalStatus, reviewedBy AccountID, reason string, decidedUnixUTC int64) error
	GetContent(ctx context.Context, contentID string) (Content, error)
	UpsertSubscription(ctx context.Context, fanID, creatorID AccountID, nowUnixUTC int64) error
}

// Notifier delivers fire-and-forget notification rows.
type Notifier interface {
	Notify(ctx context.Context, accountID string, title, body, kind string)
	NotifyMany(ctx context.Context, accountIDs []string, title, body, kind string)
}
