package live

import (
	"context"
	"fmt"
	"strings"

	"github.com/altlive/platform/pkg/alt"
)

// SessionStatus is the broadcast lifecycle state.
type SessionStatus string

const (
	StatusScheduled  SessionStatus = "scheduled"
	StatusLive       SessionStatus = "live"
	StatusEnded      SessionStatus = "ended"
	StatusTerminated SessionStatus = "terminated"
)

// ParseSessionStatus validates a raw session status string.
func ParseSessionStatus(raw string) (SessionStatus, error) {
	switch SessionStatus(raw) {
	case StatusScheduled, StatusLive, StatusEnded, StatusTerminated:
		return SessionStatus(raw), nil
	default:
		return "", fmt.Errorf("%w: unknown status %q", ErrInvalidState, raw)
	}
}

// String returns the status literal.
func (status SessionStatus) String() string {
	return string(status)
}

// Terminal reports whether no further transitions are allowed.
func (status SessionStatus) Terminal() bool {
	return status == StatusEnded || status == StatusTerminated
}

// SessionConfig is the creator-supplied configuration for a new session.
type SessionConfig struct {
	Title                string
	Description          string
	PriceALT             int64
	MaxViewers           int
	SubscriptionRequired bool
	IsPrivate            bool
}

// Validate checks the creator-supplied fields.
func (config SessionConfig) Validate() error {
	if strings.TrimSpace(config.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidSessionConfig)
	}
	if config.PriceALT < 0 {
		return fmt.Errorf("%w: price must not be negative", ErrInvalidSessionConfig)
	}
	if config.MaxViewers <= 0 {
		return fmt.Errorf("%w: max viewers must be positive", ErrInvalidSessionConfig)
	}
	return nil
}

// Session is one creator broadcast with its own lifecycle, price, and
// viewer set.
type Session struct {
	SessionID            string
	CreatorID            alt.AccountID
	Title                string
	Description          string
	PriceALT             int64
	MaxViewers           int
	CurrentViewers       int
	Status               SessionStatus
	SubscriptionRequired bool
	IsPrivate            bool
	StreamKey            string
	RoomID               string
	TotalEarningsALT     int64
	StartedUnixUTC       int64
	EndedUnixUTC         int64
	TerminatedBy         string
	TerminationReason    string
	CreatedUnixUTC       int64
}

// Viewer is a join record. A zero LeftUnixUTC denotes currently watching.
type Viewer struct {
	ViewerID      string
	SessionID     string
	AccountID     alt.AccountID
	AltPaid       int64
	IsAdmin       bool
	JoinedUnixUTC int64
	LeftUnixUTC   int64
}

// JoinGrant carries the connection parameters returned on admission.
type JoinGrant struct {
	StreamKey string
	RoomID    string
	PaidALT   int64
}

// Strike is a disciplinary record attached to a creator account.
type Strike struct {
	StrikeID       string
	AccountID      alt.AccountID
	SessionID      string
	Reason         string
	IssuedBy       alt.AccountID
	CreatedUnixUTC int64
}

// Store is the persistence contract used by Service.
type Store interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, txStore Store) error) error
	CreateSession(ctx context.Context, session Session) (Session, error)
	GetSession(ctx context.Context, sessionID string) (Session, error)
	// MarkLive transitions scheduled->live; ErrInvalidState on zero rows.
	MarkLive(ctx context.Context, sessionID string, startedUnixUTC int64) error
	// MarkEnded transitions live->ended; ErrInvalidState on zero rows.
	MarkEnded(ctx context.Context, sessionID string, endedUnixUTC int64) error
	// MarkTerminated transitions scheduled|live->terminated.
	MarkTerminated(ctx context.Context, sessionID string, adminID alt.AccountID, reason string, atUnixUTC int64) error
	SetTotalEarnings(ctx context.Context, sessionID string, totalALT int64) error
	// ReserveSeat increments the viewer count only below capacity and
	// reports ErrSessionFull otherwise. Single conditional update.
	ReserveSeat(ctx context.Context, sessionID string) error
	// ReleaseSeat decrements the viewer count, clamped at zero.
	ReleaseSeat(ctx context.Context, sessionID string) error
	// AddSeat increments the viewer count unconditionally (admin override).
	AddSeat(ctx context.Context, sessionID string) error
	// InsertViewer reports ErrAlreadyJoined when an open row exists.
	InsertViewer(ctx context.Context, viewer Viewer) (Viewer, error)
	HasOpenViewer(ctx context.Context, sessionID string, accountID alt.AccountID) (bool, error)
	MarkViewerLeft(ctx context.Context, sessionID string, accountID alt.AccountID, leftUnixUTC int64) error
	ListOpenViewerIDs(ctx context.Context, sessionID string) ([]string, error)
	SumViewerPayments(ctx context.Context, sessionID string) (int64, error)
	GetAccountRole(ctx context.Context, accountID alt.AccountID) (alt.Role, error)
	HasActiveSubscription(ctx context.Context, fanID, creatorID alt.AccountID) (bool, error)
	ListActiveSubscriberIDs(ctx context.Context, creatorID alt.AccountID) ([]string, error)
	ListActiveFanIDs(ctx context.Context) ([]string, error)
	InsertStrike(ctx context.Context, strike Strike) error
}

// Ledger is the slice of the ALT ledger the admission flow needs.
type Ledger interface {
	PaySessionEntry(ctx context.Context, payerID, creatorID alt.AccountID, sessionID string, amount alt.Amount) (alt.PaymentReceipt, error)
	RefundSessionEntry(ctx context.Context, payerID, creatorID alt.AccountID, sessionID string, amount alt.Amount) error
}

// Notifier delivers fire-and-forget notification rows.
type Notifier interface {
	Notify(ctx context.Context, accountID string, title, body, kind string)
	NotifyMany(ctx context.Context, accountIDs []string, title, body, kind string)
}
