package live

import (
	"context"
	"fmt"

	"github.com/altlive/platform/pkg/alt"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service owns the live-session lifecycle and viewer admission control.
// Session status and viewer counts are mutated only here.
type Service struct {
	store    Store
	ledger   Ledger
	notifier Notifier
	nowFn    func() int64
	logger   *zap.Logger
}

// ServiceOption configures a Service instance.
type ServiceOption func(*Service)

// WithLogger wires a zap logger for moderation and fan-out events.
func WithLogger(logger *zap.Logger) ServiceOption {
	return func(service *Service) {
		if logger != nil {
			service.logger = logger
		}
	}
}

// NewService wires a Service.
func NewService(store Store, ledger Ledger, notifier Notifier, now func() int64, options ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: store dependency is nil", ErrInvalidServiceConfig)
	}
	if ledger == nil {
		return nil, fmt.Errorf("%w: ledger dependency is nil", ErrInvalidServiceConfig)
	}
	if now == nil {
		return nil, fmt.Errorf("%w: clock dependency is nil", ErrInvalidServiceConfig)
	}
	service := &Service{store: store, ledger: ledger, notifier: notifier, nowFn: now, logger: zap.NewNop()}
	if notifier == nil {
		service.notifier = noopNotifier{}
	}
	for _, option := range options {
		if option != nil {
			option(service)
		}
	}
	return service, nil
}

// CreateSession inserts a scheduled session with a fresh stream key and
// room id, then tells the creator's active subscribers.
func (service *Service) CreateSession(ctx context.Context, creatorID alt.AccountID, config SessionConfig) (Session, error) {
	if err := config.Validate(); err != nil {
		return Session{}, err
	}
	if _, err := service.store.GetAccountRole(ctx, creatorID); err != nil {
		return Session{}, err
	}
	session, err := service.store.CreateSession(ctx, Session{
		CreatorID:            creatorID,
		Title:                config.Title,
		Description:          config.Description,
		PriceALT:             config.PriceALT,
		MaxViewers:           config.MaxViewers,
		Status:               StatusScheduled,
		SubscriptionRequired: config.SubscriptionRequired,
		IsPrivate:            config.IsPrivate,
		StreamKey:            uuid.NewString(),
		RoomID:               uuid.NewString(),
		CreatedUnixUTC:       service.nowFn(),
	})
	if err != nil {
		return Session{}, err
	}
	subscriberIDs, err := service.store.ListActiveSubscriberIDs(ctx, creatorID)
	if err != nil {
		service.logger.Warn("subscriber lookup failed", zap.String("session_id", session.SessionID), zap.Error(err))
		return session, nil
	}
	service.notifier.NotifyMany(ctx, subscriberIDs, "Starting soon",
		fmt.Sprintf("%s scheduled a new live session", session.Title), kindLive)
	return session, nil
}

// StartSession transitions scheduled->live and blasts a "live now" notice
// to every active fan account. The platform-wide blast is deliberate; the
// subscriber-only notice went out at creation time.
func (service *Service) StartSession(ctx context.Context, sessionID string) (Session, error) {
	if err := service.store.MarkLive(ctx, sessionID, service.nowFn()); err != nil {
		return Session{}, err
	}
	session, err := service.store.GetSession(ctx, sessionID)
	if err != nil {
		return Session{}, err
	}
	fanIDs, err := service.store.ListActiveFanIDs(ctx)
	if err != nil {
		service.logger.Warn("fan lookup failed", zap.String("session_id", sessionID), zap.Error(err))
		return session, nil
	}
	service.notifier.NotifyMany(ctx, fanIDs, "Live now", fmt.Sprintf("%s is live", session.Title), kindLive)
	return session, nil
}

// EndSession transitions live->ended and aggregates viewer payments into
// the session's total earnings.
func (service *Service) EndSession(ctx context.Context, sessionID string) (Session, error) {
	operationError := service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
		if err := transactionStore.MarkEnded(ctx, sessionID, service.nowFn()); err != nil {
			return err
		}
		totalALT, err := transactionStore.SumViewerPayments(ctx, sessionID)
		if err != nil {
			return err
		}
		return transactionStore.SetTotalEarnings(ctx, sessionID, totalALT)
	})
	if operationError != nil {
		return Session{}, operationError
	}
	return service.store.GetSession(ctx, sessionID)
}

// Join runs the admission algorithm: load, eligibility, capacity, payment,
// viewer insert. The seat is reserved with a conditional increment before
// payment and released again if a later step fails.
func (service *Service) Join(ctx context.Context, sessionID string, viewerID alt.AccountID) (JoinGrant, error) {
	session, err := service.store.GetSession(ctx, sessionID)
	if err != nil {
		return JoinGrant{}, err
	}
	if session.Status != StatusLive {
		return JoinGrant{}, fmt.Errorf("%w: session is %s", ErrInvalidState, session.Status)
	}
	role, err := service.store.GetAccountRole(ctx, viewerID)
	if err != nil {
		return JoinGrant{}, err
	}
	isAdmin := role == alt.RoleAdmin
	if !isAdmin {
		if session.SubscriptionRequired {
			subscribed, err := service.store.HasActiveSubscription(ctx, viewerID, session.CreatorID)
			if err != nil {
				return JoinGrant{}, err
			}
			if !subscribed {
				return JoinGrant{}, ErrSubscriptionRequired
			}
		}
		open, err := service.store.HasOpenViewer(ctx, sessionID, viewerID)
		if err != nil {
			return JoinGrant{}, err
		}
		if open {
			return JoinGrant{}, ErrAlreadyJoined
		}
	}
	if err := service.store.ReserveSeat(ctx, sessionID); err != nil {
		return JoinGrant{}, err
	}
	var paidALT int64
	if session.PriceALT > 0 {
		price, err := alt.NewAmount(session.PriceALT)
		if err != nil {
			service.releaseSeat(ctx, sessionID)
			return JoinGrant{}, err
		}
		if _, err := service.ledger.PaySessionEntry(ctx, viewerID, session.CreatorID, sessionID, price); err != nil {
			service.releaseSeat(ctx, sessionID)
			return JoinGrant{}, err
		}
		paidALT = session.PriceALT
	}
	_, err = service.store.InsertViewer(ctx, Viewer{
		SessionID:     sessionID,
		AccountID:     viewerID,
		AltPaid:       paidALT,
		IsAdmin:       isAdmin,
		JoinedUnixUTC: service.nowFn(),
	})
	if err != nil {
		service.releaseSeat(ctx, sessionID)
		if paidALT > 0 {
			service.refundEntry(ctx, session, viewerID, paidALT)
		}
		return JoinGrant{}, err
	}
	return JoinGrant{StreamKey: session.StreamKey, RoomID: session.RoomID, PaidALT: paidALT}, nil
}

// Leave stamps the viewer's open row and frees the seat.
func (service *Service) Leave(ctx context.Context, sessionID string, viewerID alt.AccountID) error {
	if err := service.store.MarkViewerLeft(ctx, sessionID, viewerID, service.nowFn()); err != nil {
		return err
	}
	return service.store.ReleaseSeat(ctx, sessionID)
}

// Freeze is the admin moderation path: terminate the session, strike the
// creator, and tell everyone still watching why.
func (service *Service) Freeze(ctx context.Context, sessionID string, adminID alt.AccountID, reason string) error {
	if err := service.requireAdmin(ctx, adminID); err != nil {
		return err
	}
	var openViewerIDs []string
	operationError := service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
		session, err := transactionStore.GetSession(ctx, sessionID)
		if err != nil {
			return err
		}
		nowUnixUTC := service.nowFn()
		if err := transactionStore.MarkTerminated(ctx, sessionID, adminID, reason, nowUnixUTC); err != nil {
			return err
		}
		if err := transactionStore.InsertStrike(ctx, Strike{
			AccountID:      session.CreatorID,
			SessionID:      sessionID,
			Reason:         reason,
			IssuedBy:       adminID,
			CreatedUnixUTC: nowUnixUTC,
		}); err != nil {
			return err
		}
		openViewerIDs, err = transactionStore.ListOpenViewerIDs(ctx, sessionID)
		return err
	})
	if operationError != nil {
		return operationError
	}
	service.logger.Info("session terminated",
		zap.String("session_id", sessionID),
		zap.String("admin_id", adminID.String()),
		zap.String("reason", reason),
		zap.Int("open_viewers", len(openViewerIDs)))
	service.notifier.NotifyMany(ctx, openViewerIDs, "Session terminated", reason, kindModeration)
	return nil
}

// AdminJoin admits an admin for observability: no eligibility, payment, or
// capacity gate, and the viewer row is flagged.
func (service *Service) AdminJoin(ctx context.Context, sessionID string, adminID alt.AccountID) (JoinGrant, error) {
	if err := service.requireAdmin(ctx, adminID); err != nil {
		return JoinGrant{}, err
	}
	session, err := service.store.GetSession(ctx, sessionID)
	if err != nil {
		return JoinGrant{}, err
	}
	if session.Status.Terminal() {
		return JoinGrant{}, fmt.Errorf("%w: session is %s", ErrInvalidState, session.Status)
	}
	if err := service.store.AddSeat(ctx, sessionID); err != nil {
		return JoinGrant{}, err
	}
	_, err = service.store.InsertViewer(ctx, Viewer{
		SessionID:     sessionID,
		AccountID:     adminID,
		AltPaid:       0,
		IsAdmin:       true,
		JoinedUnixUTC: service.nowFn(),
	})
	if err != nil {
		service.releaseSeat(ctx, sessionID)
		return JoinGrant{}, err
	}
	return JoinGrant{StreamKey: session.StreamKey, RoomID: session.RoomID}, nil
}

func (service *Service) requireAdmin(ctx context.Context, adminID alt.AccountID) error {
	role, err := service.store.GetAccountRole(ctx, adminID)
	if err != nil {
		return err
	}
	if role != alt.RoleAdmin {
		return alt.ErrUnauthorized
	}
	return nil
}

func (service *Service) releaseSeat(ctx context.Context, sessionID string) {
	if err := service.store.ReleaseSeat(ctx, sessionID); err != nil {
		service.logger.Error("seat release failed", zap.String("session_id", sessionID), zap.Error(err))
	}
}

func (service *Service) refundEntry(ctx context.Context, session Session, viewerID alt.AccountID, paidALT int64) {
	amount, err := alt.NewAmount(paidALT)
	if err != nil {
		return
	}
	if err := service.ledger.RefundSessionEntry(ctx, viewerID, session.CreatorID, session.SessionID, amount); err != nil {
		service.logger.Error("entry refund failed",
			zap.String("session_id", session.SessionID),
			zap.String("viewer_id", viewerID.String()),
			zap.Error(err))
	}
}

type noopNotifier struct{}

func (noopNotifier) Notify(context.Context, string, string, string, string)       {}
func (noopNotifier) NotifyMany(context.Context, []string, string, string, string) {}

const (
	kindLive       = "live"
	kindModeration = "moderation"
)
