// Package notify writes per-account notification rows and broadcasts them
// on the realtime channel. Delivery is fire-and-forget: rows are the source
// of truth and a failure for one target never blocks the others.
package notify

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"
)

// SubjectCreated is the broadcast subject for new notifications.
const SubjectCreated = "notifications.created"

// Notification is one per-account message row.
type Notification struct {
	AccountID      string `json:"account_id"`
	Title          string `json:"title"`
	Body           string `json:"body"`
	Kind           string `json:"kind"`
	CreatedUnixUTC int64  `json:"created_unix_utc"`
}

// Store persists notification rows.
type Store interface {
	InsertNotification(ctx context.Context, notification Notification) error
}

// Publisher pushes events onto the realtime channel. *nats.Conn satisfies it.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// Service is the shared fan-out helper used by the ledger and session
// services.
type Service struct {
	store     Store
	publisher Publisher
	logger    *zap.Logger
	nowFn     func() int64
}

// NewService wires a Service. publisher may be nil to disable broadcast.
func NewService(store Store, publisher Publisher, logger *zap.Logger, now func() int64) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, publisher: publisher, logger: logger, nowFn: now}
}

// Notify inserts a single notification row and broadcasts it. Failures are
// logged, never propagated.
func (service *Service) Notify(ctx context.Context, accountID string, title, body, kind string) {
	service.deliver(ctx, Notification{
		AccountID:      accountID,
		Title:          title,
		Body:           body,
		Kind:           kind,
		CreatedUnixUTC: service.nowFn(),
	})
}

// NotifyMany fans out sequentially. Each target gets exactly one row; a
// failure for one target must not prevent delivery to its siblings.
func (service *Service) NotifyMany(ctx context.Context, accountIDs []string, title, body, kind string) {
	createdUnixUTC := service.nowFn()
	for _, accountID := range accountIDs {
		service.deliver(ctx, Notification{
			AccountID:      accountID,
			Title:          title,
			Body:           body,
			Kind:           kind,
			CreatedUnixUTC: createdUnixUTC,
		})
	}
}

func (service *Service) deliver(ctx context.Context, notification Notification) {
	if notification.AccountID == "" {
		return
	}
	if err := service.store.InsertNotification(ctx, notification); err != nil {
		service.logger.Warn("notification insert failed",
			zap.String("account_id", notification.AccountID),
			zap.String("kind", notification.Kind),
			zap.Error(err))
		return
	}
	service.broadcast(notification)
}

func (service *Service) broadcast(notification Notification) {
	if service.publisher == nil {
		return
	}
	payload, err := json.Marshal(notification)
	if err != nil {
		service.logger.Warn("notification encode failed", zap.Error(err))
		return
	}
	if err := service.publisher.Publish(SubjectCreated, payload); err != nil {
		service.logger.Warn("notification broadcast failed",
			zap.String("account_id", notification.AccountID),
			zap.Error(err))
	}
}
