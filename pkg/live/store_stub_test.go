package live

import (
	"context"
	"fmt"
	"testing"

	"github.com/altlive/platform/pkg/alt"
)

type stubStore struct {
	sessions      map[string]Session
	viewers       []Viewer
	roles         map[string]alt.Role
	subscriptions map[string]bool
	strikes       []Strike
	fanIDs        []string
	subscriberIDs []string
	nextID        int
}

func newStubStore(test *testing.T) *stubStore {
	test.Helper()
	return &stubStore{
		sessions:      make(map[string]Session),
		roles:         make(map[string]alt.Role),
		subscriptions: make(map[string]bool),
	}
}

func (store *stubStore) addSession(test *testing.T, sessionID string, session Session) Session {
	test.Helper()
	session.SessionID = sessionID
	if session.StreamKey == "" {
		session.StreamKey = "stream-" + sessionID
	}
	if session.RoomID == "" {
		session.RoomID = "room-" + sessionID
	}
	store.sessions[sessionID] = session
	return session
}

func (store *stubStore) mustSession(test *testing.T, sessionID string) Session {
	test.Helper()
	session, ok := store.sessions[sessionID]
	if !ok {
		test.Fatalf("session %s not found", sessionID)
	}
	return session
}

func (store *stubStore) openViewer(sessionID string, accountID alt.AccountID) *Viewer {
	for index := range store.viewers {
		viewer := &store.viewers[index]
		if viewer.SessionID == sessionID && viewer.AccountID == accountID && viewer.LeftUnixUTC == 0 {
			return viewer
		}
	}
	return nil
}

func (store *stubStore) WithTx(ctx context.Context, fn func(ctx context.Context, txStore Store) error) error {
	return fn(ctx, store)
}

func (store *stubStore) CreateSession(ctx context.Context, session Session) (Session, error) {
	store.nextID++
	session.SessionID = fmt.Sprintf("session-%d", store.nextID)
	store.sessions[session.SessionID] = session
	return session, nil
}

func (store *stubStore) GetSession(ctx context.Context, sessionID string) (Session, error) {
	session, ok := store.sessions[sessionID]
	if !ok {
		return Session{}, ErrSessionNotFound
	}
	return session, nil
}

func (store *stubStore) MarkLive(ctx context.Context, sessionID string, startedUnixUTC int64) error {
	return store.transition(sessionID, []SessionStatus{StatusScheduled}, func(session *Session) {
		session.Status = StatusLive
		session.StartedUnixUTC = startedUnixUTC
	})
}

func (store *stubStore) MarkEnded(ctx context.Context, sessionID string, endedUnixUTC int64) error {
	return store.transition(sessionID, []SessionStatus{StatusLive}, func(session *Session) {
		session.Status = StatusEnded
		session.EndedUnixUTC = endedUnixUTC
	})
}

func (store *stubStore) MarkTerminated(ctx context.Context, sessionID string, adminID alt.AccountID, reason string, atUnixUTC int64) error {
	return store.transition(sessionID, []SessionStatus{StatusScheduled, StatusLive}, func(session *Session) {
		session.Status = StatusTerminated
		session.TerminatedBy = adminID.String()
		session.TerminationReason = reason
		session.EndedUnixUTC = atUnixUTC
	})
}

func (store *stubStore) transition(sessionID string, from []SessionStatus, apply func(*Session)) error {
	session, ok := store.sessions[sessionID]
	if !ok {
		return ErrSessionNotFound
	}
	allowed := false
	for _, status := range from {
		if session.Status == status {
			allowed = true
		}
	}
	if !allowed {
		return ErrInvalidState
	}
	apply(&session)
	store.sessions[sessionID] = session
	return nil
}

func (store *stubStore) SetTotalEarnings(ctx context.Context, sessionID string, totalALT int64) error {
	session, ok := store.sessions[sessionID]
	if !ok {
		return ErrSessionNotFound
	}
	session.TotalEarningsALT = totalALT
	store.sessions[sessionID] = session
	return nil
}

func (store *stubStore) ReserveSeat(ctx context.Context, sessionID string) error {
	session, ok := store.sessions[sessionID]
	if !ok {
		return ErrSessionNotFound
	}
	if session.CurrentViewers >= session.MaxViewers {
		return ErrSessionFull
	}
	session.CurrentViewers++
	store.sessions[sessionID] = session
	return nil
}

func (store *stubStore) ReleaseSeat(ctx context.Context, sessionID string) error {
	session, ok := store.sessions[sessionID]
	if !ok {
		return ErrSessionNotFound
	}
	if session.CurrentViewers > 0 {
		session.CurrentViewers--
	}
	store.sessions[sessionID] = session
	return nil
}

func (store *stubStore) AddSeat(ctx context.Context, sessionID string) error {
	session, ok := store.sessions[sessionID]
	if !ok {
		return ErrSessionNotFound
	}
	session.CurrentViewers++
	store.sessions[sessionID] = session
	return nil
}

func (store *stubStore) InsertViewer(ctx context.Context, viewer Viewer) (Viewer, error) {
	if store.openViewer(viewer.SessionID, viewer.AccountID) != nil {
		return Viewer{}, ErrAlreadyJoined
	}
	store.nextID++
	viewer.ViewerID = fmt.Sprintf("viewer-%d", store.nextID)
	store.viewers = append(store.viewers, viewer)
	return viewer, nil
}

func (store *stubStore) HasOpenViewer(ctx context.Context, sessionID string, accountID alt.AccountID) (bool, error) {
	return store.openViewer(sessionID, accountID) != nil, nil
}

func (store *stubStore) MarkViewerLeft(ctx context.Context, sessionID string, accountID alt.AccountID, leftUnixUTC int64) error {
	viewer := store.openViewer(sessionID, accountID)
	if viewer == nil {
		return ErrViewerNotFound
	}
	viewer.LeftUnixUTC = leftUnixUTC
	return nil
}

func (store *stubStore) ListOpenViewerIDs(ctx context.Context, sessionID string) ([]string, error) {
	var accountIDs []string
	for _, viewer := range store.viewers {
		if viewer.SessionID == sessionID && viewer.LeftUnixUTC == 0 {
			accountIDs = append(accountIDs, viewer.AccountID.String())
		}
	}
	return accountIDs, nil
}

func (store *stubStore) SumViewerPayments(ctx context.Context, sessionID string) (int64, error) {
	var total int64
	for _, viewer := range store.viewers {
		if viewer.SessionID == sessionID {
			total += viewer.AltPaid
		}
	}
	return total, nil
}

func (store *stubStore) GetAccountRole(ctx context.Context, accountID alt.AccountID) (alt.Role, error) {
	role, ok := store.roles[accountID.String()]
	if !ok {
		return "", alt.ErrAccountNotFound
	}
	return role, nil
}

func (store *stubStore) HasActiveSubscription(ctx context.Context, fanID, creatorID alt.AccountID) (bool, error) {
	return store.subscriptions[fanID.String()+":"+creatorID.String()], nil
}

func (store *stubStore) ListActiveSubscriberIDs(ctx context.Context, creatorID alt.AccountID) ([]string, error) {
	return append([]string(nil), store.subscriberIDs...), nil
}

func (store *stubStore) ListActiveFanIDs(ctx context.Context) ([]string, error) {
	return append([]string(nil), store.fanIDs...), nil
}

func (store *stubStore) InsertStrike(ctx context.Context, strike Strike) error {
	store.strikes = append(store.strikes, strike)
	return nil
}

type paymentCall struct {
	payerID   string
	creatorID string
	sessionID string
	amountALT int64
}

type stubLedger struct {
	payments  []paymentCall
	refunds   []paymentCall
	payErr    error
	refundErr error
}

func (ledger *stubLedger) PaySessionEntry(ctx context.Context, payerID, creatorID alt.AccountID, sessionID string, amount alt.Amount) (alt.PaymentReceipt, error) {
	if ledger.payErr != nil {
		return alt.PaymentReceipt{}, ledger.payErr
	}
	ledger.payments = append(ledger.payments, paymentCall{
		payerID:   payerID.String(),
		creatorID: creatorID.String(),
		sessionID: sessionID,
		amountALT: amount.Int64(),
	})
	return alt.PaymentReceipt{PaidALT: amount.Int64(), CreditedALT: amount.Int64()}, nil
}

func (ledger *stubLedger) RefundSessionEntry(ctx context.Context, payerID, creatorID alt.AccountID, sessionID string, amount alt.Amount) error {
	if ledger.refundErr != nil {
		return ledger.refundErr
	}
	ledger.refunds = append(ledger.refunds, paymentCall{
		payerID:   payerID.String(),
		creatorID: creatorID.String(),
		sessionID: sessionID,
		amountALT: amount.Int64(),
	})
	return nil
}

type delivery struct {
	accountID string
	title     string
	body      string
	kind      string
}

type recordingNotifier struct {
	deliveries []delivery
}

func (notifier *recordingNotifier) Notify(ctx context.Context, accountID string, title, body, kind string) {
	notifier.deliveries = append(notifier.deliveries, delivery{accountID: accountID, title: title, body: body, kind: kind})
}

func (notifier *recordingNotifier) NotifyMany(ctx context.Context, accountIDs []string, title, body, kind string) {
	for _, accountID := range accountIDs {
		notifier.Notify(ctx, accountID, title, body, kind)
	}
}

func mustNewService(test *testing.T, store Store, ledger Ledger, notifier Notifier) *Service {
	test.Helper()
	service, err := NewService(store, ledger, notifier, func() int64 { return 100 })
	if err != nil {
		test.Fatalf("new service: %v", err)
	}
	return service
}

func mustAccountID(test *testing.T, raw string) alt.AccountID {
	test.Helper()
	value, err := alt.NewAccountID(raw)
	if err != nil {
		test.Fatalf("account id: %v", err)
	}
	return value
}
