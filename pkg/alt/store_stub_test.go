package alt

import (
	"context"
	"fmt"
	"testing"
)

type stubStore struct {
	accounts      map[string]Account
	transactions  []Transaction
	tokens        map[string]RechargeToken
	withdrawals   map[string]Withdrawal
	contents      map[string]Content
	subscriptions map[string]int64
	lastListLimit int
	nextID        int
}

func newStubStore(test *testing.T) *stubStore {
	test.Helper()
	return &stubStore{
		accounts:      make(map[string]Account),
		tokens:        make(map[string]RechargeToken),
		withdrawals:   make(map[string]Withdrawal),
		contents:      make(map[string]Content),
		subscriptions: make(map[string]int64),
	}
}

func (store *stubStore) addAccount(test *testing.T, id string, role Role, balanceALT int64) {
	test.Helper()
	store.accounts[id] = Account{
		ID:         mustAccountID(test, id),
		Role:       role,
		Status:     AccountActive,
		BalanceALT: balanceALT,
	}
}

func (store *stubStore) balance(test *testing.T, id string) int64 {
	test.Helper()
	account, ok := store.accounts[id]
	if !ok {
		test.Fatalf("account %s not found", id)
	}
	return account.BalanceALT
}

func (store *stubStore) mintID(prefix string) string {
	store.nextID++
	return fmt.Sprintf("%s-%d", prefix, store.nextID)
}

func (store *stubStore) WithTx(ctx context.Context, fn func(ctx context.Context, txStore Store) error) error {
	return fn(ctx, store)
}

func (store *stubStore) GetAccount(ctx context.Context, accountID AccountID) (Account, error) {
	account, ok := store.accounts[accountID.String()]
	if !ok {
		return Account{}, ErrAccountNotFound
	}
	return account, nil
}

func (store *stubStore) ListAdminIDs(ctx context.Context) ([]AccountID, error) {
	var adminIDs []AccountID
	for _, account := range store.accounts {
		if account.Role == RoleAdmin {
			adminIDs = append(adminIDs, account.ID)
		}
	}
	return adminIDs, nil
}

func (store *stubStore) CreditBalance(ctx context.Context, accountID AccountID, amountALT int64) error {
	account, ok := store.accounts[accountID.String()]
	if !ok {
		return ErrAccountNotFound
	}
	account.BalanceALT += amountALT
	store.accounts[accountID.String()] = account
	return nil
}

func (store *stubStore) DebitBalance(ctx context.Context, accountID AccountID, amountALT int64) error {
	account, ok := store.accounts[accountID.String()]
	if !ok {
		return ErrAccountNotFound
	}
	if account.BalanceALT < amountALT {
		return ErrInsufficientBalance
	}
	account.BalanceALT -= amountALT
	store.accounts[accountID.String()] = account
	return nil
}

func (store *stubStore) InsertTransaction(ctx context.Context, transaction Transaction) (string, error) {
	transaction.TxID = store.mintID("tx")
	store.transactions = append(store.transactions, transaction)
	return transaction.TxID, nil
}

func (store *stubStore) ListTransactions(ctx context.Context, accountID AccountID, limit int) ([]Transaction, error) {
	store.lastListLimit = limit
	var owned []Transaction
	for _, transaction := range store.transactions {
		if transaction.AccountID == accountID {
			owned = append(owned, transaction)
		}
	}
	if len(owned) > limit {
		owned = owned[:limit]
	}
	return owned, nil
}

func (store *stubStore) CreateRechargeToken(ctx context.Context, token RechargeToken) (RechargeToken, error) {
	token.TokenID = store.mintID("token")
	store.tokens[token.TokenID] = token
	return token, nil
}

func (store *stubStore) GetRechargeToken(ctx context.Context, tokenID string) (RechargeToken, error) {
	token, ok := store.tokens[tokenID]
	if !ok {
		return RechargeToken{}, ErrTokenNotFound
	}
	return token, nil
}

func (store *stubStore) UpdateRechargeStatus(ctx context.Context, tokenID string, from, to RechargeStatus, reviewedBy AccountID, decidedUnixUTC int64) error {
	token, ok := store.tokens[tokenID]
	if !ok {
		return ErrTokenNotFound
	}
	if token.Status != from {
		return ErrInvalidState
	}
	token.Status = to
	token.ReviewedBy = &reviewedBy
	token.DecidedUnixUTC = decidedUnixUTC
	store.tokens[tokenID] = token
	return nil
}

func (store *stubStore) CreateWithdrawal(ctx context.Context, withdrawal Withdrawal) (Withdrawal, error) {
	withdrawal.WithdrawalID = store.mintID("wd")
	store.withdrawals[withdrawal.WithdrawalID] = withdrawal
	return withdrawal, nil
}

func (store *stubStore) GetWithdrawal(ctx context.Context, withdrawalID string) (Withdrawal, error) {
	withdrawal, ok := store.withdrawals[withdrawalID]
	if !ok {
		return Withdrawal{}, ErrWithdrawalNotFound
	}
	return withdrawal, nil
}

func (store *stubStore) UpdateWithdrawalStatus(ctx context.Context, withdrawalID string, from, to WithdrawalStatus, reviewedBy AccountID, reason string, decidedUnixUTC int64) error {
	withdrawal, ok := store.withdrawals[withdrawalID]
	if !ok {
		return ErrWithdrawalNotFound
	}
	if withdrawal.Status != from {
		return ErrInvalidState
	}
	withdrawal.Status = to
	withdrawal.ReviewedBy = &reviewedBy
	withdrawal.Reason = reason
	withdrawal.DecidedUnixUTC = decidedUnixUTC
	store.withdrawals[withdrawalID] = withdrawal
	return nil
}

func (store *stubStore) GetContent(ctx context.Context, contentID string) (Content, error) {
	content, ok := store.contents[contentID]
	if !ok {
		return Content{}, ErrContentNotFound
	}
	return content, nil
}

func (store *stubStore) UpsertSubscription(ctx context.Context, fanID, creatorID AccountID, nowUnixUTC int64) error {
	store.subscriptions[fanID.String()+":"+creatorID.String()] = nowUnixUTC
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

func mustNewService(test *testing.T, store Store, notifier Notifier, cfg Config) *Service {
	test.Helper()
	service, err := NewService(store, notifier, func() int64 { return 100 }, cfg)
	if err != nil {
		test.Fatalf("new service: %v", err)
	}
	return service
}

func mustAccountID(test *testing.T, raw string) AccountID {
	test.Helper()
	value, err := NewAccountID(raw)
	if err != nil {
		test.Fatalf("account id: %v", err)
	}
	return value
}

func mustAmount(test *testing.T, raw int64) Amount {
	test.Helper()
	value, err := NewAmount(raw)
	if err != nil {
		test.Fatalf("amount: %v", err)
	}
	return value
}

func mustMetadata(test *testing.T, raw string) MetadataJSON {
	test.Helper()
	value, err := NewMetadataJSON(raw)
	if err != nil {
		test.Fatalf("metadata: %v", err)
	}
	return value
}
