package alt

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestRequestRechargeCreatesPendingToken(test *testing.T) {
	test.Parallel()
	store := newStubStore(test)
	store.addAccount(test, "fan-1", RoleFan, 0)
	store.addAccount(test, "admin-1", RoleAdmin, 0)
	notifier := &recordingNotifier{}
	service := mustNewService(test, store, notifier, Config{RevenueShareBps: RevenueShareScale})

	token, err := service.RequestRecharge(context.Background(), mustAccountID(test, "fan-1"), mustAmount(test, 500), 499)
	if err != nil {
		test.Fatalf("request recharge: %v", err)
	}
	if token.Status != RechargePending {
		test.Fatalf("expected pending token, got %s", token.Status)
	}
	if got := store.balance(test, "fan-1"); got != 0 {
		test.Fatalf("balance must stay untouched until approval, got %d", got)
	}
	if len(notifier.deliveries) != 1 || notifier.deliveries[0].accountID != "admin-1" {
		test.Fatalf("expected one admin alert, got %+v", notifier.deliveries)
	}
}

func TestApproveRechargeCreditsBalanceAndMintsTransaction(test *testing.T) {
	test.Parallel()
	store := newStubStore(test)
	store.addAccount(test, "fan-1", RoleFan, 0)
	store.addAccount(test, "admin-1", RoleAdmin, 0)
	notifier := &recordingNotifier{}
	service := mustNewService(test, store, notifier, Config{RevenueShareBps: RevenueShareScale})
	fanID := mustAccountID(test, "fan-1")
	adminID := mustAccountID(test, "admin-1")

	token, err := service.RequestRecharge(context.Background(), fanID, mustAmount(test, 500), 499)
	if err != nil {
		test.Fatalf("request recharge: %v", err)
	}
	if err := service.ApproveRecharge(context.Background(), token.TokenID, adminID); err != nil {
		test.Fatalf("approve recharge: %v", err)
	}

	if got := store.balance(test, "fan-1"); got != 500 {
		test.Fatalf("expected balance 500 after approval, got %d", got)
	}
	if len(store.transactions) != 1 {
		test.Fatalf("expected one minted transaction, got %d", len(store.transactions))
	}
	mint := store.transactions[0]
	if mint.Type != TxRecharge || mint.AmountALT != 500 {
		test.Fatalf("unexpected mint transaction: %+v", mint)
	}
	if !strings.Contains(mint.Metadata.String(), token.TokenID) {
		test.Fatalf("mint metadata must reference the token, got %s", mint.Metadata.String())
	}
	last := notifier.deliveries[len(notifier.deliveries)-1]
	if last.accountID != "fan-1" {
		test.Fatalf("expected owner notification, got %+v", last)
	}
}

func TestApproveRechargeRequiresAdmin(test *testing.T) {
	test.Parallel()
	store := newStubStore(test)
	store.addAccount(test, "fan-1", RoleFan, 0)
	store.addAccount(test, "fan-2", RoleFan, 0)
	service := mustNewService(test, store, nil, Config{RevenueShareBps: RevenueShareScale})

	token, err := service.RequestRecharge(context.Background(), mustAccountID(test, "fan-1"), mustAmount(test, 100), 99)
	if err != nil {
		test.Fatalf("request recharge: %v", err)
	}
	err = service.ApproveRecharge(context.Background(), token.TokenID, mustAccountID(test, "fan-2"))
	if !errors.Is(err, ErrUnauthorized) {
		test.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if got := store.balance(test, "fan-1"); got != 0 {
		test.Fatalf("balance must stay untouched, got %d", got)
	}
}

func TestApproveRechargeTwiceIsInvalidState(test *testing.T) {
	test.Parallel()
	store := newStubStore(test)
	store.addAccount(test, "fan-1", RoleFan, 0)
	store.addAccount(test, "admin-1", RoleAdmin, 0)
	service := mustNewService(test, store, nil, Config{RevenueShareBps: RevenueShareScale})
	adminID := mustAccountID(test, "admin-1")

	token, err := service.RequestRecharge(context.Background(), mustAccountID(test, "fan-1"), mustAmount(test, 100), 99)
	if err != nil {
		test.Fatalf("request recharge: %v", err)
	}
	if err := service.ApproveRecharge(context.Background(), token.TokenID, adminID); err != nil {
		test.Fatalf("first approval: %v", err)
	}
	err = service.ApproveRecharge(context.Background(), token.TokenID, adminID)
	if !errors.Is(err, ErrInvalidState) {
		test.Fatalf("expected ErrInvalidState on double approval, got %v", err)
	}
	if got := store.balance(test, "fan-1"); got != 100 {
		test.Fatalf("double approval must not double credit, got %d", got)
	}
}

func TestPayForContentTransfersFullShare(test *testing.T) {
	test.Parallel()
	store := newStubStore(test)
	store.addAccount(test, "fan-1", RoleFan, 300)
	store.addAccount(test, "creator-1", RoleCreator, 0)
	store.contents["content-1"] = Content{ContentID: "content-1", CreatorID: mustAccountID(test, "creator-1"), PriceALT: 120}
	notifier := &recordingNotifier{}
	service := mustNewService(test, store, notifier, Config{RevenueShareBps: RevenueShareScale})

	receipt, err := service.PayForContent(context.Background(), mustAccountID(test, "fan-1"), "content-1")
	if err != nil {
		test.Fatalf("pay for content: %v", err)
	}
	if receipt.PaidALT != 120 || receipt.CreditedALT != 120 {
		test.Fatalf("unexpected receipt: %+v", receipt)
	}
	if got := store.balance(test, "fan-1"); got != 180 {
		test.Fatalf("expected payer balance 180, got %d", got)
	}
	if got := store.balance(test, "creator-1"); got != 120 {
		test.Fatalf("expected creator balance 120, got %d", got)
	}
	if len(store.transactions) != 2 {
		test.Fatalf("expected spend and earn transactions, got %d", len(store.transactions))
	}
	spend, earn := store.transactions[0], store.transactions[1]
	if spend.Type != TxSpend || spend.AmountALT != -120 {
		test.Fatalf("unexpected spend transaction: %+v", spend)
	}
	if earn.Type != TxEarn || earn.AmountALT != 120 {
		test.Fatalf("unexpected earn transaction: %+v", earn)
	}
	if !strings.Contains(earn.Metadata.String(), receipt.SpendTxID) {
		test.Fatalf("earn metadata must reference spend tx id, got %s", earn.Metadata.String())
	}
}

func TestPayForContentInsufficientBalance(test *testing.T) {
	test.Parallel()
	store := newStubStore(test)
	store.addAccount(test, "fan-1", RoleFan, 50)
	store.addAccount(test, "creator-1", RoleCreator, 0)
	store.contents["content-1"] = Content{ContentID: "content-1", CreatorID: mustAccountID(test, "creator-1"), PriceALT: 120}
	service := mustNewService(test, store, nil, Config{RevenueShareBps: RevenueShareScale})

	_, err := service.PayForContent(context.Background(), mustAccountID(test, "fan-1"), "content-1")
	if !errors.Is(err, ErrInsufficientBalance) {
		test.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	if len(store.transactions) != 0 {
		test.Fatalf("failed payment must not write transactions, got %d", len(store.transactions))
	}
	if got := store.balance(test, "fan-1"); got != 50 {
		test.Fatalf("failed payment must not move funds, got %d", got)
	}
}

func TestRevenueShareSplitsPayment(test *testing.T) {
	test.Parallel()
	store := newStubStore(test)
	store.addAccount(test, "fan-1", RoleFan, 1000)
	store.addAccount(test, "creator-1", RoleCreator, 0)
	store.contents["content-1"] = Content{ContentID: "content-1", CreatorID: mustAccountID(test, "creator-1"), PriceALT: 1000}
	service := mustNewService(test, store, nil, Config{RevenueShareBps: 8000})

	receipt, err := service.PayForContent(context.Background(), mustAccountID(test, "fan-1"), "content-1")
	if err != nil {
		test.Fatalf("pay for content: %v", err)
	}
	if receipt.PaidALT != 1000 || receipt.CreditedALT != 800 {
		test.Fatalf("expected 80%% share, got %+v", receipt)
	}
	if got := store.balance(test, "creator-1"); got != 800 {
		test.Fatalf("expected creator balance 800, got %d", got)
	}
	earn := store.transactions[1]
	if !strings.Contains(earn.Metadata.String(), `"platform_fee_alt":200`) {
		test.Fatalf("earn metadata must record the fee, got %s", earn.Metadata.String())
	}
}

func TestRequestWithdrawalLocksFunds(test *testing.T) {
	test.Parallel()
	store := newStubStore(test)
	store.addAccount(test, "creator-1", RoleCreator, 5000)
	store.addAccount(test, "admin-1", RoleAdmin, 0)
	notifier := &recordingNotifier{}
	service := mustNewService(test, store, notifier, Config{MinWithdrawalALT: 1000, RevenueShareBps: RevenueShareScale})

	withdrawal, err := service.RequestWithdrawal(context.Background(), mustAccountID(test, "creator-1"),
		mustAmount(test, 2000), PayoutBank, mustMetadata(test, `{"iban":"DE00"}`))
	if err != nil {
		test.Fatalf("request withdrawal: %v", err)
	}
	if withdrawal.Status != WithdrawalPending {
		test.Fatalf("expected pending withdrawal, got %s", withdrawal.Status)
	}
	if got := store.balance(test, "creator-1"); got != 3000 {
		test.Fatalf("funds must be locked at request time, got balance %d", got)
	}
	if len(store.transactions) != 1 {
		test.Fatalf("expected one lock transaction, got %d", len(store.transactions))
	}
	lock := store.transactions[0]
	if lock.Type != TxWithdrawal || lock.AmountALT != -2000 {
		test.Fatalf("unexpected lock transaction: %+v", lock)
	}
	if len(notifier.deliveries) != 1 || notifier.deliveries[0].accountID != "admin-1" {
		test.Fatalf("expected one admin alert, got %+v", notifier.deliveries)
	}
}

func TestRequestWithdrawalBelowMinimum(test *testing.T) {
	test.Parallel()
	store := newStubStore(test)
	store.addAccount(test, "creator-1", RoleCreator, 5000)
	service := mustNewService(test, store, nil, Config{MinWithdrawalALT: 1000, RevenueShareBps: RevenueShareScale})

	_, err := service.RequestWithdrawal(context.Background(), mustAccountID(test, "creator-1"),
		mustAmount(test, 999), PayoutBank, mustMetadata(test, "{}"))
	if !errors.Is(err, ErrBelowMinimum) {
		test.Fatalf("expected ErrBelowMinimum, got %v", err)
	}
	if got := store.balance(test, "creator-1"); got != 5000 {
		test.Fatalf("rejected request must not touch funds, got %d", got)
	}
}

func TestApproveWithdrawalLeavesBalanceAlone(test *testing.T) {
	test.Parallel()
	store := newStubStore(test)
	store.addAccount(test, "creator-1", RoleCreator, 5000)
	store.addAccount(test, "admin-1", RoleAdmin, 0)
	service := mustNewService(test, store, nil, Config{MinWithdrawalALT: 1000, RevenueShareBps: RevenueShareScale})
	creatorID := mustAccountID(test, "creator-1")
	adminID := mustAccountID(test, "admin-1")

	withdrawal, err := service.RequestWithdrawal(context.Background(), creatorID, mustAmount(test, 2000), PayoutPaypal, mustMetadata(test, "{}"))
	if err != nil {
		test.Fatalf("request withdrawal: %v", err)
	}
	if err := service.ApproveWithdrawal(context.Background(), withdrawal.WithdrawalID, adminID); err != nil {
		test.Fatalf("approve withdrawal: %v", err)
	}
	if got := store.balance(test, "creator-1"); got != 3000 {
		test.Fatalf("approval must not move funds again, got %d", got)
	}
	if got := store.withdrawals[withdrawal.WithdrawalID].Status; got != WithdrawalApproved {
		test.Fatalf("expected approved withdrawal, got %s", got)
	}
}

func TestRejectWithdrawalRefundsLockedFunds(test *testing.T) {
	test.Parallel()
	store := newStubStore(test)
	store.addAccount(test, "creator-1", RoleCreator, 5000)
	store.addAccount(test, "admin-1", RoleAdmin, 0)
	notifier := &recordingNotifier{}
	service := mustNewService(test, store, notifier, Config{MinWithdrawalALT: 1000, RevenueShareBps: RevenueShareScale})
	creatorID := mustAccountID(test, "creator-1")
	adminID := mustAccountID(test, "admin-1")

	withdrawal, err := service.RequestWithdrawal(context.Background(), creatorID, mustAmount(test, 2000), PayoutCrypto, mustMetadata(test, "{}"))
	if err != nil {
		test.Fatalf("request withdrawal: %v", err)
	}
	if err := service.RejectWithdrawal(context.Background(), withdrawal.WithdrawalID, adminID, "details unverifiable"); err != nil {
		test.Fatalf("reject withdrawal: %v", err)
	}
	if got := store.balance(test, "creator-1"); got != 5000 {
		test.Fatalf("rejection must refund locked funds, got %d", got)
	}
	if len(store.transactions) != 2 {
		test.Fatalf("expected lock and refund transactions, got %d", len(store.transactions))
	}
	refund := store.transactions[1]
	if refund.Type != TxReward || refund.AmountALT != 2000 {
		test.Fatalf("unexpected refund transaction: %+v", refund)
	}
	if !strings.Contains(refund.Metadata.String(), withdrawal.WithdrawalID) {
		test.Fatalf("refund metadata must reference the withdrawal, got %s", refund.Metadata.String())
	}
	last := notifier.deliveries[len(notifier.deliveries)-1]
	if last.accountID != "creator-1" || last.body != "details unverifiable" {
		test.Fatalf("expected owner rejection notice, got %+v", last)
	}
}

func TestProcessSubscriptionActivatesRow(test *testing.T) {
	test.Parallel()
	store := newStubStore(test)
	store.addAccount(test, "fan-1", RoleFan, 1000)
	store.addAccount(test, "creator-1", RoleCreator, 0)
	notifier := &recordingNotifier{}
	service := mustNewService(test, store, notifier, Config{RevenueShareBps: RevenueShareScale})
	fanID := mustAccountID(test, "fan-1")
	creatorID := mustAccountID(test, "creator-1")

	receipt, err := service.ProcessSubscription(context.Background(), fanID, creatorID, mustAmount(test, 300))
	if err != nil {
		test.Fatalf("process subscription: %v", err)
	}
	if receipt.PaidALT != 300 {
		test.Fatalf("unexpected receipt: %+v", receipt)
	}
	if _, ok := store.subscriptions["fan-1:creator-1"]; !ok {
		test.Fatalf("expected active subscription row")
	}
	last := notifier.deliveries[len(notifier.deliveries)-1]
	if last.accountID != "creator-1" {
		test.Fatalf("expected creator notification, got %+v", last)
	}
}

func TestHistoryRejectsUnknownAccount(test *testing.T) {
	test.Parallel()
	store := newStubStore(test)
	service := mustNewService(test, store, nil, Config{RevenueShareBps: RevenueShareScale})

	_, err := service.History(context.Background(), mustAccountID(test, "ghost"), 10)
	if !errors.Is(err, ErrAccountNotFound) {
		test.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}

func TestHistoryClampsPageSize(test *testing.T) {
	test.Parallel()
	store := newStubStore(test)
	store.addAccount(test, "fan-1", RoleFan, 0)
	service := mustNewService(test, store, nil, Config{RevenueShareBps: RevenueShareScale})

	if _, err := service.History(context.Background(), mustAccountID(test, "fan-1"), 100000); err != nil {
		test.Fatalf("history: %v", err)
	}
	if store.lastListLimit != maxHistoryPage {
		test.Fatalf("expected limit clamped to %d, got %d", maxHistoryPage, store.lastListLimit)
	}
}

func TestPaymentConservesTotalSupply(test *testing.T) {
	test.Parallel()
	store := newStubStore(test)
	store.addAccount(test, "fan-1", RoleFan, 700)
	store.addAccount(test, "creator-1", RoleCreator, 300)
	store.contents["content-1"] = Content{ContentID: "content-1", CreatorID: mustAccountID(test, "creator-1"), PriceALT: 250}
	service := mustNewService(test, store, nil, Config{RevenueShareBps: RevenueShareScale})

	if _, err := service.PayForContent(context.Background(), mustAccountID(test, "fan-1"), "content-1"); err != nil {
		test.Fatalf("pay for content: %v", err)
	}
	total := store.balance(test, "fan-1") + store.balance(test, "creator-1")
	if total != 1000 {
		test.Fatalf("payment must conserve supply, got total %d", total)
	}
}
