package alt

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Config carries the platform parameters the ledger enforces.
type Config struct {
	// MinWithdrawalALT is the smallest withdrawal a creator may request.
	MinWithdrawalALT int64
	// RevenueShareBps is the creator's share of fan payments in basis
	// points. 10000 credits the full amount.
	RevenueShareBps int64
}

func (config Config) validate() error {
	if config.MinWithdrawalALT < 0 {
		return fmt.Errorf("%w: negative withdrawal minimum", ErrInvalidServiceConfig)
	}
	if config.RevenueShareBps < 0 || config.RevenueShareBps > RevenueShareScale {
		return fmt.Errorf("%w: revenue share out of range", ErrInvalidServiceConfig)
	}
	return nil
}

// Service contains the ledger domain logic over a Store. Every balance
// mutation on the platform goes through it.
type Service struct {
	store    Store
	notifier Notifier
	nowFn    func() int64
	logger   OperationLogger
	cfg      Config
}

// NewService wires a Service.
func NewService(store Store, notifier Notifier, now func() int64, cfg Config, options ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: store dependency is nil", ErrInvalidServiceConfig)
	}
	if now == nil {
		return nil, fmt.Errorf("%w: clock dependency is nil", ErrInvalidServiceConfig)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if notifier == nil {
		notifier = noopNotifier{}
	}
	service := &Service{store: store, notifier: notifier, nowFn: now, cfg: cfg}
	for _, option := range options {
		if option != nil {
			option(service)
		}
	}
	return service, nil
}

// Balance returns the current ALT balance for an account.
func (service *Service) Balance(ctx context.Context, accountID AccountID) (int64, error) {
	account, err := service.store.GetAccount(ctx, accountID)
	if err != nil {
		return 0, err
	}
	return account.BalanceALT, nil
}

// RequestRecharge records a pending credit request and alerts the admins.
// The requester's balance is untouched until an admin approves.
func (service *Service) RequestRecharge(ctx context.Context, requester AccountID, amount Amount, usdCents int64) (RechargeToken, error) {
	if requester.IsZero() {
		return RechargeToken{}, ErrUnauthenticated
	}
	var token RechargeToken
	operationError := service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
		if _, err := transactionStore.GetAccount(ctx, requester); err != nil {
			return err
		}
		created, err := transactionStore.CreateRechargeToken(ctx, RechargeToken{
			AccountID:      requester,
			Token:          uuid.NewString(),
			AmountALT:      amount.Int64(),
			USDCents:       usdCents,
			Status:         RechargePending,
			CreatedUnixUTC: service.nowFn(),
		})
		if err != nil {
			return err
		}
		token = created
		return nil
	})
	if operationError == nil {
		service.notifyAdmins(ctx, "Recharge request",
			fmt.Sprintf("Recharge of %d ALT awaits review", amount.Int64()), kindRecharge)
	}
	service.logOperation(ctx, OperationLog{
		Operation: operationRequestRecharge,
		AccountID: requester,
		AmountALT: amount.Int64(),
		Reference: token.TokenID,
		Error:     operationError,
	})
	return token, operationError
}

// ApproveRecharge flips the token to approved and mints the matching
// recharge transaction in a single unit of work.
func (service *Service) ApproveRecharge(ctx context.Context, tokenID string, adminID AccountID) error {
	var owner AccountID
	var amountALT int64
	operationError := service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
		if err := service.requireAdmin(ctx, transactionStore, adminID); err != nil {
			return err
		}
		token, err := transactionStore.GetRechargeToken(ctx, tokenID)
		if err != nil {
			return err
		}
		owner = token.AccountID
		amountALT = token.AmountALT
		nowUnixUTC := service.nowFn()
		if err := transactionStore.UpdateRechargeStatus(ctx, tokenID, RechargePending, RechargeApproved, adminID, nowUnixUTC); err != nil {
			return err
		}
		if err := transactionStore.CreditBalance(ctx, token.AccountID, token.AmountALT); err != nil {
			return err
		}
		mint, err := NewTransaction(token.AccountID, TxRecharge, token.AmountALT, &adminID, "",
			MarshalMetadata(map[string]any{"token_id": tokenID, "usd_cents": token.USDCents}), nowUnixUTC)
		if err != nil {
			return err
		}
		_, err = transactionStore.InsertTransaction(ctx, mint)
		return err
	})
	if operationError == nil {
		service.notifier.Notify(ctx, owner.String(), "Recharge approved",
			fmt.Sprintf("%d ALT added to your balance", amountALT), kindRecharge)
	}
	service.logOperation(ctx, OperationLog{
		Operation:    operationApproveRecharge,
		AccountID:    owner,
		Counterparty: adminID,
		AmountALT:    amountALT,
		Reference:    tokenID,
		Error:        operationError,
	})
	return operationError
}

// RejectRecharge closes a pending token without touching any balance.
func (service *Service) RejectRecharge(ctx context.Context, tokenID string, adminID AccountID, reason string) error {
	var owner AccountID
	operationError := service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
		if err := service.requireAdmin(ctx, transactionStore, adminID); err != nil {
			return err
		}
		token, err := transactionStore.GetRechargeToken(ctx, tokenID)
		if err != nil {
			return err
		}
		owner = token.AccountID
		return transactionStore.UpdateRechargeStatus(ctx, tokenID, RechargePending, RechargeRejected, adminID, service.nowFn())
	})
	if operationError == nil {
		service.notifier.Notify(ctx, owner.String(), "Recharge rejected", reason, kindRecharge)
	}
	service.logOperation(ctx, OperationLog{
		Operation:    operationRejectRecharge,
		AccountID:    owner,
		Counterparty: adminID,
		Reference:    tokenID,
		Error:        operationError,
	})
	return operationError
}

// PayForContent debits the payer by the content price and credits the
// creator their configured share, as two linked transactions.
func (service *Service) PayForContent(ctx context.Context, payerID AccountID, contentID string) (PaymentReceipt, error) {
	var receipt PaymentReceipt
	var creatorID AccountID
	operationError := service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
		content, err := transactionStore.GetContent(ctx, contentID)
		if err != nil {
			return err
		}
		creatorID = content.CreatorID
		paid, err := service.transfer(ctx, transactionStore, payerID, content.CreatorID, content.PriceALT, TxSpend, TxEarn, "",
			map[string]any{"content_id": contentID})
		if err != nil {
			return err
		}
		receipt = paid
		return nil
	})
	if operationError == nil && receipt.CreditedALT > 0 {
		service.notifier.Notify(ctx, creatorID.String(), "Content purchased",
			fmt.Sprintf("You earned %d ALT", receipt.CreditedALT), kindEarning)
	}
	service.logOperation(ctx, OperationLog{
		Operation:    operationPayForContent,
		AccountID:    payerID,
		Counterparty: creatorID,
		AmountALT:    receipt.PaidALT,
		Reference:    contentID,
		Error:        operationError,
	})
	return receipt, operationError
}

// PaySessionEntry charges a viewer the session entry price. Used by the
// live admission flow; the session id is threaded onto both transactions.
func (service *Service) PaySessionEntry(ctx context.Context, payerID, creatorID AccountID, sessionID string, amount Amount) (PaymentReceipt, error) {
	var receipt PaymentReceipt
	operationError := service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
		paid, err := service.transfer(ctx, transactionStore, payerID, creatorID, amount.Int64(), TxSpend, TxEarn, sessionID, nil)
		if err != nil {
			return err
		}
		receipt = paid
		return nil
	})
	service.logOperation(ctx, OperationLog{
		Operation:    operationPaySessionEntry,
		AccountID:    payerID,
		Counterparty: creatorID,
		AmountALT:    receipt.PaidALT,
		Reference:    sessionID,
		Error:        operationError,
	})
	return receipt, operationError
}

// RefundSessionEntry reverses a session entry charge. Compensating action
// for admissions that fail after payment.
func (service *Service) RefundSessionEntry(ctx context.Context, payerID, creatorID AccountID, sessionID string, amount Amount) error {
	operationError := service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
		share := service.creatorShare(amount.Int64())
		if share > 0 {
			if err := transactionStore.DebitBalance(ctx, creatorID, share); err != nil {
				return err
			}
			clawback, err := NewTransaction(creatorID, TxTransfer, -share, &payerID, sessionID,
				MarshalMetadata(map[string]any{"refund": true}), service.nowFn())
			if err != nil {
				return err
			}
			if _, err := transactionStore.InsertTransaction(ctx, clawback); err != nil {
				return err
			}
		}
		if err := transactionStore.CreditBalance(ctx, payerID, amount.Int64()); err != nil {
			return err
		}
		refund, err := NewTransaction(payerID, TxReward, amount.Int64(), &creatorID, sessionID,
			MarshalMetadata(map[string]any{"refund": true}), service.nowFn())
		if err != nil {
			return err
		}
		_, err = transactionStore.InsertTransaction(ctx, refund)
		return err
	})
	service.logOperation(ctx, OperationLog{
		Operation:    operationRefundSessionEntry,
		AccountID:    payerID,
		Counterparty: creatorID,
		AmountALT:    amount.Int64(),
		Reference:    sessionID,
		Error:        operationError,
	})
	return operationError
}

// ProcessSubscription charges a fan the subscription amount, credits the
// creator, and activates the subscription row.
func (service *Service) ProcessSubscription(ctx context.Context, fanID, creatorID AccountID, amount Amount) (PaymentReceipt, error) {
	var receipt PaymentReceipt
	operationError := service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
		paid, err := service.transfer(ctx, transactionStore, fanID, creatorID, amount.Int64(), TxSpend, TxEarn, "",
			map[string]any{"subscription": true})
		if err != nil {
			return err
		}
		receipt = paid
		return transactionStore.UpsertSubscription(ctx, fanID, creatorID, service.nowFn())
	})
	if operationError == nil && receipt.CreditedALT > 0 {
		service.notifier.Notify(ctx, creatorID.String(), "New subscriber",
			fmt.Sprintf("A subscription earned you %d ALT", receipt.CreditedALT), kindEarning)
	}
	service.logOperation(ctx, OperationLog{
		Operation:    operationProcessSubscription,
		AccountID:    fanID,
		Counterparty: creatorID,
		AmountALT:    receipt.PaidALT,
		Error:        operationError,
	})
	return receipt, operationError
}

// transfer performs the conditional debit, the creator credit honoring the
// configured revenue share, and both linked transactions. Must run inside
// a store transaction.
func (service *Service) transfer(ctx context.Context, transactionStore Store, payerID, creatorID AccountID, amountALT int64, debitType, creditType TxType, sessionID string, metadataFields map[string]any) (PaymentReceipt, error) {
	if payerID.IsZero() {
		return PaymentReceipt{}, ErrUnauthenticated
	}
	amount, err := NewAmount(amountALT)
	if err != nil {
		return PaymentReceipt{}, err
	}
	if _, err := transactionStore.GetAccount(ctx, payerID); err != nil {
		return PaymentReceipt{}, err
	}
	if err := transactionStore.DebitBalance(ctx, payerID, amount.Int64()); err != nil {
		return PaymentReceipt{}, err
	}
	nowUnixUTC := service.nowFn()
	if metadataFields == nil {
		metadataFields = map[string]any{}
	}
	spend, err := NewTransaction(payerID, debitType, -amount.Int64(), &creatorID, sessionID, MarshalMetadata(metadataFields), nowUnixUTC)
	if err != nil {
		return PaymentReceipt{}, err
	}
	spendTxID, err := transactionStore.InsertTransaction(ctx, spend)
	if err != nil {
		return PaymentReceipt{}, err
	}
	share := service.creatorShare(amount.Int64())
	receipt := PaymentReceipt{SpendTxID: spendTxID, PaidALT: amount.Int64(), CreditedALT: share}
	if share == 0 {
		return receipt, nil
	}
	if err := transactionStore.CreditBalance(ctx, creatorID, share); err != nil {
		return PaymentReceipt{}, err
	}
	earnFields := map[string]any{"spend_tx_id": spendTxID}
	for key, value := range metadataFields {
		earnFields[key] = value
	}
	if fee := amount.Int64() - share; fee > 0 {
		earnFields["platform_fee_alt"] = fee
	}
	earn, err := NewTransaction(creatorID, creditType, share, &payerID, sessionID, MarshalMetadata(earnFields), nowUnixUTC)
	if err != nil {
		return PaymentReceipt{}, err
	}
	earnTxID, err := transactionStore.InsertTransaction(ctx, earn)
	if err != nil {
		return PaymentReceipt{}, err
	}
	receipt.EarnTxID = earnTxID
	return receipt, nil
}

func (service *Service) creatorShare(amountALT int64) int64 {
	return amountALT * service.cfg.RevenueShareBps / RevenueShareScale
}

func (service *Service) requireAdmin(ctx context.Context, store Store, adminID AccountID) error {
	if adminID.IsZero() {
		return ErrUnauthenticated
	}
	admin, err := store.GetAccount(ctx, adminID)
	if err != nil {
		return err
	}
	if admin.Role != RoleAdmin {
		return ErrUnauthorized
	}
	return nil
}

func (service *Service) notifyAdmins(ctx context.Context, title, body, kind string) {
	adminIDs, err := service.store.ListAdminIDs(ctx)
	if err != nil {
		service.logOperation(ctx, OperationLog{Operation: "notify_admins", Error: err, Status: operationStatusError})
		return
	}
	targets := make([]string, 0, len(adminIDs))
	for _, adminID := range adminIDs {
		targets = append(targets, adminID.String())
	}
	service.notifier.NotifyMany(ctx, targets, title, body, kind)
}

func (service *Service) logOperation(ctx context.Context, entry OperationLog) {
	if service.logger == nil {
		return
	}
	if entry.Status == "" {
		if entry.Error != nil {
			entry.Status = operationStatusError
		} else {
			entry.Status = operationStatusOK
		}
	}
	service.logger.LogOperation(ctx, entry)
}

type noopNotifier struct{}

func (noopNotifier) Notify(context.Context, string, string, string, string)       {}
func (noopNotifier) NotifyMany(context.Context, []string, string, string, string) {}
