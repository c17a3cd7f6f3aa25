package alt

import (
	"context"
	"fmt"
)

// RequestWithdrawal locks the requested funds immediately: the balance is
// debited and a withdrawal transaction written before any admin review.
func (service *Service) RequestWithdrawal(ctx context.Context, creatorID AccountID, amount Amount, method PayoutMethod, details MetadataJSON) (Withdrawal, error) {
	if creatorID.IsZero() {
		return Withdrawal{}, ErrUnauthenticated
	}
	if amount.Int64() < service.cfg.MinWithdrawalALT {
		return Withdrawal{}, fmt.Errorf("%w: minimum is %d ALT", ErrBelowMinimum, service.cfg.MinWithdrawalALT)
	}
	if _, err := ParsePayoutMethod(method.String()); err != nil {
		return Withdrawal{}, err
	}
	var withdrawal Withdrawal
	operationError := service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
		if _, err := transactionStore.GetAccount(ctx, creatorID); err != nil {
			return err
		}
		if err := transactionStore.DebitBalance(ctx, creatorID, amount.Int64()); err != nil {
			return err
		}
		nowUnixUTC := service.nowFn()
		lock, err := NewTransaction(creatorID, TxWithdrawal, -amount.Int64(), nil, "",
			MarshalMetadata(map[string]any{"method": method.String()}), nowUnixUTC)
		if err != nil {
			return err
		}
		if _, err := transactionStore.InsertTransaction(ctx, lock); err != nil {
			return err
		}
		created, err := transactionStore.CreateWithdrawal(ctx, Withdrawal{
			AccountID:      creatorID,
			AmountALT:      amount.Int64(),
			Method:         method,
			Details:        details,
			Status:         WithdrawalPending,
			CreatedUnixUTC: nowUnixUTC,
		})
		if err != nil {
			return err
		}
		withdrawal = created
		return nil
	})
	if operationError == nil {
		service.notifyAdmins(ctx, "Withdrawal request",
			fmt.Sprintf("Withdrawal of %d ALT via %s awaits review", amount.Int64(), method), kindWithdrawal)
	}
	service.logOperation(ctx, OperationLog{
		Operation: operationRequestWithdrawal,
		AccountID: creatorID,
		AmountALT: amount.Int64(),
		Reference: withdrawal.WithdrawalID,
		Error:     operationError,
	})
	return withdrawal, operationError
}

// ApproveWithdrawal is a status transition only; the funds were locked at
// request time.
func (service *Service) ApproveWithdrawal(ctx context.Context, withdrawalID string, adminID AccountID) error {
	var owner AccountID
	var amountALT int64
	operationError := service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
		if err := service.requireAdmin(ctx, transactionStore, adminID); err != nil {
			return err
		}
		withdrawal, err := transactionStore.GetWithdrawal(ctx, withdrawalID)
		if err != nil {
			return err
		}
		owner = withdrawal.AccountID
		amountALT = withdrawal.AmountALT
		return transactionStore.UpdateWithdrawalStatus(ctx, withdrawalID, WithdrawalPending, WithdrawalApproved, adminID, "", service.nowFn())
	})
	if operationError == nil {
		service.notifier.Notify(ctx, owner.String(), "Withdrawal approved",
			fmt.Sprintf("Your withdrawal of %d ALT is on its way", amountALT), kindWithdrawal)
	}
	service.logOperation(ctx, OperationLog{
		Operation:    operationApproveWithdrawal,
		AccountID:    owner,
		Counterparty: adminID,
		AmountALT:    amountALT,
		Reference:    withdrawalID,
		Error:        operationError,
	})
	return operationError
}

// RejectWithdrawal closes the request and returns the locked funds with a
// compensating reward transaction.
func (service *Service) RejectWithdrawal(ctx context.Context, withdrawalID string, adminID AccountID, reason string) error {
	var owner AccountID
	var amountALT int64
	operationError := service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
		if err := service.requireAdmin(ctx, transactionStore, adminID); err != nil {
			return err
		}
		withdrawal, err := transactionStore.GetWithdrawal(ctx, withdrawalID)
		if err != nil {
			return err
		}
		owner = withdrawal.AccountID
		amountALT = withdrawal.AmountALT
		nowUnixUTC := service.nowFn()
		if err := transactionStore.UpdateWithdrawalStatus(ctx, withdrawalID, WithdrawalPending, WithdrawalRejected, adminID, reason, nowUnixUTC); err != nil {
			return err
		}
		if err := transactionStore.CreditBalance(ctx, withdrawal.AccountID, withdrawal.AmountALT); err != nil {
			return err
		}
		refund, err := NewTransaction(withdrawal.AccountID, TxReward, withdrawal.AmountALT, &adminID, "",
			MarshalMetadata(map[string]any{"withdrawal_id": withdrawalID, "refund": true}), nowUnixUTC)
		if err != nil {
			return err
		}
		_, err = transactionStore.InsertTransaction(ctx, refund)
		return err
	})
	if operationError == nil {
		service.notifier.Notify(ctx, owner.String(), "Withdrawal rejected", reason, kindWithdrawal)
	}
	service.logOperation(ctx, OperationLog{
		Operation:    operationRejectWithdrawal,
		AccountID:    owner,
		Counterparty: adminID,
		AmountALT:    amountALT,
		Reference:    withdrawalID,
		Error:        operationError,
	})
	return operationError
}

// History lists an account's transactions newest first.
func (service *Service) History(ctx context.Context, accountID AccountID, limit int) ([]Transaction, error) {
	if limit <= 0 || limit > maxHistoryPage {
		limit = maxHistoryPage
	}
	if _, err := service.store.GetAccount(ctx, accountID); err != nil {
		return nil, err
	}
	return service.store.ListTransactions(ctx, accountID, limit)
}
