package usecase

import (
	"context"

	"payments-service/internal/domain"
	"payments-service/internal/repository"

	"go.uber.org/zap"
)

// AdminRefund records that a captured transaction has been refunded at the
// gateway. Allowed from settled, and from failed for rows where money was
// captured but reconciliation could not deliver (the awaiting-refund
// case). Executing the refund with the gateway is an operator workflow
// outside this service; this transition is its ledger record.
func (uc *PaymentUsecase) AdminRefund(ctx context.Context, reference string) (*domain.Transaction, error) {
	tx, err := uc.transactions.GetByReference(ctx, reference)
	if err != nil {
		return nil, err
	}

	switch tx.State {
	case domain.StateSettled, domain.StateFailed:
	default:
		return nil, domain.Validationf("cannot refund a transaction in state %s", tx.State)
	}
	fromState := tx.State

	refunded, err := uc.transactions.TransitionState(ctx, tx.ID, tx.State, domain.StateRefunded, repository.TransitionFields{})
	if err != nil {
		return nil, err
	}
	if !refunded {
		// Lost a race with another actor; re-read and report the row as is.
		return uc.transactions.GetByReference(ctx, reference)
	}

	// A settled deposit credited the wallet at settlement; the gateway
	// refund returns the card charge, so that credit is clawed back here.
	// Gated on winning the transition, like the transfer.reversed path, so
	// a repeated refund call cannot debit twice.
	if fromState == domain.StateSettled && tx.Type == domain.TypeWalletDeposit {
		debited, derr := uc.wallets.Debit(ctx, tx.PayerID, tx.NetCents)
		if derr != nil {
			uc.logger.Error("CRITICAL: failed to claw back wallet credit for refunded deposit",
				zap.String("reference", reference),
				zap.String("user_id", tx.PayerID),
				zap.Int64("deposit_cents", tx.NetCents),
				zap.Error(derr))
		} else if !debited {
			// The user already spent the deposit; the shortfall needs
			// operator collection.
			uc.logger.Error("CRITICAL: wallet balance below refunded deposit amount",
				zap.String("reference", reference),
				zap.String("user_id", tx.PayerID),
				zap.Int64("deposit_cents", tx.NetCents))
		}
	}

	tx.State = domain.StateRefunded
	uc.publisher.StateChanged(ctx, tx, "refunded by admin")
	uc.logger.Info("transaction refunded by admin",
		zap.String("reference", reference),
		zap.String("type", string(tx.Type)))
	return tx, nil
}
