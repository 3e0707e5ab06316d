package usecase

import (
	"context"
	"fmt"

	"payments-service/internal/domain"
	"payments-service/internal/fees"
	"payments-service/internal/metrics"
	"payments-service/internal/provider/paystack"
	"payments-service/internal/repository"

	"go.uber.org/zap"
)

type WithdrawalRequest struct {
	UserID        string
	AmountCents   int64
	BankCode      string
	AccountNumber string
	AccountName   string
}

type WithdrawalResult struct {
	Reference string                   `json:"reference"`
	Breakdown fees.WithdrawalBreakdown `json:"breakdown"`
	Message   string                   `json:"message"`
}

// InitiateWithdrawal moves wallet funds to a bank account. The wallet is
// debited before the transfer is initiated: the transfer completes
// asynchronously, and holding the balance stops the same funds being
// withdrawn twice while it is in flight. If transfer initiation itself
// fails, the debit is refunded and the transaction marked failed before
// the error is reported.
func (uc *PaymentUsecase) InitiateWithdrawal(ctx context.Context, req WithdrawalRequest) (*WithdrawalResult, error) {
	if !uc.gateway.Configured() {
		return nil, domain.ErrGatewayNotConfigured
	}
	if req.AmountCents < MinWithdrawalCents {
		return nil, domain.Validationf("Minimum withdrawal is R%d", MinWithdrawalCents/100)
	}

	balance, err := uc.wallets.Balance(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("read wallet balance: %w", err)
	}
	if req.AmountCents > balance {
		return nil, domain.Validationf("Insufficient wallet balance")
	}

	breakdown, err := uc.fees.WithdrawalFee(req.AmountCents)
	if err != nil {
		return nil, err
	}

	// Register the bank account first so bad details fail before any money
	// moves.
	recipientCode, err := uc.gateway.CreateTransferRecipient(ctx, req.AccountName, req.AccountNumber, req.BankCode, currency)
	if err != nil {
		metrics.Initiations.WithLabelValues(string(domain.TypeWithdrawal), "gateway_error").Inc()
		return nil, err
	}

	reference := paystack.NewReference()
	metadata, err := domain.EncodeMetadata(domain.WithdrawalMetadata{
		PaymentType:   domain.TypeWithdrawal,
		BankCode:      req.BankCode,
		AccountNumber: req.AccountNumber,
		AccountName:   req.AccountName,
		RecipientCode: recipientCode,
	})
	if err != nil {
		return nil, err
	}

	tx := &domain.Transaction{
		Reference:     reference,
		Type:          domain.TypeWithdrawal,
		State:         domain.StateInitiated,
		AmountCents:   breakdown.AmountCents,
		FeeCents:      breakdown.FeeCents,
		NetCents:      breakdown.NetCents,
		Currency:      currency,
		PayerID:       req.UserID,
		RecipientID:   req.UserID,
		RecipientRole: domain.RoleSelf,
		Provider:      "paystack",
		Metadata:      metadata,
	}
	if err := uc.transactions.Create(ctx, tx); err != nil {
		return nil, fmt.Errorf("create transaction: %w", err)
	}

	// Pessimistic hold: debit now, refund on failure.
	debited, err := uc.wallets.Debit(ctx, req.UserID, req.AmountCents)
	if err != nil {
		return nil, fmt.Errorf("debit wallet: %w", err)
	}
	if !debited {
		reason := "insufficient balance at debit time"
		if _, terr := uc.transactions.TransitionState(ctx, tx.ID, domain.StateInitiated, domain.StateFailed,
			transitionFailure(reason)); terr != nil {
			uc.logger.Error("failed to mark withdrawal failed", zap.String("reference", reference), zap.Error(terr))
		}
		return nil, domain.Validationf("Insufficient wallet balance")
	}

	transfer, err := uc.gateway.InitiateTransfer(ctx, breakdown.NetCents, recipientCode, "Wallet withdrawal", reference)
	if err != nil {
		// Compensate the eager debit before reporting failure.
		if cerr := uc.wallets.Credit(ctx, req.UserID, req.AmountCents); cerr != nil {
			uc.logger.Error("CRITICAL: failed to refund wallet after transfer initiation failure",
				zap.String("reference", reference),
				zap.String("user_id", req.UserID),
				zap.Int64("amount_cents", req.AmountCents),
				zap.Error(cerr))
		}
		reason := err.Error()
		if _, terr := uc.transactions.TransitionState(ctx, tx.ID, domain.StateInitiated, domain.StateFailed,
			transitionFailure(reason)); terr != nil {
			uc.logger.Error("failed to mark withdrawal failed", zap.String("reference", reference), zap.Error(terr))
		}
		metrics.Initiations.WithLabelValues(string(domain.TypeWithdrawal), "gateway_error").Inc()
		uc.logger.Error("transfer initiation failed, wallet refunded",
			zap.String("reference", reference),
			zap.String("user_id", req.UserID),
			zap.Error(err))
		return nil, err
	}

	// Keep the transfer handle for webhook correlation.
	md := domain.WithdrawalMetadata{
		PaymentType:   domain.TypeWithdrawal,
		BankCode:      req.BankCode,
		AccountNumber: req.AccountNumber,
		AccountName:   req.AccountName,
		RecipientCode: recipientCode,
		TransferCode:  transfer.TransferCode,
	}
	if raw, merr := domain.EncodeMetadata(md); merr == nil {
		if uerr := uc.transactions.UpdateMetadata(ctx, tx.ID, raw); uerr != nil {
			uc.logger.Error("failed to persist transfer code", zap.String("reference", reference), zap.Error(uerr))
		}
	}

	metrics.Initiations.WithLabelValues(string(domain.TypeWithdrawal), "ok").Inc()
	uc.logger.Info("withdrawal initiated",
		zap.String("reference", reference),
		zap.String("user_id", req.UserID),
		zap.Int64("amount_cents", breakdown.AmountCents),
		zap.Int64("net_cents", breakdown.NetCents),
		zap.String("transfer_code", transfer.TransferCode))

	return &WithdrawalResult{
		Reference: reference,
		Breakdown: breakdown,
		Message:   "Withdrawal initiated. Funds typically reflect within 1-2 business days.",
	}, nil
}

func transitionFailure(reason string) repository.TransitionFields {
	return repository.TransitionFields{FailureReason: &reason}
}
