package usecase

import (
	"context"
	"fmt"

	"payments-service/internal/domain"
	"payments-service/internal/fees"
	"payments-service/internal/metrics"
	"payments-service/internal/provider/paystack"

	"go.uber.org/zap"
)

type DepositRequest struct {
	UserID string
	Email  string
	// AmountCents is the amount to land in the wallet; the payer is
	// charged this plus the deposit fee.
	AmountCents int64
}

type DepositResult struct {
	InitiationResult
	Breakdown fees.DepositBreakdown `json:"breakdown"`
}

// InitiateDeposit opens a checkout session for a wallet top-up. The wallet
// is credited only when the settlement webhook lands, and with the deposit
// amount, not the fee-inclusive total.
func (uc *PaymentUsecase) InitiateDeposit(ctx context.Context, req DepositRequest) (*DepositResult, error) {
	if !uc.gateway.Configured() {
		return nil, domain.ErrGatewayNotConfigured
	}
	if req.AmountCents < MinDepositCents {
		return nil, domain.Validationf("Minimum deposit is R%d", MinDepositCents/100)
	}

	breakdown, err := uc.fees.DepositFee(req.AmountCents)
	if err != nil {
		return nil, err
	}

	reference := paystack.NewReference()
	metadata, err := domain.EncodeMetadata(domain.DepositMetadata{
		PaymentType:  domain.TypeWalletDeposit,
		DepositCents: breakdown.DepositCents,
		FeeCents:     breakdown.FeeCents,
	})
	if err != nil {
		return nil, err
	}

	tx := &domain.Transaction{
		Reference:     reference,
		Type:          domain.TypeWalletDeposit,
		State:         domain.StateInitiated,
		AmountCents:   breakdown.TotalToPayCents,
		FeeCents:      breakdown.FeeCents,
		NetCents:      breakdown.DepositCents,
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

	init, err := uc.gateway.InitializePayment(ctx, req.Email, breakdown.TotalToPayCents, reference, uc.callbackURL(), tx.Metadata)
	if err != nil {
		metrics.Initiations.WithLabelValues(string(domain.TypeWalletDeposit), "gateway_error").Inc()
		uc.logger.Error("deposit initialization failed",
			zap.String("reference", reference),
			zap.String("user_id", req.UserID),
			zap.Error(err))
		return nil, err
	}

	if err := uc.transactions.SetGatewayHandle(ctx, tx.ID, init.AccessCode, init.Reference, nil); err != nil {
		uc.logger.Error("failed to persist gateway handle",
			zap.String("reference", reference),
			zap.Error(err))
	}

	metrics.Initiations.WithLabelValues(string(domain.TypeWalletDeposit), "ok").Inc()
	uc.logger.Info("wallet deposit initiated",
		zap.String("reference", reference),
		zap.String("user_id", req.UserID),
		zap.Int64("deposit_cents", breakdown.DepositCents),
		zap.Int64("total_to_pay_cents", breakdown.TotalToPayCents))

	return &DepositResult{
		InitiationResult: InitiationResult{
			AuthorizationURL: init.AuthorizationURL,
			AccessCode:       init.AccessCode,
			Reference:        reference,
			TransactionID:    tx.ID,
		},
		Breakdown: breakdown,
	}, nil
}
