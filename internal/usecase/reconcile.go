package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"payments-service/internal/domain"
	"payments-service/internal/metrics"
	"payments-service/internal/provider/paystack"
	"payments-service/internal/repository"

	"go.uber.org/zap"
)

// WebhookEvent is the parsed gateway delivery. The raw body has already
// passed signature verification by the time this is constructed.
type WebhookEvent struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type chargeEventData struct {
	Reference   string `json:"reference"`
	AmountCents int64  `json:"amount"`
	Status      string `json:"status"`
}

type transferEventData struct {
	Reference string `json:"reference"`
	Status    string `json:"status"`
	Reason    string `json:"reason"`
}

// HandleWebhook applies one gateway event to local state. Errors returned
// here are for the caller's durable log; the HTTP layer still acknowledges
// the delivery so the gateway does not redeliver forever.
func (uc *PaymentUsecase) HandleWebhook(ctx context.Context, event WebhookEvent) error {
	switch event.Event {
	case "charge.success":
		return uc.handleChargeSuccess(ctx, event.Data)
	case "transfer.success":
		return uc.handleTransferSuccess(ctx, event.Data)
	case "transfer.failed":
		return uc.handleTransferFailed(ctx, event.Data)
	case "transfer.reversed":
		return uc.handleTransferReversed(ctx, event.Data)
	default:
		metrics.WebhookEvents.WithLabelValues(event.Event, "ignored").Inc()
		uc.logger.Info("unhandled webhook event acknowledged",
			zap.String("event", event.Event))
		return nil
	}
}

// handleChargeSuccess drives the charge branch of the state machine. The
// initiated->authorized transition doubles as the idempotency guard: it is
// a conditional update, so a replayed delivery finds the row already
// claimed and becomes a no-op.
func (uc *PaymentUsecase) handleChargeSuccess(ctx context.Context, data json.RawMessage) error {
	var charge chargeEventData
	if err := json.Unmarshal(data, &charge); err != nil || charge.Reference == "" {
		metrics.WebhookEvents.WithLabelValues("charge.success", "rejected").Inc()
		return fmt.Errorf("malformed charge.success data: %v", err)
	}

	tx, err := uc.transactions.GetByReference(ctx, charge.Reference)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			metrics.WebhookEvents.WithLabelValues("charge.success", "rejected").Inc()
			uc.logger.Warn("charge.success for unknown reference",
				zap.String("reference", charge.Reference))
			return nil
		}
		return err
	}

	claimed, err := uc.transactions.TransitionState(ctx, tx.ID, domain.StateInitiated, domain.StateAuthorized, repository.TransitionFields{})
	if err != nil {
		return fmt.Errorf("claim transaction %s: %w", tx.Reference, err)
	}
	if !claimed {
		metrics.WebhookEvents.WithLabelValues("charge.success", "replay").Inc()
		uc.logger.Debug("webhook replay ignored, transaction already processed",
			zap.String("reference", tx.Reference),
			zap.String("state", string(tx.State)))
		return nil
	}
	tx.State = domain.StateAuthorized

	// Never trust the webhook payload amount alone: re-fetch from the
	// gateway and compare against the ledger row.
	verified, err := uc.gateway.VerifyPayment(ctx, tx.Reference)
	if err != nil {
		return uc.failReconciliation(ctx, tx, &domain.ReconciliationError{Step: "verify", Err: err})
	}
	if verified.Status != "success" {
		return uc.failReconciliation(ctx, tx,
			&domain.ReconciliationError{Step: "verify", Err: fmt.Errorf("gateway status %q", verified.Status)})
	}
	if verified.AmountCents != tx.AmountCents {
		return uc.failReconciliation(ctx, tx,
			&domain.ReconciliationError{Step: "verify", Err: fmt.Errorf("amount mismatch: gateway %d, ledger %d", verified.AmountCents, tx.AmountCents)})
	}

	switch tx.Type {
	case domain.TypeTicketPurchase:
		err = uc.settleTicketPurchase(ctx, tx, verified)
	case domain.TypeWalletDeposit:
		err = uc.settleDeposit(ctx, tx, verified)
	case domain.TypeBookingPayment:
		err = uc.settleBookingPayment(ctx, tx, verified)
	default:
		err = &domain.ReconciliationError{Step: "dispatch", Err: fmt.Errorf("charge.success for unexpected type %s", tx.Type)}
	}
	if err != nil {
		return uc.failReconciliation(ctx, tx, err)
	}

	metrics.WebhookEvents.WithLabelValues("charge.success", "processed").Inc()
	metrics.Reconciliations.WithLabelValues(string(tx.Type), "ok").Inc()
	return nil
}

// settleTicketPurchase issues tickets, moves the event counters, and parks
// the funds in escrow. Each sub-step checks whether it already happened so
// a retried reconciliation cannot double-issue.
func (uc *PaymentUsecase) settleTicketPurchase(ctx context.Context, tx *domain.Transaction, verified *paystack.VerifyResult) error {
	var md domain.TicketPurchaseMetadata
	if err := domain.DecodeMetadata(tx.Metadata, &md); err != nil {
		return &domain.ReconciliationError{Step: "metadata", Err: err}
	}

	existing, err := uc.tickets.CountByTransaction(ctx, tx.ID)
	if err != nil {
		return &domain.ReconciliationError{Step: "ticket_count", Err: err}
	}
	if existing < md.Quantity {
		tickets := make([]*domain.Ticket, 0, md.Quantity-existing)
		for i := existing; i < md.Quantity; i++ {
			tickets = append(tickets, &domain.Ticket{
				Code:           paystack.NewTicketCode(),
				EventID:        md.EventID,
				BuyerID:        tx.PayerID,
				TransactionID:  tx.ID,
				PricePaidCents: md.UnitPriceCents,
			})
		}
		if err := uc.tickets.CreateBatch(ctx, tickets); err != nil {
			return &domain.ReconciliationError{Step: "ticket_issue", Err: err}
		}
	}

	ok, err := uc.eventsRepo.AddSoldWithCeiling(ctx, md.EventID, md.Quantity, tx.NetCents)
	if err != nil {
		return &domain.ReconciliationError{Step: "event_counters", Err: err}
	}
	if !ok {
		// Both buyers passed the initiation pre-check; this one lost the
		// race at settlement. The charge was captured, so the row lands in
		// failed awaiting a refund.
		return &domain.ReconciliationError{Step: "event_counters", Err: fmt.Errorf("capacity exceeded at settlement")}
	}

	held, err := uc.transactions.TransitionState(ctx, tx.ID, domain.StateAuthorized, domain.StateHeld,
		repository.TransitionFields{GatewayResponse: verified.Raw})
	if err != nil {
		return &domain.ReconciliationError{Step: "hold", Err: err}
	}
	if held {
		tx.State = domain.StateHeld
		uc.publisher.StateChanged(ctx, tx, "")
		uc.logger.Info("ticket purchase held in escrow",
			zap.String("reference", tx.Reference),
			zap.String("event_id", md.EventID),
			zap.Int("quantity", md.Quantity),
			zap.Int64("organizer_net_cents", tx.NetCents))
	}
	return nil
}

// settleDeposit credits the wallet with the deposit amount (not the
// fee-inclusive charge) and settles immediately; deposits do not escrow.
func (uc *PaymentUsecase) settleDeposit(ctx context.Context, tx *domain.Transaction, verified *paystack.VerifyResult) error {
	var md domain.DepositMetadata
	if err := domain.DecodeMetadata(tx.Metadata, &md); err != nil {
		return &domain.ReconciliationError{Step: "metadata", Err: err}
	}

	if err := uc.wallets.Credit(ctx, tx.PayerID, md.DepositCents); err != nil {
		return &domain.ReconciliationError{Step: "wallet_credit", Err: err}
	}

	settled, err := uc.transactions.TransitionState(ctx, tx.ID, domain.StateAuthorized, domain.StateSettled,
		repository.TransitionFields{GatewayResponse: verified.Raw})
	if err != nil {
		return &domain.ReconciliationError{Step: "settle", Err: err}
	}
	if settled {
		tx.State = domain.StateSettled
		uc.publisher.StateChanged(ctx, tx, "")
		uc.logger.Info("wallet deposit settled",
			zap.String("reference", tx.Reference),
			zap.String("user_id", tx.PayerID),
			zap.Int64("deposit_cents", md.DepositCents))
	}
	return nil
}

// settleBookingPayment confirms the booking and parks the funds in escrow
// until the engagement completes.
func (uc *PaymentUsecase) settleBookingPayment(ctx context.Context, tx *domain.Transaction, verified *paystack.VerifyResult) error {
	if tx.BookingID == nil {
		return &domain.ReconciliationError{Step: "booking", Err: fmt.Errorf("transaction has no booking id")}
	}

	if err := uc.bookings.Confirm(ctx, *tx.BookingID); err != nil {
		return &domain.ReconciliationError{Step: "booking_confirm", Err: err}
	}

	held, err := uc.transactions.TransitionState(ctx, tx.ID, domain.StateAuthorized, domain.StateHeld,
		repository.TransitionFields{GatewayResponse: verified.Raw})
	if err != nil {
		return &domain.ReconciliationError{Step: "hold", Err: err}
	}
	if held {
		tx.State = domain.StateHeld
		uc.publisher.StateChanged(ctx, tx, "")
		uc.logger.Info("booking payment held in escrow",
			zap.String("reference", tx.Reference),
			zap.String("booking_id", *tx.BookingID))
	}
	return nil
}

// failReconciliation forces the transaction to failed with the error as
// its captured reason. Side effects already committed (tickets inserted
// before a later step failed) are not rolled back; the failed row is the
// operator's signal that a refund workflow is owed.
func (uc *PaymentUsecase) failReconciliation(ctx context.Context, tx *domain.Transaction, cause error) error {
	reason := cause.Error()
	_, err := uc.transactions.TransitionState(ctx, tx.ID, tx.State, domain.StateFailed, transitionFailure(reason))
	if err != nil {
		uc.logger.Error("failed to mark transaction failed",
			zap.String("reference", tx.Reference),
			zap.Error(err))
	} else {
		tx.State = domain.StateFailed
		uc.publisher.StateChanged(ctx, tx, reason)
	}

	metrics.WebhookEvents.WithLabelValues("charge.success", "error").Inc()
	metrics.Reconciliations.WithLabelValues(string(tx.Type), "failed").Inc()
	uc.logger.Error("reconciliation failed, transaction marked failed",
		zap.String("reference", tx.Reference),
		zap.String("type", string(tx.Type)),
		zap.String("reason", reason))
	return cause
}

// handleTransferSuccess settles the withdrawal leg. The wallet was debited
// at initiation, so no balance movement happens here.
func (uc *PaymentUsecase) handleTransferSuccess(ctx context.Context, data json.RawMessage) error {
	_, tx, err := uc.loadTransferEvent(ctx, "transfer.success", data)
	if err != nil || tx == nil {
		return err
	}

	settled, err := uc.transactions.TransitionState(ctx, tx.ID, domain.StateInitiated, domain.StateSettled, repository.TransitionFields{})
	if err != nil {
		return err
	}
	if !settled {
		metrics.WebhookEvents.WithLabelValues("transfer.success", "replay").Inc()
		uc.logger.Debug("transfer.success replay ignored", zap.String("reference", tx.Reference))
		return nil
	}

	tx.State = domain.StateSettled
	uc.publisher.StateChanged(ctx, tx, "")
	metrics.WebhookEvents.WithLabelValues("transfer.success", "processed").Inc()
	uc.logger.Info("withdrawal settled",
		zap.String("reference", tx.Reference),
		zap.Int64("net_cents", tx.NetCents))
	return nil
}

// handleTransferFailed marks the withdrawal failed and restores the
// eagerly debited wallet balance. The refund runs only when this delivery
// wins the conditional transition, so replays cannot double-credit.
func (uc *PaymentUsecase) handleTransferFailed(ctx context.Context, data json.RawMessage) error {
	transfer, tx, err := uc.loadTransferEvent(ctx, "transfer.failed", data)
	if err != nil || tx == nil {
		return err
	}

	reason := transfer.Reason
	if reason == "" {
		reason = "transfer failed at gateway"
	}

	failed, err := uc.transactions.TransitionState(ctx, tx.ID, domain.StateInitiated, domain.StateFailed, transitionFailure(reason))
	if err != nil {
		return err
	}
	if !failed {
		metrics.WebhookEvents.WithLabelValues("transfer.failed", "replay").Inc()
		uc.logger.Debug("transfer.failed replay ignored", zap.String("reference", tx.Reference))
		return nil
	}

	if err := uc.wallets.Credit(ctx, tx.PayerID, tx.AmountCents); err != nil {
		uc.logger.Error("CRITICAL: failed to restore wallet after failed transfer",
			zap.String("reference", tx.Reference),
			zap.String("user_id", tx.PayerID),
			zap.Int64("amount_cents", tx.AmountCents),
			zap.Error(err))
		return fmt.Errorf("restore wallet for %s: %w", tx.Reference, err)
	}

	tx.State = domain.StateFailed
	uc.publisher.StateChanged(ctx, tx, reason)
	metrics.WebhookEvents.WithLabelValues("transfer.failed", "processed").Inc()
	uc.logger.Warn("withdrawal failed, wallet restored",
		zap.String("reference", tx.Reference),
		zap.String("user_id", tx.PayerID),
		zap.Int64("amount_cents", tx.AmountCents),
		zap.String("reason", reason))
	return nil
}

// handleTransferReversed moves a settled withdrawal to refunded and puts
// the funds back in the wallet.
func (uc *PaymentUsecase) handleTransferReversed(ctx context.Context, data json.RawMessage) error {
	_, tx, err := uc.loadTransferEvent(ctx, "transfer.reversed", data)
	if err != nil || tx == nil {
		return err
	}

	refunded, err := uc.transactions.TransitionState(ctx, tx.ID, domain.StateSettled, domain.StateRefunded, repository.TransitionFields{})
	if err != nil {
		return err
	}
	if !refunded {
		metrics.WebhookEvents.WithLabelValues("transfer.reversed", "replay").Inc()
		uc.logger.Debug("transfer.reversed replay ignored", zap.String("reference", tx.Reference))
		return nil
	}

	if err := uc.wallets.Credit(ctx, tx.PayerID, tx.AmountCents); err != nil {
		uc.logger.Error("CRITICAL: failed to restore wallet after transfer reversal",
			zap.String("reference", tx.Reference),
			zap.Error(err))
		return fmt.Errorf("restore wallet for %s: %w", tx.Reference, err)
	}

	tx.State = domain.StateRefunded
	uc.publisher.StateChanged(ctx, tx, "transfer reversed")
	metrics.WebhookEvents.WithLabelValues("transfer.reversed", "processed").Inc()
	uc.logger.Warn("withdrawal reversed, wallet restored",
		zap.String("reference", tx.Reference),
		zap.Int64("amount_cents", tx.AmountCents))
	return nil
}

// loadTransferEvent parses a transfer event and loads its ledger row. A
// nil transaction with nil error means the event was acknowledged but not
// actionable (unknown reference, malformed payload already counted).
func (uc *PaymentUsecase) loadTransferEvent(ctx context.Context, name string, data json.RawMessage) (*transferEventData, *domain.Transaction, error) {
	var transfer transferEventData
	if err := json.Unmarshal(data, &transfer); err != nil || transfer.Reference == "" {
		metrics.WebhookEvents.WithLabelValues(name, "rejected").Inc()
		return nil, nil, fmt.Errorf("malformed %s data: %v", name, err)
	}

	tx, err := uc.transactions.GetByReference(ctx, transfer.Reference)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			metrics.WebhookEvents.WithLabelValues(name, "rejected").Inc()
			uc.logger.Warn("transfer event for unknown reference",
				zap.String("event", name),
				zap.String("reference", transfer.Reference))
			return &transfer, nil, nil
		}
		return &transfer, nil, err
	}
	return &transfer, tx, nil
}
