package usecase

import (
	"context"

	"payments-service/internal/domain"

	"go.uber.org/zap"
)

// VerificationResult is the normalized, client-pollable view of a
// transaction's outcome. Status is one of success, pending, failed,
// refunded.
type VerificationResult struct {
	Status      string                  `json:"status"`
	Reference   string                  `json:"reference"`
	AmountCents int64                   `json:"amount"`
	Type        domain.TransactionType  `json:"type"`
	LocalState  domain.TransactionState `json:"localState"`

	EventName   string   `json:"eventName,omitempty"`
	Quantity    int      `json:"quantity,omitempty"`
	TicketCodes []string `json:"ticketCodes,omitempty"`

	FailureReason string `json:"failureReason,omitempty"`
}

// VerifyTransaction is the synchronous fallback for clients returning from
// the gateway redirect. It consults the gateway first, so it works before
// the webhook has arrived; the local transaction may still read initiated
// and the enrichment fields are filled only as far as reconciliation has
// run.
func (uc *PaymentUsecase) VerifyTransaction(ctx context.Context, reference, callerID string) (*VerificationResult, error) {
	tx, err := uc.transactions.GetByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	if callerID != "" && callerID != tx.PayerID {
		return nil, domain.ErrForbidden
	}

	result := &VerificationResult{
		Status:      "pending",
		Reference:   tx.Reference,
		AmountCents: tx.AmountCents,
		Type:        tx.Type,
		LocalState:  tx.State,
	}
	if tx.FailureReason != nil {
		result.FailureReason = *tx.FailureReason
	}

	switch tx.State {
	case domain.StateAuthorized, domain.StateHeld, domain.StateSettled:
		result.Status = "success"
	case domain.StateFailed:
		result.Status = "failed"
	case domain.StateRefunded:
		result.Status = "refunded"
	case domain.StateInitiated:
		// Webhook may not have landed yet; report the gateway's view
		// without assuming local and gateway state agree.
		verified, gerr := uc.gateway.VerifyPayment(ctx, reference)
		if gerr != nil {
			uc.logger.Warn("gateway verification unavailable, reporting pending",
				zap.String("reference", reference),
				zap.Error(gerr))
		} else {
			switch verified.Status {
			case "success":
				result.Status = "success"
			case "failed", "abandoned":
				result.Status = "failed"
			}
		}
	}

	if tx.Type == domain.TypeTicketPurchase {
		var md domain.TicketPurchaseMetadata
		if err := domain.DecodeMetadata(tx.Metadata, &md); err == nil {
			result.EventName = md.EventName
			result.Quantity = md.Quantity
		}
		codes, err := uc.tickets.CodesByTransaction(ctx, tx.ID)
		if err != nil {
			uc.logger.Warn("failed to load ticket codes for verification",
				zap.String("reference", reference),
				zap.Error(err))
		}
		// Empty until reconciliation issues the tickets.
		result.TicketCodes = codes
	}

	return result, nil
}
