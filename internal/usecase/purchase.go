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

type PurchaseRequest struct {
	BuyerID    string
	BuyerEmail string
	EventID    string
	Quantity   int
}

type PurchaseResult struct {
	InitiationResult
	Breakdown fees.TicketBreakdown `json:"breakdown"`
}

// InitiateTicketPurchase validates the order against the listing, computes
// the full-quantity breakdown, writes the initiated ledger row and opens a
// gateway checkout session. Tickets are only issued later, by the
// reconciler, once the charge succeeds.
func (uc *PaymentUsecase) InitiateTicketPurchase(ctx context.Context, req PurchaseRequest) (*PurchaseResult, error) {
	if !uc.gateway.Configured() {
		return nil, domain.ErrGatewayNotConfigured
	}
	if req.Quantity < 1 || req.Quantity > MaxTicketsPerOrder {
		return nil, domain.Validationf("quantity must be between 1 and %d", MaxTicketsPerOrder)
	}

	event, err := uc.eventsRepo.GetByID(ctx, req.EventID)
	if err != nil {
		return nil, err
	}
	if !event.Sellable() {
		return nil, domain.Validationf("tickets for this event are not on sale")
	}
	// Pre-check only; the authoritative ceiling is enforced atomically when
	// the sold counter moves at settlement.
	if event.TicketsSold+req.Quantity > event.Capacity {
		remaining := event.Capacity - event.TicketsSold
		if remaining <= 0 {
			return nil, domain.Validationf("this event is sold out")
		}
		return nil, domain.Validationf("only %d tickets left for this event", remaining)
	}

	breakdown, err := uc.fees.TicketOrderBreakdown(event.TicketPriceCents, req.Quantity)
	if err != nil {
		return nil, err
	}

	reference := paystack.NewReference()
	metadata, err := domain.EncodeMetadata(domain.TicketPurchaseMetadata{
		PaymentType:    domain.TypeTicketPurchase,
		EventID:        event.ID,
		EventName:      event.Name,
		Quantity:       req.Quantity,
		UnitPriceCents: event.TicketPriceCents,
	})
	if err != nil {
		return nil, err
	}

	tx := &domain.Transaction{
		Reference:     reference,
		Type:          domain.TypeTicketPurchase,
		State:         domain.StateInitiated,
		AmountCents:   breakdown.BuyerTotalCents,
		FeeCents:      breakdown.BuyerTotalCents - breakdown.OrganizerNetCents,
		NetCents:      breakdown.OrganizerNetCents,
		Currency:      currency,
		PayerID:       req.BuyerID,
		RecipientID:   event.OrganizerID,
		RecipientRole: domain.RoleOrganizer,
		EventID:       &event.ID,
		Provider:      "paystack",
		Metadata:      metadata,
	}
	if err := uc.transactions.Create(ctx, tx); err != nil {
		return nil, fmt.Errorf("create transaction: %w", err)
	}

	init, err := uc.gateway.InitializePayment(ctx, req.BuyerEmail, breakdown.BuyerTotalCents, reference, uc.callbackURL(), tx.Metadata)
	if err != nil {
		metrics.Initiations.WithLabelValues(string(domain.TypeTicketPurchase), "gateway_error").Inc()
		uc.logger.Error("ticket purchase initialization failed",
			zap.String("reference", reference),
			zap.String("event_id", event.ID),
			zap.Error(err))
		return nil, err
	}

	if err := uc.transactions.SetGatewayHandle(ctx, tx.ID, init.AccessCode, init.Reference, nil); err != nil {
		uc.logger.Error("failed to persist gateway handle",
			zap.String("reference", reference),
			zap.Error(err))
	}

	metrics.Initiations.WithLabelValues(string(domain.TypeTicketPurchase), "ok").Inc()
	uc.logger.Info("ticket purchase initiated",
		zap.String("reference", reference),
		zap.String("event_id", event.ID),
		zap.Int("quantity", req.Quantity),
		zap.Int64("buyer_total_cents", breakdown.BuyerTotalCents))

	return &PurchaseResult{
		InitiationResult: InitiationResult{
			AuthorizationURL: init.AuthorizationURL,
			AccessCode:       init.AccessCode,
			Reference:        reference,
			TransactionID:    tx.ID,
		},
		Breakdown: breakdown,
	}, nil
}
