package usecase

import (
	"context"
	"errors"
	"testing"

	"payments-service/internal/domain"
)

func publishedEvent() *domain.Event {
	return &domain.Event{
		ID:               "evt-1",
		OrganizerID:      "org-1",
		Name:             "Cape Town Jazz Night",
		Status:           domain.EventPublished,
		TicketPriceCents: 10000,
		Capacity:         100,
	}
}

func TestInitiateTicketPurchase(t *testing.T) {
	ctx := context.Background()

	t.Run("happy path", func(t *testing.T) {
		env := newTestEnv(nil, []*domain.Event{publishedEvent()}, nil)

		result, err := env.uc.InitiateTicketPurchase(ctx, PurchaseRequest{
			BuyerID:    "user-1",
			BuyerEmail: "buyer@example.com",
			EventID:    "evt-1",
			Quantity:   2,
		})
		if err != nil {
			t.Fatalf("InitiateTicketPurchase: %v", err)
		}
		if result.AuthorizationURL == "" || result.Reference == "" {
			t.Fatalf("missing checkout handle: %+v", result)
		}

		// Per ticket at R100: booking fee 150+1000, commission 500,
		// platform fee 250.
		if result.Breakdown.BuyerTotalCents != 22300 {
			t.Errorf("buyer total = %d, want 22300", result.Breakdown.BuyerTotalCents)
		}
		if result.Breakdown.OrganizerNetCents != 18500 {
			t.Errorf("organizer net = %d, want 18500", result.Breakdown.OrganizerNetCents)
		}

		tx := env.transactions.get(result.Reference)
		if tx == nil {
			t.Fatal("transaction not persisted")
		}
		if tx.State != domain.StateInitiated {
			t.Errorf("state = %s, want initiated", tx.State)
		}
		if tx.AmountCents != 22300 || tx.NetCents != 18500 || tx.FeeCents != 3800 {
			t.Errorf("amounts = %d/%d/%d, want 22300/3800/18500", tx.AmountCents, tx.FeeCents, tx.NetCents)
		}
		if tx.RecipientID != "org-1" || tx.RecipientRole != domain.RoleOrganizer {
			t.Errorf("recipient = %s/%s, want org-1/organizer", tx.RecipientID, tx.RecipientRole)
		}
		if env.tickets.nextID != 0 {
			t.Error("tickets must not be issued at initiation")
		}
	})

	t.Run("quantity bounds", func(t *testing.T) {
		env := newTestEnv(nil, []*domain.Event{publishedEvent()}, nil)
		for _, qty := range []int{0, -1, MaxTicketsPerOrder + 1} {
			_, err := env.uc.InitiateTicketPurchase(ctx, PurchaseRequest{
				BuyerID: "user-1", EventID: "evt-1", Quantity: qty,
			})
			var vErr *domain.ValidationError
			if !errors.As(err, &vErr) {
				t.Errorf("quantity %d: got %v, want validation error", qty, err)
			}
		}
	})

	t.Run("event not sellable", func(t *testing.T) {
		ev := publishedEvent()
		ev.Status = domain.EventDraft
		env := newTestEnv(nil, []*domain.Event{ev}, nil)

		_, err := env.uc.InitiateTicketPurchase(ctx, PurchaseRequest{
			BuyerID: "user-1", EventID: "evt-1", Quantity: 1,
		})
		var vErr *domain.ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("got %v, want validation error", err)
		}
	})

	t.Run("sold out", func(t *testing.T) {
		ev := publishedEvent()
		ev.TicketsSold = ev.Capacity
		env := newTestEnv(nil, []*domain.Event{ev}, nil)

		_, err := env.uc.InitiateTicketPurchase(ctx, PurchaseRequest{
			BuyerID: "user-1", EventID: "evt-1", Quantity: 1,
		})
		var vErr *domain.ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("got %v, want validation error", err)
		}
	})

	t.Run("not enough remaining", func(t *testing.T) {
		ev := publishedEvent()
		ev.Capacity = 10
		ev.TicketsSold = 8
		env := newTestEnv(nil, []*domain.Event{ev}, nil)

		_, err := env.uc.InitiateTicketPurchase(ctx, PurchaseRequest{
			BuyerID: "user-1", EventID: "evt-1", Quantity: 5,
		})
		var vErr *domain.ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("got %v, want validation error", err)
		}
	})

	t.Run("unknown event", func(t *testing.T) {
		env := newTestEnv(nil, nil, nil)
		_, err := env.uc.InitiateTicketPurchase(ctx, PurchaseRequest{
			BuyerID: "user-1", EventID: "missing", Quantity: 1,
		})
		if !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("got %v, want ErrNotFound", err)
		}
	})

	t.Run("gateway not configured", func(t *testing.T) {
		env := newTestEnv(&fakeGateway{unconfigured: true}, []*domain.Event{publishedEvent()}, nil)
		_, err := env.uc.InitiateTicketPurchase(ctx, PurchaseRequest{
			BuyerID: "user-1", EventID: "evt-1", Quantity: 1,
		})
		if !errors.Is(err, domain.ErrGatewayNotConfigured) {
			t.Fatalf("got %v, want ErrGatewayNotConfigured", err)
		}
	})

	t.Run("gateway initialization failure", func(t *testing.T) {
		gw := &fakeGateway{initErr: &domain.GatewayError{Op: "initialize", Err: errors.New("boom")}}
		env := newTestEnv(gw, []*domain.Event{publishedEvent()}, nil)

		_, err := env.uc.InitiateTicketPurchase(ctx, PurchaseRequest{
			BuyerID: "user-1", EventID: "evt-1", Quantity: 1,
		})
		var gErr *domain.GatewayError
		if !errors.As(err, &gErr) {
			t.Fatalf("got %v, want gateway error", err)
		}
	})
}

func TestInitiateDeposit(t *testing.T) {
	ctx := context.Background()

	t.Run("happy path", func(t *testing.T) {
		env := newTestEnv(nil, nil, nil)

		result, err := env.uc.InitiateDeposit(ctx, DepositRequest{
			UserID: "user-1", Email: "user@example.com", AmountCents: 10000,
		})
		if err != nil {
			t.Fatalf("InitiateDeposit: %v", err)
		}
		// 2.9% + R1 on R100.
		if result.Breakdown.FeeCents != 390 || result.Breakdown.TotalToPayCents != 10390 {
			t.Errorf("breakdown = %+v, want fee 390, total 10390", result.Breakdown)
		}

		tx := env.transactions.get(result.Reference)
		if tx.AmountCents != 10390 || tx.NetCents != 10000 {
			t.Errorf("amounts = %d/%d, want 10390/10000", tx.AmountCents, tx.NetCents)
		}

		// Credit waits for settlement.
		if balance, _ := env.wallets.Balance(ctx, "user-1"); balance != 0 {
			t.Errorf("wallet credited at initiation: %d", balance)
		}
	})

	t.Run("below minimum", func(t *testing.T) {
		env := newTestEnv(nil, nil, nil)
		_, err := env.uc.InitiateDeposit(ctx, DepositRequest{
			UserID: "user-1", Email: "user@example.com", AmountCents: MinDepositCents - 1,
		})
		var vErr *domain.ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("got %v, want validation error", err)
		}
	})
}

func TestInitiateWithdrawal(t *testing.T) {
	ctx := context.Background()

	req := WithdrawalRequest{
		UserID:        "user-1",
		AmountCents:   10000,
		BankCode:      "470010",
		AccountNumber: "1234567890",
		AccountName:   "T Mokoena",
	}

	t.Run("happy path debits eagerly", func(t *testing.T) {
		env := newTestEnv(nil, nil, nil)
		env.wallets.balances["user-1"] = 20000

		result, err := env.uc.InitiateWithdrawal(ctx, req)
		if err != nil {
			t.Fatalf("InitiateWithdrawal: %v", err)
		}
		// 1% + R10 on R100.
		if result.Breakdown.FeeCents != 1100 || result.Breakdown.NetCents != 8900 {
			t.Errorf("breakdown = %+v, want fee 1100, net 8900", result.Breakdown)
		}

		if balance, _ := env.wallets.Balance(ctx, "user-1"); balance != 10000 {
			t.Errorf("balance after debit = %d, want 10000", balance)
		}

		tx := env.transactions.get(result.Reference)
		if tx.State != domain.StateInitiated {
			t.Errorf("state = %s, want initiated", tx.State)
		}
		var md domain.WithdrawalMetadata
		if err := domain.DecodeMetadata(tx.Metadata, &md); err != nil {
			t.Fatalf("decode metadata: %v", err)
		}
		if md.TransferCode == "" || md.RecipientCode == "" {
			t.Errorf("transfer handles not persisted: %+v", md)
		}
	})

	t.Run("insufficient balance", func(t *testing.T) {
		env := newTestEnv(nil, nil, nil)
		env.wallets.balances["user-1"] = 5000

		_, err := env.uc.InitiateWithdrawal(ctx, req)
		var vErr *domain.ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("got %v, want validation error", err)
		}
		if env.gateway.transferCalls != 0 {
			t.Error("transfer must not be initiated without funds")
		}
	})

	t.Run("below minimum", func(t *testing.T) {
		env := newTestEnv(nil, nil, nil)
		small := req
		small.AmountCents = MinWithdrawalCents - 1
		_, err := env.uc.InitiateWithdrawal(ctx, small)
		var vErr *domain.ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("got %v, want validation error", err)
		}
	})

	t.Run("bad bank details fail before money moves", func(t *testing.T) {
		gw := &fakeGateway{recipientErr: &domain.GatewayError{Op: "transfer_recipient", Err: errors.New("invalid account")}}
		env := newTestEnv(gw, nil, nil)
		env.wallets.balances["user-1"] = 20000

		_, err := env.uc.InitiateWithdrawal(ctx, req)
		var gErr *domain.GatewayError
		if !errors.As(err, &gErr) {
			t.Fatalf("got %v, want gateway error", err)
		}
		if balance, _ := env.wallets.Balance(ctx, "user-1"); balance != 20000 {
			t.Errorf("balance = %d, want untouched 20000", balance)
		}
	})

	t.Run("transfer initiation failure refunds the debit", func(t *testing.T) {
		gw := &fakeGateway{transferErr: &domain.GatewayError{Op: "transfer", Err: errors.New("gateway down")}}
		env := newTestEnv(gw, nil, nil)
		env.wallets.balances["user-1"] = 20000

		_, err := env.uc.InitiateWithdrawal(ctx, req)
		if err == nil {
			t.Fatal("expected error")
		}

		if balance, _ := env.wallets.Balance(ctx, "user-1"); balance != 20000 {
			t.Errorf("balance = %d, want refunded 20000", balance)
		}

		// The only row is the failed withdrawal.
		var failed *domain.Transaction
		for _, tx := range env.transactions.rows {
			failed = tx
		}
		if failed == nil || failed.State != domain.StateFailed {
			t.Fatalf("transaction = %+v, want failed", failed)
		}
		if failed.FailureReason == nil {
			t.Error("failure reason not recorded")
		}
	})
}
