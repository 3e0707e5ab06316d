package fees

import (
	"errors"
	"testing"

	"payments-service/internal/domain"
)

func TestTicketSaleBreakdown_Identities(t *testing.T) {
	s := DefaultSchedule()

	prices := []int64{0, 1, 99, 100, 5000, 10000, 123457, 9999999, 10000000}
	for _, price := range prices {
		b, err := s.TicketSaleBreakdown(price)
		if err != nil {
			t.Fatalf("price %d: unexpected error: %v", price, err)
		}

		if got := b.TicketPriceCents + b.BookingFeeCents; b.BuyerTotalCents != got {
			t.Errorf("price %d: buyer total %d != price+bookingFee %d", price, b.BuyerTotalCents, got)
		}
		want := b.TicketPriceCents - b.TicketingCommissionCents - b.PlatformFeeCents
		if b.OrganizerNetCents != want {
			t.Errorf("price %d: organizer net %d != price-commission-platform %d", price, b.OrganizerNetCents, want)
		}
		for name, v := range map[string]int64{
			"commission":    b.TicketingCommissionCents,
			"platform_fee":  b.PlatformFeeCents,
			"booking_fee":   b.BookingFeeCents,
			"buyer_total":   b.BuyerTotalCents,
			"organizer_net": b.OrganizerNetCents,
		} {
			if v < 0 {
				t.Errorf("price %d: %s is negative: %d", price, name, v)
			}
		}
	}
}

func TestTicketSaleBreakdown_NegativePrice(t *testing.T) {
	var vErr *domain.ValidationError
	_, err := DefaultSchedule().TicketSaleBreakdown(-1)
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestTicketOrderBreakdown_ComposesExactly(t *testing.T) {
	s := DefaultSchedule()

	prices := []int64{0, 1, 33, 101, 9999, 10000, 54321, 10000000}
	for _, price := range prices {
		unit, err := s.TicketSaleBreakdown(price)
		if err != nil {
			t.Fatalf("price %d: %v", price, err)
		}
		for qty := 1; qty <= 50; qty++ {
			batch, err := s.TicketOrderBreakdown(price, qty)
			if err != nil {
				t.Fatalf("price %d qty %d: %v", price, qty, err)
			}
			if batch.BuyerTotalCents != unit.BuyerTotalCents*int64(qty) {
				t.Fatalf("price %d qty %d: buyer total %d, want %d",
					price, qty, batch.BuyerTotalCents, unit.BuyerTotalCents*int64(qty))
			}
			if batch.OrganizerNetCents != unit.OrganizerNetCents*int64(qty) {
				t.Fatalf("price %d qty %d: organizer net %d, want %d",
					price, qty, batch.OrganizerNetCents, unit.OrganizerNetCents*int64(qty))
			}
		}
	}
}

func TestTicketOrderBreakdown_RejectsZeroQuantity(t *testing.T) {
	var vErr *domain.ValidationError
	_, err := DefaultSchedule().TicketOrderBreakdown(10000, 0)
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestDepositFee(t *testing.T) {
	s := DefaultSchedule()

	b, err := s.DepositFee(10000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b.TotalToPayCents != b.DepositCents+b.FeeCents {
		t.Errorf("total %d != deposit+fee %d", b.TotalToPayCents, b.DepositCents+b.FeeCents)
	}
	// 2.9% of R100 is R2.90 plus the R1 flat part.
	if b.FeeCents != 390 {
		t.Errorf("fee = %d, want 390", b.FeeCents)
	}

	if _, err := s.DepositFee(0); err == nil {
		t.Error("expected error for zero deposit")
	}
}

func TestWithdrawalFee(t *testing.T) {
	s := DefaultSchedule()

	t.Run("net plus fee equals amount", func(t *testing.T) {
		b, err := s.WithdrawalFee(5000)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if b.NetCents+b.FeeCents != b.AmountCents {
			t.Errorf("net %d + fee %d != amount %d", b.NetCents, b.FeeCents, b.AmountCents)
		}
		if b.FeeCents >= b.AmountCents {
			t.Errorf("fee %d not below amount %d", b.FeeCents, b.AmountCents)
		}
	})

	t.Run("rejects amounts at or below the fee floor", func(t *testing.T) {
		// Flat fee is 1000c; at these amounts fee >= amount.
		for _, amount := range []int64{1, 500, 1000, 1010} {
			var vErr *domain.ValidationError
			if _, err := s.WithdrawalFee(amount); !errors.As(err, &vErr) {
				t.Errorf("amount %d: expected ValidationError, got %v", amount, err)
			}
		}
	})

	t.Run("fee stays below amount across range", func(t *testing.T) {
		for amount := int64(1); amount <= 200000; amount += 97 {
			b, err := s.WithdrawalFee(amount)
			if err != nil {
				continue
			}
			if b.FeeCents >= amount {
				t.Fatalf("amount %d: fee %d not below amount", amount, b.FeeCents)
			}
		}
	})
}
