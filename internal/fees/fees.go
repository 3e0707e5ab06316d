// Package fees computes platform fee breakdowns for every transaction type.
// All arithmetic is integer minor-currency units (cents); rates are basis
// points rounded half-up at each step so batch totals never drift from the
// per-unit breakdown.
package fees

import (
	"payments-service/internal/domain"
)

// Schedule holds the configured rates. Values are basis points (1/100th of
// a percent) plus optional flat amounts in cents.
type Schedule struct {
	TicketCommissionBP  int64
	PlatformFeeBP       int64
	BookingFeeBP        int64
	BookingFeeFlatCents int64

	DepositFeeBP        int64
	DepositFeeFlatCents int64

	WithdrawalFeeBP        int64
	WithdrawalFeeFlatCents int64
}

// DefaultSchedule mirrors the production fee configuration: 5% ticketing
// commission, 2.5% platform fee, 1.5% + R10 booking fee, 2.9% + R1 deposit
// fee, 1% + R10 withdrawal fee.
func DefaultSchedule() Schedule {
	return Schedule{
		TicketCommissionBP:     500,
		PlatformFeeBP:          250,
		BookingFeeBP:           150,
		BookingFeeFlatCents:    1000,
		DepositFeeBP:           290,
		DepositFeeFlatCents:    100,
		WithdrawalFeeBP:        100,
		WithdrawalFeeFlatCents: 1000,
	}
}

// basisPoints applies a basis-point rate with round-half-up.
func basisPoints(amountCents, bp int64) int64 {
	return (amountCents*bp + 5000) / 10000
}

// TicketBreakdown is the per-order money split for a ticket sale.
type TicketBreakdown struct {
	TicketPriceCents         int64 `json:"ticket_price_cents"`
	Quantity                 int   `json:"quantity"`
	TicketingCommissionCents int64 `json:"ticketing_commission_cents"`
	PlatformFeeCents         int64 `json:"platform_fee_cents"`
	BookingFeeCents          int64 `json:"booking_fee_cents"`
	BuyerTotalCents          int64 `json:"buyer_total_cents"`
	OrganizerNetCents        int64 `json:"organizer_net_cents"`
}

// TicketSaleBreakdown computes the single-ticket split. The identities
// buyerTotal = price + bookingFee and
// organizerNet = price - commission - platformFee always hold, and all
// outputs are non-negative.
func (s Schedule) TicketSaleBreakdown(ticketPriceCents int64) (TicketBreakdown, error) {
	if ticketPriceCents < 0 {
		return TicketBreakdown{}, domain.Validationf("ticket price cannot be negative")
	}

	commission := basisPoints(ticketPriceCents, s.TicketCommissionBP)
	platformFee := basisPoints(ticketPriceCents, s.PlatformFeeBP)
	bookingFee := basisPoints(ticketPriceCents, s.BookingFeeBP) + s.BookingFeeFlatCents

	organizerNet := ticketPriceCents - commission - platformFee
	if organizerNet < 0 {
		return TicketBreakdown{}, domain.Validationf("fees exceed ticket price")
	}

	return TicketBreakdown{
		TicketPriceCents:         ticketPriceCents,
		Quantity:                 1,
		TicketingCommissionCents: commission,
		PlatformFeeCents:         platformFee,
		BookingFeeCents:          bookingFee,
		BuyerTotalCents:          ticketPriceCents + bookingFee,
		OrganizerNetCents:        organizerNet,
	}, nil
}

// TicketOrderBreakdown computes the split for a quantity of identical
// tickets as exactly quantity times the single-unit breakdown, so rounding
// never accumulates across an order.
func (s Schedule) TicketOrderBreakdown(ticketPriceCents int64, quantity int) (TicketBreakdown, error) {
	if quantity < 1 {
		return TicketBreakdown{}, domain.Validationf("quantity must be at least 1")
	}
	unit, err := s.TicketSaleBreakdown(ticketPriceCents)
	if err != nil {
		return TicketBreakdown{}, err
	}

	n := int64(quantity)
	return TicketBreakdown{
		TicketPriceCents:         ticketPriceCents,
		Quantity:                 quantity,
		TicketingCommissionCents: unit.TicketingCommissionCents * n,
		PlatformFeeCents:         unit.PlatformFeeCents * n,
		BookingFeeCents:          unit.BookingFeeCents * n,
		BuyerTotalCents:          unit.BuyerTotalCents * n,
		OrganizerNetCents:        unit.OrganizerNetCents * n,
	}, nil
}

// DepositBreakdown is the money split for a wallet top-up. The wallet is
// credited DepositCents; the payer is charged TotalToPayCents.
type DepositBreakdown struct {
	DepositCents    int64 `json:"deposit_cents"`
	FeeCents        int64 `json:"fee_cents"`
	TotalToPayCents int64 `json:"total_to_pay_cents"`
}

func (s Schedule) DepositFee(amountCents int64) (DepositBreakdown, error) {
	if amountCents <= 0 {
		return DepositBreakdown{}, domain.Validationf("deposit amount must be positive")
	}
	fee := basisPoints(amountCents, s.DepositFeeBP) + s.DepositFeeFlatCents
	return DepositBreakdown{
		DepositCents:    amountCents,
		FeeCents:        fee,
		TotalToPayCents: amountCents + fee,
	}, nil
}

// WithdrawalBreakdown is the money split for a wallet withdrawal. The
// wallet is debited AmountCents; the bank receives NetCents.
type WithdrawalBreakdown struct {
	AmountCents int64 `json:"amount_cents"`
	FeeCents    int64 `json:"fee_cents"`
	NetCents    int64 `json:"net_cents"`
}

func (s Schedule) WithdrawalFee(amountCents int64) (WithdrawalBreakdown, error) {
	if amountCents <= 0 {
		return WithdrawalBreakdown{}, domain.Validationf("withdrawal amount must be positive")
	}
	fee := basisPoints(amountCents, s.WithdrawalFeeBP) + s.WithdrawalFeeFlatCents
	if fee >= amountCents {
		return WithdrawalBreakdown{}, domain.Validationf("withdrawal amount does not cover the R%d.%02d fee", fee/100, fee%100)
	}
	return WithdrawalBreakdown{
		AmountCents: amountCents,
		FeeCents:    fee,
		NetCents:    amountCents - fee,
	}, nil
}
