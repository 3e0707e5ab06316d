package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

type TransactionType string
type TransactionState string
type RecipientRole string

const (
	TypeTicketPurchase TransactionType = "ticket_purchase"
	TypeWalletDeposit  TransactionType = "wallet_deposit"
	TypeWithdrawal     TransactionType = "withdrawal"
	TypeBookingPayment TransactionType = "booking_payment"
	TypePayout         TransactionType = "payout"
)

const (
	StateInitiated  TransactionState = "initiated"
	StateAuthorized TransactionState = "authorized"
	StateHeld       TransactionState = "held"
	StateSettled    TransactionState = "settled"
	StateFailed     TransactionState = "failed"
	StateRefunded   TransactionState = "refunded"
)

const (
	RoleOrganizer RecipientRole = "organizer"
	RoleProvider  RecipientRole = "provider"
	RoleSelf      RecipientRole = "self"
)

// Transaction is the ledger row for a single payment flow. Rows are never
// deleted; corrections happen through terminal-state transitions.
type Transaction struct {
	ID            int64            `json:"id" db:"id"`
	Reference     string           `json:"reference" db:"reference"`
	Type          TransactionType  `json:"type" db:"type"`
	State         TransactionState `json:"state" db:"state"`
	AmountCents   int64            `json:"amount_cents" db:"amount_cents"`
	FeeCents      int64            `json:"fee_cents" db:"fee_cents"`
	NetCents      int64            `json:"net_cents" db:"net_cents"`
	Currency      string           `json:"currency" db:"currency"`
	PayerID       string           `json:"payer_id" db:"payer_id"`
	RecipientID   string           `json:"recipient_id" db:"recipient_id"`
	RecipientRole RecipientRole    `json:"recipient_role" db:"recipient_role"`

	EventID   *string `json:"event_id,omitempty" db:"event_id"`
	BookingID *string `json:"booking_id,omitempty" db:"booking_id"`

	Provider        string          `json:"provider" db:"provider"`
	GatewayRef      *string         `json:"gateway_ref,omitempty" db:"gateway_ref"`
	AccessCode      *string         `json:"access_code,omitempty" db:"access_code"`
	GatewayResponse json.RawMessage `json:"gateway_response,omitempty" db:"gateway_response"`
	Metadata        json.RawMessage `json:"metadata,omitempty" db:"metadata"`

	FailureReason *string `json:"failure_reason,omitempty" db:"failure_reason"`

	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
	AuthorizedAt *time.Time `json:"authorized_at,omitempty" db:"authorized_at"`
	HeldAt       *time.Time `json:"held_at,omitempty" db:"held_at"`
	SettledAt    *time.Time `json:"settled_at,omitempty" db:"settled_at"`
	FailedAt     *time.Time `json:"failed_at,omitempty" db:"failed_at"`
	RefundedAt   *time.Time `json:"refunded_at,omitempty" db:"refunded_at"`
}

// allowedTransitions encodes the monotonic state machine. Transfer legs
// (withdrawals, payouts) settle or fail straight from initiated because they
// never escrow; admin refunds may follow a failed-after-capture row.
var allowedTransitions = map[TransactionState][]TransactionState{
	StateInitiated:  {StateAuthorized, StateSettled, StateFailed},
	StateAuthorized: {StateHeld, StateSettled, StateFailed},
	StateHeld:       {StateSettled, StateFailed},
	StateSettled:    {StateRefunded},
	StateFailed:     {StateRefunded},
}

// CanTransition reports whether moving from one state to another is legal.
func CanTransition(from, to TransactionState) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further reconciliation applies to the state.
func IsTerminal(s TransactionState) bool {
	return s == StateSettled || s == StateFailed || s == StateRefunded
}

// TicketPurchaseMetadata is attached to ticket_purchase transactions and
// round-trips through the gateway so the reconciler knows what to issue.
type TicketPurchaseMetadata struct {
	PaymentType    TransactionType `json:"payment_type"`
	EventID        string          `json:"event_id"`
	EventName      string          `json:"event_name"`
	Quantity       int             `json:"quantity"`
	UnitPriceCents int64           `json:"unit_price_cents"`
}

type DepositMetadata struct {
	PaymentType  TransactionType `json:"payment_type"`
	DepositCents int64           `json:"deposit_cents"`
	FeeCents     int64           `json:"fee_cents"`
}

type WithdrawalMetadata struct {
	PaymentType   TransactionType `json:"payment_type"`
	BankCode      string          `json:"bank_code"`
	AccountNumber string          `json:"account_number"`
	AccountName   string          `json:"account_name"`
	RecipientCode string          `json:"recipient_code"`
	TransferCode  string          `json:"transfer_code,omitempty"`
}

type BookingPaymentMetadata struct {
	PaymentType TransactionType `json:"payment_type"`
	BookingID   string          `json:"booking_id"`
	ServiceName string          `json:"service_name,omitempty"`
}

// EncodeMetadata marshals a typed metadata variant for storage.
func EncodeMetadata(v any) (json.RawMessage, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}
	return raw, nil
}

// DecodeMetadata unmarshals transaction metadata into the typed variant the
// caller expects for the transaction's type.
func DecodeMetadata(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return fmt.Errorf("transaction has no metadata")
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode metadata: %w", err)
	}
	return nil
}
