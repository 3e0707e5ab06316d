package domain

import "time"

type EventStatus string

const (
	EventDraft     EventStatus = "draft"
	EventPublished EventStatus = "published"
	EventLocked    EventStatus = "locked"
	EventCompleted EventStatus = "completed"
	EventCancelled EventStatus = "cancelled"
)

// Event is the sellable listing a ticket purchase runs against. Only the
// fields the payment core reads and mutates are modelled here.
type Event struct {
	ID               string      `json:"id" db:"id"`
	OrganizerID      string      `json:"organizer_id" db:"organizer_id"`
	Name             string      `json:"name" db:"name"`
	Status           EventStatus `json:"status" db:"status"`
	TicketPriceCents int64       `json:"ticket_price_cents" db:"ticket_price_cents"`
	Capacity         int         `json:"capacity" db:"capacity"`
	TicketsSold      int         `json:"tickets_sold" db:"tickets_sold"`
	RevenueCents     int64       `json:"revenue_cents" db:"revenue_cents"`
}

// Sellable reports whether tickets may be initiated against the event.
func (e *Event) Sellable() bool {
	return e.Status == EventPublished || e.Status == EventLocked
}

// Ticket is issued by the reconciler once a purchase charge succeeds.
type Ticket struct {
	ID             int64     `json:"id" db:"id"`
	Code           string    `json:"code" db:"code"`
	EventID        string    `json:"event_id" db:"event_id"`
	BuyerID        string    `json:"buyer_id" db:"buyer_id"`
	TransactionID  int64     `json:"transaction_id" db:"transaction_id"`
	PricePaidCents int64     `json:"price_paid_cents" db:"price_paid_cents"`
	CheckedIn      bool      `json:"checked_in" db:"checked_in"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
)

// Booking is a service-provider engagement paid through the gateway.
type Booking struct {
	ID         string        `json:"id" db:"id"`
	ClientID   string        `json:"client_id" db:"client_id"`
	ProviderID string        `json:"provider_id" db:"provider_id"`
	Status     BookingStatus `json:"status" db:"status"`
}

// Wallet is the cached balance attached to a user. It changes only as a
// side effect of a transaction reaching a specific state.
type Wallet struct {
	UserID       string    `json:"user_id" db:"user_id"`
	BalanceCents int64     `json:"balance_cents" db:"balance_cents"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}
