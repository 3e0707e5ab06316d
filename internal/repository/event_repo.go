package repository

import (
	"context"
	"errors"

	"payments-service/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// EventRepository reads listings and applies sold-counter updates. The
// sold counter moves through AddSoldWithCeiling, an atomic
// increment-with-ceiling, so two settlements can never oversell an event
// even when both initiations passed the capacity pre-check.
type EventRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Event, error)
	AddSoldWithCeiling(ctx context.Context, id string, quantity int, revenueCents int64) (bool, error)
}

type eventRepo struct {
	db *pgxpool.Pool
}

func NewEventRepository(db *pgxpool.Pool) EventRepository {
	return &eventRepo{db: db}
}

func (r *eventRepo) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	query := `
		SELECT id, organizer_id, name, status, ticket_price_cents,
		       capacity, tickets_sold, revenue_cents
		FROM events WHERE id = $1
	`

	var e domain.Event
	err := r.db.QueryRow(ctx, query, id).Scan(
		&e.ID,
		&e.OrganizerID,
		&e.Name,
		&e.Status,
		&e.TicketPriceCents,
		&e.Capacity,
		&e.TicketsSold,
		&e.RevenueCents,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *eventRepo) AddSoldWithCeiling(ctx context.Context, id string, quantity int, revenueCents int64) (bool, error) {
	query := `
		UPDATE events
		SET tickets_sold = tickets_sold + $2,
		    revenue_cents = revenue_cents + $3,
		    updated_at = NOW()
		WHERE id = $1 AND tickets_sold + $2 <= capacity
	`
	tag, err := r.db.Exec(ctx, query, id, quantity, revenueCents)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
