package repository

import (
	"context"
	"errors"

	"payments-service/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// BookingRepository flips booking state once a booking payment is held.
type BookingRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Booking, error)
	Confirm(ctx context.Context, id string) error
}

type bookingRepo struct {
	db *pgxpool.Pool
}

func NewBookingRepository(db *pgxpool.Pool) BookingRepository {
	return &bookingRepo{db: db}
}

func (r *bookingRepo) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	var b domain.Booking
	err := r.db.QueryRow(ctx,
		`SELECT id, client_id, provider_id, status FROM bookings WHERE id = $1`, id).
		Scan(&b.ID, &b.ClientID, &b.ProviderID, &b.Status)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *bookingRepo) Confirm(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE bookings SET status = $2, updated_at = NOW() WHERE id = $1`,
		id, domain.BookingConfirmed)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
