package repository

import (
	"context"

	"payments-service/internal/domain"

	"github.com/jackc/pgx/v5/pgxpool"
)

// TicketRepository stores issued tickets. Inserts are not idempotent in the
// store; the reconciler guards against duplicate issuance by counting
// existing tickets per transaction before creating more.
type TicketRepository interface {
	CreateBatch(ctx context.Context, tickets []*domain.Ticket) error
	CountByTransaction(ctx context.Context, transactionID int64) (int, error)
	CodesByTransaction(ctx context.Context, transactionID int64) ([]string, error)
}

type ticketRepo struct {
	db *pgxpool.Pool
}

func NewTicketRepository(db *pgxpool.Pool) TicketRepository {
	return &ticketRepo{db: db}
}

func (r *ticketRepo) CreateBatch(ctx context.Context, tickets []*domain.Ticket) error {
	query := `
		INSERT INTO tickets (code, event_id, buyer_id, transaction_id, price_paid_cents)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`
	for _, t := range tickets {
		if err := r.db.QueryRow(ctx, query,
			t.Code, t.EventID, t.BuyerID, t.TransactionID, t.PricePaidCents,
		).Scan(&t.ID, &t.CreatedAt); err != nil {
			return err
		}
	}
	return nil
}

func (r *ticketRepo) CountByTransaction(ctx context.Context, transactionID int64) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM tickets WHERE transaction_id = $1`, transactionID).Scan(&count)
	return count, err
}

func (r *ticketRepo) CodesByTransaction(ctx context.Context, transactionID int64) ([]string, error) {
	rows, err := r.db.Query(ctx,
		`SELECT code FROM tickets WHERE transaction_id = $1 ORDER BY id`, transactionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, err
		}
		codes = append(codes, code)
	}
	return codes, rows.Err()
}
