package repository

import (
	"context"
	"errors"

	"payments-service/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// WalletRepository manages cached user balances. Debit is conditional on a
// sufficient balance so concurrent withdrawals cannot overdraw.
type WalletRepository interface {
	Balance(ctx context.Context, userID string) (int64, error)
	Credit(ctx context.Context, userID string, amountCents int64) error
	Debit(ctx context.Context, userID string, amountCents int64) (bool, error)
}

type walletRepo struct {
	db *pgxpool.Pool
}

func NewWalletRepository(db *pgxpool.Pool) WalletRepository {
	return &walletRepo{db: db}
}

func (r *walletRepo) Balance(ctx context.Context, userID string) (int64, error) {
	var balance int64
	err := r.db.QueryRow(ctx,
		`SELECT balance_cents FROM wallets WHERE user_id = $1`, userID).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return balance, nil
}

func (r *walletRepo) Credit(ctx context.Context, userID string, amountCents int64) error {
	if amountCents <= 0 {
		return domain.Validationf("credit amount must be positive")
	}
	query := `
		INSERT INTO wallets (user_id, balance_cents, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (user_id)
		DO UPDATE SET balance_cents = wallets.balance_cents + $2, updated_at = NOW()
	`
	_, err := r.db.Exec(ctx, query, userID, amountCents)
	return err
}

// Debit subtracts amountCents and reports false when the balance does not
// cover it. Check and subtraction are one statement.
func (r *walletRepo) Debit(ctx context.Context, userID string, amountCents int64) (bool, error) {
	if amountCents <= 0 {
		return false, domain.Validationf("debit amount must be positive")
	}
	query := `
		UPDATE wallets
		SET balance_cents = balance_cents - $2, updated_at = NOW()
		WHERE user_id = $1 AND balance_cents >= $2
	`
	tag, err := r.db.Exec(ctx, query, userID, amountCents)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
