package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"payments-service/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TransitionFields carries the optional columns written alongside a state
// transition.
type TransitionFields struct {
	FailureReason   *string
	GatewayResponse json.RawMessage
}

// TransactionRepository is the append-only transaction ledger. State moves
// only through TransitionState, which is conditional on the expected
// current state so webhook replays cannot re-apply a transition.
type TransactionRepository interface {
	Create(ctx context.Context, tx *domain.Transaction) error
	GetByReference(ctx context.Context, reference string) (*domain.Transaction, error)
	TransitionState(ctx context.Context, id int64, from, to domain.TransactionState, fields TransitionFields) (bool, error)
	SetGatewayHandle(ctx context.Context, id int64, accessCode, gatewayRef string, raw json.RawMessage) error
	UpdateMetadata(ctx context.Context, id int64, metadata json.RawMessage) error
}

type transactionRepo struct {
	db *pgxpool.Pool
}

func NewTransactionRepository(db *pgxpool.Pool) TransactionRepository {
	return &transactionRepo{db: db}
}

const transactionColumns = `
	id, reference, type, state, amount_cents, fee_cents, net_cents, currency,
	payer_id, recipient_id, recipient_role, event_id, booking_id,
	provider, gateway_ref, access_code, gateway_response, metadata,
	failure_reason, created_at, updated_at,
	authorized_at, held_at, settled_at, failed_at, refunded_at`

func (r *transactionRepo) Create(ctx context.Context, tx *domain.Transaction) error {
	query := `
		INSERT INTO transactions (
			reference, type, state, amount_cents, fee_cents, net_cents, currency,
			payer_id, recipient_id, recipient_role, event_id, booking_id,
			provider, metadata
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id, created_at, updated_at
	`

	return r.db.QueryRow(ctx, query,
		tx.Reference,
		tx.Type,
		tx.State,
		tx.AmountCents,
		tx.FeeCents,
		tx.NetCents,
		tx.Currency,
		tx.PayerID,
		tx.RecipientID,
		tx.RecipientRole,
		tx.EventID,
		tx.BookingID,
		tx.Provider,
		tx.Metadata,
	).Scan(&tx.ID, &tx.CreatedAt, &tx.UpdatedAt)
}

func (r *transactionRepo) GetByReference(ctx context.Context, reference string) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE reference = $1`

	var tx domain.Transaction
	err := r.db.QueryRow(ctx, query, reference).Scan(
		&tx.ID,
		&tx.Reference,
		&tx.Type,
		&tx.State,
		&tx.AmountCents,
		&tx.FeeCents,
		&tx.NetCents,
		&tx.Currency,
		&tx.PayerID,
		&tx.RecipientID,
		&tx.RecipientRole,
		&tx.EventID,
		&tx.BookingID,
		&tx.Provider,
		&tx.GatewayRef,
		&tx.AccessCode,
		&tx.GatewayResponse,
		&tx.Metadata,
		&tx.FailureReason,
		&tx.CreatedAt,
		&tx.UpdatedAt,
		&tx.AuthorizedAt,
		&tx.HeldAt,
		&tx.SettledAt,
		&tx.FailedAt,
		&tx.RefundedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

// stateTimestampColumn maps a target state to the timestamp column stamped
// when the row enters it.
func stateTimestampColumn(to domain.TransactionState) string {
	switch to {
	case domain.StateAuthorized:
		return "authorized_at"
	case domain.StateHeld:
		return "held_at"
	case domain.StateSettled:
		return "settled_at"
	case domain.StateFailed:
		return "failed_at"
	case domain.StateRefunded:
		return "refunded_at"
	}
	return ""
}

// TransitionState applies one state-machine edge as a single conditional
// update. It returns false when the row was not in the expected state,
// which is how webhook replays short-circuit. An illegal edge is a loud
// error, not a silent no-op.
func (r *transactionRepo) TransitionState(ctx context.Context, id int64, from, to domain.TransactionState, fields TransitionFields) (bool, error) {
	if !domain.CanTransition(from, to) {
		return false, fmt.Errorf("illegal transition %s -> %s", from, to)
	}
	tsColumn := stateTimestampColumn(to)

	query := fmt.Sprintf(`
		UPDATE transactions
		SET
			state = $1,
			%s = NOW(),
			failure_reason = COALESCE($2, failure_reason),
			gateway_response = COALESCE($3, gateway_response),
			updated_at = NOW()
		WHERE id = $4 AND state = $5
	`, tsColumn)

	tag, err := r.db.Exec(ctx, query, to, fields.FailureReason, fields.GatewayResponse, id, from)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *transactionRepo) SetGatewayHandle(ctx context.Context, id int64, accessCode, gatewayRef string, raw json.RawMessage) error {
	query := `
		UPDATE transactions
		SET
			access_code = $1,
			gateway_ref = $2,
			gateway_response = COALESCE($3, gateway_response),
			updated_at = NOW()
		WHERE id = $4
	`

	_, err := r.db.Exec(ctx, query, accessCode, gatewayRef, raw, id)
	return err
}

func (r *transactionRepo) UpdateMetadata(ctx context.Context, id int64, metadata json.RawMessage) error {
	query := `UPDATE transactions SET metadata = $1, updated_at = NOW() WHERE id = $2`
	_, err := r.db.Exec(ctx, query, metadata, id)
	return err
}
