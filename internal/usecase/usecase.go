// Package usecase holds the payment flows: intent initiation, webhook
// reconciliation, and synchronous verification.
package usecase

import (
	"context"
	"fmt"

	"payments-service/internal/domain"
	"payments-service/internal/events"
	"payments-service/internal/fees"
	"payments-service/internal/provider/paystack"
	"payments-service/internal/repository"

	"go.uber.org/zap"
)

const (
	currency = "ZAR"

	// MinDepositCents and MinWithdrawalCents are the R50 floor on wallet
	// movements.
	MinDepositCents    = 5000
	MinWithdrawalCents = 5000

	// MaxTicketsPerOrder bounds one checkout.
	MaxTicketsPerOrder = 50
)

// Gateway is the slice of the payment provider the flows depend on.
// Implemented by the paystack client; faked in tests.
type Gateway interface {
	Configured() bool
	InitializePayment(ctx context.Context, email string, amountCents int64, reference, callbackURL string, metadata any) (*paystack.InitializeResult, error)
	VerifyPayment(ctx context.Context, reference string) (*paystack.VerifyResult, error)
	ResolveAccount(ctx context.Context, accountNumber, bankCode string) (*paystack.ResolvedAccount, error)
	CreateTransferRecipient(ctx context.Context, name, accountNumber, bankCode, currency string) (string, error)
	InitiateTransfer(ctx context.Context, amountCents int64, recipientCode, reason, reference string) (*paystack.TransferResult, error)
	GetBankList(ctx context.Context) []paystack.Bank
}

type PaymentUsecase struct {
	transactions repository.TransactionRepository
	wallets      repository.WalletRepository
	tickets      repository.TicketRepository
	eventsRepo   repository.EventRepository
	bookings     repository.BookingRepository
	gateway      Gateway
	fees         fees.Schedule
	publisher    *events.Publisher
	baseURL      string
	logger       *zap.Logger
}

func NewPaymentUsecase(
	transactions repository.TransactionRepository,
	wallets repository.WalletRepository,
	tickets repository.TicketRepository,
	eventsRepo repository.EventRepository,
	bookings repository.BookingRepository,
	gateway Gateway,
	feeSchedule fees.Schedule,
	publisher *events.Publisher,
	publicBaseURL string,
	logger *zap.Logger,
) *PaymentUsecase {
	return &PaymentUsecase{
		transactions: transactions,
		wallets:      wallets,
		tickets:      tickets,
		eventsRepo:   eventsRepo,
		bookings:     bookings,
		gateway:      gateway,
		fees:         feeSchedule,
		publisher:    publisher,
		baseURL:      publicBaseURL,
		logger:       logger,
	}
}

// InitiationResult is the redirect handle returned from checkout-style
// initiations (ticket purchases, deposits).
type InitiationResult struct {
	AuthorizationURL string `json:"authorizationUrl"`
	AccessCode       string `json:"accessCode"`
	Reference        string `json:"reference"`
	TransactionID    int64  `json:"transactionId"`
}

func (uc *PaymentUsecase) callbackURL() string {
	return fmt.Sprintf("%s/payments/callback", uc.baseURL)
}

// ListBanks returns the cached bank list for selection UIs.
func (uc *PaymentUsecase) ListBanks(ctx context.Context) []paystack.Bank {
	return uc.gateway.GetBankList(ctx)
}

// ResolveAccount verifies bank details with the gateway.
func (uc *PaymentUsecase) ResolveAccount(ctx context.Context, accountNumber, bankCode string) (*paystack.ResolvedAccount, error) {
	return uc.gateway.ResolveAccount(ctx, accountNumber, bankCode)
}

// GetTransaction returns a payer-scoped view of one ledger row.
func (uc *PaymentUsecase) GetTransaction(ctx context.Context, reference, callerID string) (*domain.Transaction, error) {
	tx, err := uc.transactions.GetByReference(ctx, reference)
	if err != nil {
		return nil, err
	}
	if callerID != "" && callerID != tx.PayerID {
		return nil, domain.ErrForbidden
	}
	return tx, nil
}
