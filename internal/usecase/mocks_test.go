package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"payments-service/internal/domain"
	"payments-service/internal/events"
	"payments-service/internal/fees"
	"payments-service/internal/provider/paystack"
	"payments-service/internal/repository"

	"go.uber.org/zap"
)

// In-memory fakes mirroring the conditional-update semantics of the real
// repositories, so the reconciliation tests exercise the same idempotency
// behavior the database gives us.

type fakeTransactionRepo struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]*domain.Transaction
}

func newFakeTransactionRepo() *fakeTransactionRepo {
	return &fakeTransactionRepo{rows: make(map[int64]*domain.Transaction)}
}

func (r *fakeTransactionRepo) Create(ctx context.Context, tx *domain.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	tx.ID = r.nextID
	stored := *tx
	r.rows[tx.ID] = &stored
	return nil
}

func (r *fakeTransactionRepo) GetByReference(ctx context.Context, reference string) (*domain.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, tx := range r.rows {
		if tx.Reference == reference {
			copied := *tx
			return &copied, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *fakeTransactionRepo) TransitionState(ctx context.Context, id int64, from, to domain.TransactionState, fields repository.TransitionFields) (bool, error) {
	if !domain.CanTransition(from, to) {
		return false, fmt.Errorf("illegal transition %s -> %s", from, to)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	tx, ok := r.rows[id]
	if !ok || tx.State != from {
		return false, nil
	}
	tx.State = to
	if fields.FailureReason != nil {
		tx.FailureReason = fields.FailureReason
	}
	if fields.GatewayResponse != nil {
		tx.GatewayResponse = fields.GatewayResponse
	}
	return true, nil
}

func (r *fakeTransactionRepo) SetGatewayHandle(ctx context.Context, id int64, accessCode, gatewayRef string, raw json.RawMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if tx, ok := r.rows[id]; ok {
		tx.AccessCode = &accessCode
		tx.GatewayRef = &gatewayRef
		if raw != nil {
			tx.GatewayResponse = raw
		}
	}
	return nil
}

func (r *fakeTransactionRepo) UpdateMetadata(ctx context.Context, id int64, metadata json.RawMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if tx, ok := r.rows[id]; ok {
		tx.Metadata = metadata
	}
	return nil
}

// get returns the stored row for assertions.
func (r *fakeTransactionRepo) get(reference string) *domain.Transaction {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, tx := range r.rows {
		if tx.Reference == reference {
			copied := *tx
			return &copied
		}
	}
	return nil
}

type fakeWalletRepo struct {
	mu       sync.Mutex
	balances map[string]int64
}

func newFakeWalletRepo() *fakeWalletRepo {
	return &fakeWalletRepo{balances: make(map[string]int64)}
}

func (r *fakeWalletRepo) Balance(ctx context.Context, userID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.balances[userID], nil
}

func (r *fakeWalletRepo) Credit(ctx context.Context, userID string, amountCents int64) error {
	if amountCents <= 0 {
		return domain.Validationf("credit amount must be positive")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.balances[userID] += amountCents
	return nil
}

func (r *fakeWalletRepo) Debit(ctx context.Context, userID string, amountCents int64) (bool, error) {
	if amountCents <= 0 {
		return false, domain.Validationf("debit amount must be positive")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.balances[userID] < amountCents {
		return false, nil
	}
	r.balances[userID] -= amountCents
	return true, nil
}

type fakeTicketRepo struct {
	mu      sync.Mutex
	nextID  int64
	tickets []*domain.Ticket
}

func newFakeTicketRepo() *fakeTicketRepo {
	return &fakeTicketRepo{}
}

func (r *fakeTicketRepo) CreateBatch(ctx context.Context, tickets []*domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range tickets {
		r.nextID++
		t.ID = r.nextID
		r.tickets = append(r.tickets, t)
	}
	return nil
}

func (r *fakeTicketRepo) CountByTransaction(ctx context.Context, transactionID int64) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, t := range r.tickets {
		if t.TransactionID == transactionID {
			count++
		}
	}
	return count, nil
}

func (r *fakeTicketRepo) CodesByTransaction(ctx context.Context, transactionID int64) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var codes []string
	for _, t := range r.tickets {
		if t.TransactionID == transactionID {
			codes = append(codes, t.Code)
		}
	}
	return codes, nil
}

type fakeEventRepo struct {
	mu     sync.Mutex
	events map[string]*domain.Event
}

func newFakeEventRepo(evs ...*domain.Event) *fakeEventRepo {
	r := &fakeEventRepo{events: make(map[string]*domain.Event)}
	for _, e := range evs {
		r.events[e.ID] = e
	}
	return r
}

func (r *fakeEventRepo) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.events[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *e
	return &copied, nil
}

func (r *fakeEventRepo) AddSoldWithCeiling(ctx context.Context, id string, quantity int, revenueCents int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.events[id]
	if !ok || e.TicketsSold+quantity > e.Capacity {
		return false, nil
	}
	e.TicketsSold += quantity
	e.RevenueCents += revenueCents
	return true, nil
}

type fakeBookingRepo struct {
	mu       sync.Mutex
	bookings map[string]*domain.Booking
}

func newFakeBookingRepo(bs ...*domain.Booking) *fakeBookingRepo {
	r := &fakeBookingRepo{bookings: make(map[string]*domain.Booking)}
	for _, b := range bs {
		r.bookings[b.ID] = b
	}
	return r
}

func (r *fakeBookingRepo) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *b
	return &copied, nil
}

func (r *fakeBookingRepo) Confirm(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return domain.ErrNotFound
	}
	b.Status = domain.BookingConfirmed
	return nil
}

// fakeGateway returns canned results and records call counts.
type fakeGateway struct {
	unconfigured bool

	initResult *paystack.InitializeResult
	initErr    error

	verifyResult *paystack.VerifyResult
	verifyErr    error

	resolved   *paystack.ResolvedAccount
	resolveErr error

	recipientCode string
	recipientErr  error

	transferResult *paystack.TransferResult
	transferErr    error

	banks []paystack.Bank

	initCalls     int
	verifyCalls   int
	transferCalls int
}

func (g *fakeGateway) Configured() bool { return !g.unconfigured }

func (g *fakeGateway) InitializePayment(ctx context.Context, email string, amountCents int64, reference, callbackURL string, metadata any) (*paystack.InitializeResult, error) {
	g.initCalls++
	if g.initErr != nil {
		return nil, g.initErr
	}
	if g.initResult != nil {
		return g.initResult, nil
	}
	return &paystack.InitializeResult{
		AuthorizationURL: "https://checkout.paystack.com/" + reference,
		AccessCode:       "AC_" + reference,
		Reference:        reference,
	}, nil
}

func (g *fakeGateway) VerifyPayment(ctx context.Context, reference string) (*paystack.VerifyResult, error) {
	g.verifyCalls++
	if g.verifyErr != nil {
		return nil, g.verifyErr
	}
	if g.verifyResult != nil {
		return g.verifyResult, nil
	}
	return nil, domain.ErrNotFound
}

func (g *fakeGateway) ResolveAccount(ctx context.Context, accountNumber, bankCode string) (*paystack.ResolvedAccount, error) {
	if g.resolveErr != nil {
		return nil, g.resolveErr
	}
	return g.resolved, nil
}

func (g *fakeGateway) CreateTransferRecipient(ctx context.Context, name, accountNumber, bankCode, currency string) (string, error) {
	if g.recipientErr != nil {
		return "", g.recipientErr
	}
	if g.recipientCode != "" {
		return g.recipientCode, nil
	}
	return "RCP_test", nil
}

func (g *fakeGateway) InitiateTransfer(ctx context.Context, amountCents int64, recipientCode, reason, reference string) (*paystack.TransferResult, error) {
	g.transferCalls++
	if g.transferErr != nil {
		return nil, g.transferErr
	}
	if g.transferResult != nil {
		return g.transferResult, nil
	}
	return &paystack.TransferResult{TransferCode: "TRF_test", Status: "pending"}, nil
}

func (g *fakeGateway) GetBankList(ctx context.Context) []paystack.Bank { return g.banks }

// testEnv bundles one usecase with its fakes.
type testEnv struct {
	uc           *PaymentUsecase
	transactions *fakeTransactionRepo
	wallets      *fakeWalletRepo
	tickets      *fakeTicketRepo
	events       *fakeEventRepo
	bookings     *fakeBookingRepo
	gateway      *fakeGateway
}

func newTestEnv(gw *fakeGateway, evs []*domain.Event, bks []*domain.Booking) *testEnv {
	if gw == nil {
		gw = &fakeGateway{}
	}
	env := &testEnv{
		transactions: newFakeTransactionRepo(),
		wallets:      newFakeWalletRepo(),
		tickets:      newFakeTicketRepo(),
		events:       newFakeEventRepo(evs...),
		bookings:     newFakeBookingRepo(bks...),
		gateway:      gw,
	}
	env.uc = NewPaymentUsecase(
		env.transactions,
		env.wallets,
		env.tickets,
		env.events,
		env.bookings,
		env.gateway,
		fees.DefaultSchedule(),
		events.NewPublisher(nil, zap.NewNop()),
		"http://localhost:3000",
		zap.NewNop(),
	)
	return env
}
