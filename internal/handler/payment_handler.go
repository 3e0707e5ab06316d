package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"payments-service/internal/domain"
	"payments-service/internal/usecase"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Caller identity arrives from the auth proxy as trusted headers;
// authentication itself is handled upstream.
const (
	userIDHeader    = "X-User-ID"
	userEmailHeader = "X-User-Email"
)

type PaymentHandler struct {
	uc     *usecase.PaymentUsecase
	logger *zap.Logger
}

func NewPaymentHandler(uc *usecase.PaymentUsecase, logger *zap.Logger) *PaymentHandler {
	return &PaymentHandler{uc: uc, logger: logger}
}

// InitiateTicketPurchase handles POST /api/v1/payments/tickets.
func (h *PaymentHandler) InitiateTicketPurchase(w http.ResponseWriter, r *http.Request) {
	var req struct {
		EventID  string `json:"eventId"`
		Quantity int    `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.uc.InitiateTicketPurchase(r.Context(), usecase.PurchaseRequest{
		BuyerID:    r.Header.Get(userIDHeader),
		BuyerEmail: r.Header.Get(userEmailHeader),
		EventID:    req.EventID,
		Quantity:   req.Quantity,
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// InitiateDeposit handles POST /api/v1/payments/deposits. The amount field
// is in Rand; everything downstream works in cents.
func (h *PaymentHandler) InitiateDeposit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Amount int64 `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.uc.InitiateDeposit(r.Context(), usecase.DepositRequest{
		UserID:      r.Header.Get(userIDHeader),
		Email:       r.Header.Get(userEmailHeader),
		AmountCents: req.Amount * 100,
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// InitiateWithdrawal handles POST /api/v1/payments/withdrawals. The amount
// field is already in cents.
func (h *PaymentHandler) InitiateWithdrawal(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Amount        int64  `json:"amount"`
		BankCode      string `json:"bankCode"`
		AccountNumber string `json:"accountNumber"`
		AccountName   string `json:"accountName"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.uc.InitiateWithdrawal(r.Context(), usecase.WithdrawalRequest{
		UserID:        r.Header.Get(userIDHeader),
		AmountCents:   req.Amount,
		BankCode:      req.BankCode,
		AccountNumber: req.AccountNumber,
		AccountName:   req.AccountName,
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// VerifyPayment handles GET /api/v1/payments/verify?reference=...
func (h *PaymentHandler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	reference := r.URL.Query().Get("reference")
	if reference == "" {
		writeError(w, http.StatusBadRequest, "reference is required")
		return
	}

	result, err := h.uc.VerifyTransaction(r.Context(), reference, r.Header.Get(userIDHeader))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"payment": result})
}

// GetTransaction handles GET /api/v1/transactions/{reference}.
func (h *PaymentHandler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	reference := chi.URLParam(r, "reference")

	tx, err := h.uc.GetTransaction(r.Context(), reference, r.Header.Get(userIDHeader))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"transaction": tx})
}

// ListBanks handles GET /api/v1/banks.
func (h *PaymentHandler) ListBanks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"banks": h.uc.ListBanks(r.Context())})
}

// ResolveAccount handles POST /api/v1/banks/resolve.
func (h *PaymentHandler) ResolveAccount(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AccountNumber string `json:"accountNumber"`
		BankCode      string `json:"bankCode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	account, err := h.uc.ResolveAccount(r.Context(), req.AccountNumber, req.BankCode)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

// AdminRefund handles POST /api/v1/admin/transactions/{reference}/refund.
func (h *PaymentHandler) AdminRefund(w http.ResponseWriter, r *http.Request) {
	reference := chi.URLParam(r, "reference")

	tx, err := h.uc.AdminRefund(r.Context(), reference)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"transaction": tx})
}

// writeDomainError maps the error taxonomy onto HTTP statuses.
func (h *PaymentHandler) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		vErr *domain.ValidationError
		gErr *domain.GatewayError
	)

	switch {
	case errors.As(err, &vErr):
		writeError(w, http.StatusBadRequest, vErr.Message)
	case errors.Is(err, domain.ErrGatewayNotConfigured):
		writeError(w, http.StatusServiceUnavailable, "payment service not configured")
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, "not allowed")
	case errors.As(err, &gErr):
		h.logger.Error("gateway error", zap.String("path", r.URL.Path), zap.Error(err))
		writeError(w, http.StatusBadGateway, "payment gateway error")
	default:
		h.logger.Error("internal error", zap.String("path", r.URL.Path), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]any{"error": message})
}
