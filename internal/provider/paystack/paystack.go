// Package paystack wraps the Paystack REST API: payment initialization and
// verification, bank account resolution, transfers, bank listing, and
// webhook signature verification.
package paystack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"payments-service/internal/domain"

	"go.uber.org/zap"
)

const DefaultBaseURL = "https://api.paystack.co"

type Client struct {
	secretKey     string
	webhookSecret string
	baseURL       string
	httpClient    *http.Client
	logger        *zap.Logger
	banks         bankCache
}

type Config struct {
	SecretKey     string
	WebhookSecret string
	BaseURL       string
}

func NewClient(cfg Config, logger *zap.Logger) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	webhookSecret := cfg.WebhookSecret
	if webhookSecret == "" {
		// Paystack signs webhooks with the account secret key unless a
		// dedicated signing secret is configured.
		webhookSecret = cfg.SecretKey
	}

	return &Client{
		secretKey:     cfg.SecretKey,
		webhookSecret: webhookSecret,
		baseURL:       baseURL,
		httpClient:    &http.Client{Timeout: 30 * time.Second},
		logger:        logger,
	}
}

// Configured reports whether a secret key is present. Initiation endpoints
// degrade to an explicit "service not configured" error when it is not.
func (c *Client) Configured() bool {
	return c.secretKey != ""
}

// apiEnvelope is the uniform Paystack response wrapper.
type apiEnvelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// InitializeResult is the redirect handle returned to the buyer.
type InitializeResult struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

// InitializePayment creates a hosted-checkout session for the given amount.
func (c *Client) InitializePayment(ctx context.Context, email string, amountCents int64, reference, callbackURL string, metadata any) (*InitializeResult, error) {
	payload := map[string]any{
		"email":        email,
		"amount":       amountCents,
		"currency":     "ZAR",
		"reference":    reference,
		"callback_url": callbackURL,
	}
	if metadata != nil {
		payload["metadata"] = metadata
	}

	data, err := c.call(ctx, http.MethodPost, "/transaction/initialize", payload)
	if err != nil {
		return nil, err
	}

	var result InitializeResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, &domain.GatewayError{Op: "initialize", Err: fmt.Errorf("malformed response: %w", err)}
	}
	if result.AuthorizationURL == "" {
		return nil, &domain.GatewayError{Op: "initialize", Err: fmt.Errorf("response missing authorization_url")}
	}
	return &result, nil
}

// VerifyResult is the gateway's authoritative view of a charge.
type VerifyResult struct {
	Status      string          `json:"status"`
	Reference   string          `json:"reference"`
	AmountCents int64           `json:"amount"`
	Metadata    json.RawMessage `json:"metadata"`
	Raw         json.RawMessage `json:"-"`
}

// VerifyPayment re-fetches a transaction by reference. Read-only on the
// gateway side, safe to call repeatedly.
func (c *Client) VerifyPayment(ctx context.Context, reference string) (*VerifyResult, error) {
	data, err := c.call(ctx, http.MethodGet, "/transaction/verify/"+url.PathEscape(reference), nil)
	if err != nil {
		return nil, err
	}

	var result VerifyResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, &domain.GatewayError{Op: "verify", Err: fmt.Errorf("malformed response: %w", err)}
	}
	result.Raw = data
	return &result, nil
}

// ResolvedAccount is a bank-verified account holder.
type ResolvedAccount struct {
	AccountName   string `json:"account_name"`
	AccountNumber string `json:"account_number"`
	BankID        int64  `json:"bank_id"`
}

// ResolveAccount verifies a bank account with the gateway. The account
// number is validated locally before any call goes out.
func (c *Client) ResolveAccount(ctx context.Context, accountNumber, bankCode string) (*ResolvedAccount, error) {
	if !isTenDigits(accountNumber) {
		return nil, domain.Validationf("account number must be exactly 10 digits")
	}
	if bankCode == "" {
		return nil, domain.Validationf("bank code is required")
	}

	path := fmt.Sprintf("/bank/resolve?account_number=%s&bank_code=%s",
		url.QueryEscape(accountNumber), url.QueryEscape(bankCode))
	data, err := c.call(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var result ResolvedAccount
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, &domain.GatewayError{Op: "resolve_account", Err: fmt.Errorf("malformed response: %w", err)}
	}
	return &result, nil
}

// CreateTransferRecipient registers a bank account for payouts and returns
// its recipient code.
func (c *Client) CreateTransferRecipient(ctx context.Context, name, accountNumber, bankCode, currency string) (string, error) {
	payload := map[string]any{
		"type":           "basa",
		"name":           name,
		"account_number": accountNumber,
		"bank_code":      bankCode,
		"currency":       currency,
	}

	data, err := c.call(ctx, http.MethodPost, "/transferrecipient", payload)
	if err != nil {
		return "", err
	}

	var result struct {
		RecipientCode string `json:"recipient_code"`
	}
	if err := json.Unmarshal(data, &result); err != nil || result.RecipientCode == "" {
		return "", &domain.GatewayError{Op: "transfer_recipient", Err: fmt.Errorf("response missing recipient_code")}
	}
	return result.RecipientCode, nil
}

// TransferResult is the handle for an initiated payout.
type TransferResult struct {
	TransferCode string `json:"transfer_code"`
	Status       string `json:"status"`
}

// InitiateTransfer starts a payout to a previously created recipient. The
// outcome arrives asynchronously on the transfer webhook events.
func (c *Client) InitiateTransfer(ctx context.Context, amountCents int64, recipientCode, reason, reference string) (*TransferResult, error) {
	payload := map[string]any{
		"source":    "balance",
		"amount":    amountCents,
		"recipient": recipientCode,
		"reason":    reason,
		"reference": reference,
	}

	data, err := c.call(ctx, http.MethodPost, "/transfer", payload)
	if err != nil {
		return nil, err
	}

	var result TransferResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, &domain.GatewayError{Op: "transfer", Err: fmt.Errorf("malformed response: %w", err)}
	}
	return &result, nil
}

// call performs one authenticated request and unwraps the envelope.
func (c *Client) call(ctx context.Context, method, path string, payload any) (json.RawMessage, error) {
	op := method + " " + path

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, &domain.GatewayError{Op: op, Err: err}
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, &domain.GatewayError{Op: op, Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &domain.GatewayError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.GatewayError{Op: op, Err: err}
	}

	var envelope apiEnvelope
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return nil, &domain.GatewayError{Op: op, Err: fmt.Errorf("status %d: malformed body", resp.StatusCode)}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 || !envelope.Status {
		c.logger.Warn("paystack call rejected",
			zap.String("op", op),
			zap.Int("status_code", resp.StatusCode),
			zap.String("message", envelope.Message))
		return nil, &domain.GatewayError{Op: op, Err: fmt.Errorf("status %d: %s", resp.StatusCode, envelope.Message)}
	}

	return envelope.Data, nil
}

func isTenDigits(s string) bool {
	if len(s) != 10 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
