package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"payments-service/internal/metrics"
	"payments-service/internal/provider/paystack"
	"payments-service/internal/usecase"

	"go.uber.org/zap"
)

const signatureHeader = "x-paystack-signature"

type WebhookHandler struct {
	uc      *usecase.PaymentUsecase
	gateway *paystack.Client
	logger  *zap.Logger
}

func NewWebhookHandler(uc *usecase.PaymentUsecase, gateway *paystack.Client, logger *zap.Logger) *WebhookHandler {
	return &WebhookHandler{uc: uc, gateway: gateway, logger: logger}
}

// HandlePaystackWebhook receives gateway event deliveries. The signature
// is verified over the raw bytes before any parsing. Once an event is
// dispatched the response is always 200 so the gateway does not redeliver
// forever; processing failures are logged, not surfaced.
func (h *WebhookHandler) HandlePaystackWebhook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.logger.Error("failed to read webhook body", zap.Error(err))
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	if !h.gateway.VerifyWebhookSignature(body, r.Header.Get(signatureHeader)) {
		metrics.WebhookEvents.WithLabelValues("unknown", "rejected").Inc()
		h.logger.Warn("webhook signature rejected",
			zap.String("remote_addr", r.RemoteAddr),
			zap.String("user_agent", r.UserAgent()),
			zap.Int("payload_size", len(body)))
		writeError(w, http.StatusUnauthorized, "invalid signature")
		return
	}

	var event usecase.WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil || event.Event == "" {
		h.logger.Warn("webhook body is not a valid event", zap.Error(err))
		writeError(w, http.StatusBadRequest, "invalid event payload")
		return
	}

	h.logger.Info("webhook event received",
		zap.String("event", event.Event),
		zap.String("remote_addr", r.RemoteAddr))

	if err := h.uc.HandleWebhook(ctx, event); err != nil {
		// Acknowledged regardless: the failure is recorded on the
		// transaction row and in the log for operator follow-up.
		h.logger.Error("webhook processing failed",
			zap.String("event", event.Event),
			zap.Error(err))
	}

	writeJSON(w, http.StatusOK, map[string]any{"received": true})
}
