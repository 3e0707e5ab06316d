package paystack

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"testing"

	"go.uber.org/zap"
)

func sign(secret string, payload []byte) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifyWebhookSignature(t *testing.T) {
	const secret = "whsec_test"
	client := NewClient(Config{SecretKey: "sk_test", WebhookSecret: secret}, zap.NewNop())
	payload := []byte(`{"event":"charge.success","data":{"reference":"EVT-1","amount":10000}}`)

	t.Run("valid signature", func(t *testing.T) {
		if !client.VerifyWebhookSignature(payload, sign(secret, payload)) {
			t.Error("valid signature rejected")
		}
	})

	t.Run("tampered body", func(t *testing.T) {
		signature := sign(secret, payload)
		tampered := []byte(`{"event":"charge.success","data":{"reference":"EVT-1","amount":99999}}`)
		if client.VerifyWebhookSignature(tampered, signature) {
			t.Error("tampered payload accepted")
		}
	})

	t.Run("wrong secret", func(t *testing.T) {
		if client.VerifyWebhookSignature(payload, sign("other_secret", payload)) {
			t.Error("signature from wrong secret accepted")
		}
	})

	t.Run("empty header", func(t *testing.T) {
		if client.VerifyWebhookSignature(payload, "") {
			t.Error("empty signature accepted")
		}
	})

	t.Run("non-hex header", func(t *testing.T) {
		if client.VerifyWebhookSignature(payload, "not-a-hex-string") {
			t.Error("garbage signature accepted")
		}
	})

	t.Run("unconfigured client", func(t *testing.T) {
		bare := NewClient(Config{}, zap.NewNop())
		if bare.VerifyWebhookSignature(payload, sign("", payload)) {
			t.Error("verification must fail without a secret")
		}
	})
}

func TestWebhookSecretFallsBackToSecretKey(t *testing.T) {
	client := NewClient(Config{SecretKey: "sk_test"}, zap.NewNop())
	payload := []byte(`{"event":"charge.success"}`)
	if !client.VerifyWebhookSignature(payload, sign("sk_test", payload)) {
		t.Error("signature under the account secret key rejected")
	}
}
