package paystack

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
)

// VerifyWebhookSignature checks the x-paystack-signature header against an
// HMAC-SHA512 of the raw request body. It must run on the exact bytes
// received, before any JSON parsing, and uses a constant-time comparison.
func (c *Client) VerifyWebhookSignature(rawPayload []byte, signatureHeader string) bool {
	if c.webhookSecret == "" || signatureHeader == "" {
		return false
	}

	mac := hmac.New(sha512.New, []byte(c.webhookSecret))
	mac.Write(rawPayload)
	expected := mac.Sum(nil)

	provided, err := hex.DecodeString(signatureHeader)
	if err != nil {
		return false
	}
	return hmac.Equal(expected, provided)
}
