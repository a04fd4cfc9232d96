package payments

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// VerifyPaymentSignature checks the checkout callback signature:
// HMAC-SHA256(orderID + "|" + paymentID) under the key secret, hex-encoded.
func (c *Client) VerifyPaymentSignature(orderID, paymentID, signature string) bool {
	return verifyHMAC(c.keySecret, orderID+"|"+paymentID, signature)
}

// VerifyWebhookSignature checks the raw webhook body against the dedicated
// webhook secret.
func (c *Client) VerifyWebhookSignature(body []byte, signature string) bool {
	return verifyHMAC(c.webhookSecret, string(body), signature)
}

func verifyHMAC(secret, message, signature string) bool {
	if secret == "" || signature == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(message))
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
