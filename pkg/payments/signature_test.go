package payments

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"
	"time"
)

func sign(secret, message string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(message))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifyPaymentSignature(t *testing.T) {
	client := NewClient("https://gateway.test", "key-id", "key-secret", "webhook-secret", time.Second)

	valid := sign("key-secret", "order_123|pay_456")
	if !client.VerifyPaymentSignature("order_123", "pay_456", valid) {
		t.Fatal("valid signature rejected")
	}
	if client.VerifyPaymentSignature("order_123", "pay_456", sign("wrong-secret", "order_123|pay_456")) {
		t.Fatal("signature from the wrong secret accepted")
	}
	if client.VerifyPaymentSignature("order_999", "pay_456", valid) {
		t.Fatal("signature for a different order accepted")
	}
	if client.VerifyPaymentSignature("order_123", "pay_456", "") {
		t.Fatal("empty signature accepted")
	}
}

func TestVerifyWebhookSignature(t *testing.T) {
	client := NewClient("https://gateway.test", "key-id", "key-secret", "webhook-secret", time.Second)

	body := []byte(`{"event":"payment.captured"}`)
	if !client.VerifyWebhookSignature(body, sign("webhook-secret", string(body))) {
		t.Fatal("valid webhook signature rejected")
	}
	if client.VerifyWebhookSignature(body, sign("key-secret", string(body))) {
		t.Fatal("webhook signature must use the webhook secret, not the api secret")
	}
	if client.VerifyWebhookSignature([]byte("tampered"), sign("webhook-secret", string(body))) {
		t.Fatal("signature over a different body accepted")
	}
}
