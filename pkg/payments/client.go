package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client talks to the payment gateway's order API over HTTP basic auth.
// The gateway is an opaque collaborator; only order creation and signature
// verification are consumed.
type Client struct {
	baseURL       string
	keyID         string
	keySecret     string
	webhookSecret string
	httpClient    *http.Client
}

func NewClient(baseURL, keyID, keySecret, webhookSecret string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:       baseURL,
		keyID:         keyID,
		keySecret:     keySecret,
		webhookSecret: webhookSecret,
		httpClient:    &http.Client{Timeout: timeout},
	}
}

type Order struct {
	ID          string `json:"id"`
	AmountPaise int64  `json:"amount"`
	Currency    string `json:"currency"`
	Receipt     string `json:"receipt"`
	Status      string `json:"status"`
}

type createOrderRequest struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

// CreateOrder opens a gateway order for the claim fee. receipt carries the
// claim id so gateway dashboards can be reconciled against claims.
func (c *Client) CreateOrder(ctx context.Context, amountPaise int64, currency, receipt string) (Order, error) {
	body, err := json.Marshal(createOrderRequest{
		Amount:   amountPaise,
		Currency: currency,
		Receipt:  receipt,
	})
	if err != nil {
		return Order{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/orders", bytes.NewReader(body))
	if err != nil {
		return Order{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.keyID, c.keySecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Order{}, fmt.Errorf("gateway request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Order{}, fmt.Errorf("gateway returned %d: %s", resp.StatusCode, string(snippet))
	}

	var order Order
	if err := json.NewDecoder(resp.Body).Decode(&order); err != nil {
		return Order{}, fmt.Errorf("decoding gateway response: %w", err)
	}
	if order.ID == "" {
		return Order{}, fmt.Errorf("gateway response missing order id")
	}
	return order, nil
}
