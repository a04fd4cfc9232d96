package payments

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestCreateOrder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/orders" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != "key-id" || pass != "key-secret" {
			t.Error("missing or wrong basic auth")
		}

		var req struct {
			Amount   int64  `json:"amount"`
			Currency string `json:"currency"`
			Receipt  string `json:"receipt"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		if req.Amount != 9900 || req.Currency != "INR" || req.Receipt != "claim-1" {
			t.Errorf("unexpected order request: %+v", req)
		}

		json.NewEncoder(w).Encode(Order{
			ID:          "order_abc",
			AmountPaise: req.Amount,
			Currency:    req.Currency,
			Receipt:     req.Receipt,
			Status:      "created",
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, "key-id", "key-secret", "webhook-secret", time.Second)
	order, err := client.CreateOrder(context.Background(), 9900, "INR", "claim-1")
	if err != nil {
		t.Fatalf("create order failed: %v", err)
	}
	if order.ID != "order_abc" || order.AmountPaise != 9900 {
		t.Fatalf("unexpected order: %+v", order)
	}
}

func TestCreateOrderGatewayError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"authentication failed"}`, http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewClient(server.URL, "key-id", "wrong", "webhook-secret", time.Second)
	if _, err := client.CreateOrder(context.Background(), 9900, "INR", "claim-1"); err == nil {
		t.Fatal("expected an error for a gateway failure")
	}
}

func TestCreateOrderMissingID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "key-id", "key-secret", "webhook-secret", time.Second)
	if _, err := client.CreateOrder(context.Background(), 9900, "INR", "claim-1"); err == nil {
		t.Fatal("expected an error for a response without an order id")
	}
}
