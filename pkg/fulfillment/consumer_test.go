package fulfillment

import (
	"context"
	"testing"

	"github.com/systechdigital/redemption-platform/pkg/common/models"
)

func TestPaymentEventHandlerFulfillsClaim(t *testing.T) {
	store := NewMemoryStore()
	store.PutClaim(eligibleClaim("c1", "alice@example.com", "CODE-1"))
	store.PutSalesRecord(models.SalesRecord{ActivationCode: "CODE-1", Status: models.SalesAvailable})
	store.PutKey(models.Key{ID: "k1", ActivationCode: "OTT-1", Status: models.KeyAvailable})

	orch := NewOrchestrator(store, store, store.Keys(), nil, nil, 10)
	handler := orch.PaymentEventHandler()

	err := handler(context.Background(), models.Event{
		ID:   "e1",
		Type: models.EventTypePaymentVerified,
		Data: map[string]interface{}{"claim_id": "c1"},
	})
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}

	claim, _ := store.ClaimByID("c1")
	if claim.OTTStatus != models.OTTDelivered {
		t.Fatalf("expected delivered, got %s", claim.OTTStatus)
	}
}

func TestPaymentEventHandlerIgnoresOtherEvents(t *testing.T) {
	store := NewMemoryStore()
	orch := NewOrchestrator(store, store, store.Keys(), nil, nil, 10)
	handler := orch.PaymentEventHandler()

	if err := handler(context.Background(), models.Event{Type: models.EventTypeFulfillmentResult}); err != nil {
		t.Fatalf("unrelated events must be committed, got %v", err)
	}
	if err := handler(context.Background(), models.Event{Type: models.EventTypePaymentVerified}); err != nil {
		t.Fatalf("events without claim_id must be dropped, got %v", err)
	}
}

func TestPaymentEventHandlerUnknownClaimCommits(t *testing.T) {
	store := NewMemoryStore()
	orch := NewOrchestrator(store, store, store.Keys(), nil, nil, 10)
	handler := orch.PaymentEventHandler()

	err := handler(context.Background(), models.Event{
		Type: models.EventTypePaymentVerified,
		Data: map[string]interface{}{"claim_id": "missing"},
	})
	if err != nil {
		t.Fatalf("a permanently unknown claim must not wedge the partition, got %v", err)
	}
}
