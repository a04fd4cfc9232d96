package fulfillment

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"

	"github.com/systechdigital/redemption-platform/pkg/common/logger"
	"github.com/systechdigital/redemption-platform/pkg/common/models"
)

func TestMain(m *testing.M) {
	logger.Init()
	os.Exit(m.Run())
}

type recordingNotifier struct {
	mu    sync.Mutex
	sends []string
}

func (n *recordingNotifier) Send(ctx context.Context, to string, template string, data map[string]interface{}) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sends = append(n.sends, template)
	return nil
}

func (n *recordingNotifier) templates() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.sends...)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []string
}

func (p *recordingPublisher) PublishEvent(ctx context.Context, eventType string, source string, data map[string]interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, eventType)
	return nil
}

func eligibleClaim(id, email, code string) models.Claim {
	return models.Claim{
		ClaimID:        id,
		Name:           "Test Customer",
		Email:          email,
		ActivationCode: code,
		PaymentStatus:  models.PaymentPaid,
		OTTStatus:      models.OTTPending,
	}
}

func TestProcessClaimDelivered(t *testing.T) {
	store := NewMemoryStore()
	store.PutClaim(eligibleClaim("c1", "alice@example.com", "CODE-1"))
	store.PutSalesRecord(models.SalesRecord{ActivationCode: "CODE-1", ProductSubCategory: "Netflix", Status: models.SalesAvailable})
	store.PutKey(models.Key{ID: "k1", ActivationCode: "OTT-KEY-1", Product: "netflix", Status: models.KeyAvailable})

	notif := &recordingNotifier{}
	pub := &recordingPublisher{}
	orch := NewOrchestrator(store, store, store.Keys(), notif, pub, 10)

	detail := orch.ProcessClaim(context.Background(), mustClaim(t, store, "c1"))
	if detail.Outcome != OutcomeDelivered {
		t.Fatalf("expected delivered, got %s (%s)", detail.Outcome, detail.Error)
	}
	if detail.OTTCode != "OTT-KEY-1" {
		t.Fatalf("expected delivered key OTT-KEY-1, got %q", detail.OTTCode)
	}

	claim, _ := store.ClaimByID("c1")
	if claim.OTTStatus != models.OTTDelivered || claim.OTTCode != "OTT-KEY-1" {
		t.Fatalf("claim not committed: %+v", claim)
	}
	record, _ := store.SalesRecord("CODE-1")
	if record.Status != models.SalesClaimed || record.ClaimedBy != "alice@example.com" {
		t.Fatalf("sales record not claimed: %+v", record)
	}
	key, _ := store.Key("k1")
	if key.Status != models.KeyAssigned || key.AssignedEmail != "alice@example.com" {
		t.Fatalf("key not assigned: %+v", key)
	}
	if got := notif.templates(); len(got) != 1 || got[0] != TemplateAutomationSuccess {
		t.Fatalf("expected one success notification, got %v", got)
	}
	if len(pub.events) != 1 {
		t.Fatalf("expected one result event, got %v", pub.events)
	}
}

func TestProcessClaimCodeNotFound(t *testing.T) {
	store := NewMemoryStore()
	store.PutClaim(eligibleClaim("c1", "bob@example.com", "MISSING"))
	store.PutKey(models.Key{ID: "k1", ActivationCode: "OTT-KEY-1", Status: models.KeyAvailable})

	notif := &recordingNotifier{}
	orch := NewOrchestrator(store, store, store.Keys(), notif, nil, 10)

	detail := orch.ProcessClaim(context.Background(), mustClaim(t, store, "c1"))
	if detail.Outcome != OutcomeCodeNotFound {
		t.Fatalf("expected activation_code_not_found, got %s", detail.Outcome)
	}

	claim, _ := store.ClaimByID("c1")
	if claim.OTTStatus != models.OTTCodeNotFound {
		t.Fatalf("expected claim marked not found, got %s", claim.OTTStatus)
	}
	// Retry-eligible after a restock import.
	if claim.OTTStatus.Terminal() {
		t.Fatal("activation_code_not_found must stay retry-eligible")
	}
	key, _ := store.Key("k1")
	if key.Status != models.KeyAvailable {
		t.Fatalf("key must be untouched, got %+v", key)
	}
	if got := notif.templates(); len(got) != 1 || got[0] != TemplateAutomationFailed {
		t.Fatalf("expected one failure notification, got %v", got)
	}
}

func TestProcessClaimAlreadyClaimed(t *testing.T) {
	store := NewMemoryStore()
	store.PutClaim(eligibleClaim("c1", "carol@example.com", "CODE-1"))
	store.PutSalesRecord(models.SalesRecord{ActivationCode: "CODE-1", Status: models.SalesClaimed, ClaimedBy: "someone@else.com"})
	store.PutKey(models.Key{ID: "k1", ActivationCode: "OTT-KEY-1", Status: models.KeyAvailable})

	orch := NewOrchestrator(store, store, store.Keys(), nil, nil, 10)

	detail := orch.ProcessClaim(context.Background(), mustClaim(t, store, "c1"))
	if detail.Outcome != OutcomeAlreadyClaimed {
		t.Fatalf("expected already_claimed, got %s", detail.Outcome)
	}

	claim, _ := store.ClaimByID("c1")
	if claim.OTTStatus != models.OTTAlreadyClaimed {
		t.Fatalf("expected claim marked already claimed, got %s", claim.OTTStatus)
	}
	if !claim.OTTStatus.Terminal() {
		t.Fatal("already_claimed must be terminal")
	}
	key, _ := store.Key("k1")
	if key.Status != models.KeyAvailable {
		t.Fatalf("key must be untouched, got %+v", key)
	}
}

func TestProcessClaimExhaustedRevertsSalesRecord(t *testing.T) {
	store := NewMemoryStore()
	store.PutClaim(eligibleClaim("c1", "dave@example.com", "CODE-1"))
	store.PutSalesRecord(models.SalesRecord{ActivationCode: "CODE-1", Status: models.SalesAvailable})

	orch := NewOrchestrator(store, store, store.Keys(), nil, nil, 10)

	detail := orch.ProcessClaim(context.Background(), mustClaim(t, store, "c1"))
	if detail.Outcome != OutcomeExhausted {
		t.Fatalf("expected no_key_available, got %s", detail.Outcome)
	}

	claim, _ := store.ClaimByID("c1")
	if claim.OTTStatus != models.OTTNoKeyAvailable {
		t.Fatalf("expected no_key_available status, got %s", claim.OTTStatus)
	}
	record, _ := store.SalesRecord("CODE-1")
	if record.Status != models.SalesAvailable || record.ClaimedBy != "" {
		t.Fatalf("sales record must be rolled back after key exhaustion, got %+v", record)
	}
}

func TestProcessClaimTerminalIsNoOp(t *testing.T) {
	store := NewMemoryStore()
	claim := eligibleClaim("c1", "erin@example.com", "CODE-1")
	claim.OTTStatus = models.OTTDelivered
	store.PutClaim(claim)
	store.PutSalesRecord(models.SalesRecord{ActivationCode: "CODE-1", Status: models.SalesAvailable})
	store.PutKey(models.Key{ID: "k1", ActivationCode: "OTT-KEY-1", Status: models.KeyAvailable})

	notif := &recordingNotifier{}
	orch := NewOrchestrator(store, store, store.Keys(), notif, nil, 10)

	detail := orch.ProcessClaim(context.Background(), claim)
	if detail.Outcome != OutcomeSkipped {
		t.Fatalf("expected skipped, got %s", detail.Outcome)
	}
	record, _ := store.SalesRecord("CODE-1")
	if record.Status != models.SalesAvailable {
		t.Fatalf("reprocessing a delivered claim must not touch the ledger, got %+v", record)
	}
	key, _ := store.Key("k1")
	if key.Status != models.KeyAvailable {
		t.Fatalf("reprocessing a delivered claim must not assign keys, got %+v", key)
	}
	if got := notif.templates(); len(got) != 0 {
		t.Fatalf("no notification expected for a no-op, got %v", got)
	}
}

// failingCommitStore makes the final claim commit fail.
type failingCommitStore struct {
	*MemoryStore
}

func (s *failingCommitStore) MarkDelivered(ctx context.Context, claimID, ottCode, platform string) error {
	return errors.New("connection reset")
}

func TestCommitFailureRollsBackBothResources(t *testing.T) {
	store := NewMemoryStore()
	store.PutClaim(eligibleClaim("c1", "frank@example.com", "CODE-1"))
	store.PutSalesRecord(models.SalesRecord{ActivationCode: "CODE-1", Status: models.SalesAvailable})
	store.PutKey(models.Key{ID: "k1", ActivationCode: "OTT-KEY-1", Status: models.KeyAvailable})

	orch := NewOrchestrator(&failingCommitStore{store}, store, store.Keys(), nil, nil, 10)

	detail := orch.ProcessClaim(context.Background(), mustClaim(t, store, "c1"))
	if detail.Outcome != OutcomeRetryLater {
		t.Fatalf("expected retry_later after commit failure, got %s", detail.Outcome)
	}

	record, _ := store.SalesRecord("CODE-1")
	if record.Status != models.SalesAvailable {
		t.Fatalf("sales record must be rolled back, got %+v", record)
	}
	key, _ := store.Key("k1")
	if key.Status != models.KeyAvailable {
		t.Fatalf("key must be rolled back, got %+v", key)
	}
	claim, _ := store.ClaimByID("c1")
	if claim.OTTStatus != models.OTTPending {
		t.Fatalf("claim must keep its prior state for retry, got %s", claim.OTTStatus)
	}
}

// panickingSalesStore panics when looking up one poisoned code.
type panickingSalesStore struct {
	*MemoryStore
	poison string
}

func (s *panickingSalesStore) FindExact(ctx context.Context, code string) (models.SalesRecord, error) {
	if code == s.poison {
		panic("corrupt record")
	}
	return s.MemoryStore.FindExact(ctx, code)
}

func TestSweepIsolatesPanickingClaim(t *testing.T) {
	store := NewMemoryStore()
	store.PutClaim(eligibleClaim("bad", "bad@example.com", "POISON"))
	store.PutClaim(eligibleClaim("good", "good@example.com", "CODE-1"))
	store.PutSalesRecord(models.SalesRecord{ActivationCode: "CODE-1", Status: models.SalesAvailable})
	store.PutKey(models.Key{ID: "k1", ActivationCode: "OTT-KEY-1", Status: models.KeyAvailable})

	sales := &panickingSalesStore{MemoryStore: store, poison: "POISON"}
	orch := NewOrchestrator(store, sales, store.Keys(), nil, nil, 10)

	result, err := orch.Sweep(context.Background())
	if err != nil {
		t.Fatalf("sweep must survive a panicking claim: %v", err)
	}
	if result.Processed != 2 {
		t.Fatalf("expected both claims processed, got %d", result.Processed)
	}
	if result.Succeeded != 1 || result.Failed != 1 {
		t.Fatalf("expected 1 success and 1 failure, got %+v", result)
	}

	good, _ := store.ClaimByID("good")
	if good.OTTStatus != models.OTTDelivered {
		t.Fatalf("healthy claim must still deliver, got %s", good.OTTStatus)
	}
	bad, _ := store.ClaimByID("bad")
	if bad.OTTStatus != models.OTTPending {
		t.Fatalf("panicked claim must keep its state for retry, got %s", bad.OTTStatus)
	}
}

func TestConcurrentClaimsSingleKey(t *testing.T) {
	store := NewMemoryStore()
	store.PutClaim(eligibleClaim("c1", "one@example.com", "CODE-1"))
	store.PutClaim(eligibleClaim("c2", "two@example.com", "CODE-2"))
	store.PutSalesRecord(models.SalesRecord{ActivationCode: "CODE-1", Status: models.SalesAvailable})
	store.PutSalesRecord(models.SalesRecord{ActivationCode: "CODE-2", Status: models.SalesAvailable})
	store.PutKey(models.Key{ID: "k1", ActivationCode: "OTT-KEY-1", Status: models.KeyAvailable})

	orch := NewOrchestrator(store, store, store.Keys(), nil, nil, 10)

	contenders := []models.Claim{mustClaim(t, store, "c1"), mustClaim(t, store, "c2")}
	var wg sync.WaitGroup
	results := make([]ClaimResult, len(contenders))
	for i, claim := range contenders {
		wg.Add(1)
		go func(i int, claim models.Claim) {
			defer wg.Done()
			results[i] = orch.ProcessClaim(context.Background(), claim)
		}(i, claim)
	}
	wg.Wait()

	delivered, exhausted := 0, 0
	for _, r := range results {
		switch r.Outcome {
		case OutcomeDelivered:
			delivered++
		case OutcomeExhausted:
			exhausted++
		default:
			t.Fatalf("unexpected outcome %s (%s)", r.Outcome, r.Error)
		}
	}
	if delivered != 1 || exhausted != 1 {
		t.Fatalf("one key must serve exactly one claim, got delivered=%d exhausted=%d", delivered, exhausted)
	}

	key, _ := store.Key("k1")
	if key.Status != models.KeyAssigned {
		t.Fatalf("the single key must end assigned, got %+v", key)
	}
	// The loser's sales record must be released for a future restock retry.
	released := 0
	for _, code := range []string{"CODE-1", "CODE-2"} {
		record, _ := store.SalesRecord(code)
		if record.Status == models.SalesAvailable {
			released++
		}
	}
	if released != 1 {
		t.Fatalf("exactly one sales record must be rolled back, got %d", released)
	}
}

func TestReprocessAfterRestockDelivers(t *testing.T) {
	store := NewMemoryStore()
	claim := eligibleClaim("c1", "grace@example.com", "CODE-1")
	claim.OTTStatus = models.OTTNoKeyAvailable
	store.PutClaim(claim)
	store.PutSalesRecord(models.SalesRecord{ActivationCode: "CODE-1", Status: models.SalesAvailable})
	// Restocked after the claim exhausted the pool.
	store.PutKey(models.Key{ID: "k1", ActivationCode: "OTT-KEY-1", Status: models.KeyAvailable})

	orch := NewOrchestrator(store, store, store.Keys(), nil, nil, 10)

	// The automatic paths still treat no_key_available as terminal.
	detail, err := orch.ProcessClaimID(context.Background(), "c1")
	if err != nil {
		t.Fatalf("process failed: %v", err)
	}
	if detail.Outcome != OutcomeSkipped {
		t.Fatalf("sweep path must not re-enter no_key_available, got %s", detail.Outcome)
	}

	// The operator's manual reprocess re-arms and fulfills it.
	detail, err = orch.ReprocessClaimID(context.Background(), "c1")
	if err != nil {
		t.Fatalf("reprocess failed: %v", err)
	}
	if detail.Outcome != OutcomeDelivered {
		t.Fatalf("expected delivered after restock reprocess, got %s (%s)", detail.Outcome, detail.Error)
	}

	got, _ := store.ClaimByID("c1")
	if got.OTTStatus != models.OTTDelivered || got.OTTCode != "OTT-KEY-1" {
		t.Fatalf("claim not committed after reprocess: %+v", got)
	}
}

func TestReprocessKeepsOtherTerminalStates(t *testing.T) {
	store := NewMemoryStore()
	claim := eligibleClaim("c1", "heidi@example.com", "CODE-1")
	claim.OTTStatus = models.OTTAlreadyClaimed
	store.PutClaim(claim)
	store.PutSalesRecord(models.SalesRecord{ActivationCode: "CODE-1", Status: models.SalesAvailable})
	store.PutKey(models.Key{ID: "k1", ActivationCode: "OTT-KEY-1", Status: models.KeyAvailable})

	orch := NewOrchestrator(store, store, store.Keys(), nil, nil, 10)

	detail, err := orch.ReprocessClaimID(context.Background(), "c1")
	if err != nil {
		t.Fatalf("reprocess failed: %v", err)
	}
	if detail.Outcome != OutcomeSkipped {
		t.Fatalf("already_claimed must stay terminal, got %s", detail.Outcome)
	}
	got, _ := store.ClaimByID("c1")
	if got.OTTStatus != models.OTTAlreadyClaimed {
		t.Fatalf("terminal state must not change, got %s", got.OTTStatus)
	}
	key, _ := store.Key("k1")
	if key.Status != models.KeyAvailable {
		t.Fatalf("no key may be assigned, got %+v", key)
	}
}

func TestReserveMatchesProductCaseInsensitively(t *testing.T) {
	store := NewMemoryStore()
	store.PutKey(models.Key{ID: "k1", ActivationCode: "OTT-KEY-1", Product: "netflix", Status: models.KeyAvailable})

	// The sales sheet says "Netflix", the key sheet says "netflix"; the two
	// imports are never casing-coordinated.
	key, err := store.Keys().Reserve(context.Background(), "Netflix", "ivy@example.com")
	if err != nil {
		t.Fatalf("reserve must match across casing: %v", err)
	}
	if key.ID != "k1" {
		t.Fatalf("unexpected key: %+v", key)
	}
}

func TestProcessClaimIDUnknownClaim(t *testing.T) {
	store := NewMemoryStore()
	orch := NewOrchestrator(store, store, store.Keys(), nil, nil, 10)

	_, err := orch.ProcessClaimID(context.Background(), "nope")
	if !errors.Is(err, ErrClaimNotFound) {
		t.Fatalf("expected ErrClaimNotFound, got %v", err)
	}
}

func mustClaim(t *testing.T, store *MemoryStore, id string) models.Claim {
	t.Helper()
	claim, ok := store.ClaimByID(id)
	if !ok {
		t.Fatalf("claim %s missing from store", id)
	}
	return claim
}
