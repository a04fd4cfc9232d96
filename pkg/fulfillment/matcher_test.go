package fulfillment

import (
	"context"
	"errors"
	"testing"

	"github.com/systechdigital/redemption-platform/pkg/common/models"
)

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"  abc 123 ":      "ABC123",
		"ABC123":          "ABC123",
		"ab\tc\n123":      "ABC123",
		"  SN-001-x  ":    "SN-001-X",
		"":                "",
		" \t\n ":          "",
		"code with space": "CODEWITHSPACE",
	}
	for in, want := range cases {
		if got := Normalize(in); got != want {
			t.Errorf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestMatcherLadder(t *testing.T) {
	store := NewMemoryStore()
	store.PutSalesRecord(models.SalesRecord{ActivationCode: "ABC-123", Status: models.SalesAvailable})
	store.PutSalesRecord(models.SalesRecord{ActivationCode: "XY Z9", Status: models.SalesAvailable})
	matcher := NewMatcher(store)

	ctx := context.Background()

	// Exact hit.
	rec, err := matcher.Match(ctx, "ABC-123")
	if err != nil || rec.ActivationCode != "ABC-123" {
		t.Fatalf("exact match failed: %v %+v", err, rec)
	}

	// Case-insensitive hit.
	rec, err = matcher.Match(ctx, "abc-123")
	if err != nil || rec.ActivationCode != "ABC-123" {
		t.Fatalf("fold match failed: %v %+v", err, rec)
	}

	// Whitespace-normalized hit on the full-ledger scan.
	rec, err = matcher.Match(ctx, "xyz9")
	if err != nil || rec.ActivationCode != "XY Z9" {
		t.Fatalf("normalized match failed: %v %+v", err, rec)
	}

	// Surrounding whitespace in the submitted code.
	rec, err = matcher.Match(ctx, "  ABC-123  ")
	if err != nil || rec.ActivationCode != "ABC-123" {
		t.Fatalf("trimmed match failed: %v %+v", err, rec)
	}

	if _, err := matcher.Match(ctx, "UNKNOWN"); !errors.Is(err, ErrCodeNotFound) {
		t.Fatalf("expected ErrCodeNotFound, got %v", err)
	}
	if _, err := matcher.Match(ctx, "   "); !errors.Is(err, ErrCodeNotFound) {
		t.Fatalf("blank code must miss, got %v", err)
	}
}

type faultySalesStore struct {
	*MemoryStore
}

func (s *faultySalesStore) FindExact(ctx context.Context, code string) (models.SalesRecord, error) {
	return models.SalesRecord{}, errors.New("connection refused")
}

func TestMatcherWrapsStoreFaults(t *testing.T) {
	matcher := NewMatcher(&faultySalesStore{NewMemoryStore()})

	_, err := matcher.Match(context.Background(), "ABC-123")
	if err == nil {
		t.Fatal("expected an error")
	}
	if !IsRetryable(err) {
		t.Fatalf("store faults must be retryable, got %v", err)
	}
	if errors.Is(err, ErrCodeNotFound) {
		t.Fatal("a store fault must not masquerade as a miss")
	}
}
