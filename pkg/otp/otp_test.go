package otp

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestIssueAndVerify(t *testing.T) {
	svc := NewService(NewMemoryStore(), time.Minute, 5)
	ctx := context.Background()

	code, err := svc.Issue(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if len(code) != 6 {
		t.Fatalf("expected a 6-digit code, got %q", code)
	}

	if err := svc.Verify(ctx, "alice@example.com", code); err != nil {
		t.Fatalf("verify failed: %v", err)
	}

	// The code is consumed on success.
	if err := svc.Verify(ctx, "alice@example.com", code); !errors.Is(err, ErrNotFound) {
		t.Fatalf("a consumed code must not verify again, got %v", err)
	}
}

func TestVerifyWrongCode(t *testing.T) {
	svc := NewService(NewMemoryStore(), time.Minute, 5)
	ctx := context.Background()

	if _, err := svc.Issue(ctx, "bob@example.com"); err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if err := svc.Verify(ctx, "bob@example.com", "000000x"); !errors.Is(err, ErrMismatch) {
		t.Fatalf("expected ErrMismatch, got %v", err)
	}
}

func TestVerifyTooManyAttempts(t *testing.T) {
	svc := NewService(NewMemoryStore(), time.Minute, 3)
	ctx := context.Background()

	code, err := svc.Issue(ctx, "carol@example.com")
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := svc.Verify(ctx, "carol@example.com", "wrong!"); !errors.Is(err, ErrMismatch) {
			t.Fatalf("attempt %d: expected ErrMismatch, got %v", i+1, err)
		}
	}

	// The correct code no longer works once the budget is spent.
	if err := svc.Verify(ctx, "carol@example.com", code); !errors.Is(err, ErrTooManyAttempts) {
		t.Fatalf("expected ErrTooManyAttempts, got %v", err)
	}
}

func TestReissueResetsAttempts(t *testing.T) {
	svc := NewService(NewMemoryStore(), time.Minute, 2)
	ctx := context.Background()

	if _, err := svc.Issue(ctx, "dave@example.com"); err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	svc.Verify(ctx, "dave@example.com", "wrong!")
	svc.Verify(ctx, "dave@example.com", "wrong!")

	code, err := svc.Issue(ctx, "dave@example.com")
	if err != nil {
		t.Fatalf("reissue failed: %v", err)
	}
	if err := svc.Verify(ctx, "dave@example.com", code); err != nil {
		t.Fatalf("fresh code must verify after reissue: %v", err)
	}
}

func TestCodeExpiry(t *testing.T) {
	store := NewMemoryStore()
	now := time.Now()
	store.now = func() time.Time { return now }

	svc := NewService(store, time.Minute, 5)
	ctx := context.Background()

	code, err := svc.Issue(ctx, "erin@example.com")
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	now = now.Add(2 * time.Minute)
	if err := svc.Verify(ctx, "erin@example.com", code); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expired code must not verify, got %v", err)
	}
}
