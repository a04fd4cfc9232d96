package fulfillment

import (
	"context"
	"time"

	"github.com/systechdigital/redemption-platform/pkg/common/models"
)

// ClaimStore is the view of the claims collection the orchestrator needs.
// Claims are partitioned by claim id and never contended across sweeps.
type ClaimStore interface {
	// ListEligible returns up to limit claims that satisfy the eligibility
	// predicate: paid, and ott status pending or activation_code_not_found.
	ListEligible(ctx context.Context, limit int) ([]models.Claim, error)

	Get(ctx context.Context, claimID string) (models.Claim, error)

	// SetStatus records a terminal (or retry-eligible) outcome without
	// touching the delivered code.
	SetStatus(ctx context.Context, claimID string, status models.ClaimOTTStatus) error

	// MarkDelivered sets ott_code, platform and status delivered in one
	// update, preserving the ottCode-iff-delivered invariant.
	MarkDelivered(ctx context.Context, claimID, ottCode, platform string) error
}

// SalesStore is the proof-of-purchase ledger.
type SalesStore interface {
	FindExact(ctx context.Context, code string) (models.SalesRecord, error)
	FindFold(ctx context.Context, code string) (models.SalesRecord, error)

	// All returns the full ledger for the normalized-scan fallback. Bounded
	// by ledger size; acceptable for the deployments this serves.
	All(ctx context.Context) ([]models.SalesRecord, error)

	// Claim flips the record available -> claimed for email. Returns false
	// when another caller already claimed it; the guard is a conditional
	// update, never read-then-write.
	Claim(ctx context.Context, code, email string) (bool, error)

	// Release is the compensating rollback: claimed -> available, claimant
	// cleared.
	Release(ctx context.Context, code string) error
}

// KeyStore reserves redeemable credentials. Reserve is the single place in
// the system where mutual exclusion is mandatory.
type KeyStore interface {
	// Reserve picks one available key, optionally filtered by product, and
	// transitions it available -> assigned with a compare-and-swap on
	// status. Returns ErrExhausted when nothing matches.
	Reserve(ctx context.Context, product, email string) (models.Key, error)

	// Release returns an assigned key to the pool after a failed commit.
	Release(ctx context.Context, id string) error
}

// SettingsStore persists the automation control singleton.
type SettingsStore interface {
	Get(ctx context.Context) (models.AutomationSettings, error)
	Update(ctx context.Context, s models.AutomationSettings) error
	SetRunning(ctx context.Context, running bool) error

	// RecordRun stamps lastRun/nextRun, increments the run counter and
	// returns the new total.
	RecordRun(ctx context.Context, lastRun, nextRun time.Time) (int64, error)
}

// Locker is the sweep re-entrancy guard. Acquire must be atomic and the
// hold must expire after ttl so a crashed sweep cannot deadlock the system.
type Locker interface {
	Acquire(ctx context.Context, ttl time.Duration) (bool, error)
	Release(ctx context.Context) error
}

// Notifier is the outbound notification collaborator. Send failures are
// logged by callers and never roll back committed ledger state.
type Notifier interface {
	Send(ctx context.Context, to string, template string, data map[string]interface{}) error
}

// Template names the orchestrator dispatches with.
const (
	TemplateAutomationSuccess = "automation_success"
	TemplateAutomationFailed  = "automation_failed"
)
