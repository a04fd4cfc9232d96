package fulfillment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/systechdigital/redemption-platform/pkg/common/logger"
	"github.com/systechdigital/redemption-platform/pkg/common/models"
	"github.com/systechdigital/redemption-platform/pkg/observability/metrics"
)

// Outcome is the per-claim result of one orchestrator pass.
type Outcome string

const (
	OutcomeDelivered      Outcome = "delivered"
	OutcomeCodeNotFound   Outcome = "activation_code_not_found"
	OutcomeAlreadyClaimed Outcome = "already_claimed"
	OutcomeExhausted      Outcome = "no_key_available"
	OutcomeSkipped        Outcome = "skipped"
	OutcomeRetryLater     Outcome = "retry_later"
)

type ClaimResult struct {
	ClaimID string  `json:"claim_id"`
	Email   string  `json:"email"`
	Outcome Outcome `json:"outcome"`
	OTTCode string  `json:"ott_code,omitempty"`
	Error   string  `json:"error,omitempty"`
}

type SweepResult struct {
	Processed  int           `json:"processed"`
	Succeeded  int           `json:"succeeded"`
	Failed     int           `json:"failed"`
	Details    []ClaimResult `json:"details"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
}

// EventPublisher is the audit-event sink; nil disables publication.
type EventPublisher interface {
	PublishEvent(ctx context.Context, eventType string, source string, data map[string]interface{}) error
}

// Orchestrator drives a claim from eligible to a terminal state: match the
// activation code, claim the sales record, reserve a key, commit the claim,
// notify. Every entry point (cron sweep, payment event, manual reprocess)
// funnels through ProcessClaim so the transition rules live in one place.
type Orchestrator struct {
	claims    ClaimStore
	sales     SalesStore
	keys      KeyStore
	matcher   *Matcher
	notifier  Notifier
	publisher EventPublisher
	batchSize int
}

func NewOrchestrator(claims ClaimStore, sales SalesStore, keys KeyStore, notifier Notifier, publisher EventPublisher, batchSize int) *Orchestrator {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Orchestrator{
		claims:    claims,
		sales:     sales,
		keys:      keys,
		matcher:   NewMatcher(sales),
		notifier:  notifier,
		publisher: publisher,
		batchSize: batchSize,
	}
}

// Sweep processes every eligible claim once. Claims are isolated: one
// claim's failure (including a panic) never aborts the rest of the batch.
// Cancellation is cooperative between claims; a mid-claim mutation is
// already atomic, so stopping between claims cannot corrupt the ledger.
func (o *Orchestrator) Sweep(ctx context.Context) (SweepResult, error) {
	result := SweepResult{StartedAt: time.Now().UTC(), Details: []ClaimResult{}}

	claims, err := o.claims.ListEligible(ctx, o.batchSize)
	if err != nil {
		result.FinishedAt = time.Now().UTC()
		return result, retryable("list eligible claims", err)
	}

	for _, claim := range claims {
		select {
		case <-ctx.Done():
			logger.Log.WithField("processed", result.Processed).Warn("sweep cancelled before completion")
			result.FinishedAt = time.Now().UTC()
			return result, ctx.Err()
		default:
		}

		detail := o.processIsolated(ctx, claim)
		if detail.Outcome == OutcomeSkipped {
			continue
		}
		result.Processed++
		if detail.Outcome == OutcomeDelivered {
			result.Succeeded++
		} else {
			result.Failed++
		}
		result.Details = append(result.Details, detail)
	}

	result.FinishedAt = time.Now().UTC()
	metrics.ObserveSweep(result.Processed, result.Succeeded, result.Failed)
	return result, nil
}

// ProcessClaimID re-enters the state machine for a single claim, bypassing
// the batch. Used by the manual reprocess endpoint and the payment-event
// consumer.
func (o *Orchestrator) ProcessClaimID(ctx context.Context, claimID string) (ClaimResult, error) {
	claim, err := o.claims.Get(ctx, claimID)
	if err != nil {
		if errors.Is(err, ErrClaimNotFound) {
			return ClaimResult{ClaimID: claimID, Outcome: OutcomeSkipped, Error: err.Error()}, err
		}
		return ClaimResult{}, retryable("load claim", err)
	}
	return o.processIsolated(ctx, claim), nil
}

// ReprocessClaimID is the manual retry entry point. Unlike ProcessClaimID
// it re-arms a claim stranded in no_key_available: exhaustion is cleared by
// restocking keys, and the operator's reprocess is what picks the claim back
// up afterwards. Other terminal states stay terminal.
func (o *Orchestrator) ReprocessClaimID(ctx context.Context, claimID string) (ClaimResult, error) {
	claim, err := o.claims.Get(ctx, claimID)
	if err != nil {
		if errors.Is(err, ErrClaimNotFound) {
			return ClaimResult{ClaimID: claimID, Outcome: OutcomeSkipped, Error: err.Error()}, err
		}
		return ClaimResult{}, retryable("load claim", err)
	}

	if claim.PaymentStatus == models.PaymentPaid && claim.OTTStatus == models.OTTNoKeyAvailable {
		if err := o.claims.SetStatus(ctx, claim.ClaimID, models.OTTPending); err != nil {
			return ClaimResult{}, retryable("re-arm exhausted claim", err)
		}
		claim.OTTStatus = models.OTTPending
		logger.Log.WithField("claim_id", claim.ClaimID).Info("re-armed no_key_available claim for reprocess")
	}

	return o.processIsolated(ctx, claim), nil
}

// processIsolated wraps ProcessClaim with a panic boundary so a defective
// claim cannot take down the sweep.
func (o *Orchestrator) processIsolated(ctx context.Context, claim models.Claim) (detail ClaimResult) {
	defer func() {
		if r := recover(); r != nil {
			logger.Log.WithFields(map[string]interface{}{
				"claim_id": claim.ClaimID,
				"panic":    r,
			}).Error("claim processing panicked")
			detail = ClaimResult{
				ClaimID: claim.ClaimID,
				Email:   claim.Email,
				Outcome: OutcomeRetryLater,
				Error:   fmt.Sprintf("panic: %v", r),
			}
		}
	}()
	return o.ProcessClaim(ctx, claim)
}

// ProcessClaim runs the transition rules for one claim. Re-invoking it on a
// claim already in a terminal state is a no-op: no ledger mutation, no
// notification.
func (o *Orchestrator) ProcessClaim(ctx context.Context, claim models.Claim) ClaimResult {
	log := logger.Log.WithFields(map[string]interface{}{
		"claim_id": claim.ClaimID,
		"email":    claim.Email,
	})

	if !claim.Eligible() {
		return ClaimResult{ClaimID: claim.ClaimID, Email: claim.Email, Outcome: OutcomeSkipped}
	}

	// MATCHING
	record, err := o.matcher.Match(ctx, claim.ActivationCode)
	if err != nil {
		if IsRetryable(err) {
			log.WithError(err).Warn("transient fault during matching, claim stays pending")
			return o.result(ctx, claim, OutcomeRetryLater, "", err)
		}
		// NOT_FOUND: terminal-for-now, retry-eligible after a restock import.
		if stateErr := o.claims.SetStatus(ctx, claim.ClaimID, models.OTTCodeNotFound); stateErr != nil {
			log.WithError(stateErr).Error("failed to record activation_code_not_found")
			return o.result(ctx, claim, OutcomeRetryLater, "", retryable("record not_found", stateErr))
		}
		o.notifyFailure(ctx, claim, "activation code not found")
		return o.result(ctx, claim, OutcomeCodeNotFound, "", nil)
	}

	if o.matcher.IsAlreadyClaimed(record) {
		if stateErr := o.claims.SetStatus(ctx, claim.ClaimID, models.OTTAlreadyClaimed); stateErr != nil {
			log.WithError(stateErr).Error("failed to record already_claimed")
			return o.result(ctx, claim, OutcomeRetryLater, "", retryable("record already_claimed", stateErr))
		}
		o.notifyFailure(ctx, claim, "activation code already claimed")
		return o.result(ctx, claim, OutcomeAlreadyClaimed, "", nil)
	}

	// ALLOCATING: claim the sales record optimistically, CAS-guarded.
	claimed, err := o.sales.Claim(ctx, record.ActivationCode, claim.Email)
	if err != nil {
		log.WithError(err).Warn("transient fault claiming sales record")
		return o.result(ctx, claim, OutcomeRetryLater, "", retryable("claim sales record", err))
	}
	if !claimed {
		// Lost the race to another claimant between match and claim.
		if stateErr := o.claims.SetStatus(ctx, claim.ClaimID, models.OTTAlreadyClaimed); stateErr != nil {
			return o.result(ctx, claim, OutcomeRetryLater, "", retryable("record already_claimed", stateErr))
		}
		o.notifyFailure(ctx, claim, "activation code already claimed")
		return o.result(ctx, claim, OutcomeAlreadyClaimed, "", nil)
	}

	key, err := o.keys.Reserve(ctx, record.ProductSubCategory, claim.Email)
	if err != nil {
		o.rollbackSales(ctx, record.ActivationCode)
		if errors.Is(err, ErrExhausted) {
			// EXHAUSTED: operationally actionable, admin must restock.
			if stateErr := o.claims.SetStatus(ctx, claim.ClaimID, models.OTTNoKeyAvailable); stateErr != nil {
				return o.result(ctx, claim, OutcomeRetryLater, "", retryable("record no_key_available", stateErr))
			}
			o.notifyFailure(ctx, claim, "no key available for your product")
			return o.result(ctx, claim, OutcomeExhausted, "", nil)
		}
		log.WithError(err).Warn("transient fault reserving key")
		return o.result(ctx, claim, OutcomeRetryLater, "", retryable("reserve key", err))
	}

	// COMMITTING
	if err := o.claims.MarkDelivered(ctx, claim.ClaimID, key.ActivationCode, key.Product); err != nil {
		// Best-effort compensating rollback of both resources; the claim
		// keeps its prior state and retries on the next sweep.
		o.rollbackKey(ctx, key.ID)
		o.rollbackSales(ctx, record.ActivationCode)
		log.WithError(err).Error("commit failed after key reservation")
		return o.result(ctx, claim, OutcomeRetryLater, "", retryable("commit claim", err))
	}

	metrics.IncDelivered()
	o.notifySuccess(ctx, claim, key)
	log.WithField("platform", key.Product).Info("claim fulfilled")
	return o.result(ctx, claim, OutcomeDelivered, key.ActivationCode, nil)
}

func (o *Orchestrator) result(ctx context.Context, claim models.Claim, outcome Outcome, ottCode string, err error) ClaimResult {
	detail := ClaimResult{
		ClaimID: claim.ClaimID,
		Email:   claim.Email,
		Outcome: outcome,
		OTTCode: ottCode,
	}
	if err != nil {
		detail.Error = err.Error()
	}
	if o.publisher != nil && outcome != OutcomeSkipped {
		data := map[string]interface{}{
			"claim_id": claim.ClaimID,
			"outcome":  string(outcome),
		}
		if detail.Error != "" {
			data["error"] = detail.Error
		}
		if pubErr := o.publisher.PublishEvent(ctx, models.EventTypeFulfillmentResult, "fulfillment", data); pubErr != nil {
			logger.Log.WithError(pubErr).Warn("failed to publish fulfillment result event")
		}
	}
	return detail
}

// rollbackSales reverts a claimed sales record. A failure here can leave a
// record claimed with no delivered claim, so it is logged at error level
// for manual reconciliation, never hidden.
func (o *Orchestrator) rollbackSales(ctx context.Context, code string) {
	if err := o.sales.Release(ctx, code); err != nil {
		logger.Log.WithError(err).WithField("activation_code", code).
			Error("LEDGER INCONSISTENCY: failed to roll back sales record, manual reconciliation required")
	}
}

func (o *Orchestrator) rollbackKey(ctx context.Context, keyID string) {
	if err := o.keys.Release(ctx, keyID); err != nil {
		logger.Log.WithError(err).WithField("key_id", keyID).
			Error("LEDGER INCONSISTENCY: failed to roll back key assignment, manual reconciliation required")
	}
}

func (o *Orchestrator) notifySuccess(ctx context.Context, claim models.Claim, key models.Key) {
	if o.notifier == nil {
		return
	}
	err := o.notifier.Send(ctx, claim.Email, TemplateAutomationSuccess, map[string]interface{}{
		"name":     claim.Name,
		"claim_id": claim.ClaimID,
		"ott_code": key.ActivationCode,
		"platform": key.Product,
	})
	if err != nil {
		// Notification is best-effort, not transactional with fulfillment.
		logger.Log.WithError(err).WithField("claim_id", claim.ClaimID).Warn("success notification failed")
	} else {
		metrics.IncNotificationsSent()
	}
}

func (o *Orchestrator) notifyFailure(ctx context.Context, claim models.Claim, reason string) {
	if o.notifier == nil {
		return
	}
	err := o.notifier.Send(ctx, claim.Email, TemplateAutomationFailed, map[string]interface{}{
		"name":     claim.Name,
		"claim_id": claim.ClaimID,
		"reason":   reason,
	})
	if err != nil {
		logger.Log.WithError(err).WithField("claim_id", claim.ClaimID).Warn("failure notification failed")
	} else {
		metrics.IncNotificationsSent()
	}
}
