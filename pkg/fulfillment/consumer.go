package fulfillment

import (
	"context"

	"github.com/systechdigital/redemption-platform/pkg/common/logger"
	"github.com/systechdigital/redemption-platform/pkg/common/models"
)

// PaymentEventHandler reacts to claim.payment.verified events by running the
// state machine for the single affected claim. Returning an error keeps the
// message uncommitted so transient faults are retried by the consumer group;
// terminal outcomes commit.
func (o *Orchestrator) PaymentEventHandler() func(ctx context.Context, event models.Event) error {
	return func(ctx context.Context, event models.Event) error {
		if event.Type != models.EventTypePaymentVerified {
			return nil
		}
		claimID, _ := event.Data["claim_id"].(string)
		if claimID == "" {
			logger.Log.WithField("event_id", event.ID).Warn("payment event without claim_id, dropping")
			return nil
		}

		detail, err := o.ProcessClaimID(ctx, claimID)
		if err != nil && IsRetryable(err) {
			return err
		}
		logger.Log.WithFields(map[string]interface{}{
			"claim_id": claimID,
			"outcome":  string(detail.Outcome),
		}).Info("processed payment event")
		return nil
	}
}
