package metrics

import (
	"fmt"
	"net/http"
	"sync/atomic"
)

var (
	claimsSubmitted    atomic.Int64
	claimsPaid         atomic.Int64
	claimsDelivered    atomic.Int64
	sweepsRun          atomic.Int64
	sweepProcessed     atomic.Int64
	sweepSucceeded     atomic.Int64
	sweepFailed        atomic.Int64
	notificationsSent  atomic.Int64
	keysAvailableGauge atomic.Int64
)

func IncClaimsSubmitted() { claimsSubmitted.Add(1) }

func IncClaimsPaid() { claimsPaid.Add(1) }

func IncDelivered() { claimsDelivered.Add(1) }

func IncNotificationsSent() { notificationsSent.Add(1) }

func ObserveSweep(processed, succeeded, failed int) {
	sweepsRun.Add(1)
	sweepProcessed.Add(int64(processed))
	sweepSucceeded.Add(int64(succeeded))
	sweepFailed.Add(int64(failed))
}

func ObserveKeysAvailable(count int64) { keysAvailableGauge.Store(count) }

func WritePrometheus(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	fmt.Fprintf(w, "# HELP redemption_claims_submitted_total Number of claims submitted since process start.\n")
	fmt.Fprintf(w, "# TYPE redemption_claims_submitted_total counter\n")
	fmt.Fprintf(w, "redemption_claims_submitted_total %d\n", claimsSubmitted.Load())

	fmt.Fprintf(w, "# HELP redemption_claims_paid_total Number of claims whose payment was verified.\n")
	fmt.Fprintf(w, "# TYPE redemption_claims_paid_total counter\n")
	fmt.Fprintf(w, "redemption_claims_paid_total %d\n", claimsPaid.Load())

	fmt.Fprintf(w, "# HELP redemption_claims_delivered_total Number of claims fulfilled with a key.\n")
	fmt.Fprintf(w, "# TYPE redemption_claims_delivered_total counter\n")
	fmt.Fprintf(w, "redemption_claims_delivered_total %d\n", claimsDelivered.Load())

	fmt.Fprintf(w, "# HELP redemption_sweeps_run_total Number of fulfillment sweeps executed.\n")
	fmt.Fprintf(w, "# TYPE redemption_sweeps_run_total counter\n")
	fmt.Fprintf(w, "redemption_sweeps_run_total %d\n", sweepsRun.Load())

	fmt.Fprintf(w, "# HELP redemption_sweep_claims_processed_total Claims attempted across all sweeps.\n")
	fmt.Fprintf(w, "# TYPE redemption_sweep_claims_processed_total counter\n")
	fmt.Fprintf(w, "redemption_sweep_claims_processed_total %d\n", sweepProcessed.Load())

	fmt.Fprintf(w, "# HELP redemption_sweep_claims_succeeded_total Claims delivered across all sweeps.\n")
	fmt.Fprintf(w, "# TYPE redemption_sweep_claims_succeeded_total counter\n")
	fmt.Fprintf(w, "redemption_sweep_claims_succeeded_total %d\n", sweepSucceeded.Load())

	fmt.Fprintf(w, "# HELP redemption_sweep_claims_failed_total Claims that reached a failure outcome across all sweeps.\n")
	fmt.Fprintf(w, "# TYPE redemption_sweep_claims_failed_total counter\n")
	fmt.Fprintf(w, "redemption_sweep_claims_failed_total %d\n", sweepFailed.Load())

	fmt.Fprintf(w, "# HELP redemption_notifications_sent_total Notifications handed to the outbound channel.\n")
	fmt.Fprintf(w, "# TYPE redemption_notifications_sent_total counter\n")
	fmt.Fprintf(w, "redemption_notifications_sent_total %d\n", notificationsSent.Load())

	fmt.Fprintf(w, "# HELP redemption_keys_available Keys currently available in inventory, last observed value.\n")
	fmt.Fprintf(w, "# TYPE redemption_keys_available gauge\n")
	fmt.Fprintf(w, "redemption_keys_available %d\n", keysAvailableGauge.Load())
}

func Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WritePrometheus(w)
	}
}
