package fulfillment

import (
	"context"
	"time"

	"github.com/systechdigital/redemption-platform/pkg/common/logger"
)

// TriggerResult is the response contract of the automation trigger.
type TriggerResult struct {
	Success   bool         `json:"success"`
	Message   string       `json:"message"`
	Skipped   bool         `json:"skipped,omitempty"`
	Results   *SweepResult `json:"results,omitempty"`
	RunNumber int64        `json:"run_number,omitempty"`
	NextRun   *time.Time   `json:"next_run,omitempty"`
}

// Scheduler gates sweep execution: master switch, distributed lock with a
// staleness TTL, run bookkeeping. Only one sweep may run at a time
// process-wide and deployment-wide; the lock's expiry guarantees a crashed
// sweep cannot hold the system forever.
type Scheduler struct {
	orch         *Orchestrator
	settings     SettingsStore
	locker       Locker
	lockTTL      time.Duration
	sweepTimeout time.Duration
}

func NewScheduler(orch *Orchestrator, settings SettingsStore, locker Locker, lockTTL, sweepTimeout time.Duration) *Scheduler {
	if lockTTL <= 0 {
		lockTTL = 10 * time.Minute
	}
	if sweepTimeout <= 0 {
		sweepTimeout = 5 * time.Minute
	}
	return &Scheduler{
		orch:         orch,
		settings:     settings,
		locker:       locker,
		lockTTL:      lockTTL,
		sweepTimeout: sweepTimeout,
	}
}

// Trigger runs one sweep if allowed. Safe to call from cron, webhook and
// manual endpoints concurrently: a held lock reports skipped rather than
// running twice.
func (s *Scheduler) Trigger(ctx context.Context) (TriggerResult, error) {
	settings, err := s.settings.Get(ctx)
	if err != nil {
		return TriggerResult{Message: "failed to load automation settings"}, retryable("load settings", err)
	}
	if !settings.IsEnabled {
		return TriggerResult{Success: true, Skipped: true, Message: "automation disabled"}, nil
	}

	acquired, err := s.locker.Acquire(ctx, s.lockTTL)
	if err != nil {
		return TriggerResult{Message: "failed to acquire sweep lock"}, retryable("acquire lock", err)
	}
	if !acquired {
		return TriggerResult{Success: true, Skipped: true, Message: "sweep already running"}, nil
	}
	defer func() {
		if err := s.locker.Release(ctx); err != nil {
			logger.Log.WithError(err).Warn("failed to release sweep lock, it will expire on its own")
		}
	}()

	if err := s.settings.SetRunning(ctx, true); err != nil {
		logger.Log.WithError(err).Warn("failed to mark sweep running")
	}
	defer func() {
		if err := s.settings.SetRunning(context.WithoutCancel(ctx), false); err != nil {
			logger.Log.WithError(err).Warn("failed to clear running flag")
		}
	}()

	sweepCtx, cancel := context.WithTimeout(ctx, s.sweepTimeout)
	defer cancel()

	result, sweepErr := s.orch.Sweep(sweepCtx)

	now := time.Now().UTC()
	next := now.Add(time.Duration(settings.IntervalMinutes) * time.Minute)
	runNumber, err := s.settings.RecordRun(context.WithoutCancel(ctx), now, next)
	if err != nil {
		logger.Log.WithError(err).Warn("failed to record sweep run")
	}

	out := TriggerResult{
		Success:   sweepErr == nil,
		Message:   "sweep completed",
		Results:   &result,
		RunNumber: runNumber,
		NextRun:   &next,
	}
	if sweepErr != nil {
		out.Message = "sweep aborted: " + sweepErr.Error()
		logger.Log.WithError(sweepErr).WithFields(map[string]interface{}{
			"processed": result.Processed,
			"succeeded": result.Succeeded,
			"failed":    result.Failed,
		}).Error("sweep did not complete")
		return out, sweepErr
	}

	logger.Log.WithFields(map[string]interface{}{
		"processed":  result.Processed,
		"succeeded":  result.Succeeded,
		"failed":     result.Failed,
		"run_number": runNumber,
	}).Info("sweep completed")
	return out, nil
}

// Run ticks once a minute and fires Trigger whenever the configured cadence
// says the next run is due. Exits when ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Log.Info("sweep scheduler stopped")
			return
		case <-ticker.C:
			settings, err := s.settings.Get(ctx)
			if err != nil {
				logger.Log.WithError(err).Warn("scheduler could not load settings")
				continue
			}
			if !settings.IsEnabled {
				continue
			}
			if settings.NextRun != nil && time.Now().UTC().Before(*settings.NextRun) {
				continue
			}
			if _, err := s.Trigger(ctx); err != nil {
				logger.Log.WithError(err).Warn("scheduled sweep failed")
			}
		}
	}
}
