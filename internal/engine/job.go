package engine

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/apresai/fieldlog/internal/providers"
	"github.com/apresai/fieldlog/internal/store"
)

// Result is what a stage worker returns to the scheduler.
type Result int

const (
	ResultOK Result = iota
	ResultPaused
	ResultCanceled
)

const (
	// outerMaxRetries is the worker-level retry count wrapping a
	// provider call, independent of the provider client's own inner
	// retries (spec.md §4.4 step 4).
	outerMaxRetries = 3
	outerBaseDelay  = 5 * time.Second

	summaryCooldown = 15 * time.Second
	audioCooldown   = 300 * time.Second

	pollSlice = 1 * time.Second
)

// jitter scales b by a uniform factor in [0.8, 1.2).
func jitter(b time.Duration) time.Duration {
	factor := 0.8 + rand.Float64()*0.4
	return time.Duration(float64(b) * factor)
}

// jitterDeadline returns the absolute time jitter(b) from now, for
// persisting as cooldown_until.
func jitterDeadline(b time.Duration) time.Time {
	return time.Now().Add(jitter(b))
}

// checkControl polls the job's current status. It returns a non-OK
// Result when the worker should stop: paused (user paused it),
// canceled (user canceled it, the record is gone, or the job is no
// longer running — e.g. a stalled job was recovered back to queued).
func checkControl(ctx context.Context, s *store.Store, jobID string) Result {
	j, err := s.GetJob(ctx, jobID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ResultCanceled
		}
		// A transient store read failure doesn't justify stopping the
		// job outright; treat it as "no signal" and let the caller
		// continue — the next provider call will surface the failure
		// if the store is genuinely down.
		return ResultOK
	}
	switch j.Status {
	case store.StatusPaused:
		return ResultPaused
	case store.StatusRunning:
		return ResultOK
	default:
		return ResultCanceled
	}
}

// sleepWithPolling sleeps for d, sliced into 1s increments, checking job
// control at each slice so pause/cancel is observed within ~1s. Returns
// early with the observed Result if the job is no longer running.
func sleepWithPolling(ctx context.Context, s *store.Store, jobID string, d time.Duration) Result {
	deadline := time.Now().Add(d)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return ResultOK
		}
		slice := pollSlice
		if remaining < slice {
			slice = remaining
		}

		select {
		case <-ctx.Done():
			return ResultCanceled
		case <-time.After(slice):
		}

		if r := checkControl(ctx, s, jobID); r != ResultOK {
			return r
		}
	}
}

// retryOuter retries fn up to outerMaxRetries times with doubling
// backoff from outerBaseDelay, polling job control between waits so
// pause/cancel remains responsive during the outer retry loop too. A
// non-retryable error (providers.IsRetryable returns false — a
// permanent-contract violation, a validation failure, anything that
// cannot succeed on retry) fails fast instead of burning the remaining
// attempts. Returns the last error if every attempt fails, or a non-OK
// Result if the job was paused/canceled while waiting.
func retryOuter(ctx context.Context, s *store.Store, jobID string, fn func() error) (Result, error) {
	backoff := outerBaseDelay
	var lastErr error

	for attempt := 1; attempt <= outerMaxRetries; attempt++ {
		if r := checkControl(ctx, s, jobID); r != ResultOK {
			return r, nil
		}

		err := fn()
		if err == nil {
			return ResultOK, nil
		}
		lastErr = err

		if attempt == outerMaxRetries || !providers.IsRetryable(err) {
			break
		}

		if r := sleepWithPolling(ctx, s, jobID, backoff); r != ResultOK {
			return r, nil
		}
		backoff *= 2
	}

	return ResultOK, lastErr
}
