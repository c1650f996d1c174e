// Package executor implements the step executor: a durable, retryable
// Do(name, policy, fn) primitive. Every successful step result is
// persisted so that a resumed workflow skips fn entirely and returns the
// prior value — into the runner's opaque store, whose schema the core
// does not prescribe.
package executor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/libra-dev/deploy-engine/internal/apperr"
	"github.com/libra-dev/deploy-engine/internal/logging"
)

// Backoff selects how the delay between attempts grows.
type Backoff string

const (
	BackoffLinear      Backoff = "linear"
	BackoffExponential Backoff = "exponential"
)

// Policy is a step's retry/backoff/timeout configuration.
type Policy struct {
	Retries int
	Delay   time.Duration
	Backoff Backoff
	Timeout time.Duration
}

// Store persists a step's serialized result, keyed by workflow and step
// name, and retrieves it on resume. Implementations own their schema; the
// executor only ever hands them opaque bytes.
type Store interface {
	Load(ctx context.Context, workflowID, stepName string) ([]byte, bool, error)
	Save(ctx context.Context, workflowID, stepName string, result []byte) error
}

// Executor drives Do calls against a Store.
type Executor struct {
	store Store
}

// New wires an Executor against store.
func New(store Store) *Executor {
	return &Executor{store: store}
}

// Do runs fn under policy, persisting its result under (workflowID,
// stepName) on success. If a persisted result already exists, fn is never
// invoked and the persisted value is returned.
func Do[T any](ctx context.Context, ex *Executor, workflowID, stepName string, policy Policy, fn func(context.Context) (T, error)) (T, error) {
	var zero T

	if raw, ok, err := ex.store.Load(ctx, workflowID, stepName); err != nil {
		return zero, fmt.Errorf("executor: load %s/%s: %w", workflowID, stepName, err)
	} else if ok {
		var result T
		if err := json.Unmarshal(raw, &result); err != nil {
			return zero, fmt.Errorf("executor: decode persisted %s/%s: %w", workflowID, stepName, err)
		}

		return result, nil
	}

	log := logging.FromContext(ctx)

	var lastErr error

	maxAttempts := policy.Retries + 1

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		stepCtx, cancel := context.WithTimeout(ctx, policy.Timeout)
		result, err := fn(stepCtx)
		cancel()

		if err == nil {
			raw, merr := json.Marshal(result)
			if merr != nil {
				return zero, fmt.Errorf("executor: encode result for %s/%s: %w", workflowID, stepName, merr)
			}

			if serr := ex.store.Save(ctx, workflowID, stepName, raw); serr != nil {
				return zero, fmt.Errorf("executor: persist %s/%s: %w", workflowID, stepName, serr)
			}

			return result, nil
		}

		lastErr = err

		if errors.Is(err, apperr.ErrCancellationRequested) || ctx.Err() != nil {
			return zero, err
		}

		if apperr.IsPermanent(err) {
			log.Warnf("step %s/%s failed permanently on attempt %d: %v", workflowID, stepName, attempt, err)
			return zero, err
		}

		if attempt == maxAttempts {
			break
		}

		delay := backoffDelay(policy, attempt)

		log.Warnf("step %s/%s attempt %d failed, retrying in %s: %v", workflowID, stepName, attempt, delay, err)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}

	return zero, lastErr
}

// backoffDelay computes the wait before the next attempt: delay*attempt
// for linear, delay*2^(attempt-1) for exponential.
func backoffDelay(policy Policy, attempt int) time.Duration {
	switch policy.Backoff {
	case BackoffExponential:
		return policy.Delay * time.Duration(1<<uint(attempt-1))
	default:
		return policy.Delay * time.Duration(attempt)
	}
}
