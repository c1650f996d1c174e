package sandbox

import (
	"context"
	"time"

	"github.com/sony/gobreaker"

	"github.com/libra-dev/deploy-engine/internal/apperr"
)

// BreakerProvider wraps a Provider so that repeated ProviderUnavailable
// failures trip a circuit breaker, shedding load onto a struggling
// provider instead of queuing every workflow's retries against it.
type BreakerProvider struct {
	name    string
	inner   Provider
	breaker *gobreaker.CircuitBreaker
}

// NewBreakerProvider wraps inner with a breaker named after the provider,
// tripping after 5 consecutive failures and probing again after 30s.
func NewBreakerProvider(name string, inner Provider) *BreakerProvider {
	settings := gobreaker.Settings{
		Name:    "sandbox-" + name,
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}

	return &BreakerProvider{
		name:    name,
		inner:   inner,
		breaker: gobreaker.NewCircuitBreaker(settings),
	}
}

func (b *BreakerProvider) Create(ctx context.Context, params CreateParams) (string, error) {
	result, err := b.breaker.Execute(func() (any, error) {
		return b.inner.Create(ctx, params)
	})
	if err != nil {
		return "", classifyBreakerError(b.name, err)
	}

	return result.(string), nil
}

func (b *BreakerProvider) Connect(ctx context.Context, id string) error {
	_, err := b.breaker.Execute(func() (any, error) {
		return nil, b.inner.Connect(ctx, id)
	})
	if err != nil {
		return classifyBreakerError(b.name, err)
	}

	return nil
}

func (b *BreakerProvider) WriteFiles(ctx context.Context, id string, files []WriteFile) (WriteFilesResult, error) {
	result, err := b.breaker.Execute(func() (any, error) {
		return b.inner.WriteFiles(ctx, id, files)
	})
	if err != nil {
		return WriteFilesResult{}, classifyBreakerError(b.name, err)
	}

	return result.(WriteFilesResult), nil
}

func (b *BreakerProvider) ExecuteCommand(ctx context.Context, id, cmd string, opts ExecOptions) (ExecResult, error) {
	result, err := b.breaker.Execute(func() (any, error) {
		return b.inner.ExecuteCommand(ctx, id, cmd, opts)
	})
	if err != nil {
		return ExecResult{}, classifyBreakerError(b.name, err)
	}

	return result.(ExecResult), nil
}

func (b *BreakerProvider) Terminate(ctx context.Context, id string, opts TerminateOptions) (bool, error) {
	result, err := b.breaker.Execute(func() (any, error) {
		return b.inner.Terminate(ctx, id, opts)
	})
	if err != nil {
		return false, classifyBreakerError(b.name, err)
	}

	return result.(bool), nil
}

// classifyBreakerError wraps a tripped-breaker or underlying error as
// ProviderUnavailable, covering both open-circuit rejections and the
// transient errors that opened it.
func classifyBreakerError(provider string, err error) error {
	return apperr.ProviderUnavailableError{Provider: provider, Err: err}
}
