// Package apperr defines the engine's typed error taxonomy. A Permanent
// error exhausts the Step Executor's retry budget immediately; an error
// that doesn't implement permanentError defaults to transient.
package apperr

import (
	"errors"
	"fmt"
)

// NotFoundError records that an entity could not be located in some store.
type NotFoundError struct {
	EntityType string
	Code       string
	Message    string
	Err        error
}

func (e NotFoundError) Error() string {
	if e.Message != "" {
		return e.Message
	}

	return fmt.Sprintf("%s not found", e.EntityType)
}

func (e NotFoundError) Unwrap() error { return e.Err }
func (e NotFoundError) Permanent() bool { return true }

// ValidationError records a rejected input.
type ValidationError struct {
	EntityType string
	Code       string
	Message    string
	Err        error
}

func (e ValidationError) Error() string   { return e.Message }
func (e ValidationError) Unwrap() error   { return e.Err }
func (e ValidationError) Permanent() bool { return true }

// ConflictError records a state conflict (e.g. project inactive).
type ConflictError struct {
	EntityType string
	Code       string
	Message    string
	Err        error
}

func (e ConflictError) Error() string   { return e.Message }
func (e ConflictError) Unwrap() error   { return e.Err }
func (e ConflictError) Permanent() bool { return true }

// UnprocessableError records a request that is well-formed but cannot be
// carried out given current state (e.g. quota exhaustion).
type UnprocessableError struct {
	EntityType string
	Code       string
	Message    string
	Err        error
}

func (e UnprocessableError) Error() string   { return e.Message }
func (e UnprocessableError) Unwrap() error   { return e.Err }
func (e UnprocessableError) Permanent() bool { return true }

// permanentError is implemented by every error type in this package whose
// retry discipline is "do not retry". The Step Executor type-asserts for it.
type permanentError interface {
	Permanent() bool
}

// IsPermanent reports whether err carries a do-not-retry signal. Any error
// that doesn't implement permanentError defaults to transient.
func IsPermanent(err error) bool {
	var p permanentError

	if errors.As(err, &p) {
		return p.Permanent()
	}

	return false
}

// Sentinel taxonomy values for the engine's error classification.
var (
	// ErrQuotaExhausted: no quota in any active tier. Permanent.
	ErrQuotaExhausted = UnprocessableError{
		EntityType: "subscriptionLimit",
		Code:       "QUOTA_EXHAUSTED",
		Message:    "no deploy quota remaining in any active tier",
	}

	// ErrProjectNotFound: project row does not exist for the given org. Permanent.
	ErrProjectNotFound = NotFoundError{
		EntityType: "project",
		Code:       "PROJECT_NOT_FOUND",
		Message:    "project not found for the given organization",
	}

	// ErrProjectInactive: project exists but isActive=false. Permanent.
	ErrProjectInactive = ConflictError{
		EntityType: "project",
		Code:       "PROJECT_INACTIVE",
		Message:    "project is not active and cannot be deployed",
	}
)

// ProviderUnavailableError wraps a transient sandbox-provider failure.
// A sandbox timeout is represented as the same type.
type ProviderUnavailableError struct {
	Provider string
	Err      error
}

func (e ProviderUnavailableError) Error() string {
	return fmt.Sprintf("sandbox provider %s unavailable: %v", e.Provider, e.Err)
}
func (e ProviderUnavailableError) Unwrap() error   { return e.Err }
func (e ProviderUnavailableError) Permanent() bool { return false }

// BuildFailureError wraps a non-zero "bun run build" exit.
type BuildFailureError struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

func (e BuildFailureError) Error() string {
	return fmt.Sprintf("build failed with exit code %d", e.ExitCode)
}
func (e BuildFailureError) Permanent() bool { return false }

// DeployFailureError wraps a non-zero "wrangler deploy" exit.
type DeployFailureError struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

func (e DeployFailureError) Error() string {
	return fmt.Sprintf("deploy failed with exit code %d", e.ExitCode)
}
func (e DeployFailureError) Permanent() bool { return false }

// PersistenceFailureError wraps a DB error encountered while updating the
// project row in step 6. Transient: retried per policy, then the workflow
// is marked failed but sandbox termination still runs.
type PersistenceFailureError struct {
	Err error
}

func (e PersistenceFailureError) Error() string {
	return fmt.Sprintf("persistence failure: %v", e.Err)
}
func (e PersistenceFailureError) Unwrap() error   { return e.Err }
func (e PersistenceFailureError) Permanent() bool { return false }

// ErrCancellationRequested signals cooperative cancellation at a suspension
// point. It is deliberately not Permanent: the executor short-circuits on
// context cancellation before ever consulting Permanent().
var ErrCancellationRequested = errors.New("cancellation requested")
