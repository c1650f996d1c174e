package sandbox

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/libra-dev/deploy-engine/internal/redislock"
)

type fakeLocker struct {
	acquire bool
	err     error
	locked  []string
}

func (f *fakeLocker) TryLock(_ context.Context, key string, _ time.Duration) (bool, error) {
	if f.acquire {
		f.locked = append(f.locked, key)
	}

	return f.acquire, f.err
}

func (f *fakeLocker) Unlock(context.Context, string) error { return nil }

var _ redislock.Locker = (*fakeLocker)(nil)

type fakeProvider struct{ created int }

func (f *fakeProvider) Create(ctx context.Context, params CreateParams) (string, error) {
	f.created++
	return "fake-id", nil
}
func (f *fakeProvider) Connect(ctx context.Context, id string) error { return nil }
func (f *fakeProvider) WriteFiles(ctx context.Context, id string, files []WriteFile) (WriteFilesResult, error) {
	return WriteFilesResult{Success: true}, nil
}
func (f *fakeProvider) ExecuteCommand(ctx context.Context, id, cmd string, opts ExecOptions) (ExecResult, error) {
	return ExecResult{}, nil
}
func (f *fakeProvider) Terminate(ctx context.Context, id string, opts TerminateOptions) (bool, error) {
	return true, nil
}

func TestRegistry_LazySingleton(t *testing.T) {
	reg := NewRegistry()

	built := 0
	reg.Register("fake", func() Provider {
		built++
		return &fakeProvider{}
	})

	p1, err := reg.Get("fake")
	require.NoError(t, err)

	p2, err := reg.Get("fake")
	require.NoError(t, err)

	assert.Same(t, p1, p2)
	assert.Equal(t, 1, built)
}

func TestRegistry_UnregisteredProviderErrors(t *testing.T) {
	reg := NewRegistry()

	_, err := reg.Get("nope")
	assert.Error(t, err)
}

func TestSeedDistributed_AlwaysRegistersRegardlessOfLockOutcome(t *testing.T) {
	reg := NewRegistry()
	locker := &fakeLocker{acquire: true}

	registered := false
	SeedDistributed(context.Background(), reg, locker, func(r *Registry) {
		registered = true
		r.Register("fake", func() Provider { return &fakeProvider{} })
	})

	assert.True(t, registered)
	assert.Equal(t, []string{seedLockKey}, locker.locked)

	_, err := reg.Get("fake")
	assert.NoError(t, err)
}

func TestSeedDistributed_RegistersEvenWhenLockFails(t *testing.T) {
	reg := NewRegistry()
	locker := &fakeLocker{acquire: false, err: assert.AnError}

	registered := false
	SeedDistributed(context.Background(), reg, locker, func(r *Registry) {
		registered = true
	})

	assert.True(t, registered)
}

func TestTemplateFor(t *testing.T) {
	tmpl, err := TemplateFor("e2b")
	require.NoError(t, err)
	assert.NotEmpty(t, tmpl)

	_, err = TemplateFor("unknown-provider")
	assert.Error(t, err)
}
