package sandbox

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/libra-dev/deploy-engine/internal/logging"
	"github.com/libra-dev/deploy-engine/internal/redislock"
)

// templateByProvider is the static provider->template mapping.
var templateByProvider = map[string]string{
	"e2b":     "deploy-engine-e2b-base",
	"daytona": "deploy-engine-daytona-base",
}

// TemplateFor returns the configured template name for a provider.
func TemplateFor(provider string) (string, error) {
	t, ok := templateByProvider[provider]
	if !ok {
		return "", fmt.Errorf("sandbox: no template registered for provider %q", provider)
	}

	return t, nil
}

// Factory builds a Provider for a given provider name.
type Factory func() Provider

// Registry is the process-wide sandbox-factory registry: initialized
// lazily on first request, never torn down, and read-only thereafter.
type Registry struct {
	mu        sync.Mutex
	factories map[string]Factory
	instances map[string]Provider
}

var (
	defaultRegistry     *Registry
	defaultRegistryOnce sync.Once
)

// Default returns the process-wide registry, constructing it on first
// call. Every subsequent call returns the same instance.
func Default() *Registry {
	defaultRegistryOnce.Do(func() {
		defaultRegistry = NewRegistry()
	})

	return defaultRegistry
}

// NewRegistry builds an empty registry. Most callers should use Default;
// this constructor exists for tests that need isolation.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
		instances: make(map[string]Provider),
	}
}

// Register associates a provider name with a Factory. Intended to be
// called once per provider at process startup.
func (r *Registry) Register(name string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.factories[name] = factory
}

// Get returns the lazily-constructed singleton Provider for name.
func (r *Registry) Get(name string) (Provider, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p, ok := r.instances[name]; ok {
		return p, nil
	}

	factory, ok := r.factories[name]
	if !ok {
		return nil, fmt.Errorf("sandbox: no provider registered for %q", name)
	}

	p := factory()
	r.instances[name] = p

	return p, nil
}

// seedLockKey marks which process won the distributed presence lock.
// Every process still must register its own factories locally — Go
// processes don't share memory — so the lock doesn't gate registration
// itself, only which process is recorded as the seeder.
const (
	seedLockKey = "lock:sandbox-registry:seed"
	seedLockTTL = 5 * time.Minute
)

// SeedDistributed runs register against r, then — best-effort — records
// whether this process is the one holding the process-wide presence lock
// across every instance sharing locker. A failed or lost lock never
// blocks registration: register always runs.
func SeedDistributed(ctx context.Context, r *Registry, locker redislock.Locker, register func(*Registry)) {
	register(r)

	acquired, err := locker.TryLock(ctx, seedLockKey, seedLockTTL)

	log := logging.FromContext(ctx)

	switch {
	case err != nil:
		log.Warnf("sandbox: redis presence lock unavailable, seeding without it: %v", err)
	case acquired:
		log.Info("sandbox: this process holds the registry seed presence lock")
	default:
		log.Info("sandbox: another process already holds the registry seed presence lock")
	}
}
