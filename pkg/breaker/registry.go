package breaker

import "sync"

// Registry holds one breaker per provider name, created lazily with the
// registry defaults unless a per-provider configuration was installed.
// Registries are independent of each other, so separately configured
// managers never share breaker state.
type Registry struct {
	mu        sync.RWMutex
	defaults  Config
	overrides map[string]Config
	breakers  map[string]*Breaker
}

// NewRegistry creates a registry with the given default thresholds.
func NewRegistry(defaults Config) *Registry {
	return &Registry{
		defaults:  defaults.withDefaults(),
		overrides: make(map[string]Config),
		breakers:  make(map[string]*Breaker),
	}
}

// Configure installs per-provider thresholds. It has no effect on a breaker
// that was already created for the name.
func (r *Registry) Configure(name string, cfg Config) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.overrides[name] = cfg.withDefaults()
}

// Get returns the breaker for the named provider, creating it on first use.
func (r *Registry) Get(name string) *Breaker {
	r.mu.RLock()
	b, ok := r.breakers[name]
	r.mu.RUnlock()
	if ok {
		return b
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.breakers[name]; ok {
		return b
	}

	cfg := r.defaults
	if override, ok := r.overrides[name]; ok {
		cfg = override
	}
	b = New(cfg)
	r.breakers[name] = b
	return b
}

// States returns a snapshot of the current state of every known breaker.
func (r *Registry) States() map[string]State {
	r.mu.RLock()
	defer r.mu.RUnlock()

	states := make(map[string]State, len(r.breakers))
	for name, b := range r.breakers {
		states[name] = b.State()
	}
	return states
}
