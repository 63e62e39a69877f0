// Package factory maps provider implementation names to constructors and
// assembles fully wired managers from configuration documents.
package factory

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/cecil-the-coder/orchestrator-kit/pkg/adapters"
	"github.com/cecil-the-coder/orchestrator-kit/pkg/breaker"
	"github.com/cecil-the-coder/orchestrator-kit/pkg/cache"
	"github.com/cecil-the-coder/orchestrator-kit/pkg/config"
	"github.com/cecil-the-coder/orchestrator-kit/pkg/costs"
	"github.com/cecil-the-coder/orchestrator-kit/pkg/manager"
	"github.com/cecil-the-coder/orchestrator-kit/pkg/strategy"
	"github.com/cecil-the-coder/orchestrator-kit/pkg/types"
)

// Constructor builds a provider from its configuration entry.
type Constructor func(types.ProviderConfig) (types.Provider, error)

// Registry maps implementation names to constructors.
type Registry struct {
	mu           sync.RWMutex
	constructors map[string]Constructor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{constructors: make(map[string]Constructor)}
}

// Register installs a constructor under impl, replacing any previous one.
func (r *Registry) Register(impl string, ctor Constructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.constructors[impl] = ctor
}

// Create builds a provider for the entry's implementation name.
func (r *Registry) Create(cfg types.ProviderConfig) (types.Provider, error) {
	r.mu.RLock()
	ctor, ok := r.constructors[cfg.Impl]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("provider impl %q not registered", cfg.Impl)
	}
	return ctor(cfg)
}

// Supported returns the registered implementation names, sorted.
func (r *Registry) Supported() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.constructors))
	for name := range r.constructors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RegisterBuiltins installs the adapters shipped with this module.
func RegisterBuiltins(r *Registry) {
	r.Register("static", adapters.NewStaticProvider)
	r.Register("httpapi", adapters.NewHTTPAPIProvider)
}

// Default returns a registry preloaded with the built-in adapters.
func Default() *Registry {
	r := NewRegistry()
	RegisterBuiltins(r)
	return r
}

// BuildManager assembles one manager from its service configuration:
// providers from the registry, the selection strategy, per-provider
// breaker thresholds, the optional result cache, and a cost tracker that
// mirrors its ledger into the logger.
func BuildManager(name string, svc config.Service, registry *Registry, logger *zap.Logger) (*manager.Manager, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	tracker := costs.NewTracker(costs.NewZapSink(logger.Named("costs")))

	strat, err := strategy.New(svc.Strategy, tracker)
	if err != nil {
		return nil, fmt.Errorf("service %s: %w", name, err)
	}

	breakers := breaker.NewRegistry(breaker.Config{
		FailureThreshold: svc.Breaker.FailureThreshold,
		CoolDown:         svc.Breaker.CoolDown.Std(),
	})

	providers := make([]types.Provider, 0, len(svc.Providers))
	for _, entry := range svc.Providers {
		if !entry.IsEnabled() {
			logger.Info("skipping disabled provider",
				zap.String("service", name),
				zap.String("provider", entry.Name))
			continue
		}

		cfg := entry.ProviderConfig()
		p, err := registry.Create(cfg)
		if err != nil {
			return nil, fmt.Errorf("service %s: provider %s: %w", name, entry.Name, err)
		}
		providers = append(providers, p)

		if cfg.Breaker != nil {
			breakers.Configure(p.Name(), breaker.Config{
				FailureThreshold: cfg.Breaker.FailureThreshold,
				CoolDown:         cfg.Breaker.CoolDown,
			})
		}
	}

	var resultCache *cache.ResultCache
	if svc.Cache.Enabled {
		resultCache = cache.New(cache.NewMemoryStore(svc.Cache.MaxEntries), svc.Cache.TTL.Std())
	}

	return manager.New(manager.Config{
		Name:        name,
		Providers:   providers,
		Strategy:    strat,
		Breakers:    breakers,
		Cache:       resultCache,
		Costs:       tracker,
		Logger:      logger,
		CallTimeout: svc.CallTimeout.Std(),
	})
}

// BuildAll assembles a manager for every service in the document.
func BuildAll(file *config.File, registry *Registry, logger *zap.Logger) (map[string]*manager.Manager, error) {
	managers := make(map[string]*manager.Manager, len(file.Services))
	for _, name := range file.ServiceNames() {
		svc, err := file.Service(name)
		if err != nil {
			return nil, err
		}
		m, err := BuildManager(name, svc, registry, logger)
		if err != nil {
			return nil, err
		}
		managers[name] = m
	}
	return managers, nil
}
