// Package config loads the service configuration document.
//
// The document is YAML, one entry per logical service: the selection
// strategy, cache and circuit breaker settings, and the provider entries.
// ${VAR} references are interpolated from the environment before parsing,
// so credentials stay out of the file itself.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cecil-the-coder/orchestrator-kit/pkg/types"
)

// Duration is a time.Duration that unmarshals from YAML strings like "30s".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// File is the root of the configuration document.
type File struct {
	Services map[string]Service `yaml:"services"`
}

// Service configures one manager.
type Service struct {
	Strategy    string          `yaml:"strategy"`
	CallTimeout Duration        `yaml:"call_timeout"`
	Cache       CacheSettings   `yaml:"cache"`
	Breaker     BreakerSettings `yaml:"breaker"`
	Providers   []ProviderEntry `yaml:"providers"`
}

// CacheSettings configures the service's result cache.
type CacheSettings struct {
	Enabled    bool     `yaml:"enabled"`
	TTL        Duration `yaml:"ttl"`
	MaxEntries int      `yaml:"max_entries"`
}

// BreakerSettings configures circuit breaker thresholds.
type BreakerSettings struct {
	FailureThreshold int      `yaml:"failure_threshold"`
	CoolDown         Duration `yaml:"cool_down"`
}

// ProviderEntry is one provider in a service.
type ProviderEntry struct {
	Impl         string           `yaml:"impl"`
	Name         string           `yaml:"name"`
	Enabled      *bool            `yaml:"enabled"`
	Priority     int              `yaml:"priority"`
	QualityScore float64          `yaml:"quality_score"`
	Settings     map[string]any   `yaml:"settings"`
	Breaker      *BreakerSettings `yaml:"breaker"`
}

// ProviderConfig converts the entry to the runtime form consumed by
// provider constructors.
func (e ProviderEntry) ProviderConfig() types.ProviderConfig {
	cfg := types.ProviderConfig{
		Impl:         e.Impl,
		Name:         e.Name,
		Enabled:      e.Enabled,
		Priority:     e.Priority,
		QualityScore: e.QualityScore,
		Settings:     e.Settings,
	}
	if e.Breaker != nil {
		cfg.Breaker = &types.BreakerSettings{
			FailureThreshold: e.Breaker.FailureThreshold,
			CoolDown:         e.Breaker.CoolDown.Std(),
		}
	}
	return cfg
}

// IsEnabled reports whether the entry is enabled. Entries are enabled
// unless the document says otherwise.
func (e ProviderEntry) IsEnabled() bool {
	return e.Enabled == nil || *e.Enabled
}

// Load reads, interpolates, parses and validates the document at path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return Parse(data)
}

// Parse interpolates ${VAR} references from the environment, parses the
// YAML document and validates it.
func Parse(data []byte) (*File, error) {
	interpolated := os.Expand(string(data), os.Getenv)

	var f File
	if err := yaml.Unmarshal([]byte(interpolated), &f); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Service returns the named service configuration.
func (f *File) Service(name string) (Service, error) {
	svc, ok := f.Services[name]
	if !ok {
		return Service{}, fmt.Errorf("service %q not configured", name)
	}
	return svc, nil
}

// ServiceNames returns the configured service names.
func (f *File) ServiceNames() []string {
	names := make([]string, 0, len(f.Services))
	for name := range f.Services {
		names = append(names, name)
	}
	return names
}

// Validate checks the document for structural problems: services without
// providers, duplicate provider names, and scores outside [0, 1].
func (f *File) Validate() error {
	if len(f.Services) == 0 {
		return fmt.Errorf("config: no services defined")
	}
	for svcName, svc := range f.Services {
		if len(svc.Providers) == 0 {
			return fmt.Errorf("config: service %q has no providers", svcName)
		}
		seen := make(map[string]struct{}, len(svc.Providers))
		for _, p := range svc.Providers {
			if p.Impl == "" {
				return fmt.Errorf("config: service %q: provider %q has no impl", svcName, p.Name)
			}
			if p.Name == "" {
				return fmt.Errorf("config: service %q: provider with impl %q has no name", svcName, p.Impl)
			}
			if _, dup := seen[p.Name]; dup {
				return fmt.Errorf("config: service %q: duplicate provider name %q", svcName, p.Name)
			}
			seen[p.Name] = struct{}{}
			if p.QualityScore < 0 || p.QualityScore > 1 {
				return fmt.Errorf("config: service %q: provider %q quality_score %v outside [0, 1]",
					svcName, p.Name, p.QualityScore)
			}
			if p.Priority < 0 {
				return fmt.Errorf("config: service %q: provider %q has negative priority", svcName, p.Name)
			}
		}
	}
	return nil
}
