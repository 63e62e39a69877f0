package cache

import (
	"encoding/json"
	"time"

	"github.com/cecil-the-coder/orchestrator-kit/pkg/types"
)

// DefaultTTL is applied when the configuration leaves the TTL zero.
const DefaultTTL = 5 * time.Minute

// ResultCache memoizes successful results through a Backend. Results are
// serialized as JSON, so Data round-trips through its JSON representation;
// callers of a manager with caching enabled should treat Data accordingly.
type ResultCache struct {
	backend Backend
	ttl     time.Duration
}

// New creates a ResultCache over backend with the given TTL.
func New(backend Backend, ttl time.Duration) *ResultCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &ResultCache{backend: backend, ttl: ttl}
}

// Get returns the cached result for key, if any.
func (c *ResultCache) Get(key string) (types.Result, bool) {
	raw, ok := c.backend.Get(key)
	if !ok {
		return types.Result{}, false
	}

	var res types.Result
	if err := json.Unmarshal(raw, &res); err != nil {
		// A corrupt entry behaves like a miss; the next success rewrites it.
		return types.Result{}, false
	}
	return res, true
}

// Set stores a successful result under key. Failed results are dropped.
func (c *ResultCache) Set(key string, res types.Result) {
	if !res.Success {
		return
	}

	raw, err := json.Marshal(res)
	if err != nil {
		return
	}
	c.backend.Set(key, raw, c.ttl)
}

// TTL returns the configured time-to-live.
func (c *ResultCache) TTL() time.Duration {
	return c.ttl
}
