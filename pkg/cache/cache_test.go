package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cecil-the-coder/orchestrator-kit/pkg/types"
)

func TestKey_Deterministic(t *testing.T) {
	a := types.Request{
		Operation: "ocr",
		Payload:   []byte("scan.png"),
		Options:   map[string]string{"lang": "en", "dpi": "300"},
	}
	b := types.Request{
		Operation: "ocr",
		Payload:   []byte("scan.png"),
		Options:   map[string]string{"dpi": "300", "lang": "en"},
	}

	assert.Equal(t, Key(a), Key(b), "option ordering must not change the key")
}

func TestKey_DistinguishesRequests(t *testing.T) {
	base := types.Request{Operation: "ocr", Payload: []byte("scan.png")}

	variants := []types.Request{
		{Operation: "translate", Payload: []byte("scan.png")},
		{Operation: "ocr", Payload: []byte("other.png")},
		{Operation: "ocr", Payload: []byte("scan.png"), Options: map[string]string{"lang": "en"}},
	}
	for i, v := range variants {
		assert.NotEqual(t, Key(base), Key(v), "variant %d", i)
	}

	// Field boundaries are length-prefixed, not concatenated.
	x := types.Request{Operation: "ab", Payload: []byte("c")}
	y := types.Request{Operation: "a", Payload: []byte("bc")}
	assert.NotEqual(t, Key(x), Key(y))
}

func TestMemoryStore_SetGet(t *testing.T) {
	s := NewMemoryStore(10)

	s.Set("k", []byte("v"), time.Minute)

	got, ok := s.Get("k")
	require.True(t, ok)
	assert.Equal(t, []byte("v"), got)
}

func TestMemoryStore_Expiry(t *testing.T) {
	s := NewMemoryStore(10)
	now := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	s.Set("k", []byte("v"), time.Minute)

	now = now.Add(59 * time.Second)
	_, ok := s.Get("k")
	assert.True(t, ok)

	now = now.Add(2 * time.Second)
	_, ok = s.Get("k")
	assert.False(t, ok, "expired entry treated as absent")
	assert.Zero(t, s.Stats().Entries, "expired entry evicted on lookup")
}

func TestMemoryStore_LRUEviction(t *testing.T) {
	s := NewMemoryStore(2)

	s.Set("a", []byte("1"), time.Minute)
	s.Set("b", []byte("2"), time.Minute)

	// Touch "a" so "b" becomes the eviction candidate.
	_, ok := s.Get("a")
	require.True(t, ok)

	s.Set("c", []byte("3"), time.Minute)

	_, ok = s.Get("b")
	assert.False(t, ok)
	_, ok = s.Get("a")
	assert.True(t, ok)
	_, ok = s.Get("c")
	assert.True(t, ok)
}

func TestMemoryStore_Stats(t *testing.T) {
	s := NewMemoryStore(10)
	s.Set("k", []byte("v"), time.Minute)

	s.Get("k")
	s.Get("missing")

	stats := s.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, 1, stats.Entries)
}

func TestMemoryStore_ConcurrentAccess(t *testing.T) {
	s := NewMemoryStore(100)
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("k%d", i%10)
			s.Set(key, []byte("v"), time.Minute)
			s.Get(key)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 10, s.Stats().Entries)
}

func TestResultCache_RoundTrip(t *testing.T) {
	c := New(NewMemoryStore(10), time.Minute)

	res := types.Result{
		Success:  true,
		Data:     "hello",
		Provider: "static",
		Cost:     decimal.RequireFromString("0.0015"),
		Latency:  42 * time.Millisecond,
		Metadata: map[string]any{"pages": float64(3)},
	}
	c.Set("key", res)

	got, ok := c.Get("key")
	require.True(t, ok)
	assert.Equal(t, res.Provider, got.Provider)
	assert.Equal(t, "hello", got.Data)
	assert.True(t, res.Cost.Equal(got.Cost))
	assert.Equal(t, res.Latency, got.Latency)
	assert.Equal(t, res.Metadata, got.Metadata)
}

func TestResultCache_NeverStoresFailures(t *testing.T) {
	c := New(NewMemoryStore(10), time.Minute)

	c.Set("key", types.Result{Success: false, Error: "boom"})

	_, ok := c.Get("key")
	assert.False(t, ok)
}

func TestResultCache_DefaultTTL(t *testing.T) {
	c := New(NewMemoryStore(10), 0)
	assert.Equal(t, DefaultTTL, c.TTL())
}
