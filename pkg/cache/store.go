package cache

import (
	"container/list"
	"sync"
	"time"
)

// Backend is the storage interface consumed by the ResultCache. The manager
// is agnostic to whether entries live in process memory or an external store.
type Backend interface {
	// Get returns the stored bytes for key, or false when the key is absent
	// or expired.
	Get(key string) ([]byte, bool)

	// Set stores value under key for at most ttl.
	Set(key string, value []byte, ttl time.Duration)
}

// Stats reports cache performance counters.
type Stats struct {
	Entries int   `json:"entries"`
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
}

// storeEntry is a single cache entry with its expiry and LRU position.
type storeEntry struct {
	key       string
	value     []byte
	expiresAt time.Time
	element   *list.Element
}

// MemoryStore is an in-memory LRU Backend with per-entry TTL.
// Expired entries are treated as absent on lookup and evicted lazily.
// Thread-safe implementation using sync.Mutex.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*storeEntry
	lruList *list.List
	maxSize int
	hits    int64
	misses  int64

	now func() time.Time // injectable for tests
}

// DefaultMaxEntries bounds a MemoryStore when no size is configured.
const DefaultMaxEntries = 1024

// NewMemoryStore creates a MemoryStore holding at most maxSize entries.
func NewMemoryStore(maxSize int) *MemoryStore {
	if maxSize <= 0 {
		maxSize = DefaultMaxEntries
	}
	return &MemoryStore{
		entries: make(map[string]*storeEntry),
		lruList: list.New(),
		maxSize: maxSize,
		now:     time.Now,
	}
}

// Get returns the value for key if present and not expired.
func (s *MemoryStore) Get(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, exists := s.entries[key]
	if !exists || s.now().After(entry.expiresAt) {
		s.misses++
		if exists {
			s.removeEntry(entry)
		}
		return nil, false
	}

	s.lruList.MoveToFront(entry.element)
	s.hits++
	return entry.value, true
}

// Set stores value under key for ttl. A non-positive ttl stores nothing.
func (s *MemoryStore) Set(key string, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if entry, exists := s.entries[key]; exists {
		entry.value = value
		entry.expiresAt = s.now().Add(ttl)
		s.lruList.MoveToFront(entry.element)
		return
	}

	entry := &storeEntry{
		key:       key,
		value:     value,
		expiresAt: s.now().Add(ttl),
	}
	entry.element = s.lruList.PushFront(entry)
	s.entries[key] = entry

	for len(s.entries) > s.maxSize {
		oldest := s.lruList.Back()
		if oldest == nil {
			break
		}
		s.removeEntry(oldest.Value.(*storeEntry))
	}
}

// Stats returns a snapshot of the store counters.
func (s *MemoryStore) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{
		Entries: len(s.entries),
		Hits:    s.hits,
		Misses:  s.misses,
	}
}

// removeEntry deletes an entry from both the map and the LRU list.
// Callers must hold s.mu.
func (s *MemoryStore) removeEntry(entry *storeEntry) {
	s.lruList.Remove(entry.element)
	delete(s.entries, entry.key)
}
