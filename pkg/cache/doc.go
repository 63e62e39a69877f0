// Package cache provides idempotent result memoization for the manager.
//
// It has three pieces: a Backend interface over raw bytes (satisfiable by
// the in-process MemoryStore or an external key-value store), deterministic
// cache key derivation from a request, and a ResultCache that stores
// successful results through a Backend. Failed results are never cached, so
// a transient failure cannot be frozen for the TTL window.
package cache
