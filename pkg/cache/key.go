package cache

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"hash"
	"sort"

	"github.com/cecil-the-coder/orchestrator-kit/pkg/types"
)

// Key derives the deterministic cache key for a request. Identical
// (operation, payload, options) always produce the same key; option map
// ordering never changes it. Every field is length-prefixed so adjacent
// fields cannot collide.
func Key(req types.Request) string {
	h := sha256.New()
	writeField(h, []byte(req.Operation))
	writeField(h, req.Payload)

	keys := make([]string, 0, len(req.Options))
	for k := range req.Options {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		writeField(h, []byte(k))
		writeField(h, []byte(req.Options[k]))
	}

	return hex.EncodeToString(h.Sum(nil))
}

func writeField(h hash.Hash, b []byte) {
	var length [8]byte
	binary.BigEndian.PutUint64(length[:], uint64(len(b)))
	h.Write(length[:])
	h.Write(b)
}
