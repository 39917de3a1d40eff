// Package keylock serializes work per key without a lock per key.
//
// Keys are hashed onto a fixed array of mutexes, so two different keys
// may share a shard and wait on each other, but the same key always maps
// to the same shard.
package keylock

import (
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
)

// DefaultShards is the shard count used when none is configured.
const DefaultShards = 256

// Sharded is a fixed set of mutexes addressed by key.
type Sharded struct {
	shards []sync.Mutex
}

// New creates a Sharded lock with n shards. n < 1 selects DefaultShards.
func New(n int) *Sharded {
	if n < 1 {
		n = DefaultShards
	}
	return &Sharded{shards: make([]sync.Mutex, n)}
}

// Lock acquires the shard for key and returns its unlock function.
func (s *Sharded) Lock(key string) (unlock func()) {
	m := &s.shards[s.index(key)]
	m.Lock()
	return m.Unlock
}

// LockPair acquires the shard for a (learner, word) style pair of IDs.
func (s *Sharded) LockPair(a, b uuid.UUID) (unlock func()) {
	return s.Lock(PairKey(a, b))
}

// Shards returns the number of shards.
func (s *Sharded) Shards() int {
	return len(s.shards)
}

func (s *Sharded) index(key string) int {
	return int(xxhash.Sum64String(key) % uint64(len(s.shards)))
}

// PairKey builds the lock key for two IDs.
func PairKey(a, b uuid.UUID) string {
	var buf [32]byte
	copy(buf[:16], a[:])
	copy(buf[16:], b[:])
	return string(buf[:])
}
