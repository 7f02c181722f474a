package syncutil

import (
	"hash/fnv"
	"sync"
)

const shardCount = 256

// KeyMutex provides a fixed-size pool of mutexes keyed by string. Memory use is
// bounded regardless of how many keys are seen, at the cost of occasional false
// sharing between keys that hash to the same shard.
type KeyMutex struct {
	shards [shardCount]sync.Mutex
}

// Lock acquires the mutex for the given key and returns an unlock function.
func (m *KeyMutex) Lock(key string) func() {
	mu := &m.shards[shardIndex(key)]
	mu.Lock()
	return mu.Unlock
}

// LockPair acquires the mutexes for both keys in shard order so that two
// callers locking the same pair in opposite directions cannot deadlock. When
// both keys map to the same shard only one lock is taken.
func (m *KeyMutex) LockPair(a, b string) func() {
	i, j := shardIndex(a), shardIndex(b)
	if i == j {
		m.shards[i].Lock()
		return m.shards[i].Unlock
	}
	if i > j {
		i, j = j, i
	}
	m.shards[i].Lock()
	m.shards[j].Lock()
	return func() {
		m.shards[j].Unlock()
		m.shards[i].Unlock()
	}
}

func shardIndex(key string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return h.Sum32() % shardCount
}
