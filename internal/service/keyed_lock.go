package service

import (
	"hash/fnv"
	"sync"
	"time"

	"ticketflow/internal/constants"

	"github.com/patrickmn/go-cache"
)

// KeyedMutex serializes work per string key over a fixed set of shards.
// Entries cost nothing when idle; two keys on the same shard contend, which
// is acceptable for the short critical sections this engine holds.
type KeyedMutex struct {
	shards [constants.LockShardCount]sync.Mutex
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{}
}

func (km *KeyedMutex) shard(key string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return &km.shards[h.Sum32()%constants.LockShardCount]
}

// Lock blocks until the key's shard is held. Callers must Unlock with the
// same key.
func (km *KeyedMutex) Lock(key string) {
	km.shard(key).Lock()
}

func (km *KeyedMutex) Unlock(key string) {
	km.shard(key).Unlock()
}

// WelcomeLock is the advisory per-ticket lock around first-contact menu
// dispatch. TryAcquire never blocks: false means another worker owns the
// dispatch and the caller returns immediately.
type WelcomeLock struct {
	mu   sync.Mutex
	held map[int64]struct{}
}

func NewWelcomeLock() *WelcomeLock {
	return &WelcomeLock{
		held: make(map[int64]struct{}),
	}
}

func (wl *WelcomeLock) TryAcquire(ticketID int64) bool {
	wl.mu.Lock()
	defer wl.mu.Unlock()
	if _, ok := wl.held[ticketID]; ok {
		return false
	}
	wl.held[ticketID] = struct{}{}
	return true
}

func (wl *WelcomeLock) Release(ticketID int64) {
	wl.mu.Lock()
	defer wl.mu.Unlock()
	delete(wl.held, ticketID)
}

// CooldownGuard caps per-ticket automated notices to at most one per window.
// Entries expire on their own; Reset ends a window early.
type CooldownGuard struct {
	entries *cache.Cache
}

func NewCooldownGuard() *CooldownGuard {
	return &CooldownGuard{
		entries: cache.New(cache.NoExpiration, constants.CooldownSweepMinutes*time.Minute),
	}
}

// Allow reports whether a notice of the given category may go out for the
// ticket, and if so starts the window. The first caller in a window wins;
// concurrent callers lose.
func (cg *CooldownGuard) Allow(key string, window time.Duration) bool {
	return cg.entries.Add(key, time.Now(), window) == nil
}

// Reset clears the window for a key so the next Allow call wins immediately.
func (cg *CooldownGuard) Reset(key string) {
	cg.entries.Delete(key)
}
