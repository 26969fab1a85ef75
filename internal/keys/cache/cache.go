// Package cache holds the current secret of each purpose in memory for a bounded time.
package cache

import (
	"sync"
	"time"

	"github.com/juju/clock"

	keysDomain "github.com/allisson/fieldcrypt/internal/keys/domain"
)

// SecretCache maps a purpose to its current secret with a time-to-live.
//
// Every Put and Invalidate bumps a per-purpose generation. A reader that missed the
// cache captures the generation before loading from the store and repopulates with
// PutIfGeneration, so a value loaded before a rotation cannot replace the rotated one.
type SecretCache struct {
	mu          sync.RWMutex
	clock       clock.Clock
	ttl         time.Duration
	entries     map[keysDomain.Purpose]*keysDomain.CachedSecret
	generations map[keysDomain.Purpose]uint64
}

// New creates a SecretCache. A nil clock uses the wall clock.
func New(ttl time.Duration, clk clock.Clock) *SecretCache {
	if clk == nil {
		clk = clock.WallClock
	}
	return &SecretCache{
		clock:       clk,
		ttl:         ttl,
		entries:     make(map[keysDomain.Purpose]*keysDomain.CachedSecret),
		generations: make(map[keysDomain.Purpose]uint64),
	}
}

// TTL returns how long an entry is served.
func (c *SecretCache) TTL() time.Duration {
	return c.ttl
}

// Get returns the cached entry when present and not expired.
func (c *SecretCache) Get(key keysDomain.Purpose) (*keysDomain.CachedSecret, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[key]
	if !ok || entry.IsExpired(c.clock.Now()) {
		return nil, false
	}
	return entry, true
}

// Put stores secret as the current secret of key.
func (c *SecretCache) Put(key keysDomain.Purpose, secret *keysDomain.Secret) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.put(key, secret)
}

// PutIfGeneration stores secret only if no Put or Invalidate happened since gen was read.
func (c *SecretCache) PutIfGeneration(key keysDomain.Purpose, secret *keysDomain.Secret, gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.generations[key] != gen {
		return false
	}
	c.put(key, secret)
	return true
}

// Invalidate drops the entry so the next Get misses.
func (c *SecretCache) Invalidate(key keysDomain.Purpose) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, key)
	c.generations[key]++
}

// Generation returns the current generation of key.
func (c *SecretCache) Generation(key keysDomain.Purpose) uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.generations[key]
}

func (c *SecretCache) put(key keysDomain.Purpose, secret *keysDomain.Secret) {
	c.entries[key] = &keysDomain.CachedSecret{
		Secret:         secret,
		ExpirationTime: c.clock.Now().Add(c.ttl),
	}
	c.generations[key]++
}
