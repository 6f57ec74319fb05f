// Package cache is a small read-through cache with TTL expiry and explicit
// invalidation. It replaces module-global caches with an injected value; the
// events subscriber drives invalidation when the cached facts change.
package cache

import (
	"context"
	"sync"
	"time"
)

// LoadFunc fetches the value for a key on a cache miss.
type LoadFunc[K comparable, V any] func(ctx context.Context, key K) (V, error)

// Loader is a read-through cache. The zero value is not usable; construct
// with NewLoader.
type Loader[K comparable, V any] struct {
	load LoadFunc[K, V]
	ttl  time.Duration
	now  func() time.Time

	mu      sync.Mutex
	entries map[K]entry[V]
}

type entry[V any] struct {
	value   V
	expires time.Time
}

// NewLoader wraps load with a TTL cache. A non-positive ttl disables caching
// and every Get loads through.
func NewLoader[K comparable, V any](load LoadFunc[K, V], ttl time.Duration) *Loader[K, V] {
	return &Loader[K, V]{
		load:    load,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[K]entry[V]),
	}
}

// Get returns the cached value for key, loading through on a miss or an
// expired entry. Load errors are not cached.
func (l *Loader[K, V]) Get(ctx context.Context, key K) (V, error) {
	if l.ttl > 0 {
		l.mu.Lock()
		e, ok := l.entries[key]
		l.mu.Unlock()
		if ok && l.now().Before(e.expires) {
			return e.value, nil
		}
	}

	value, err := l.load(ctx, key)
	if err != nil {
		var zero V
		return zero, err
	}

	if l.ttl > 0 {
		l.mu.Lock()
		l.entries[key] = entry[V]{value: value, expires: l.now().Add(l.ttl)}
		l.mu.Unlock()
	}
	return value, nil
}

// Invalidate drops the cached value for key, if any.
func (l *Loader[K, V]) Invalidate(key K) {
	l.mu.Lock()
	delete(l.entries, key)
	l.mu.Unlock()
}

// Purge drops every cached value.
func (l *Loader[K, V]) Purge() {
	l.mu.Lock()
	l.entries = make(map[K]entry[V])
	l.mu.Unlock()
}
