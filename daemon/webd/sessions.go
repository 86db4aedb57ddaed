package webd

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/rotblauer/catfuse/api"
)

// sessionEntry serializes access to one session. Sessions are not
// safe for concurrent use; every request for the same id takes mu.
type sessionEntry struct {
	mu      sync.Mutex
	session *api.Session
}

// with runs fn holding the entry lock. The lock is released even if fn
// panics.
func (e *sessionEntry) with(fn func(s *api.Session)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(e.session)
}

// sessionRegistry holds live sessions by id. Entries expire after a
// period without requests.
type sessionRegistry struct {
	mu      sync.Mutex
	cache   *ttlcache.Cache[string, *sessionEntry]
	running bool
	stopped bool
}

func newSessionRegistry(ttl time.Duration, onExpired func(id string, e *sessionEntry)) *sessionRegistry {
	if ttl <= 0 {
		ttl = ttlcache.NoTTL
	}
	c := ttlcache.New[string, *sessionEntry](
		ttlcache.WithTTL[string, *sessionEntry](ttl),
	)
	if onExpired != nil {
		c.OnEviction(func(ctx context.Context, reason ttlcache.EvictionReason, item *ttlcache.Item[string, *sessionEntry]) {
			if reason == ttlcache.EvictionReasonExpired {
				onExpired(item.Key(), item.Value())
			}
		})
	}
	return &sessionRegistry{cache: c}
}

// start runs expiry until stop is called. It blocks.
func (r *sessionRegistry) start() {
	r.mu.Lock()
	if r.running || r.stopped {
		r.mu.Unlock()
		return
	}
	r.running = true
	r.mu.Unlock()
	r.cache.Start()
}

// stop halts expiry. The cache only listens for stop while started.
func (r *sessionRegistry) stop() {
	r.mu.Lock()
	running := r.running && !r.stopped
	r.stopped = true
	r.mu.Unlock()
	if running {
		r.cache.Stop()
	}
}

// get returns the entry for id, refreshing its expiry.
func (r *sessionRegistry) get(id string) (*sessionEntry, bool) {
	item := r.cache.Get(id)
	if item == nil {
		return nil, false
	}
	return item.Value(), true
}

// getOrCreate returns the entry for id, creating it with newSession
// if there is none.
func (r *sessionRegistry) getOrCreate(id string, newSession func(id string) *api.Session) *sessionEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.get(id); ok {
		return e
	}
	e := &sessionEntry{session: newSession(id)}
	r.cache.Set(id, e, ttlcache.DefaultTTL)
	return e
}

// remove deletes id and reports whether it was present.
func (r *sessionRegistry) remove(id string) (*sessionEntry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	item := r.cache.Get(id, ttlcache.WithDisableTouchOnHit[string, *sessionEntry]())
	if item == nil {
		return nil, false
	}
	r.cache.Delete(id)
	return item.Value(), true
}

// ids lists live session ids, sorted.
func (r *sessionRegistry) ids() []string {
	ids := r.cache.Keys()
	sort.Strings(ids)
	return ids
}

func (r *sessionRegistry) len() int {
	return r.cache.Len()
}

// each calls fn for every live entry without refreshing expiry.
func (r *sessionRegistry) each(fn func(id string, e *sessionEntry)) {
	for id, item := range r.cache.Items() {
		fn(id, item.Value())
	}
}

// deleteExpired evicts expired entries now.
func (r *sessionRegistry) deleteExpired() {
	r.cache.DeleteExpired()
}
