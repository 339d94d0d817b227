package desk

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

type entry struct {
	desk     *Desk
	boot     sync.Once
	lastSeen time.Time
}

// Registry keeps one desk per session and forgets sessions idle for
// longer than its TTL.
type Registry struct {
	newDesk func() *Desk
	ttl     time.Duration
	now     func() time.Time

	mu    sync.Mutex
	desks map[string]*entry
}

// NewRegistry creates a registry that builds desks with newDesk.
func NewRegistry(newDesk func() *Desk, ttl time.Duration) *Registry {
	return &Registry{
		newDesk: newDesk,
		ttl:     ttl,
		now:     time.Now,
		desks:   make(map[string]*entry),
	}
}

// Get returns the desk of session id, creating and bootstrapping it on
// first use. Concurrent first requests share one bootstrap.
func (r *Registry) Get(ctx context.Context, id string) *Desk {
	r.mu.Lock()
	now := r.now()
	r.sweep(now)
	e, ok := r.desks[id]
	if !ok {
		e = &entry{desk: r.newDesk()}
		r.desks[id] = e
		slog.Info("desk opened", "session", id, "sessions", len(r.desks))
	}
	e.lastSeen = now
	r.mu.Unlock()

	e.boot.Do(func() { _ = e.desk.Bootstrap(ctx) })
	return e.desk
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.desks)
}

func (r *Registry) sweep(now time.Time) {
	for id, e := range r.desks {
		if now.Sub(e.lastSeen) > r.ttl {
			delete(r.desks, id)
			slog.Info("desk evicted", "session", id)
		}
	}
}
