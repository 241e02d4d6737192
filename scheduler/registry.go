package scheduler

import (
	"sync"
	"time"
)

// Registry owns the deferred, cancellable actions that drive a
// tournament: match starts, match ends, the next auto tournament.
// Keys are unique per action (for example "start_<matchID>");
// scheduling an existing key replaces the pending action. Stale
// timers must never fire against a reset bracket, so stopping or
// restarting a tournament calls CancelAll before anything mutates
// the bracket.
type Registry struct {
	clock  Clock
	mu     sync.Mutex
	timers map[string]Timer
}

func NewRegistry(clock Clock) *Registry {
	return &Registry{
		clock:  clock,
		timers: make(map[string]Timer),
	}
}

// Schedule runs fn after delay under the given key. A pending action
// with the same key is cancelled first.
func (r *Registry) Schedule(key string, delay time.Duration, fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.timers[key]; ok {
		existing.Stop()
	}
	r.timers[key] = r.clock.AfterFunc(delay, func() {
		r.mu.Lock()
		delete(r.timers, key)
		r.mu.Unlock()
		fn()
	})
}

// Cancel stops the pending action under key, if any.
func (r *Registry) Cancel(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if t, ok := r.timers[key]; ok {
		t.Stop()
		delete(r.timers, key)
	}
}

// CancelAll stops every outstanding action.
func (r *Registry) CancelAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for key, t := range r.timers {
		t.Stop()
		delete(r.timers, key)
	}
}

// Pending reports how many actions are currently scheduled.
func (r *Registry) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.timers)
}

// Clock exposes the registry's clock so callers stamp times from the
// same source their actions fire on.
func (r *Registry) Clock() Clock { return r.clock }
