// SPDX-License-Identifier: MIT
package session

import (
	"sort"
	"sync"

	applog "audiorelay/internal/log"
	"audiorelay/internal/transport"
)

// Registry is the set of live sessions. It is injected into the server and
// the loop rather than held globally.
//
// Thread Safety:
// - Membership is guarded by an RWMutex
// - Broadcast sends outside the lock over a snapshot
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	evicting sync.WaitGroup
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Add registers s. It fails when s has no connection or is already closing.
func (r *Registry) Add(s *Session) error {
	if s == nil || s.conn == nil {
		return ErrNoConn
	}
	if s.State() >= StateClosing {
		return ErrSessionClosed
	}

	r.mu.Lock()
	r.sessions[s.id] = s
	n := len(r.sessions)
	r.mu.Unlock()

	applog.Debugf("Registry: added %s (%d sessions)", s.id, n)
	return nil
}

// Remove unregisters s and reports whether it was present. It is
// idempotent and safe to call concurrently.
func (r *Registry) Remove(s *Session) bool {
	if s == nil {
		return false
	}

	r.mu.Lock()
	_, ok := r.sessions[s.id]
	if ok {
		delete(r.sessions, s.id)
	}
	n := len(r.sessions)
	r.mu.Unlock()

	if ok {
		applog.Debugf("Registry: removed %s (%d sessions)", s.id, n)
	}
	return ok
}

// Contains reports whether s is registered.
func (r *Registry) Contains(s *Session) bool {
	if s == nil {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.sessions[s.id]
	return ok
}

// Len returns the number of registered sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Snapshot returns the registered sessions ordered by connect time.
func (r *Registry) Snapshot() []*Session {
	r.mu.RLock()
	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].connectedAt.Before(out[j].connectedAt)
	})
	return out
}

// Broadcast sends payload to every ACTIVE session and returns how many
// sends succeeded. A failing recipient is logged and evicted in the
// background; the error never reaches the caller.
func (r *Registry) Broadcast(mt transport.MessageType, payload []byte) int {
	delivered := 0
	for _, s := range r.Snapshot() {
		if s.State() != StateActive {
			continue
		}
		if err := s.Send(mt, payload); err != nil {
			applog.Warnf("Registry: broadcast to %s failed: %v", s.id, err)
			r.evict(s)
			continue
		}
		delivered++
	}
	return delivered
}

func (r *Registry) evict(s *Session) {
	if !s.beginClose() {
		return
	}
	r.evicting.Add(1)
	go func() {
		defer r.evicting.Done()
		if err := s.conn.Close(); err != nil {
			applog.Debugf("Registry: closing %s: %v", s.id, err)
		}
		r.Remove(s)
	}()
}

// Close closes every registered session and waits for pending evictions.
func (r *Registry) Close() {
	for _, s := range r.Snapshot() {
		if err := s.Close(); err != nil {
			applog.Debugf("Registry: closing %s: %v", s.id, err)
		}
		r.Remove(s)
	}
	r.evicting.Wait()
}
