package chat

import (
	"sort"
	"sync"

	"github.com/samber/lo"
)

// Registry maps display names to active sessions. Register, Unregister and
// Snapshot are serialized by one mutex, and the session status changes
// under that same lock so a registered name always refers to an ACTIVE
// session.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Register adds s under name and marks it ACTIVE. It fails with
// ErrNameTaken, leaving the registry untouched, when name is in use.
func (r *Registry) Register(name string, s *Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[name]; exists {
		return ErrNameTaken
	}
	s.Name = name
	s.setStatus(StatusActive)
	r.sessions[name] = s
	ConnectedSessions.Set(float64(len(r.sessions)))
	return nil
}

// Unregister removes name and moves its session to CLOSING. It reports
// whether name was present.
func (r *Registry) Unregister(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[name]
	if !ok {
		return false
	}
	delete(r.sessions, name)
	s.setStatus(StatusClosing)
	ConnectedSessions.Set(float64(len(r.sessions)))
	return true
}

// Snapshot copies the current sessions out. Callers do their I/O on the
// result after the lock is released.
func (r *Registry) Snapshot() []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return lo.Values(r.sessions)
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.Lock()
	names := lo.Keys(r.sessions)
	r.mu.Unlock()

	sort.Strings(names)
	return names
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
