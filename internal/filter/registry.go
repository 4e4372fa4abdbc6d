package filter

import (
	"github.com/puzpuzpuz/xsync/v3"
)

// Registry stores the compiled set of every live session.
type Registry struct {
	limits Limits
	sets   *xsync.MapOf[string, *Set]
}

// NewRegistry returns an empty registry enforcing limits.
func NewRegistry(limits Limits) *Registry {
	return &Registry{limits: limits, sets: xsync.NewMapOf[string, *Set]()}
}

// Limits returns the limits the registry enforces.
func (r *Registry) Limits() Limits { return r.limits }

// Compile validates req without storing it.
func (r *Registry) Compile(req *Request) (*Set, error) {
	return Compile(req, r.limits)
}

// Upsert compiles req and replaces the session's set. On error the prior set
// is left in place.
func (r *Registry) Upsert(sessionID string, req *Request) (*Set, error) {
	set, err := r.Compile(req)
	if err != nil {
		return nil, err
	}
	r.sets.Store(sessionID, set)
	return set, nil
}

// Replace stores an already compiled set for the session.
func (r *Registry) Replace(sessionID string, set *Set) {
	r.sets.Store(sessionID, set)
}

// Lookup returns the session's current set.
func (r *Registry) Lookup(sessionID string) (*Set, bool) {
	return r.sets.Load(sessionID)
}

// Remove drops the session's set.
func (r *Registry) Remove(sessionID string) {
	r.sets.Delete(sessionID)
}

// Len returns the number of stored sets.
func (r *Registry) Len() int {
	return r.sets.Size()
}
