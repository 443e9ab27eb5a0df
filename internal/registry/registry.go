// Package registry keeps the authoritative mapping of online usernames to
// their live connections.
package registry

import (
	"context"
	"sort"
	"sync"

	"github.com/samber/lo"
)

// Connection is a live client channel. The registry stores connections but
// never calls them; senders use it after taking a Snapshot.
type Connection interface {
	Send(ctx context.Context, payload []byte) error
}

// Entry is one username and its connection as seen by a Snapshot.
type Entry struct {
	Username string
	Conn     Connection
}

// Registry is a concurrency-safe username to Connection map.
// The zero value is not usable; call New.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]Connection
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{sessions: make(map[string]Connection)}
}

// Put registers conn under username, replacing any previous connection for
// the same username.
func (r *Registry) Put(username string, conn Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[username] = conn
}

// Remove unregisters username. Removing an absent username is a no-op.
func (r *Registry) Remove(username string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, username)
}

// Get returns the connection registered for username.
func (r *Registry) Get(username string) (Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conn, ok := r.sessions[username]
	return conn, ok
}

// Len returns the number of registered usernames.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Snapshot returns a point-in-time copy of every entry, ordered by username.
// Later Put and Remove calls do not affect the returned slice.
func (r *Registry) Snapshot() []Entry {
	r.mu.RLock()
	entries := make([]Entry, 0, len(r.sessions))
	for username, conn := range r.sessions {
		entries = append(entries, Entry{Username: username, Conn: conn})
	}
	r.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Username < entries[j].Username
	})
	return entries
}

// Usernames returns the registered usernames in sorted order.
func (r *Registry) Usernames() []string {
	return Names(r.Snapshot())
}

// Names projects entries to their usernames, keeping their order.
func Names(entries []Entry) []string {
	return lo.Map(entries, func(e Entry, _ int) string { return e.Username })
}
