package main

import "sync"

// Sender is the minimal interface the registry needs from a connection: the
// ability to push one outbound event to the connected client.
type Sender interface {
	Send(Event) error
}

// ConnectionRegistry maps a user id to its single active connection. A new
// registration for the same user replaces the prior mapping
// (last-registration-wins); the replaced connection is returned to the
// caller and is not closed here. Unregister is an atomic compare-and-delete:
// the mapping is removed only while it still points at the given connection,
// which is what keeps a stale disconnect from evicting a fresher session.
type ConnectionRegistry struct {
	mu     sync.Mutex
	byUser map[string]Sender
}

// NewConnectionRegistry creates an empty registry.
func NewConnectionRegistry() *ConnectionRegistry {
	return &ConnectionRegistry{byUser: make(map[string]Sender)}
}

// Register binds the connection to the user id, unconditionally overwriting
// any existing mapping. It returns the replaced connection, if any.
func (r *ConnectionRegistry) Register(userID string, conn Sender) (replaced Sender) {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev := r.byUser[userID]
	r.byUser[userID] = conn
	if prev == conn {
		return nil
	}
	return prev
}

// Unregister removes the mapping that still points at conn and returns the
// freed user id. When the user already re-registered on a newer connection
// (or was never registered) nothing is removed and ok is false.
func (r *ConnectionRegistry) Unregister(conn Sender) (userID string, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, c := range r.byUser {
		if c == conn {
			delete(r.byUser, id)
			return id, true
		}
	}
	return "", false
}

// Lookup returns the active connection for a user id.
func (r *ConnectionRegistry) Lookup(userID string) (Sender, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.byUser[userID]
	return conn, ok
}

// Snapshot returns a copy of the current user→connection mapping.
func (r *ConnectionRegistry) Snapshot() map[string]Sender {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]Sender, len(r.byUser))
	for id, c := range r.byUser {
		out[id] = c
	}
	return out
}

// ListOnline returns the ids of all currently-registered users.
func (r *ConnectionRegistry) ListOnline() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]string, 0, len(r.byUser))
	for id := range r.byUser {
		ids = append(ids, id)
	}
	return ids
}
