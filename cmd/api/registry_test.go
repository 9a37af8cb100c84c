package main

import (
	"sync"
	"testing"
)

// fakeConn records every event pushed to it. sendErr, when set, makes Send
// fail so delivery-failure paths can be exercised.
type fakeConn struct {
	mu      sync.Mutex
	events  []Event
	sendErr error
}

func (c *fakeConn) Send(ev Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendErr != nil {
		return c.sendErr
	}
	c.events = append(c.events, ev)
	return nil
}

// sent returns a copy of everything delivered so far.
func (c *fakeConn) sent() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Event, len(c.events))
	copy(out, c.events)
	return out
}

// count returns how many events with the given name were delivered.
func (c *fakeConn) count(event string) int {
	n := 0
	for _, ev := range c.sent() {
		if ev.Event == event {
			n++
		}
	}
	return n
}

func TestRegistryLastRegistrationWins(t *testing.T) {
	r := NewConnectionRegistry()
	c1 := &fakeConn{}
	c2 := &fakeConn{}

	if replaced := r.Register("u1", c1); replaced != nil {
		t.Fatalf("first register replaced %v, want nil", replaced)
	}
	replaced := r.Register("u1", c2)
	if replaced != Sender(c1) {
		t.Fatalf("second register replaced %v, want the first connection", replaced)
	}

	got, ok := r.Lookup("u1")
	if !ok || got != Sender(c2) {
		t.Fatalf("Lookup = %v, %v; want the second connection", got, ok)
	}
}

func TestRegistryRegisterSameConnTwice(t *testing.T) {
	r := NewConnectionRegistry()
	c := &fakeConn{}

	r.Register("u1", c)
	if replaced := r.Register("u1", c); replaced != nil {
		t.Fatalf("re-registering the same connection replaced %v, want nil", replaced)
	}
}

func TestRegistryUnregisterCompareAndDelete(t *testing.T) {
	r := NewConnectionRegistry()
	c1 := &fakeConn{}
	c2 := &fakeConn{}

	r.Register("u1", c1)
	r.Register("u1", c2)

	// The stale connection no longer owns the mapping.
	if id, ok := r.Unregister(c1); ok {
		t.Fatalf("stale unregister freed %q, want nothing", id)
	}
	if _, ok := r.Lookup("u1"); !ok {
		t.Fatal("current connection was evicted by a stale unregister")
	}

	id, ok := r.Unregister(c2)
	if !ok || id != "u1" {
		t.Fatalf("Unregister = %q, %v; want u1, true", id, ok)
	}
	if _, ok := r.Lookup("u1"); ok {
		t.Fatal("user still registered after unregistering its connection")
	}
}

func TestRegistryUnregisterUnknownConn(t *testing.T) {
	r := NewConnectionRegistry()
	if id, ok := r.Unregister(&fakeConn{}); ok {
		t.Fatalf("unregistering an unknown connection freed %q", id)
	}
}

func TestRegistrySnapshotAndListOnline(t *testing.T) {
	r := NewConnectionRegistry()
	r.Register("u1", &fakeConn{})
	r.Register("u2", &fakeConn{})

	snap := r.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("snapshot has %d entries, want 2", len(snap))
	}

	// Mutating the snapshot must not touch the registry.
	delete(snap, "u1")
	if _, ok := r.Lookup("u1"); !ok {
		t.Fatal("registry entry vanished after snapshot mutation")
	}

	online := r.ListOnline()
	if len(online) != 2 {
		t.Fatalf("ListOnline returned %d ids, want 2", len(online))
	}
}
