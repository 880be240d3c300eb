package events

import (
	"testing"

	"github.com/coder/websocket"
)

func TestHubRegister(t *testing.T) {
	hub := NewHub()
	conn := &websocket.Conn{}

	hub.Register("user123", "tab-1", conn)

	if hub.SessionCount() != 1 {
		t.Errorf("Expected 1 session, got %d", hub.SessionCount())
	}
}

func TestHubUnregister(t *testing.T) {
	hub := NewHub()
	conn := &websocket.Conn{}

	hub.Register("user123", "tab-1", conn)
	hub.Unregister("user123", "tab-1", conn)

	if hub.SessionCount() != 0 {
		t.Errorf("Expected 0 sessions, got %d", hub.SessionCount())
	}
}

func TestHubUnregisterStale(t *testing.T) {
	hub := NewHub()
	conn1 := &websocket.Conn{}
	conn2 := &websocket.Conn{}

	hub.Register("user123", "tab-1", conn1)
	hub.Register("user123", "tab-2", conn2)

	// Unregistering tab-1 must leave tab-2 alone.
	hub.Unregister("user123", "tab-1", conn1)

	if hub.SessionCount() != 1 {
		t.Errorf("Expected 1 session remaining, got %d", hub.SessionCount())
	}
}

func TestHubSnapshotUpdatedNoSessions(t *testing.T) {
	hub := NewHub()

	// Publishing with no connected sessions must be a no-op.
	hub.SnapshotUpdated("user123", nil, nil)

	if hub.SessionCount() != 0 {
		t.Errorf("Expected 0 sessions, got %d", hub.SessionCount())
	}
}
