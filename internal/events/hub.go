// Package events pushes reconciled progress snapshots to connected
// clients over WebSocket.
package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/trellislearn/trellis-server/internal/domain"
)

// Event types sent to clients.
const (
	TypeSnapshot       = "snapshot"
	TypeTitlesUnlocked = "titles_unlocked"
)

const writeTimeout = 5 * time.Second

// Message is one event frame pushed to a client.
type Message struct {
	Type     string           `json:"type"`
	Snapshot *domain.Snapshot `json:"snapshot,omitempty"`
	Titles   []string         `json:"titles,omitempty"`
}

// Hub tracks active WebSocket connections per user and tab session, and
// fans reconciliation results out to them. It implements the engine's
// Publisher interface.
type Hub struct {
	mu     sync.RWMutex
	active map[string]map[string]*websocket.Conn
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		active: make(map[string]map[string]*websocket.Conn),
	}
}

// Register adds a connection for a user/session. An existing connection
// for the same session is closed and replaced.
func (h *Hub) Register(userID, sessionID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, exists := h.active[userID]; !exists {
		h.active[userID] = make(map[string]*websocket.Conn)
	}

	if existing, exists := h.active[userID][sessionID]; exists && existing != conn {
		_ = existing.Close(websocket.StatusNormalClosure, "session replaced")
	}

	h.active[userID][sessionID] = conn
	slog.Info("Progress event session registered", "user_id", userID, "session_id", sessionID)
}

// Unregister removes a connection for a user/session. A stale
// unregister for an already-replaced connection is a no-op.
func (h *Hub) Unregister(userID, sessionID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if sessions, ok := h.active[userID]; ok {
		if current, exists := sessions[sessionID]; exists && current == conn {
			delete(sessions, sessionID)
			if len(sessions) == 0 {
				delete(h.active, userID)
			}
			slog.Info("Progress event session unregistered", "user_id", userID, "session_id", sessionID)
		}
	}
}

// SnapshotUpdated pushes the reconciled snapshot to every session the
// user has open, plus a separate frame for any newly unlocked titles.
// Delivery is best effort and never blocks the reconciliation path.
func (h *Hub) SnapshotUpdated(userID string, snap *domain.Snapshot, newTitles []string) {
	conns := h.connsFor(userID)
	if len(conns) == 0 {
		return
	}

	frames := []Message{{Type: TypeSnapshot, Snapshot: snap}}
	if len(newTitles) > 0 {
		frames = append(frames, Message{Type: TypeTitlesUnlocked, Titles: newTitles})
	}

	go func() {
		for _, msg := range frames {
			payload, err := json.Marshal(msg)
			if err != nil {
				slog.Error("Failed to encode progress event", "error", err, "user_id", userID)
				return
			}
			for _, conn := range conns {
				ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
				if err := conn.Write(ctx, websocket.MessageText, payload); err != nil {
					slog.Debug("Progress event write failed", "error", err, "user_id", userID)
				}
				cancel()
			}
		}
	}()
}

// PingAll pings every active connection and closes the ones that no
// longer respond. Returns the number of connections reaped.
func (h *Hub) PingAll(ctx context.Context) int {
	type session struct {
		userID, sessionID string
		conn              *websocket.Conn
	}

	h.mu.RLock()
	var sessions []session
	for userID, tabs := range h.active {
		for sessionID, conn := range tabs {
			sessions = append(sessions, session{userID, sessionID, conn})
		}
	}
	h.mu.RUnlock()

	reaped := 0
	for _, s := range sessions {
		pingCtx, cancel := context.WithTimeout(ctx, writeTimeout)
		err := s.conn.Ping(pingCtx)
		cancel()
		if err != nil {
			_ = s.conn.Close(websocket.StatusGoingAway, "unresponsive")
			h.Unregister(s.userID, s.sessionID, s.conn)
			reaped++
		}
	}
	return reaped
}

// Shutdown closes every active session. Called when the server stops so
// clients see a clean close instead of a dropped TCP connection.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	closed := 0
	for userID, sessions := range h.active {
		for _, conn := range sessions {
			_ = conn.Close(websocket.StatusGoingAway, "server shutting down")
			closed++
		}
		delete(h.active, userID)
	}
	if closed > 0 {
		slog.Info("Closed progress event sessions on shutdown", "count", closed)
	}
}

func (h *Hub) connsFor(userID string) []*websocket.Conn {
	h.mu.RLock()
	defer h.mu.RUnlock()
	sessions, ok := h.active[userID]
	if !ok {
		return nil
	}
	conns := make([]*websocket.Conn, 0, len(sessions))
	for _, conn := range sessions {
		conns = append(conns, conn)
	}
	return conns
}

// SessionCount returns the number of active connections across all users.
func (h *Hub) SessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, sessions := range h.active {
		n += len(sessions)
	}
	return n
}
