package realtime

import (
	"sync"

	"github.com/agoradev/agora/pkg/log"
)

// Hub is the process-wide registry of live client connections, keyed both by
// connection and by authenticated user. A user may hold several simultaneous
// connections (tabs, devices); targeted sends reach all of them.
//
// The hub is the only piece of shared mutable state in the realtime core.
// Register/unregister are atomic under a single mutex so that the "all
// connections" view always equals the union of the per-user sets.
type Hub struct {
	mu sync.RWMutex

	// connUser doubles as the set of all live connections and the reverse
	// connection -> user mapping used for O(1) cleanup on disconnect.
	connUser  map[Sender]int64
	userConns map[int64]map[Sender]struct{}

	logger *log.Logger
}

func NewHub() *Hub {
	return &Hub{
		connUser:  make(map[Sender]int64),
		userConns: make(map[int64]map[Sender]struct{}),
		logger:    log.ForService("realtime"),
	}
}

// Connect registers conn as an online connection of userID. The caller must
// have authenticated userID already; there is no error path.
func (h *Hub) Connect(conn Sender, userID int64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.connUser[conn] = userID
	if h.userConns[userID] == nil {
		h.userConns[userID] = make(map[Sender]struct{})
	}
	h.userConns[userID][conn] = struct{}{}
}

// Disconnect removes conn from all tracking structures. It is idempotent and
// a no-op for unknown connections.
func (h *Hub) Disconnect(conn Sender) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.disconnectLocked(conn)
}

func (h *Hub) disconnectLocked(conn Sender) {
	userID, ok := h.connUser[conn]
	if !ok {
		return
	}
	delete(h.connUser, conn)

	if conns, ok := h.userConns[userID]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.userConns, userID)
		}
	}
}

// IsUserOnline reports whether at least one live connection is registered
// for userID.
func (h *Hub) IsUserOnline(userID int64) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.userConns[userID]) > 0
}

// ConnectionCount returns the number of live connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connUser)
}

// OnlineUserCount returns the number of distinct users with at least one
// live connection.
func (h *Hub) OnlineUserCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.userConns)
}

// SendToUser delivers message to every connection registered for userID.
// A connection whose write fails is treated as dead and disconnected; the
// failure is isolated per connection and never propagated to the caller.
func (h *Hub) SendToUser(userID int64, message any) {
	h.mu.RLock()
	conns := make([]Sender, 0, len(h.userConns[userID]))
	for conn := range h.userConns[userID] {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()

	for _, conn := range conns {
		if err := conn.Send(message); err != nil {
			h.logger.Warnf("send to user %d failed, dropping connection: %v", userID, err)
			h.Disconnect(conn)
			_ = conn.Close()
		}
	}
}

// Broadcast delivers message to every registered connection. Dead
// connections are pruned the same way SendToUser prunes them.
func (h *Hub) Broadcast(message any) {
	h.mu.RLock()
	conns := make([]Sender, 0, len(h.connUser))
	for conn := range h.connUser {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()

	for _, conn := range conns {
		if err := conn.Send(message); err != nil {
			h.logger.Warnf("broadcast send failed, dropping connection: %v", err)
			h.Disconnect(conn)
			_ = conn.Close()
		}
	}
}
