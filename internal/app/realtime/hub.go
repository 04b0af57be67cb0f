// Package realtime keeps the live websocket connections and the rooms each
// connected user follows, and fans payloads out to them.
package realtime

import (
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Hub tracks connections by user and room subscriptions by user. A user may
// hold several connections (tabs, devices); every one of them receives the
// events for the user's rooms. Subscriptions live only while the user has at
// least one connection.
type Hub struct {
	mu        sync.RWMutex
	conns     map[string]*Connection            // connID -> conn
	byUser    map[string]map[string]*Connection // userID -> connID -> conn
	roomUsers map[string]map[string]struct{}    // roomID -> userIDs
	userRooms map[string]map[string]struct{}    // userID -> roomIDs
	logger    *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		conns:     make(map[string]*Connection),
		byUser:    make(map[string]map[string]*Connection),
		roomUsers: make(map[string]map[string]struct{}),
		userRooms: make(map[string]map[string]struct{}),
		logger:    logger,
	}
}

// Attach registers conn, subscribes its user to roomIDs and starts the
// write loop.
func (h *Hub) Attach(conn *Connection, roomIDs []string) {
	h.mu.Lock()
	h.conns[conn.ID] = conn
	set := h.byUser[conn.UserID]
	if set == nil {
		set = make(map[string]*Connection)
		h.byUser[conn.UserID] = set
	}
	set[conn.ID] = conn
	for _, roomID := range roomIDs {
		h.subscribeLocked(conn.UserID, roomID)
	}
	h.mu.Unlock()

	conn.Start()
	h.logger.Debug("websocket attached",
		zap.String("conn_id", conn.ID),
		zap.String("user_id", conn.UserID),
		zap.Int("rooms", len(roomIDs)))
}

// Detach forgets conn. When it was the user's last connection the user's
// subscriptions are dropped too.
func (h *Hub) Detach(conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.conns[conn.ID]; !ok {
		return
	}
	delete(h.conns, conn.ID)
	set := h.byUser[conn.UserID]
	delete(set, conn.ID)
	if len(set) > 0 {
		return
	}
	delete(h.byUser, conn.UserID)
	for roomID := range h.userRooms[conn.UserID] {
		h.unsubscribeLocked(conn.UserID, roomID)
	}
}

// Subscribe adds roomID to a connected user's rooms. It is a no-op for
// users without a connection.
func (h *Hub) Subscribe(userID, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.byUser[userID]) == 0 {
		return
	}
	h.subscribeLocked(userID, roomID)
}

// Unsubscribe removes roomID from the user's rooms.
func (h *Hub) Unsubscribe(userID, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.unsubscribeLocked(userID, roomID)
}

// Broadcast queues payload on every connection of every user subscribed to
// roomID and returns the number of connections that accepted it.
func (h *Hub) Broadcast(roomID string, payload []byte) int {
	h.mu.RLock()
	var targets []*Connection
	for userID := range h.roomUsers[roomID] {
		for _, c := range h.byUser[userID] {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	return deliver(targets, payload)
}

// SendToUser queues payload on every connection of userID.
func (h *Hub) SendToUser(userID string, payload []byte) int {
	h.mu.RLock()
	targets := make([]*Connection, 0, len(h.byUser[userID]))
	for _, c := range h.byUser[userID] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	return deliver(targets, payload)
}

// Subscribed reports whether userID currently follows roomID.
func (h *Hub) Subscribed(userID, roomID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.roomUsers[roomID][userID]
	return ok
}

// ConnectionCount returns the number of attached connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// Close disconnects every client and clears all state.
func (h *Hub) Close() {
	h.mu.Lock()
	conns := make([]*Connection, 0, len(h.conns))
	for _, c := range h.conns {
		conns = append(conns, c)
	}
	h.conns = make(map[string]*Connection)
	h.byUser = make(map[string]map[string]*Connection)
	h.roomUsers = make(map[string]map[string]struct{})
	h.userRooms = make(map[string]map[string]struct{})
	h.mu.Unlock()

	for _, c := range conns {
		c.Close(websocket.CloseGoingAway, "server shutdown")
	}
	h.logger.Info("realtime hub closed", zap.Int("connections", len(conns)))
}

func deliver(targets []*Connection, payload []byte) int {
	n := 0
	for _, c := range targets {
		if c.Send(payload) == nil {
			n++
		}
	}
	return n
}

func (h *Hub) subscribeLocked(userID, roomID string) {
	users := h.roomUsers[roomID]
	if users == nil {
		users = make(map[string]struct{})
		h.roomUsers[roomID] = users
	}
	users[userID] = struct{}{}

	rooms := h.userRooms[userID]
	if rooms == nil {
		rooms = make(map[string]struct{})
		h.userRooms[userID] = rooms
	}
	rooms[roomID] = struct{}{}
}

func (h *Hub) unsubscribeLocked(userID, roomID string) {
	if users := h.roomUsers[roomID]; users != nil {
		delete(users, userID)
		if len(users) == 0 {
			delete(h.roomUsers, roomID)
		}
	}
	if rooms := h.userRooms[userID]; rooms != nil {
		delete(rooms, roomID)
		if len(rooms) == 0 {
			delete(h.userRooms, userID)
		}
	}
}
