package realtime

import (
	"sync"

	"go-jukebox/internal/infrastructure/metrics"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Router tracks live connections and the room each one is bound to.
// A connection belongs to at most one room at a time.
type Router struct {
	mu       sync.RWMutex
	conns    map[string]*Connection            // connID -> connection
	rooms    map[string]map[string]*Connection // roomID -> connID -> connection
	connRoom map[string]string                 // connID -> roomID
}

func NewRouter() *Router {
	return &Router{
		conns:    make(map[string]*Connection),
		rooms:    make(map[string]map[string]*Connection),
		connRoom: make(map[string]string),
	}
}

// Attach registers conn and starts its write loop.
func (r *Router) Attach(conn *Connection) {
	r.mu.Lock()
	r.conns[conn.ID] = conn
	r.mu.Unlock()

	conn.Start()
	metrics.Connections.Inc()
}

// Detach forgets conn and returns the room it was bound to, if any.
func (r *Router) Detach(conn *Connection) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.conns[conn.ID]; !ok {
		return "", false
	}
	delete(r.conns, conn.ID)
	metrics.Connections.Dec()

	roomID, bound := r.connRoom[conn.ID]
	if bound {
		r.unbindLocked(roomID, conn.ID)
	}
	return roomID, bound
}

// Bind moves connID into roomID, leaving any previous room.
func (r *Router) Bind(roomID, connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.conns[connID]
	if !ok {
		return
	}
	if prev, ok := r.connRoom[connID]; ok && prev != roomID {
		r.unbindLocked(prev, connID)
	}
	members := r.rooms[roomID]
	if members == nil {
		members = make(map[string]*Connection)
		r.rooms[roomID] = members
	}
	members[connID] = conn
	r.connRoom[connID] = roomID
}

// Unbind removes connID from roomID if it is bound there.
func (r *Router) Unbind(roomID, connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.connRoom[connID] == roomID {
		r.unbindLocked(roomID, connID)
	}
}

// RoomOf returns the room connID is bound to.
func (r *Router) RoomOf(connID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	roomID, ok := r.connRoom[connID]
	return roomID, ok
}

// Members returns the number of connections bound to roomID.
func (r *Router) Members(roomID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms[roomID])
}

// Send delivers payload to one connection.
func (r *Router) Send(connID string, payload []byte) bool {
	r.mu.RLock()
	conn := r.conns[connID]
	r.mu.RUnlock()
	if conn == nil {
		return false
	}
	return r.deliver(conn, payload)
}

// Broadcast writes payload to every connection in roomID except excludeConnID
// and returns how many accepted it.
func (r *Router) Broadcast(roomID string, payload []byte, excludeConnID string) int {
	r.mu.RLock()
	targets := make([]*Connection, 0, len(r.rooms[roomID]))
	for id, conn := range r.rooms[roomID] {
		if id == excludeConnID {
			continue
		}
		targets = append(targets, conn)
	}
	r.mu.RUnlock()

	delivered := 0
	for _, conn := range targets {
		if r.deliver(conn, payload) {
			delivered++
		}
	}
	return delivered
}

// Close disconnects every connection.
func (r *Router) Close() {
	r.mu.Lock()
	conns := make([]*Connection, 0, len(r.conns))
	for _, conn := range r.conns {
		conns = append(conns, conn)
	}
	r.mu.Unlock()

	for _, conn := range conns {
		conn.Close(websocket.CloseGoingAway, "server shutdown")
	}
}

func (r *Router) deliver(conn *Connection, payload []byte) bool {
	if err := conn.Send(payload); err != nil {
		metrics.DroppedFrames.Inc()
		log.Debug().Str("module", "realtime.router").Str("conn", conn.ID).Err(err).Msg("frame dropped")
		return false
	}
	return true
}

func (r *Router) unbindLocked(roomID, connID string) {
	delete(r.connRoom, connID)
	members := r.rooms[roomID]
	if members == nil {
		return
	}
	delete(members, connID)
	if len(members) == 0 {
		delete(r.rooms, roomID)
	}
}
