// Package presence tracks which users hold live real-time connections.
package presence

import (
	"sort"
	"sync"
)

// Connection is a live, addressable client connection.
// Send must not block; implementations drop or fail fast when the client is slow.
type Connection interface {
	ID() string
	UserID() string
	Send(event string, data any) error
}

type Registry struct {
	mu     sync.RWMutex
	byUser map[string]map[string]Connection
	byConn map[string]string
}

func NewRegistry() *Registry {
	return &Registry{
		byUser: make(map[string]map[string]Connection),
		byConn: make(map[string]string),
	}
}

func (r *Registry) Register(userID string, conn Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conns, ok := r.byUser[userID]
	if !ok {
		conns = make(map[string]Connection)
		r.byUser[userID] = conns
	}
	conns[conn.ID()] = conn
	r.byConn[conn.ID()] = userID
}

// Unregister removes conn. Calling it more than once is harmless.
func (r *Registry) Unregister(conn Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()

	userID, ok := r.byConn[conn.ID()]
	if !ok {
		return
	}
	delete(r.byConn, conn.ID())

	conns := r.byUser[userID]
	delete(conns, conn.ID())
	if len(conns) == 0 {
		delete(r.byUser, userID)
	}
}

// ConnectionsFor returns a snapshot; callers may push to it without holding the lock.
func (r *Registry) ConnectionsFor(userID string) []Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := r.byUser[userID]
	out := make([]Connection, 0, len(conns))
	for _, c := range conns {
		out = append(out, c)
	}
	return out
}

// Users lists every user with at least one live connection, sorted.
func (r *Registry) Users() []string {
	r.mu.RLock()
	users := make([]string, 0, len(r.byUser))
	for id := range r.byUser {
		users = append(users, id)
	}
	r.mu.RUnlock()

	sort.Strings(users)
	return users
}

func (r *Registry) IsOnline(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser[userID]) > 0
}

// Size is the number of live connections across all users.
func (r *Registry) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byConn)
}

// Outbound event names shared by every pusher.
const (
	EventConnected       = "connected"
	EventNewNotification = "newNotification"
)
