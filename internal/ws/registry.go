package ws

import (
	"sync"

	"go.uber.org/zap"

	"github.com/nellx/marketplace-api/pkg/logger"
	"github.com/nellx/marketplace-api/pkg/metrics"
)

// Conn is one live transport handle for a user. *websocket.Conn is
// wrapped to satisfy this; tests substitute fakes.
type Conn interface {
	WriteEvent(event Event) error
	Close() error
}

// userConns is the live set for one user. It carries its own lock so
// traffic on one user never serializes against another's.
type userConns struct {
	mu    sync.Mutex
	conns map[Conn]struct{}
}

func (u *userConns) add(c Conn) {
	u.mu.Lock()
	u.conns[c] = struct{}{}
	u.mu.Unlock()
}

func (u *userConns) remove(c Conn) (remaining int, removed bool) {
	u.mu.Lock()
	_, removed = u.conns[c]
	delete(u.conns, c)
	remaining = len(u.conns)
	u.mu.Unlock()
	return remaining, removed
}

// snapshot copies the set so delivery happens outside the lock. The
// lock is held only for the copy, never across a network write.
func (u *userConns) snapshot() []Conn {
	u.mu.Lock()
	out := make([]Conn, 0, len(u.conns))
	for c := range u.conns {
		out = append(out, c)
	}
	u.mu.Unlock()
	return out
}

// Registry maps a user id to its set of live connections and fans
// events out to all of them. Process-local and rebuilt from nothing on
// restart; persisted unread counters, not presence, are the source of
// truth for whether a user has seen a message.
type Registry struct {
	mu     sync.RWMutex
	users  map[int64]*userConns
	logger *logger.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(log *logger.Logger) *Registry {
	return &Registry{
		users:  make(map[int64]*userConns),
		logger: log,
	}
}

// Register adds a connection to the user's live set. A user may hold
// any number of simultaneous connections (multi-device).
//
// The add happens while the registry lock is still held: if it ran
// after the unlock, a concurrent Unregister of the user's last other
// connection could prune the set from the map in that window, leaving
// this connection on an orphaned set that no Send can reach.
func (r *Registry) Register(userID int64, conn Conn) {
	r.mu.Lock()
	u := r.users[userID]
	if u == nil {
		u = &userConns{conns: make(map[Conn]struct{})}
		r.users[userID] = u
	}
	u.add(conn)
	r.mu.Unlock()

	metrics.IncrementWSConnections()
	r.logger.Debug("connection registered", zap.Int64("user_id", userID))
}

// Unregister removes one connection; when the set empties the user is
// offline. Purely an in-memory fact, nothing persisted.
func (r *Registry) Unregister(userID int64, conn Conn) {
	r.mu.RLock()
	u := r.users[userID]
	r.mu.RUnlock()
	if u == nil {
		return
	}

	remaining, removed := u.remove(conn)
	if removed {
		metrics.DecrementWSConnections()
	}
	if remaining == 0 {
		r.pruneIfEmpty(userID, u)
	}
	r.logger.Debug("connection unregistered", zap.Int64("user_id", userID))
}

// pruneIfEmpty drops the user's entry from the map when its set is
// still empty under the write lock; a concurrent Register may have
// repopulated it in the meantime.
func (r *Registry) pruneIfEmpty(userID int64, u *userConns) {
	r.mu.Lock()
	u.mu.Lock()
	empty := len(u.conns) == 0
	u.mu.Unlock()
	if empty && r.users[userID] == u {
		delete(r.users, userID)
	}
	r.mu.Unlock()
}

// IsOnline reports whether the user has at least one live connection.
func (r *Registry) IsOnline(userID int64) bool {
	r.mu.RLock()
	u := r.users[userID]
	r.mu.RUnlock()
	if u == nil {
		return false
	}
	u.mu.Lock()
	n := len(u.conns)
	u.mu.Unlock()
	return n > 0
}

// Send fans the event out to every live connection of the user. A
// connection whose write fails is evicted as dead without aborting
// delivery to the rest. Reports whether at least one delivery succeeded.
func (r *Registry) Send(userID int64, event Event) bool {
	r.mu.RLock()
	u := r.users[userID]
	r.mu.RUnlock()
	if u == nil {
		return false
	}

	delivered := false
	for _, c := range u.snapshot() {
		if err := c.WriteEvent(event); err != nil {
			remaining, removed := u.remove(c)
			_ = c.Close()
			metrics.WSEvictionsTotal.Inc()
			if removed {
				metrics.DecrementWSConnections()
			}
			if remaining == 0 {
				r.pruneIfEmpty(userID, u)
			}
			r.logger.Warn("evicted dead connection",
				zap.Int64("user_id", userID),
				zap.Error(err),
			)
			continue
		}
		delivered = true
	}
	if delivered {
		metrics.WSEventsTotal.WithLabelValues(string(event.Type), "outbound").Inc()
	}
	return delivered
}
