package ws

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// socketConn wraps a gorilla connection to satisfy Conn. gorilla allows
// only one concurrent writer, so writes are serialized here; the write
// deadline keeps a stuck peer from ever blocking a fan-out for long.
type socketConn struct {
	mu           sync.Mutex
	conn         *websocket.Conn
	writeTimeout time.Duration
}

// NewConn wraps a websocket connection with bounded-time writes.
func NewConn(conn *websocket.Conn, writeTimeout time.Duration) Conn {
	return &socketConn{conn: conn, writeTimeout: writeTimeout}
}

func (c *socketConn) WriteEvent(event Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
		return err
	}
	return c.conn.WriteJSON(event)
}

func (c *socketConn) Close() error {
	return c.conn.Close()
}
