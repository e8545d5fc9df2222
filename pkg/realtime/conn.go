package realtime

import (
	"sync"

	"github.com/gorilla/websocket"
)

// Sender is the hub's view of a client connection. Production connections
// wrap gorilla websockets; tests substitute in-memory fakes.
type Sender interface {
	// Send serializes v as JSON and writes it to the client. A returned
	// error marks the connection dead.
	Send(v any) error
	Close() error
}

// WSConn adapts a gorilla websocket connection to the Sender interface.
// gorilla conns support one concurrent writer only, so writes from the
// client's own handler and from hub fan-out are serialized with a mutex.
type WSConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func NewWSConn(conn *websocket.Conn) *WSConn {
	return &WSConn{conn: conn}
}

func (c *WSConn) Send(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

func (c *WSConn) Close() error {
	return c.conn.Close()
}
