package server

import (
	"sync"

	"github.com/gorilla/websocket"
)

// peer is one WebSocket attached to a room slot.
type peer struct {
	role string
	conn *websocket.Conn
	mu   sync.Mutex // serializes writes to the socket
}

// send writes a signalling message to the peer.
func (p *peer) send(msg SignalMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.conn.WriteJSON(msg)
}

// close tears down the underlying socket.
func (p *peer) close() {
	p.conn.Close()
}
