package lobby

import (
	"sync"

	"github.com/gorilla/websocket"
)

// peer is one connected game client. Writes go through send so only the
// write pump touches the connection for writing.
type peer struct {
	conn *websocket.Conn
	send chan []byte

	// identity and membership are only touched by the peer's read loop
	playerID   string
	playerName string
	address    string
	hosted     map[string]string // session name -> session id
	joined     map[string]string

	closeOnce sync.Once
}

func newPeer(conn *websocket.Conn) *peer {
	p := &peer{
		conn:   conn,
		send:   make(chan []byte, 64),
		hosted: make(map[string]string),
		joined: make(map[string]string),
	}
	go p.writePump()
	return p
}

func (p *peer) writePump() {
	defer p.conn.Close()
	for msg := range p.send {
		if err := p.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

func (p *peer) close() {
	p.closeOnce.Do(func() { close(p.send) })
}

// enqueue drops the message if the peer cannot keep up.
func (p *peer) enqueue(msg []byte) bool {
	select {
	case p.send <- msg:
		return true
	default:
		return false
	}
}
