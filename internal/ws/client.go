package ws

import (
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBuffer     = 256
)

// Session is one websocket connection. userID is empty until the client
// announces itself with a join event; the write pump is the connection's
// single writer.
type Session struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	userID string
}

func NewSession(hub *Hub, conn *websocket.Conn) *Session {
	return &Session{
		hub:  hub,
		conn: conn,
		send: make(chan []byte, sendBuffer),
	}
}

// enqueue hands the frame to the write pump without blocking. When the buffer
// is full the connection is closed; the reader sees the close and tears the
// session down through Unregister.
func (s *Session) enqueue(b []byte) {
	select {
	case s.send <- b:
	default:
		if s.conn != nil {
			s.conn.Close()
		}
	}
}

// writePump drains the send channel onto the wire and keeps the connection
// alive with pings. It exits when Unregister closes the channel or a write
// fails.
func (s *Session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case b, ok := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, b); err != nil {
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
