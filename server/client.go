package server

import (
	"log"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// WebSocket heartbeat settings to detect disconnected clients
	PING_INTERVAL = 10 * time.Second // Frequency of sending ping messages
	PONG_WAIT     = 60 * time.Second // Time to wait for a pong before considering the client gone
	WRITE_WAIT    = 10 * time.Second // Deadline for a single frame write
	SEND_BUFFER   = 256              // Outgoing messages queued per client
)

// WebSocketClient is one connected browser, bound to a single session.
type WebSocketClient struct {
	conn      *websocket.Conn
	send      chan []byte   // Outgoing messages, filled by the session
	sessionID string        // The session this connection plays
	session   *Session      // Stopped before send is closed
	done      chan struct{} // Closed when ReadPump exits
}

func NewWebSocketClient(conn *websocket.Conn, sessionID string) *WebSocketClient {
	return &WebSocketClient{
		conn:      conn,
		send:      make(chan []byte, SEND_BUFFER),
		sessionID: sessionID,
		done:      make(chan struct{}),
	}
}

// ReadPump reads client messages until the connection fails, then tears the session down.
func (c *WebSocketClient) ReadPump(server *GameServer) {
	defer func() {
		server.unregisterClient(c)
		close(c.done)
		c.conn.Close()
	}()

	c.conn.SetReadDeadline(time.Now().Add(PONG_WAIT))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(PONG_WAIT)) // Extend deadline on pong
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("Client %s: Unexpected WebSocket close error: %v", c.sessionID, err)
			} else {
				log.Printf("Client %s: WebSocket closed: %v", c.sessionID, err)
			}
			break
		}
		server.handleClientMessage(c, message)
	}
}

// WritePump drains the send queue onto the connection and keeps it alive with pings.
func (c *WebSocketClient) WritePump() {
	ticker := time.NewTicker(PING_INTERVAL)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(WRITE_WAIT))
			if !ok {
				// The session was removed and closed the queue.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("Client %s: Error sending message: %v", c.sessionID, err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(WRITE_WAIT))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Printf("Client %s: Error sending ping: %v", c.sessionID, err)
				return
			}

		case <-c.done:
			err := c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			if err != nil {
				log.Printf("Client %s: Error sending final close message: %v", c.sessionID, err)
			}
			return
		}
	}
}
