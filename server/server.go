package server

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// GameServer accepts WebSocket connections and gives each one its own session.
type GameServer struct {
	upgrader     websocket.Upgrader
	sessions     *SessionManager
	clients      map[*WebSocketClient]bool
	clientsMutex sync.RWMutex
}

// NewGameServer creates a server. An empty or "*" origin list accepts every origin.
func NewGameServer(sessions *SessionManager, allowedOrigins []string) *GameServer {
	return &GameServer{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		sessions: sessions,
		clients:  make(map[*WebSocketClient]bool),
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(r *http.Request) bool { return true }
		}
		set[o] = true
	}
	if len(set) == 0 {
		return func(r *http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || set[origin]
	}
}

func (gs *GameServer) Sessions() *SessionManager { return gs.sessions }

// HandleConnections upgrades the request, creates a session and starts the client pumps.
func (gs *GameServer) HandleConnections(w http.ResponseWriter, r *http.Request) {
	conn, err := gs.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	sessionID := uuid.NewString()
	client := NewWebSocketClient(conn, sessionID)
	s, err := gs.sessions.CreateSession(sessionID, client.send)
	if err != nil {
		log.Printf("ERROR: Failed to create session for %s: %v. Closing connection.", conn.RemoteAddr().String(), err)
		conn.Close()
		return
	}
	client.session = s

	// Send 'init_data' synchronously so it precedes every queued state update.
	initMsg, err := json.Marshal(s.initMessage())
	if err == nil {
		err = conn.WriteMessage(websocket.TextMessage, initMsg)
	}
	if err != nil {
		log.Printf("ERROR: Failed to send init_data to client %s: %v. Disconnecting.", sessionID, err)
		gs.sessions.RemoveSession(sessionID)
		conn.Close()
		return
	}

	gs.clientsMutex.Lock()
	gs.clients[client] = true
	gs.clientsMutex.Unlock()
	log.Printf("Client %s connected as session %s.", conn.RemoteAddr().String(), sessionID)

	go client.WritePump()
	go client.ReadPump(gs)
}

// unregisterClient stops the client's session before closing its queue, so the
// session never writes to a closed channel.
func (gs *GameServer) unregisterClient(client *WebSocketClient) {
	gs.clientsMutex.Lock()
	_, ok := gs.clients[client]
	delete(gs.clients, client)
	gs.clientsMutex.Unlock()
	if !ok {
		return
	}

	gs.sessions.RemoveSession(client.sessionID)
	// The manager may already have dropped the session during shutdown; stop it here as well.
	if client.session != nil {
		client.session.Close()
	}
	close(client.send)
	log.Printf("Client %s unregistered.", client.sessionID)
}

// GetConnectedClientsCount returns the number of open WebSocket connections.
func (gs *GameServer) GetConnectedClientsCount() int {
	gs.clientsMutex.RLock()
	defer gs.clientsMutex.RUnlock()
	return len(gs.clients)
}

// Shutdown stops every session, then closes every connection.
func (gs *GameServer) Shutdown() {
	gs.sessions.CloseAllSessions()
	gs.clientsMutex.RLock()
	for client := range gs.clients {
		client.conn.Close() // ReadPump exits and unregisters
	}
	gs.clientsMutex.RUnlock()
}
