package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"labyrinth-server/leaderboard"
	"labyrinth-server/maze"
)

func readMessage(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var msg map[string]any
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("decode %s: %v", data, err)
	}
	return msg
}

func TestGameServerSessionLifecycle(t *testing.T) {
	sessions := NewSessionManager(corridorRegistry(t, "corridor", "pursuer"), leaderboard.New(10), SessionConfig{TickInterval: 20 * time.Millisecond})
	gs := NewGameServer(sessions, []string{"*"})
	srv := httptest.NewServer(http.HandlerFunc(gs.HandleConnections))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	first := readMessage(t, conn)
	if first["type"] != "init_data" {
		t.Fatalf("Expected init_data first, got %v", first["type"])
	}
	if levels, _ := first["levels"].([]any); len(levels) != 1 {
		t.Errorf("Expected one level, got %v", first["levels"])
	}
	if sessions.Count() != 1 || gs.GetConnectedClientsCount() != 1 {
		t.Errorf("Expected one session and client, got %d/%d", sessions.Count(), gs.GetConnectedClientsCount())
	}

	if err := conn.WriteJSON(map[string]any{"type": "start"}); err != nil {
		t.Fatal(err)
	}
	started := false
	for i := 0; i < 50 && !started; i++ {
		msg := readMessage(t, conn)
		if ev, ok := msg["event"].(map[string]any); ok && ev["kind"] == "level_started" {
			started = true
		}
	}
	if !started {
		t.Fatal("Never saw level_started")
	}

	conn.WriteJSON(map[string]any{"type": "bogus"})
	gotNotice := false
	for i := 0; i < 50 && !gotNotice; i++ {
		msg := readMessage(t, conn)
		gotNotice = msg["type"] == "message" && strings.Contains(msg["text"].(string), "bogus")
	}
	if !gotNotice {
		t.Error("Expected a message about the unknown type")
	}

	conn.Close()
	deadline := time.Now().Add(2 * time.Second)
	for sessions.Count() > 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if sessions.Count() != 0 {
		t.Error("Session not removed after disconnect")
	}
}

func TestOriginChecker(t *testing.T) {
	check := originChecker([]string{"https://game.example"})
	r := httptest.NewRequest(http.MethodGet, "/ws", nil)
	if !check(r) {
		t.Error("Requests without Origin should pass")
	}
	r.Header.Set("Origin", "https://evil.example")
	if check(r) {
		t.Error("Unlisted origin accepted")
	}
	r.Header.Set("Origin", "https://game.example")
	if !check(r) {
		t.Error("Listed origin rejected")
	}
	if !originChecker(nil)(r) {
		t.Error("Empty list should accept every origin")
	}
}

func TestSessionManagerStats(t *testing.T) {
	sm := NewSessionManager(corridorRegistry(t, "corridor", "pursuer"), nil, SessionConfig{PathCache: true})
	a, err := sm.CreateSession("a", make(chan []byte, 64))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := sm.CreateSession("a", nil); err == nil {
		t.Error("Expected duplicate session error")
	}
	sm.CreateSession("b", make(chan []byte, 64))
	a.Start()
	a.advance(0.05)
	a.advance(0.05)

	st := sm.Stats()
	if st.Sessions != 2 || st.ByState["playing"] != 1 || st.ByState["not_started"] != 1 {
		t.Errorf("Unexpected stats %+v", st)
	}
	if st.Agents != 1 || st.PathHits+st.PathMisses != 2 {
		t.Errorf("Expected one agent with two path lookups, got %+v", st)
	}

	if err := sm.SetRegistry(corridorRegistry(t, "other")); err != nil {
		t.Fatal(err)
	}
	if sm.Registry().Levels()[0].Name != "other" {
		t.Error("SetRegistry not applied")
	}
	sm.CloseAllSessions()
	if sm.Count() != 0 {
		t.Error("Expected no sessions after CloseAllSessions")
	}
}

func TestSetRegistryRejectsUnknownKinds(t *testing.T) {
	dir := t.TempDir()
	level := "name: extra\nroster: [dragon]\nplayer_start: {x: 0, z: 0}\nrows:\n  - [1, 1, 1]\n  - [1, 0, 0]\n  - [1, 1, 1]\n"
	if err := os.WriteFile(filepath.Join(dir, "extra.yaml"), []byte(level), 0o644); err != nil {
		t.Fatal(err)
	}
	reloaded, err := maze.BuildRegistry(dir)
	if err != nil {
		t.Fatal(err)
	}

	sm := NewSessionManager(corridorRegistry(t, "corridor", "pursuer"), nil, SessionConfig{})
	if err := sm.SetRegistry(reloaded); err == nil || !strings.Contains(err.Error(), "dragon") {
		t.Fatalf("Expected the unknown kind to be rejected, got %v", err)
	}
	if sm.Registry().Levels()[0].Name != "corridor" {
		t.Error("Rejected level set replaced the current one")
	}
	if _, err := sm.CreateSession("after", make(chan []byte, 64)); err != nil {
		t.Errorf("New sessions must still start on the current levels: %v", err)
	}
	sm.CloseAllSessions()
}

// A client unregistering after the manager already dropped its session must
// still stop the session before its queue is closed.
func TestUnregisterStopsSessionDroppedByManager(t *testing.T) {
	sm := NewSessionManager(corridorRegistry(t, "corridor"), nil, SessionConfig{TickInterval: time.Millisecond})
	gs := NewGameServer(sm, nil)

	client := &WebSocketClient{send: make(chan []byte, SEND_BUFFER), sessionID: "dropped", done: make(chan struct{})}
	s, err := sm.CreateSession(client.sessionID, client.send)
	if err != nil {
		t.Fatal(err)
	}
	client.session = s
	gs.clients[client] = true

	sm.sessionsMutex.Lock()
	sm.sessions = make(map[string]*Session)
	sm.sessionsMutex.Unlock()

	gs.unregisterClient(client)
	select {
	case <-s.stopped:
	default:
		t.Fatal("Session still running after its client was unregistered")
	}
	time.Sleep(20 * time.Millisecond) // a live loop would send on the closed queue here
	if gs.GetConnectedClientsCount() != 0 {
		t.Error("Client still registered")
	}
}
