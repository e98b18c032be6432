package api

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"labyrinth-server/server"
)

// HealthStatus represents the overall health of the system
type HealthStatus string

const (
	HealthHealthy     HealthStatus = "healthy"
	HealthWarning     HealthStatus = "warning"
	HealthDegraded    HealthStatus = "degraded"
	HealthCritical    HealthStatus = "critical"
	HealthDown        HealthStatus = "down"
	HealthMaintenance HealthStatus = "maintenance"
)

// WebSocketStatus represents the state of the WebSocket server
type WebSocketStatus string

const (
	WebSocketRunning  WebSocketStatus = "running"
	WebSocketStopping WebSocketStatus = "stopping"
	WebSocketError    WebSocketStatus = "error"
)

// SessionMetrics summarizes the rounds being played.
type SessionMetrics struct {
	Total           int            `json:"total"`
	ByState         map[string]int `json:"by_state"`
	ActiveAgents    int            `json:"active_agents"`
	PathCacheHits   uint64         `json:"path_cache_hits"`
	PathCacheMisses uint64         `json:"path_cache_misses"`
	PathCacheRatio  float64        `json:"path_cache_hit_ratio"`
	Levels          int            `json:"levels"`
}

// WorkloadMetrics tracks the current system workload
type WorkloadMetrics struct {
	LoadPercentage     float64 `json:"load_percentage"`
	MaxSessionCapacity int     `json:"max_session_capacity"`
	CurrentLoad        string  `json:"current_load"` // "low", "medium", "high", "critical"
}

// WebSocketServerMetrics holds WebSocket server status
type WebSocketServerMetrics struct {
	Status            WebSocketStatus `json:"status"`
	ActiveConnections int             `json:"active_connections"`
	UptimeSec         int64           `json:"uptime_sec"`
	LastErrorMessage  string          `json:"last_error_message,omitempty"`
	LastErrorTime     *time.Time      `json:"last_error_time,omitempty"`
}

// MetricsResponse is the complete metrics response structure
type MetricsResponse struct {
	Timestamp         time.Time              `json:"timestamp"`
	Health            HealthStatus           `json:"health"`
	HealthDescription string                 `json:"health_description"`
	Sessions          SessionMetrics         `json:"sessions"`
	WebSocket         WebSocketServerMetrics `json:"websocket"`
	Workload          WorkloadMetrics        `json:"workload"`
	ServerUptime      int64                  `json:"server_uptime_sec"`
}

// MetricsHandler manages metrics collection and reporting
type MetricsHandler struct {
	gameServer       *server.GameServer
	mu               sync.RWMutex
	serverStartTime  time.Time
	webSocketMetrics WebSocketServerMetrics
	maxSessions      int
}

// NewMetricsHandler creates a new metrics handler. maxSessions sets the capacity
// the workload percentage is measured against.
func NewMetricsHandler(gameServer *server.GameServer, maxSessions int) *MetricsHandler {
	if maxSessions <= 0 {
		maxSessions = 500
	}
	return &MetricsHandler{
		gameServer:       gameServer,
		serverStartTime:  time.Now(),
		maxSessions:      maxSessions,
		webSocketMetrics: WebSocketServerMetrics{Status: WebSocketRunning},
	}
}

// Routes registers metrics routes
func (h *MetricsHandler) Routes(r chi.Router) {
	r.Get("/metrics", h.GetMetrics)
	r.Get("/metrics/health", h.GetHealth)
	r.Get("/metrics/sessions", h.GetSessions)
	r.Get("/metrics/websocket", h.GetWebSocket)
	r.Get("/metrics/workload", h.GetWorkload)
}

func (h *MetricsHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.collectMetrics())
}

// GetHealth returns only health status
func (h *MetricsHandler) GetHealth(w http.ResponseWriter, r *http.Request) {
	metrics := h.collectMetrics()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"timestamp":   metrics.Timestamp,
		"health":      metrics.Health,
		"description": metrics.HealthDescription,
		"uptime_sec":  metrics.ServerUptime,
	})
}

func (h *MetricsHandler) GetSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.collectSessionMetrics())
}

func (h *MetricsHandler) GetWebSocket(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"timestamp": time.Now(),
		"websocket": h.syncWebSocketMetrics(),
	})
}

func (h *MetricsHandler) GetWorkload(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.collectMetrics().Workload)
}

// collectMetrics gathers all metrics from the system
func (h *MetricsHandler) collectMetrics() *MetricsResponse {
	sessions := h.collectSessionMetrics()
	workload := h.calculateWorkloadMetrics(sessions)
	ws := h.syncWebSocketMetrics()
	health, desc := h.determineHealth(workload, ws)

	return &MetricsResponse{
		Timestamp:         time.Now(),
		Health:            health,
		HealthDescription: desc,
		Sessions:          sessions,
		WebSocket:         ws,
		Workload:          workload,
		ServerUptime:      int64(time.Since(h.serverStartTime).Seconds()),
	}
}

// syncWebSocketMetrics copies the recorded status and fills in live connection counts.
func (h *MetricsHandler) syncWebSocketMetrics() WebSocketServerMetrics {
	h.mu.RLock()
	ws := h.webSocketMetrics
	h.mu.RUnlock()

	ws.UptimeSec = int64(time.Since(h.serverStartTime).Seconds())
	if h.gameServer != nil {
		ws.ActiveConnections = h.gameServer.GetConnectedClientsCount()
	}
	return ws
}

func (h *MetricsHandler) collectSessionMetrics() SessionMetrics {
	m := SessionMetrics{ByState: map[string]int{}}
	if h.gameServer == nil {
		return m
	}
	st := h.gameServer.Sessions().Stats()
	m.Total = st.Sessions
	m.ByState = st.ByState
	m.ActiveAgents = st.Agents
	m.PathCacheHits = st.PathHits
	m.PathCacheMisses = st.PathMisses
	m.Levels = st.LevelsTotal
	if lookups := st.PathHits + st.PathMisses; lookups > 0 {
		m.PathCacheRatio = float64(st.PathHits) / float64(lookups)
	}
	return m
}

// calculateWorkloadMetrics measures open sessions against capacity.
func (h *MetricsHandler) calculateWorkloadMetrics(sessions SessionMetrics) WorkloadMetrics {
	workload := WorkloadMetrics{
		MaxSessionCapacity: h.maxSessions,
		LoadPercentage:     float64(sessions.Total) / float64(h.maxSessions) * 100,
	}

	switch {
	case workload.LoadPercentage < 40:
		workload.CurrentLoad = "low"
	case workload.LoadPercentage < 70:
		workload.CurrentLoad = "medium"
	case workload.LoadPercentage < 90:
		workload.CurrentLoad = "high"
	default:
		workload.CurrentLoad = "critical"
	}
	return workload
}

// determineHealth determines overall system health based on metrics
func (h *MetricsHandler) determineHealth(workload WorkloadMetrics, ws WebSocketServerMetrics) (HealthStatus, string) {
	switch ws.Status {
	case WebSocketError:
		return HealthCritical, "WebSocket server error - unable to accept connections"
	case WebSocketStopping:
		return HealthMaintenance, "Server is performing graceful shutdown - no new connections accepted"
	}

	switch workload.CurrentLoad {
	case "critical":
		return HealthDown, "Session load at critical levels (>90%) - service may become unavailable"
	case "high":
		return HealthDegraded, "Session load is high (70-90%) - tick latency may increase"
	case "medium":
		return HealthWarning, "Session load is moderate (40-70%) - monitor performance"
	}

	if ws.ActiveConnections > 0 {
		connStr := "connection"
		if ws.ActiveConnections > 1 {
			connStr = "connections"
		}
		return HealthHealthy, fmt.Sprintf("All systems operational - %d active %s", ws.ActiveConnections, connStr)
	}
	return HealthHealthy, "Server ready and operational - awaiting connections"
}

// RecordWebSocketError records a WebSocket error
func (h *MetricsHandler) RecordWebSocketError(errorMsg string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := time.Now()
	h.webSocketMetrics.Status = WebSocketError
	h.webSocketMetrics.LastErrorMessage = errorMsg
	h.webSocketMetrics.LastErrorTime = &now
}

// SetWebSocketStatus sets the WebSocket status
func (h *MetricsHandler) SetWebSocketStatus(status WebSocketStatus) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.webSocketMetrics.Status = status
}
