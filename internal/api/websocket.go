package api

import (
	"log"
	"net/http"
	"sync/atomic"

	"github.com/gorilla/websocket"

	"trail-arena/internal/controller"
	"trail-arena/internal/session"
)

// MaxWSConnectionsPerIP is the maximum WebSocket connections per IP
const MaxWSConnectionsPerIP = 10

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if IsAllowedOrigin(origin) {
			return true
		}

		// Log rejected origin for security monitoring
		log.Printf("⚠️ WebSocket connection rejected from origin: %s", origin)
		RecordConnectionRejected("origin")
		return false
	},
}

// WebSocketHandler upgrades connections into sessions and hands them to the
// lobby. Each connection gets a dedicated goroutine blocked in Session.Run.
type WebSocketHandler struct {
	lobby   *controller.Lobby
	limiter *WebSocketRateLimiter

	nextID  atomic.Int64
	current atomic.Int64
}

// NewWebSocketHandler creates the handler with per-IP connection limiting.
func NewWebSocketHandler(lobby *controller.Lobby) *WebSocketHandler {
	return &WebSocketHandler{
		lobby:   lobby,
		limiter: NewWebSocketRateLimiter(MaxWSConnectionsPerIP),
	}
}

// HandleWebSocket serves one client connection for its whole lifetime.
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	ip := GetClientIP(r)

	if !h.limiter.Allow(ip) {
		log.Printf("⚠️ WebSocket connection rejected from %s: per-IP limit reached", ip)
		RecordConnectionRejected("ws_limit")
		http.Error(w, "Too many connections from your IP", http.StatusTooManyRequests)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		h.limiter.Release(ip)
		return
	}

	s := session.New(h.nextID.Add(1), conn, 0)
	UpdateWSConnections(int(h.current.Add(1)))
	h.lobby.Attach(s)

	// Blocks until the connection drops; OnClose fans out from inside Run.
	s.Run()

	h.limiter.Release(ip)
	UpdateWSConnections(int(h.current.Add(-1)))
}
