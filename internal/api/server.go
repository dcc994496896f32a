package api

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"trail-arena/internal/controller"
	"trail-arena/internal/room"
)

// Server is the HTTP API server with WebSocket support. It combines the
// HTTP router with the WebSocket endpoint feeding the lobby.
type Server struct {
	router      *chi.Mux
	ws          *WebSocketHandler
	rateLimiter *IPRateLimiter
}

// ServerConfig carries the server's tunables from the config layer.
type ServerConfig struct {
	RateLimit   RateLimitConfig
	CORSOrigins []string
}

// NewServer creates the API server. Nothing runs until Start is called, so
// tests can construct one and use Router() with httptest.
func NewServer(repo *room.Repository, lobby *controller.Lobby, cfg ServerConfig) *Server {
	s := &Server{
		ws:          NewWebSocketHandler(lobby),
		rateLimiter: NewIPRateLimiter(cfg.RateLimit),
	}
	s.router = NewRouter(RouterConfig{
		Repo:        repo,
		RateLimiter: s.rateLimiter,
		CORSOrigins: cfg.CORSOrigins,
	})

	// The WebSocket route needs the handler instance, so it can't be part
	// of the pure NewRouter factory.
	s.router.Get("/ws", s.ws.HandleWebSocket)
	return s
}

// Start begins serving. Call once; to stop the server, signal the process.
func (s *Server) Start(addr string) error {
	log.Printf("🌐 API server starting on %s", addr)
	log.Printf("🔌 WebSocket endpoint: ws://localhost%s/ws", addr)
	return http.ListenAndServe(addr, s.router)
}

// Router returns the HTTP handler for use with httptest.
func (s *Server) Router() http.Handler {
	return s.router
}

// Stop shuts down background workers. Call before process exit.
func (s *Server) Stop() {
	s.rateLimiter.Stop()
}
