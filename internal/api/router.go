package api

import (
	"encoding/json"
	"image/png"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"trail-arena/internal/render"
	"trail-arena/internal/room"
)

// maxPreviewSize bounds the preview resolution a client may request.
const maxPreviewSize = 1024

// RouterConfig contains all dependencies needed to construct the HTTP router.
// This struct is designed for dependency injection and testability.
type RouterConfig struct {
	// Repo is the room repository (required)
	Repo *room.Repository

	// RateLimiter is an optional pre-configured rate limiter.
	// If nil, a new one will be created using RateLimitConfig.
	RateLimiter *IPRateLimiter

	// RateLimitConfig is optional configuration for the rate limiter.
	// Only used if RateLimiter is nil. If both are nil, uses DefaultRateLimitConfig.
	RateLimitConfig *RateLimitConfig

	// CORSOrigins is an optional list of allowed CORS origins.
	// If nil, uses the default production origins.
	CORSOrigins []string

	// DisableLogging disables the request logger middleware (useful for benchmarks).
	DisableLogging bool
}

type routerHandlers struct {
	repo *room.Repository
}

// NewRouter constructs the HTTP router with all middleware and routes.
//
// This function is PURE - no goroutines, no listeners, no background
// workers - so it is safe to use in tests with httptest.NewServer.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Middleware - Order matters!
	if !cfg.DisableLogging {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)

	// Rate limiting (BEFORE CORS to reject early and save CPU)
	rateLimiter := cfg.RateLimiter
	if rateLimiter == nil {
		rateLimitCfg := DefaultRateLimitConfig
		if cfg.RateLimitConfig != nil {
			rateLimitCfg = *cfg.RateLimitConfig
		}
		rateLimiter = NewIPRateLimiter(rateLimitCfg)
	}
	r.Use(rateLimiter.Middleware)

	corsOrigins := cfg.CORSOrigins
	if corsOrigins == nil {
		corsOrigins = []string{
			"http://localhost:*",
			"http://127.0.0.1:*",
		}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))

	h := &routerHandlers{repo: cfg.Repo}

	r.Route("/api", func(r chi.Router) {
		r.Get("/rooms", h.handleListRooms)
		r.Get("/rooms/{name}/preview.png", h.handleRoomPreview)
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	return r
}

// handleListRooms returns the lobby listing, one summary per open room.
func (h *routerHandlers) handleListRooms(w http.ResponseWriter, r *http.Request) {
	summaries := make([]room.RoomSummary, 0)
	for _, rm := range h.repo.All() {
		rm.Mu.Lock()
		summaries = append(summaries, rm.Summarize())
		rm.Mu.Unlock()
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(summaries)
}

// handleRoomPreview renders the room's running game as a PNG. Rooms without
// a game respond 404, so clients can fall back to a placeholder.
func (h *routerHandlers) handleRoomPreview(w http.ResponseWriter, r *http.Request) {
	rm := h.repo.Get(chi.URLParam(r, "name"))
	if rm == nil {
		http.NotFound(w, r)
		return
	}

	size := render.DefaultPreviewSize
	if raw := r.URL.Query().Get("size"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= maxPreviewSize {
			size = parsed
		}
	}

	start := time.Now()
	rm.Mu.Lock()
	g := rm.Game
	if g == nil {
		rm.Mu.Unlock()
		http.NotFound(w, r)
		return
	}
	img := render.Preview(g, size)
	rm.Mu.Unlock()
	RecordPreviewRender(time.Since(start))

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	png.Encode(w, img)
}
