package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"arena-brawl/internal/room"
)

// RouterConfig wires the lobby HTTP surface. Only Registry is required;
// tests usually pass a generous RateLimitConfig and leave Hub nil:
//
//	r := api.NewRouter(api.RouterConfig{
//	    Registry:        reg,
//	    RateLimitConfig: &api.RateLimitConfig{RequestsPerSecond: 1000, Burst: 1000},
//	})
type RouterConfig struct {
	Registry *room.Registry

	// Hub serves /ws. Without it the websocket route is not mounted.
	Hub *Hub

	// RateLimiter is shared with the caller, who owns Stop. When nil the
	// router builds its own from RateLimitConfig (or the defaults).
	RateLimiter     *IPRateLimiter
	RateLimitConfig *RateLimitConfig

	// CORSOrigins is the allowed origin list. Nil allows every origin.
	CORSOrigins []string

	// StaticFilesDir is served at "/" when set (the web client build).
	StaticFilesDir string

	DisableLogging bool
}

type routerHandlers struct {
	registry *room.Registry
	hub      *Hub
}

func (cfg RouterConfig) limiter() *IPRateLimiter {
	if cfg.RateLimiter != nil {
		return cfg.RateLimiter
	}
	lc := DefaultRateLimitConfig
	if cfg.RateLimitConfig != nil {
		lc = *cfg.RateLimitConfig
	}
	return NewIPRateLimiter(lc)
}

// NewRouter builds the lobby router: REST endpoints under /api, /health,
// the websocket upgrade at /ws and the optional static client.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	if !cfg.DisableLogging {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)
	r.Use(metricsMiddleware)
	// Throttle before CORS so floods are rejected early.
	r.Use(cfg.limiter().Middleware)

	origins := cfg.CORSOrigins
	if origins == nil {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	}))

	h := &routerHandlers{registry: cfg.Registry, hub: cfg.Hub}

	r.Get("/health", h.handleHealth)
	r.Route("/api", h.mountAPI)

	if cfg.Hub != nil {
		r.Get("/ws", cfg.Hub.HandleWebSocket)
	}
	if cfg.StaticFilesDir != "" {
		r.Handle("/*", http.FileServer(http.Dir(cfg.StaticFilesDir)))
	}
	return r
}

func (h *routerHandlers) mountAPI(r chi.Router) {
	r.Get("/rooms", h.handleListRooms)
	r.Get("/rooms/{id}", h.handleGetRoom)
	r.Get("/weapons", h.handleGetWeapons)
	r.Get("/leaderboard", h.handleGetLeaderboard)
	r.Get("/stats", h.handleGetStats)
}
