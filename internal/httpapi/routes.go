package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sketchparty/sketchparty-server/internal/registry"
	"github.com/sketchparty/sketchparty-server/internal/ws"
)

func SetupRoutes(reg *registry.Registry, origins []string, log *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Content-Type"},
	}))

	// The websocket route stays outside the timeout middleware; game
	// connections are long-lived.
	r.Get("/ws/draw", ws.Handler(reg, origins, log))

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(10 * time.Second))
		r.Post("/api/createRoom", CreateRoom(reg, log))
		r.Get("/api/getRooms", GetRooms(reg))
		r.Get("/api/joinRoom", JoinRoom(reg))
		r.Get("/healthz", Healthz)
	})

	return r
}
