package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"vodgallery/internal/handlers"
	"vodgallery/internal/middleware"
	"vodgallery/internal/render"
	"vodgallery/internal/websocket"
)

func New(
	galleryHandler *handlers.GalleryHandler,
	apiHandler *handlers.APIHandler,
	wsHub *websocket.Hub,
	rateLimitPerMin int,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.AccessLog)
	r.Use(chimiddleware.Recoverer)

	limiter := middleware.RateLimit(rateLimitPerMin, time.Minute)

	r.Method(http.MethodGet, "/health", handlers.HealthHandler())
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Method(http.MethodGet, "/static/*", render.StaticHandler())

	r.Group(func(r chi.Router) {
		r.Use(limiter)

		// ──── Gallery pages ────
		r.Get("/", galleryHandler.Index)
		r.Get("/vods", galleryHandler.Index)

		// ──── JSON API ────
		r.Route("/api/v1", func(r chi.Router) {
			r.Get("/vods", apiHandler.List)
		})

		// ──── WebSocket ────
		r.Get("/ws", wsHub.HandleWebSocket)
	})

	return r
}
