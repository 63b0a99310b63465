package router

import (
	"net/http"
	"net/netip"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"github.com/rs/zerolog"

	"calm-stress-backend/internal/handlers"
	"calm-stress-backend/internal/middleware"
	"calm-stress-backend/internal/websocket"
)

func New(
	geminiHandler *handlers.GeminiHandler,
	chatLimiter *middleware.RateLimiter,
	gameHub *websocket.Hub,
	trustedProxies []netip.Prefix,
	frontendURL string,
	logger *zerolog.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.TrustedRealIP(trustedProxies))
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestLogger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.New(cors.Options{
		AllowedOrigins: []string{frontendURL},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", middleware.RequestIDHeader},
		ExposedHeaders: []string{middleware.RequestIDHeader},
	}).Handler)

	// Health check
	r.Get("/health", handlers.Health)

	r.Route("/api", func(r chi.Router) {

		// ──── Generation proxy ────
		r.Route("/gemini", func(r chi.Router) {
			r.Use(chatLimiter.Middleware)
			r.Post("/textGenerate", geminiHandler.TextGenerate)
		})

		// ──── Game sessions ────
		r.Get("/games/{game}/ws", gameHub.HandleGame)
	})

	return r
}
