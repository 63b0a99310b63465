package main

import (
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"calm-stress-backend/internal/config"
	"calm-stress-backend/internal/database"
	"calm-stress-backend/internal/handlers"
	"calm-stress-backend/internal/logger"
	"calm-stress-backend/internal/middleware"
	"calm-stress-backend/internal/router"
	"calm-stress-backend/internal/services"
	"calm-stress-backend/internal/websocket"
)

func main() {
	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()

	log := logger.New(cfg.LogLevel, cfg.IsDevelopment())
	log.Info().Str("env", cfg.Env).Msg("Starting Calm-stress Backend")

	// ──── Step 2: Gemini Service (client created on first request) ────
	geminiService := services.NewGeminiService(cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiConcurrentReqs, &log)
	defer geminiService.Close()
	log.Info().
		Str("model", cfg.GeminiModel).
		Int("concurrent_requests", cfg.GeminiConcurrentReqs).
		Msg("Gemini service configured")

	// ──── Step 3: Rate Limit Store ────
	var store middleware.Store
	if cfg.RedisURL != "" {
		redisClient, err := database.NewRedisClient(cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("Redis connection failed")
		}
		defer redisClient.Close()
		store = middleware.NewRedisStore(redisClient, cfg.ChatRateLimit, cfg.ChatRateWindow)
		log.Info().Msg("Redis rate limit store connected")
	} else {
		memStore := middleware.NewMemoryStore(cfg.ChatRateLimit, cfg.ChatRateWindow)
		defer memStore.Close()
		store = memStore
		log.Info().Msg("In-memory rate limit store enabled")
	}
	chatLimiter := middleware.NewRateLimiter(store, &log)

	// ──── Step 4: Handlers & Game Hub ────
	geminiHandler := handlers.NewGeminiHandler(geminiService, &log)
	gameHub := websocket.NewHub(cfg.GameTick, cfg.FrontendURL, cfg.GameSessionsPerIP, &log)

	// ──── Step 5: Start HTTP Server ────
	trustedProxies, err := middleware.ParseTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid TRUSTED_PROXIES")
	}
	if len(trustedProxies) > 0 {
		log.Info().Strs("trusted_proxies", cfg.TrustedProxies).Msg("Forwarded client addresses honoured")
	}

	r := router.New(geminiHandler, chatLimiter, gameHub, trustedProxies, cfg.FrontendURL, &log)

	// No WriteTimeout: upstream generation has no deadline of its own
	server := &http.Server{
		Addr:        fmt.Sprintf(":%s", cfg.Port),
		Handler:     r,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	ln, err := net.Listen("tcp", server.Addr)
	if err != nil {
		log.Fatal().Err(err).Str("address", server.Addr).Msg("Failed to listen")
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	log.Info().
		Str("address", server.Addr).
		Str("api", fmt.Sprintf("http://localhost:%s/api/gemini/textGenerate", cfg.Port)).
		Str("games", fmt.Sprintf("ws://localhost:%s/api/games/{game}/ws", cfg.Port)).
		Msg("Calm-stress Backend ready")

	// Deferred closes run only after serve has drained every request
	if err := serve(server, ln, sigChan, gameHub.Close, 30*time.Second, &log); err != nil {
		log.Error().Err(err).Msg("Server stopped with error")
		return
	}
	log.Info().Msg("Server stopped")
}
