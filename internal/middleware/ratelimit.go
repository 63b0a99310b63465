package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"calm-stress-backend/internal/models"
)

const rateLimitedMessage = "Too many requests. Please try again later."

// Store counts hits for a key inside a fixed window and reports whether the
// latest hit is still within the limit.
type Store interface {
	Allow(ctx context.Context, key string) (bool, error)
}

type RateLimiter struct {
	store  Store
	logger *zerolog.Logger
}

func NewRateLimiter(store Store, logger *zerolog.Logger) *RateLimiter {
	return &RateLimiter{store: store, logger: logger}
}

func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := ClientIP(r)

		allowed, err := rl.store.Allow(r.Context(), ip)
		if err != nil {
			// Fail open: a broken counter store must not take the endpoint down
			LoggerFrom(r.Context(), rl.logger).Warn().Err(err).Str("ip", ip).Msg("Rate limit store unavailable")
			next.ServeHTTP(w, r)
			return
		}

		if !allowed {
			writeError(w, http.StatusTooManyRequests, rateLimitedMessage)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// ClientIP returns the host part of RemoteAddr. Behind a trusted proxy
// TrustedRealIP has already replaced RemoteAddr with the forwarded client.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(models.ErrorResponse{Error: message})
}

// ──── In-memory store ────

type visitor struct {
	count       int
	windowStart time.Time
}

type MemoryStore struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    int
	window   time.Duration
	now      func() time.Time
	stop     chan struct{}
	stopOnce sync.Once
}

func NewMemoryStore(limit int, window time.Duration) *MemoryStore {
	s := &MemoryStore{
		visitors: make(map[string]*visitor),
		limit:    limit,
		window:   window,
		now:      time.Now,
		stop:     make(chan struct{}),
	}

	// Cleanup goroutine
	go func() {
		ticker := time.NewTicker(window)
		defer ticker.Stop()
		for {
			select {
			case <-s.stop:
				return
			case <-ticker.C:
				s.cleanup()
			}
		}
	}()

	return s
}

func (s *MemoryStore) Allow(ctx context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// The window opens on the first hit and is never extended by later ones
	now := s.now()
	v, exists := s.visitors[key]
	if !exists || now.Sub(v.windowStart) >= s.window {
		s.visitors[key] = &visitor{count: 1, windowStart: now}
		return s.limit > 0, nil
	}

	v.count++
	return v.count <= s.limit, nil
}

func (s *MemoryStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for ip, v := range s.visitors {
		if now.Sub(v.windowStart) >= s.window {
			delete(s.visitors, ip)
		}
	}
}

// Close stops the cleanup goroutine.
func (s *MemoryStore) Close() {
	s.stopOnce.Do(func() { close(s.stop) })
}

// ──── Redis store ────

// incrWindow increments the counter and gives it a TTL whenever it has none,
// so a counter can never outlive its window.
var incrWindow = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if redis.call("PTTL", KEYS[1]) < 0 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return count
`)

// RedisStore keeps fixed-window counters in Redis so every replica shares them.
type RedisStore struct {
	client *redis.Client
	limit  int
	window time.Duration
	prefix string
}

func NewRedisStore(client *redis.Client, limit int, window time.Duration) *RedisStore {
	return &RedisStore{
		client: client,
		limit:  limit,
		window: window,
		prefix: "ratelimit:textgen:",
	}
}

func (s *RedisStore) Allow(ctx context.Context, key string) (bool, error) {
	redisKey := s.prefix + key

	count, err := incrWindow.Run(ctx, s.client, []string{redisKey}, s.window.Milliseconds()).Int64()
	if err != nil {
		return false, fmt.Errorf("failed to increment rate counter: %w", err)
	}

	return count <= int64(s.limit), nil
}
