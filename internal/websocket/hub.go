package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"calm-stress-backend/internal/games"
	"calm-stress-backend/internal/middleware"
	"calm-stress-backend/internal/models"
)

const (
	writeWait      = 5 * time.Second
	maxMessageSize = 4096
)

// Hub hosts game sessions. Every websocket connection gets its own engine;
// sessions never share state.
type Hub struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*session
	perIP    map[string]int
	maxPerIP int
	upgrader websocket.Upgrader
	tick     time.Duration
	logger   *zerolog.Logger
	closed   bool
}

// NewHub creates a hub that allows at most maxPerIP concurrent sessions from
// one client address.
func NewHub(tick time.Duration, allowedOrigin string, maxPerIP int, logger *zerolog.Logger) *Hub {
	if maxPerIP < 1 {
		maxPerIP = 1
	}
	return &Hub{
		sessions: make(map[uuid.UUID]*session),
		perIP:    make(map[string]int),
		maxPerIP: maxPerIP,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || origin == allowedOrigin
			},
		},
		tick:   tick,
		logger: logger,
	}
}

// GET /api/games/{game}/ws
func (h *Hub) HandleGame(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "game")
	engine, err := games.New(name, nil)
	if err != nil {
		writeJSON(w, http.StatusNotFound, models.GameNotFoundResponse{
			Error:     "Game not found",
			Available: games.Names(),
		})
		return
	}

	ip := middleware.ClientIP(r)
	if !h.reserve(ip) {
		h.logger.Warn().Str("ip", ip).Str("game", name).Msg("Game session limit reached")
		writeJSON(w, http.StatusTooManyRequests, models.ErrorResponse{Error: "Too many game sessions"})
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.release(ip)
		h.logger.Warn().Err(err).Str("game", name).Msg("WebSocket upgrade failed")
		return
	}

	s := h.register(conn, engine, ip)
	if s == nil {
		h.release(ip)
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "server shutting down"),
			time.Now().Add(writeWait))
		conn.Close()
		return
	}

	go func() {
		defer h.unregister(s)
		s.run()
	}()
}

// Count returns the number of live sessions.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

// Close ends every session and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for _, s := range h.sessions {
		s.cancel()
	}
}

// reserve claims a session slot for ip before the upgrade.
func (h *Hub) reserve(ip string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.perIP[ip] >= h.maxPerIP {
		return false
	}
	h.perIP[ip]++
	return true
}

func (h *Hub) release(ip string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.releaseLocked(ip)
}

func (h *Hub) releaseLocked(ip string) {
	if h.perIP[ip] <= 1 {
		delete(h.perIP, ip)
		return
	}
	h.perIP[ip]--
}

func (h *Hub) register(conn *websocket.Conn, engine games.Engine, ip string) *session {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &session{
		id:     uuid.New(),
		ip:     ip,
		conn:   conn,
		engine: engine,
		tick:   h.tick,
		ctx:    ctx,
		cancel: cancel,
	}
	logger := h.logger.With().Str("session_id", s.id.String()).Str("game", engine.Name()).Logger()
	s.logger = &logger

	h.sessions[s.id] = s
	s.logger.Info().Int("total", len(h.sessions)).Msg("Game session started")
	return s
}

func (h *Hub) unregister(s *session) {
	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.sessions, s.id)
	h.releaseLocked(s.ip)
	s.logger.Info().Int("total", len(h.sessions)).Msg("Game session ended")
}

type inbound struct {
	action models.GameAction
	err    error
}

var errMalformedAction = errors.New("malformed action")

type session struct {
	id     uuid.UUID
	ip     string
	conn   *websocket.Conn
	engine games.Engine
	tick   time.Duration
	ctx    context.Context
	cancel context.CancelFunc
	logger *zerolog.Logger
}

// run owns the engine and all writes to the connection until the client
// leaves, a write fails or the hub closes.
func (s *session) run() {
	defer s.conn.Close()
	defer s.cancel()

	actions := make(chan inbound)
	go s.readLoop(actions)

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	if err := s.sendState(); err != nil {
		return
	}

	for {
		select {
		case <-s.ctx.Done():
			s.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(writeWait))
			return

		case in, ok := <-actions:
			if !ok {
				return
			}
			var err error
			if in.err != nil {
				err = s.send(models.GameMessage{Type: "error", Game: s.engine.Name(), Error: in.err.Error()})
			} else if applyErr := s.engine.Apply(in.action); applyErr != nil {
				err = s.send(models.GameMessage{Type: "error", Game: s.engine.Name(), Error: applyErr.Error()})
			} else {
				err = s.sendState()
			}
			if err != nil {
				return
			}

		case <-ticker.C:
			if s.engine.Tick() {
				if err := s.sendState(); err != nil {
					return
				}
			}
		}
	}
}

func (s *session) readLoop(actions chan<- inbound) {
	defer close(actions)
	s.conn.SetReadLimit(maxMessageSize)

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Debug().Err(err).Msg("Game session read failed")
			}
			return
		}

		var in inbound
		if err := json.Unmarshal(data, &in.action); err != nil {
			in.err = errMalformedAction
		}

		select {
		case actions <- in:
		case <-s.ctx.Done():
			return
		}
	}
}

func (s *session) sendState() error {
	return s.send(models.GameMessage{Type: "state", Game: s.engine.Name(), State: s.engine.Snapshot()})
}

func (s *session) send(msg models.GameMessage) error {
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := s.conn.WriteJSON(msg); err != nil {
		s.logger.Debug().Err(err).Msg("Game session write failed")
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
