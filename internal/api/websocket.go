package api

import (
	"context"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"arena-brawl/internal/config"
	"arena-brawl/internal/metrics"
	"arena-brawl/internal/protocol"
	"arena-brawl/internal/room"
)

// HubOptions configures a Hub.
type HubOptions struct {
	Registry *room.Registry
	Limits   config.ResourceLimits
	Origins  []string
	Logger   *zap.Logger
}

// Hub accepts websocket connections and tracks their sessions. Game state
// lives in the rooms; the hub only owns sockets.
type Hub struct {
	registry *room.Registry
	limits   config.ResourceLimits
	conns    *ConnLimiter
	origins  *OriginChecker
	upgrader websocket.Upgrader
	log      *zap.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
	wg       sync.WaitGroup
}

// NewHub creates a hub. No goroutines run until a client connects.
func NewHub(opts HubOptions) *Hub {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Limits.MaxMessageBytes <= 0 {
		opts.Limits = config.DefaultLimits()
	}
	h := &Hub{
		registry: opts.Registry,
		limits:   opts.Limits,
		conns:    NewConnLimiter(opts.Limits.MaxWSConnections, opts.Limits.MaxWSPerIP),
		origins:  NewOriginChecker(opts.Origins),
		log:      opts.Logger,
		sessions: make(map[string]*Session),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if h.origins.Allow(origin) {
				return true
			}
			h.log.Warn("websocket origin rejected", zap.String("origin", origin))
			metrics.RecordConnectionRejected("origin")
			return false
		},
	}
	return h
}

// HandleWebSocket upgrades the request and starts the session pumps.
// The codec is chosen with ?codec=json|msgpack.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	codec, ok := protocol.CodecByName(r.URL.Query().Get("codec"))
	if !ok {
		metrics.RecordConnectionRejected("invalid")
		writeError(w, "unknown codec", http.StatusBadRequest)
		return
	}

	ip := GetClientIP(r)
	if ok, reason := h.conns.Acquire(ip); !ok {
		h.log.Warn("websocket connection rejected", zap.String("ip", ip), zap.String("reason", reason))
		metrics.RecordConnectionRejected(reason)
		status := http.StatusServiceUnavailable
		if reason == "ws_ip_limit" {
			status = http.StatusTooManyRequests
		}
		http.Error(w, "Too many connections", status)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug("websocket upgrade failed", zap.Error(err))
		h.conns.Release(ip)
		return
	}

	id := uuid.NewString()
	s := &Session{
		id:      id,
		ip:      ip,
		conn:    conn,
		codec:   codec,
		limiter: rate.NewLimiter(rate.Limit(h.limits.MessagesPerSecond), h.limits.MessageBurst),
		hub:     h,
		log:     h.log.With(zap.String("session", id)),
		send:    make(chan []byte, sendBufferSize),
		done:    make(chan struct{}),
	}
	h.register(s)

	_ = s.Send(protocol.TypeConnected, protocol.Connected{PlayerID: id, Codec: codec.Name()})

	h.wg.Add(2)
	go func() {
		defer h.wg.Done()
		s.writePump()
	}()
	go func() {
		defer h.wg.Done()
		s.readPump()
	}()
}

func (h *Hub) register(s *Session) {
	h.mu.Lock()
	h.sessions[s.id] = s
	count := len(h.sessions)
	h.mu.Unlock()

	metrics.SetWSConnections(count)
	h.log.Debug("client connected", zap.String("session", s.id), zap.String("ip", s.ip), zap.Int("total", count))
}

func (h *Hub) unregister(s *Session) {
	h.mu.Lock()
	_, ok := h.sessions[s.id]
	delete(h.sessions, s.id)
	count := len(h.sessions)
	h.mu.Unlock()

	if ok {
		h.conns.Release(s.ip)
		metrics.SetWSConnections(count)
		h.log.Debug("client disconnected", zap.String("session", s.id), zap.Int("remaining", count))
	}
}

// ClientCount returns the number of open sessions.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// Shutdown closes every session and waits for the pumps to exit or ctx to
// expire.
func (h *Hub) Shutdown(ctx context.Context) error {
	h.mu.RLock()
	sessions := make([]*Session, 0, len(h.sessions))
	for _, s := range h.sessions {
		sessions = append(sessions, s)
	}
	h.mu.RUnlock()

	for _, s := range sessions {
		s.close()
	}

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
