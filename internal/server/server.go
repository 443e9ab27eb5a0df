package server

import (
	"context"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Tyrowin/gochat-relay/internal/config"
	"github.com/Tyrowin/gochat-relay/internal/relay"
)

const shutdownReason = "server shutting down"

// Option customizes a Server.
type Option func(*Server)

// WithClock sets the clock driving client deadlines and pings.
func WithClock(clock clockwork.Clock) Option {
	return func(s *Server) { s.clock = clock }
}

// WithGatherer exposes g on GET /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) { s.gatherer = g }
}

// Server accepts WebSocket clients and forwards their lifecycle to a
// relay.Handler. It tracks live clients so Shutdown can close them.
type Server struct {
	cfg      config.Config
	handler  relay.Handler
	log      *slog.Logger
	clock    clockwork.Clock
	gatherer prometheus.Gatherer
	origins  originPolicy
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*Client]struct{}
	closing bool
	wg      sync.WaitGroup
}

// NewServer creates a Server that reports client events to handler.
func NewServer(cfg config.Config, handler relay.Handler, log *slog.Logger, opts ...Option) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{
		cfg:     cfg,
		handler: handler,
		log:     log,
		clock:   clockwork.NewRealClock(),
		origins: newOriginPolicy(cfg.AllowedOrigins, log),
		clients: make(map[*Client]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.origins.checkOrigin,
	}
	return s
}

func (s *Server) clientOptions() ClientOptions {
	return ClientOptions{
		SendBufferSize: s.cfg.SendBufferSize,
		MaxMessageSize: s.cfg.MaxMessageSize,
		RateLimit:      s.cfg.RateLimit,
		Clock:          s.clock,
		Log:            s.log,
	}
}

// ClientCount returns the number of live WebSocket clients.
func (s *Server) ClientCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

func (s *Server) track(c *Client) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closing {
		return false
	}
	s.clients[c] = struct{}{}
	s.wg.Add(1)
	return true
}

func (s *Server) untrack(c *Client) {
	s.mu.Lock()
	delete(s.clients, c)
	s.mu.Unlock()
	s.wg.Done()
}

func (s *Server) isClosing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closing
}

// Shutdown stops accepting clients, closes every live connection with a
// close frame and waits for their pumps to finish or ctx to expire.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closing = true
	clients := make([]*Client, 0, len(s.clients))
	for c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.Unlock()

	s.log.Info("Shutting down client connections", "clients", len(clients))
	for _, c := range clients {
		c.closeWithReason(shutdownReason)
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.log.Info("Client connections closed", "clients", len(clients))
		return nil
	case <-ctx.Done():
		s.log.Warn("Shutdown timeout reached, some client goroutines may still be running")
		return ctx.Err()
	}
}
