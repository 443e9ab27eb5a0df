package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"golang.org/x/time/rate"

	"github.com/Tyrowin/gochat-relay/internal/config"
	"github.com/Tyrowin/gochat-relay/internal/message"
	"github.com/Tyrowin/gochat-relay/internal/registry"
	"github.com/Tyrowin/gochat-relay/internal/relay"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
)

// ClientOptions carries the per-connection tunables.
type ClientOptions struct {
	SendBufferSize int
	MaxMessageSize int64
	RateLimit      config.RateLimitConfig
	Clock          clockwork.Clock
	Log            *slog.Logger
}

// Client is one WebSocket connection bound to a username. It implements
// registry.Connection: Send queues a payload for the write pump.
type Client struct {
	id       string
	username string
	addr     string
	conn     *websocket.Conn
	handler  relay.Handler
	limiter  *rate.Limiter
	clock    clockwork.Clock
	log      *slog.Logger

	maxMessageSize int64
	rateLimit      config.RateLimitConfig

	send        chan []byte
	done        chan struct{}
	writerDone  chan struct{}
	closeOnce   sync.Once
	closeReason string
}

var _ registry.Connection = (*Client)(nil)

// NewClient creates a Client for conn. The pumps are started by run.
func NewClient(conn *websocket.Conn, username, addr string, handler relay.Handler, opts ClientOptions) *Client {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Log == nil {
		opts.Log = slog.Default()
	}
	if opts.SendBufferSize <= 0 {
		opts.SendBufferSize = 256
	}
	id := uuid.NewString()

	return &Client{
		id:             id,
		username:       username,
		addr:           addr,
		conn:           conn,
		handler:        handler,
		limiter:        newLimiter(opts.RateLimit),
		clock:          opts.Clock,
		log:            opts.Log.With("username", username, "conn_id", id, "remote_addr", addr),
		maxMessageSize: opts.MaxMessageSize,
		rateLimit:      opts.RateLimit,
		send:           make(chan []byte, opts.SendBufferSize),
		done:           make(chan struct{}),
		writerDone:     make(chan struct{}),
	}
}

func newLimiter(cfg config.RateLimitConfig) *rate.Limiter {
	if cfg.Burst <= 0 || cfg.RefillInterval <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Every(cfg.RefillInterval/time.Duration(cfg.Burst)), cfg.Burst)
}

// ID returns the unique identifier of this connection.
func (c *Client) ID() string {
	return c.id
}

// Username returns the username the client connected with.
func (c *Client) Username() string {
	return c.username
}

// Send queues payload for delivery. It waits for queue space until ctx is
// done and never blocks on the network.
func (c *Client) Send(ctx context.Context, payload []byte) error {
	select {
	case <-c.done:
		return ErrConnectionClosed
	default:
	}

	select {
	case c.send <- payload:
		return nil
	case <-c.done:
		return ErrConnectionClosed
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrSendBufferFull, ctx.Err())
	}
}

// Close stops the write pump, sends a close frame when possible and closes
// the connection. It is safe to call more than once.
func (c *Client) Close() {
	c.closeWithReason("")
}

func (c *Client) closeWithReason(reason string) {
	c.closeOnce.Do(func() {
		c.closeReason = reason
		close(c.done)
		<-c.writerDone
		c.closeConnection()
	})
}

// run starts the write pump, announces the client and blocks in the read
// pump until the connection ends.
func (c *Client) run(ctx context.Context) {
	go c.writePump()
	c.handler.OnOpen(ctx, c.username, c)
	c.readPump(ctx)
}

// setupReadConnection configures read limit, deadlines and pong handler for the WebSocket connection
func (c *Client) setupReadConnection() {
	if c.maxMessageSize > 0 {
		c.conn.SetReadLimit(c.maxMessageSize)
	}
	if err := c.conn.SetReadDeadline(c.clock.Now().Add(pongWait)); err != nil {
		c.log.Warn("Error setting initial read deadline", "error", err)
	}
	c.conn.SetPongHandler(func(string) error {
		if err := c.conn.SetReadDeadline(c.clock.Now().Add(pongWait)); err != nil {
			c.log.Warn("Error setting read deadline in pong handler", "error", err)
		}
		return nil
	})
}

// handleReadError logs the read failure and reports whether it is abnormal
// and should be surfaced as a transport error.
func (c *Client) handleReadError(err error) bool {
	if errors.Is(err, websocket.ErrReadLimit) {
		c.log.Warn("Message exceeded maximum size", "limit", c.maxMessageSize)
		return true
	}

	if websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived,
		websocket.CloseAbnormalClosure) {
		c.log.Debug("Client disconnected", "reason", err)
		return false
	}

	if errors.Is(err, io.EOF) || isExpectedCloseError(err) {
		c.log.Debug("Client connection closed", "reason", err)
		return false
	}

	c.log.Warn("WebSocket read error", "error", err)
	return true
}

// checkRateLimit verifies if the client has exceeded rate limits
// and returns true if the message should be processed
func (c *Client) checkRateLimit() bool {
	if c.limiter != nil && !c.limiter.Allow() {
		c.log.Warn("Rate limit exceeded; discarding message",
			"burst", c.rateLimit.Burst,
			"interval", c.rateLimit.RefillInterval)
		return false
	}
	return true
}

// processMessage decodes a raw frame and hands it to the handler. Frames that
// do not decode are reported through OnError and dropped.
func (c *Client) processMessage(ctx context.Context, raw []byte) {
	msg, err := message.Decode(raw)
	if err != nil {
		c.handler.OnError(c.username, err)
		return
	}
	c.handler.OnMessage(ctx, c.username, msg)
}

func (c *Client) readPump(ctx context.Context) {
	defer func() {
		c.handler.OnClose(ctx, c.username)
		c.Close()
	}()

	c.setupReadConnection()

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if c.handleReadError(err) {
				c.handler.OnError(c.username, err)
			}
			return
		}

		if !c.checkRateLimit() {
			continue
		}

		c.processMessage(ctx, raw)
	}
}

func (c *Client) writePump() {
	ticker := c.clock.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.closeConnection()
		close(c.writerDone)
	}()

	for c.processWriteEvent(ticker) {
	}
}

// processWriteEvent waits for the next write event and returns false when the
// pump should stop processing.
func (c *Client) processWriteEvent(ticker clockwork.Ticker) bool {
	select {
	case payload := <-c.send:
		return c.writeTextMessage(payload)
	case <-ticker.Chan():
		return c.handlePing()
	case <-c.done:
		c.writeCloseMessage()
		return false
	}
}

// closeConnection safely closes the WebSocket connection with proper error handling
func (c *Client) closeConnection() {
	if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
		c.log.Warn("Error closing connection", "error", err)
	}
}

func (c *Client) setWriteDeadline() bool {
	if err := c.conn.SetWriteDeadline(c.clock.Now().Add(writeWait)); err != nil {
		c.log.Warn("Error setting write deadline", "error", err)
		return false
	}
	return true
}

// writeCloseMessage sends a close frame carrying the close reason
func (c *Client) writeCloseMessage() {
	if !c.setWriteDeadline() {
		return
	}
	frame := websocket.FormatCloseMessage(websocket.CloseNormalClosure, c.closeReason)
	if err := c.conn.WriteMessage(websocket.CloseMessage, frame); err != nil && !isExpectedCloseError(err) {
		c.log.Debug("Error writing close message", "error", err)
	}
}

// writeTextMessage writes one queued event as a single text frame
func (c *Client) writeTextMessage(payload []byte) bool {
	if !c.setWriteDeadline() {
		return false
	}
	if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		if !isExpectedCloseError(err) {
			c.log.Warn("Error writing message", "error", err)
		}
		return false
	}
	return true
}

// handlePing sends a ping message to keep the connection alive
func (c *Client) handlePing() bool {
	if !c.setWriteDeadline() {
		return false
	}
	if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		c.log.Warn("Error writing ping message", "error", err)
		return false
	}
	return true
}
