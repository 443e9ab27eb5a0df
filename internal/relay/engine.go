package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Tyrowin/gochat-relay/internal/message"
	"github.com/Tyrowin/gochat-relay/internal/registry"
)

// DefaultSendTimeout bounds a single delivery when no timeout is configured.
const DefaultSendTimeout = 5 * time.Second

// ErrSendPanic is recorded for a delivery whose connection panicked in Send.
var ErrSendPanic = errors.New("connection panicked during send")

// Engine registers connections and broadcasts presence and chat events to
// every connection in the registry. It is safe for concurrent use.
type Engine struct {
	log         *slog.Logger
	registry    *registry.Registry
	observer    Observer
	sendTimeout time.Duration
}

var _ Handler = (*Engine)(nil)

// NewEngine returns an Engine backed by reg. A nil observer disables
// instrumentation and a non-positive sendTimeout uses DefaultSendTimeout.
func NewEngine(log *slog.Logger, reg *registry.Registry, observer Observer, sendTimeout time.Duration) *Engine {
	if log == nil {
		log = slog.Default()
	}
	if observer == nil {
		observer = nopObserver{}
	}
	if sendTimeout <= 0 {
		sendTimeout = DefaultSendTimeout
	}
	return &Engine{
		log:         log,
		registry:    reg,
		observer:    observer,
		sendTimeout: sendTimeout,
	}
}

// OnOpen registers conn for username and announces the join to everyone,
// the newcomer included. The announced user list and the recipients come
// from the same snapshot.
func (e *Engine) OnOpen(ctx context.Context, username string, conn registry.Connection) {
	e.registry.Put(username, conn)
	entries := e.registry.Snapshot()
	e.observer.SetConnected(len(entries))
	e.log.Info("User connected", "username", username, "connected", len(entries))

	e.deliver(ctx, message.NewConnect(username, registry.Names(entries)), entries)
}

// OnMessage broadcasts msg as a SPEAK event. Whatever type the client sent is
// replaced; the remaining fields are relayed as received.
func (e *Engine) OnMessage(ctx context.Context, username string, msg message.Message) {
	msg.Type = message.Speak
	e.log.Debug("User spoke", "username", username)
	e.broadcast(ctx, msg)
}

// OnClose unregisters username and announces the departure to the remaining
// connections.
func (e *Engine) OnClose(ctx context.Context, username string) {
	e.registry.Remove(username)
	e.observer.SetConnected(e.registry.Len())
	e.log.Info("User disconnected", "username", username)

	e.broadcast(ctx, message.NewDisconnect(username))
}

// OnError logs a transport error. The connection stays registered until the
// transport closes it.
func (e *Engine) OnError(username string, err error) {
	e.log.Error("Connection error", "username", username, "error", err)
}

// broadcast delivers msg to a fresh snapshot of the registry.
func (e *Engine) broadcast(ctx context.Context, msg message.Message) Report {
	return e.deliver(ctx, msg, e.registry.Snapshot())
}

// deliver encodes msg once and sends it to every entry concurrently. It
// returns after every attempt finished or hit the send timeout.
func (e *Engine) deliver(ctx context.Context, msg message.Message, entries []registry.Entry) Report {
	start := time.Now()
	report := Report{Type: msg.Type}

	payload, err := message.Encode(msg)
	if err != nil {
		e.log.Error("Dropping broadcast", "type", msg.Type, "username", msg.Username, "error", err)
		return report
	}

	report.Deliveries = make([]Delivery, len(entries))
	var wg sync.WaitGroup
	for i, entry := range entries {
		wg.Add(1)
		go func() {
			defer wg.Done()
			report.Deliveries[i] = e.send(ctx, entry, payload)
		}()
	}
	wg.Wait()
	report.Duration = time.Since(start)

	for _, failure := range report.Failures() {
		e.log.Warn("Delivery failed", "type", msg.Type, "recipient", failure.Username, "error", failure.Err)
	}
	e.log.Debug("Broadcast finished",
		"type", msg.Type,
		"username", msg.Username,
		"delivered", report.Delivered(),
		"failed", report.Failed())
	e.observer.ObserveBroadcast(report)
	return report
}

func (e *Engine) send(ctx context.Context, entry registry.Entry, payload []byte) (d Delivery) {
	d.Username = entry.Username
	defer func() {
		if r := recover(); r != nil {
			d.Err = fmt.Errorf("%w: %v", ErrSendPanic, r)
		}
	}()

	sendCtx, cancel := context.WithTimeout(ctx, e.sendTimeout)
	defer cancel()
	if err := entry.Conn.Send(sendCtx, payload); err != nil {
		d.Err = fmt.Errorf("send to %s: %w", entry.Username, err)
	}
	return d
}
