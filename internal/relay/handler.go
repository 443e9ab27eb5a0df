package relay

import (
	"context"

	"github.com/Tyrowin/gochat-relay/internal/message"
	"github.com/Tyrowin/gochat-relay/internal/registry"
)

// Handler receives the lifecycle events of client connections. A transport
// calls OnOpen once, then OnMessage zero or more times, then OnClose once for
// every connection. OnError may be called at any point in between.
type Handler interface {
	OnOpen(ctx context.Context, username string, conn registry.Connection)
	OnMessage(ctx context.Context, username string, msg message.Message)
	OnClose(ctx context.Context, username string)
	OnError(username string, err error)
}

// Observer is told about every finished broadcast and registry size change.
type Observer interface {
	ObserveBroadcast(report Report)
	SetConnected(n int)
}

type nopObserver struct{}

func (nopObserver) ObserveBroadcast(Report) {}
func (nopObserver) SetConnected(int)        {}
