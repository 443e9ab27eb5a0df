package server

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/Tyrowin/gochat-relay/internal/config"
	"github.com/Tyrowin/gochat-relay/internal/message"
	"github.com/Tyrowin/gochat-relay/internal/registry"
	"github.com/Tyrowin/gochat-relay/internal/relay"
)

const (
	testOriginURL = "http://localhost:8080"
	readTimeout   = 2 * time.Second
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() config.Config {
	cfg := config.Default()
	cfg.AllowedOrigins = []string{testOriginURL}
	cfg.SendTimeout = time.Second
	cfg.RateLimit = config.RateLimitConfig{Burst: 100, RefillInterval: time.Second}
	return cfg
}

// recordingHandler forwards to the wrapped handler and keeps every error it
// was told about.
type recordingHandler struct {
	relay.Handler
	mu   sync.Mutex
	errs []error
}

func (h *recordingHandler) OnError(username string, err error) {
	h.mu.Lock()
	h.errs = append(h.errs, err)
	h.mu.Unlock()
	h.Handler.OnError(username, err)
}

func (h *recordingHandler) recorded() []error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]error(nil), h.errs...)
}

type relayFixture struct {
	srv      *Server
	reg      *registry.Registry
	handler  *recordingHandler
	httpURL  string
	wsURL    string
	shutdown func()
}

// startRelay runs a Server backed by a real engine behind an httptest server.
func startRelay(t *testing.T, cfg config.Config, opts ...Option) *relayFixture {
	t.Helper()

	log := discardLogger()
	reg := registry.New()
	handler := &recordingHandler{Handler: relay.NewEngine(log, reg, nil, cfg.SendTimeout)}
	srv := NewServer(cfg, handler, log, opts...)
	ts := httptest.NewServer(srv.Routes())

	var once sync.Once
	shutdown := func() {
		once.Do(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(ctx)
			ts.Close()
		})
	}
	t.Cleanup(shutdown)

	return &relayFixture{
		srv:      srv,
		reg:      reg,
		handler:  handler,
		httpURL:  ts.URL,
		wsURL:    "ws" + strings.TrimPrefix(ts.URL, "http"),
		shutdown: shutdown,
	}
}

// dial opens a WebSocket for username with optional request headers.
func dial(t *testing.T, f *relayFixture, username string, header http.Header) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	dialer := websocket.Dialer{HandshakeTimeout: 5 * time.Second}
	conn, resp, err := dialer.Dial(f.wsURL+"/chat/"+username, header)
	if resp != nil {
		_ = resp.Body.Close()
	}
	if conn != nil {
		t.Cleanup(func() { _ = conn.Close() })
	}
	return conn, resp, err
}

// join connects username and consumes events until its own CONNECT arrives.
func join(t *testing.T, f *relayFixture, username string) *websocket.Conn {
	t.Helper()
	conn, _, err := dial(t, f, username, nil)
	require.NoError(t, err)

	for {
		m := readEvent(t, conn)
		if m.Type == message.Connect && m.Username == username {
			return conn
		}
	}
}

func readRaw(t *testing.T, conn *websocket.Conn) string {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(readTimeout)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	return string(data)
}

func readEvent(t *testing.T, conn *websocket.Conn) message.Message {
	t.Helper()
	m, err := message.Decode([]byte(readRaw(t, conn)))
	require.NoError(t, err)
	return m
}

// expectNoMessage fails if anything arrives within wait. The connection is
// unusable for reads afterwards.
func expectNoMessage(t *testing.T, conn *websocket.Conn, wait time.Duration) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(wait)))
	_, data, err := conn.ReadMessage()
	if err == nil {
		t.Fatalf("expected no message, got %s", data)
	}
}

func closeWebSocket(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	err := conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	require.NoError(t, err)
	_ = conn.Close()
}
