package server

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tyrowin/gochat-relay/internal/metrics"
	"github.com/Tyrowin/gochat-relay/internal/registry"
	"github.com/Tyrowin/gochat-relay/internal/relay"
)

// TestHealthHandler verifies the fixed liveness body and content type.
func TestHealthHandler(t *testing.T) {
	rr := httptest.NewRecorder()
	HealthHandler(rr, httptest.NewRequest(http.MethodGet, "/", http.NoBody))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "text/plain", rr.Header().Get("Content-Type"))
	assert.Equal(t, "ping", rr.Body.String())
}

func TestRoutes(t *testing.T) {
	promRegistry := prometheus.NewRegistry()
	relayMetrics := metrics.NewRelayMetrics(promRegistry)
	engine := relay.NewEngine(discardLogger(), registry.New(), relayMetrics, 0)
	srv := NewServer(testConfig(), engine, discardLogger(), WithGatherer(promRegistry))
	ts := httptest.NewServer(srv.Routes())
	defer ts.Close()

	tests := []struct {
		name           string
		method         string
		path           string
		expectedStatus int
		expectedType   string
		expectedBody   string
	}{
		{name: "health", method: http.MethodGet, path: "/", expectedStatus: http.StatusOK, expectedType: "text/plain", expectedBody: "ping"},
		{name: "health rejects POST", method: http.MethodPost, path: "/", expectedStatus: http.StatusMethodNotAllowed},
		{name: "unknown path", method: http.MethodGet, path: "/nope", expectedStatus: http.StatusNotFound},
		{name: "chat without username", method: http.MethodGet, path: "/chat/", expectedStatus: http.StatusNotFound},
		{name: "chat without upgrade", method: http.MethodGet, path: "/chat/alice", expectedStatus: http.StatusBadRequest},
		{name: "test page", method: http.MethodGet, path: "/test", expectedStatus: http.StatusOK, expectedType: "text/html"},
		{name: "metrics", method: http.MethodGet, path: "/metrics", expectedStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(tt.method, ts.URL+tt.path, http.NoBody)
			require.NoError(t, err)

			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.expectedStatus, resp.StatusCode)
			if tt.expectedType != "" {
				assert.Equal(t, tt.expectedType, resp.Header.Get("Content-Type"))
			}
			if tt.expectedBody != "" {
				body, err := io.ReadAll(resp.Body)
				require.NoError(t, err)
				assert.Equal(t, tt.expectedBody, string(body))
			}
		})
	}
}

func TestRoutes_MetricsDisabledWithoutGatherer(t *testing.T) {
	srv := NewServer(testConfig(), relay.NewEngine(discardLogger(), registry.New(), nil, 0), discardLogger())

	rr := httptest.NewRecorder()
	srv.Routes().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestChatHandler_RequiresUsername(t *testing.T) {
	srv := NewServer(testConfig(), relay.NewEngine(discardLogger(), registry.New(), nil, 0), discardLogger())

	rr := httptest.NewRecorder()
	srv.ChatHandler(rr, httptest.NewRequest(http.MethodGet, "/chat/", http.NoBody))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestTestPageHandler(t *testing.T) {
	rr := httptest.NewRecorder()
	TestPageHandler(rr, httptest.NewRequest(http.MethodGet, "/test", http.NoBody))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "/chat/")
	assert.Contains(t, rr.Body.String(), "connectedUsers")
}
