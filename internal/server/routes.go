package server

import (
	"net/http"

	"github.com/Tyrowin/gochat-relay/internal/metrics"
)

// Routes configures and returns an HTTP ServeMux with all application routes:
// the health check on exactly "/", the chat endpoint, the test page and,
// when a gatherer is configured, the Prometheus endpoint.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", HealthHandler)
	mux.HandleFunc("GET /chat/{username}", s.ChatHandler)
	mux.HandleFunc("GET /test", TestPageHandler)
	if s.gatherer != nil {
		mux.Handle("GET /metrics", metrics.Handler(s.gatherer))
	}
	return mux
}
