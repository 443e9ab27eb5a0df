// Package server is the WebSocket transport of the relay.
//
// It upgrades /chat/{username} requests, runs one read pump and one write
// pump per connection, and turns connection activity into relay.Handler
// calls: OnOpen after the upgrade, OnMessage for every decoded frame,
// OnError for malformed frames and unexpected read failures, and exactly one
// OnClose when the read pump stops. It also serves the health check, the
// Prometheus endpoint and a small browser test page.
package server
