package server

import (
	"errors"
	"strings"
)

var (
	// ErrConnectionClosed is returned by Client.Send once the client is closed.
	ErrConnectionClosed = errors.New("connection closed")
	// ErrSendBufferFull is returned by Client.Send when the outgoing queue
	// stayed full until the send context expired.
	ErrSendBufferFull = errors.New("send buffer full")
)

// isExpectedCloseError checks if an error is expected during connection closure.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "websocket: close sent") ||
		strings.Contains(errStr, "broken pipe")
}
