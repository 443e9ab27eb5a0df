package server

import (
	"context"
	"fmt"
	"net/http"
)

// HealthBody is the literal liveness acknowledgement served on GET /.
const HealthBody = "ping"

// ChatHandler upgrades GET /chat/{username} to a WebSocket and serves the
// client until the connection ends.
func (s *Server) ChatHandler(w http.ResponseWriter, r *http.Request) {
	username := r.PathValue("username")
	if username == "" {
		http.Error(w, "username is required", http.StatusBadRequest)
		return
	}
	if s.isClosing() {
		http.Error(w, "server is shutting down", http.StatusServiceUnavailable)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader has already written the error response.
		s.log.Warn("WebSocket upgrade failed", "username", username, "remote_addr", r.RemoteAddr, "error", err)
		return
	}

	client := NewClient(conn, username, r.RemoteAddr, s.handler, s.clientOptions())
	if !s.track(client) {
		_ = conn.Close()
		return
	}
	defer s.untrack(client)

	client.log.Debug("WebSocket client accepted")
	// The request context ends with this handler; client events must outlive
	// a hijacked connection's cancellation.
	client.run(context.WithoutCancel(r.Context()))
}

// HealthHandler answers liveness probes with a fixed plain-text body.
func HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprint(w, HealthBody)
}

// TestPageHandler serves an HTML page for trying the relay from a browser.
func TestPageHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	_, _ = fmt.Fprint(w, testPage)
}

const testPage = `<!DOCTYPE html>
<html>
<head>
    <title>Relay Test</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; }
        #events { border: 1px solid #ccc; height: 300px; padding: 10px; overflow-y: scroll; margin: 10px 0; background-color: #f9f9f9; }
        #users { color: #555; margin: 10px 0; }
        input[type="text"] { width: 240px; padding: 5px; margin-right: 10px; }
        .status { margin: 10px 0; padding: 5px; border-radius: 3px; }
        .connected { background-color: #d4edda; color: #155724; }
        .disconnected { background-color: #f8d7da; color: #721c24; }
    </style>
</head>
<body>
    <h1>Relay Test</h1>
    <div id="status" class="status disconnected">Disconnected</div>
    <div>
        <input type="text" id="username" placeholder="Username">
        <button id="connectButton" onclick="toggleConnection()">Connect</button>
    </div>
    <div>
        <input type="text" id="messageInput" placeholder="Say something..." disabled>
        <button id="sendButton" onclick="sendMessage()" disabled>Send</button>
    </div>
    <div id="users"></div>
    <div id="events"></div>

    <script>
        let ws = null;
        let username = '';
        const events = document.getElementById('events');
        const users = document.getElementById('users');
        const messageInput = document.getElementById('messageInput');

        function addLine(text, color) {
            const line = document.createElement('div');
            line.style.color = color;
            line.textContent = text;
            events.appendChild(line);
            events.scrollTop = events.scrollHeight;
        }

        function setConnected(connected) {
            const status = document.getElementById('status');
            status.textContent = connected ? 'Connected as ' + username : 'Disconnected';
            status.className = 'status ' + (connected ? 'connected' : 'disconnected');
            messageInput.disabled = !connected;
            document.getElementById('sendButton').disabled = !connected;
            document.getElementById('connectButton').textContent = connected ? 'Disconnect' : 'Connect';
        }

        function render(event) {
            switch (event.type) {
            case 'CONNECT':
                users.textContent = 'Online: ' + (event.connectedUsers || []).join(', ');
                addLine(event.username + ' joined', 'gray');
                break;
            case 'DISCONNECT':
                addLine(event.username + ' left', 'gray');
                break;
            case 'SPEAK':
                addLine(event.username + ': ' + (event.msg || ''), event.username === username ? 'blue' : 'green');
                break;
            }
        }

        function toggleConnection() {
            if (ws && ws.readyState === WebSocket.OPEN) {
                ws.close();
                return;
            }
            username = document.getElementById('username').value.trim();
            if (!username) {
                return;
            }
            const scheme = location.protocol === 'https:' ? 'wss://' : 'ws://';
            ws = new WebSocket(scheme + location.host + '/chat/' + encodeURIComponent(username));
            ws.onopen = function() { setConnected(true); };
            ws.onmessage = function(e) { render(JSON.parse(e.data)); };
            ws.onclose = function() { setConnected(false); ws = null; };
            ws.onerror = function() { addLine('Connection error', 'red'); };
        }

        function sendMessage() {
            const text = messageInput.value.trim();
            if (text && ws && ws.readyState === WebSocket.OPEN) {
                ws.send(JSON.stringify({ type: 'SPEAK', username: username, msg: text }));
                messageInput.value = '';
            }
        }

        messageInput.addEventListener('keypress', function(e) {
            if (e.key === 'Enter') {
                sendMessage();
            }
        });
    </script>
</body>
</html>`
