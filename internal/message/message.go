// Package message defines the event envelope exchanged between the relay and
// its clients, together with its JSON wire encoding.
package message

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Type identifies the kind of event carried by a Message.
type Type string

const (
	// Connect announces that a user joined. It carries the connected user list.
	Connect Type = "CONNECT"
	// Disconnect announces that a user left.
	Disconnect Type = "DISCONNECT"
	// Speak carries a chat line from a connected user.
	Speak Type = "SPEAK"
)

// ErrMalformed is returned by Decode when the payload is not a JSON message object.
var ErrMalformed = errors.New("malformed message")

// Message is the JSON event exchanged over the wire. Msg and ConnectedUsers
// are left out of the encoded form when empty.
type Message struct {
	Type           Type     `json:"type"`
	Username       string   `json:"username"`
	Msg            string   `json:"msg,omitempty"`
	ConnectedUsers []string `json:"connectedUsers,omitempty"`
}

// NewConnect builds the CONNECT event for username with the given user list.
func NewConnect(username string, connectedUsers []string) Message {
	return Message{
		Type:           Connect,
		Username:       username,
		ConnectedUsers: connectedUsers,
	}
}

// NewDisconnect builds the DISCONNECT event for username.
func NewDisconnect(username string) Message {
	return Message{Type: Disconnect, Username: username}
}

// Encode serializes m to its wire form.
func Encode(m Message) ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode %s message: %w", m.Type, err)
	}
	return data, nil
}

// Decode parses a wire payload. Unknown fields are ignored.
func Decode(data []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(data, &m); err != nil {
		return Message{}, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	return m, nil
}
