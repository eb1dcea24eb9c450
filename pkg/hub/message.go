// Package hub provides a thread-safe websocket broadcast hub
// using the idiomatic Go channel-based fan-out pattern.
package hub

import (
	"encoding/json"

	"github.com/frc2228/pigrip/pkg/protocol"
)

// Message is one pre-encoded JSON text frame to broadcast to clients
type Message struct {
	Data []byte
}

// NewJSONMessage creates a message from pre-encoded JSON bytes
func NewJSONMessage(data []byte) Message {
	return Message{Data: data}
}

// FromProtocol encodes a protocol message for broadcast.
func FromProtocol(msg *protocol.Message) (Message, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return Message{}, err
	}
	return NewJSONMessage(data), nil
}
