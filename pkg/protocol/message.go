// Package protocol defines the WebSocket message types exchanged between the
// vision coprocessor, the robot controller and the driver dashboard.
package protocol

import (
	"encoding/json"
	"fmt"
	"time"
)

// MessageType identifies the type of WebSocket message
type MessageType string

const (
	// Coprocessor → robot / dashboard messages
	TypeHello     MessageType = "hello"     // Session announcement
	TypeTargeting MessageType = "targeting" // Per-frame targeting table
	TypeOverlay   MessageType = "overlay"   // Annotated JPEG frame
	TypeFrame     MessageType = "frame"     // Raw JPEG frame from a driver camera

	// Bidirectional
	TypePing MessageType = "ping" // Health check
	TypePong MessageType = "pong" // Health check response
)

// TableName is the telemetry table the targeting keys live in.
const TableName = "datatable"

// Message is the base wrapper for all WebSocket messages
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp int64           `json:"ts,omitempty"` // Unix milliseconds
	Data      json.RawMessage `json:"data,omitempty"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(msgType MessageType, data interface{}) (*Message, error) {
	var rawData json.RawMessage
	if data != nil {
		var err error
		rawData, err = json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal message data: %w", err)
		}
	}

	return &Message{
		Type:      msgType,
		Timestamp: time.Now().UnixMilli(),
		Data:      rawData,
	}, nil
}

// ParseData unmarshals the message data into the provided struct
func (m *Message) ParseData(v interface{}) error {
	if m.Data == nil {
		return nil
	}
	return json.Unmarshal(m.Data, v)
}

// Bytes returns the JSON-encoded message
func (m *Message) Bytes() ([]byte, error) {
	return json.Marshal(m)
}

// ParseMessage parses a JSON message from bytes
func ParseMessage(data []byte) (*Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}
	if msg.Type == "" {
		return nil, fmt.Errorf("failed to parse message: missing type")
	}
	return &msg, nil
}

// =============================================================================
// Coprocessor → Robot Message Types
// =============================================================================

// HelloData is sent once per connection.
type HelloData struct {
	Session string `json:"session"` // UUID, new per process start
	Team    int    `json:"team"`
	Camera  string `json:"camera"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
}

// TargetingData mirrors the telemetry table. Keys keep their robot-side
// names. A distance or offset is only rewritten on frames that computed one;
// DistanceFrame and OffsetFrame say which frame that was.
type TargetingData struct {
	Table         string  `json:"table"`
	Frame         uint64  `json:"frame"`
	TargState     int     `json:"targState"` // 0 searching, 1 acquiring, 2 locked
	DistTargetIn  float64 `json:"distTargetIn"`
	HorzOffToIn   float64 `json:"horzOffToIn"`
	DistanceFrame uint64  `json:"distFrame,omitempty"`
	OffsetFrame   uint64  `json:"offFrame,omitempty"`
	Status        string  `json:"status,omitempty"`
}

// DistanceFresh reports whether the distance was computed this frame.
func (d *TargetingData) DistanceFresh() bool {
	return d.DistanceFrame != 0 && d.DistanceFrame == d.Frame
}

// OffsetFresh reports whether the offset was computed this frame.
func (d *TargetingData) OffsetFresh() bool {
	return d.OffsetFrame != 0 && d.OffsetFrame == d.Frame
}

// FrameData contains an overlay or camera frame
type FrameData struct {
	Camera  string `json:"camera,omitempty"` // set on camera frames
	Width   int    `json:"width"`
	Height  int    `json:"height"`
	Format  string `json:"format"` // "jpeg"
	Data    string `json:"data"`   // base64 encoded
	FrameID uint64 `json:"frame_id,omitempty"`
}

// =============================================================================
// Bidirectional Message Types
// =============================================================================

// PingData contains ping information
type PingData struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"ts"`
}

// PongData contains pong response
type PongData struct {
	ID        string `json:"id"`
	PingTS    int64  `json:"ping_ts"`
	PongTS    int64  `json:"pong_ts"`
	LatencyMs int64  `json:"latency_ms"`
}
