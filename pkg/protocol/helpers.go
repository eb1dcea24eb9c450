package protocol

import (
	"encoding/base64"
	"time"
)

// =============================================================================
// Helper functions for creating messages
// =============================================================================

// NewHelloMessage creates a session announcement
func NewHelloMessage(hello HelloData) (*Message, error) {
	return NewMessage(TypeHello, hello)
}

// NewTargetingMessage creates a targeting table message
func NewTargetingMessage(data TargetingData) (*Message, error) {
	if data.Table == "" {
		data.Table = TableName
	}
	return NewMessage(TypeTargeting, data)
}

// NewOverlayMessage creates an overlay frame message from JPEG data. The
// frame ID matches the targeting message the overlay was drawn from.
func NewOverlayMessage(width, height int, jpegData []byte, frameID uint64) (*Message, error) {
	return NewMessage(TypeOverlay, newFrameData("", width, height, jpegData, frameID))
}

// NewCameraFrameMessage creates a raw frame message for a driver camera
func NewCameraFrameMessage(camera string, width, height int, jpegData []byte, frameID uint64) (*Message, error) {
	return NewMessage(TypeFrame, newFrameData(camera, width, height, jpegData, frameID))
}

func newFrameData(camera string, width, height int, jpegData []byte, frameID uint64) FrameData {
	return FrameData{
		Camera:  camera,
		Width:   width,
		Height:  height,
		Format:  "jpeg",
		Data:    base64.StdEncoding.EncodeToString(jpegData),
		FrameID: frameID,
	}
}

// NewPongMessage creates a pong response message
func NewPongMessage(id string, pingTS, pongTS int64) (*Message, error) {
	return NewMessage(TypePong, PongData{
		ID:        id,
		PingTS:    pingTS,
		PongTS:    pongTS,
		LatencyMs: pongTS - pingTS,
	})
}

// Pong builds the response to a ping message.
func Pong(ping *Message) (*Message, error) {
	data, err := ping.GetPingData()
	if err != nil {
		return nil, err
	}
	return NewPongMessage(data.ID, data.Timestamp, time.Now().UnixMilli())
}

// =============================================================================
// Helper functions for parsing messages
// =============================================================================

// GetHelloData extracts hello data from a message
func (m *Message) GetHelloData() (*HelloData, error) {
	var data HelloData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetTargetingData extracts targeting data from a message
func (m *Message) GetTargetingData() (*TargetingData, error) {
	var data TargetingData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetFrameData extracts overlay or camera frame data from a message
func (m *Message) GetFrameData() (*FrameData, error) {
	var data FrameData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// DecodeFrameData decodes the base64 image data
func (f *FrameData) DecodeFrameData() ([]byte, error) {
	return base64.StdEncoding.DecodeString(f.Data)
}

// GetPingData extracts ping data from a message
func (m *Message) GetPingData() (*PingData, error) {
	var data PingData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}

// GetPongData extracts pong data from a message
func (m *Message) GetPongData() (*PongData, error) {
	var data PongData
	if err := m.ParseData(&data); err != nil {
		return nil, err
	}
	return &data, nil
}
