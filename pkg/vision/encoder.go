package vision

import (
	"context"
	"fmt"

	"gocv.io/x/gocv"
)

// FrameEncoder grabs unannotated frames from a driver camera and encodes
// them for streaming. Grab and Encode must be called from one goroutine.
type FrameEncoder struct {
	src   FrameReader
	enc   *Renderer
	frame gocv.Mat
}

// NewFrameEncoder encodes frames from src at the given JPEG quality.
func NewFrameEncoder(src FrameReader, quality int) *FrameEncoder {
	return &FrameEncoder{
		src:   src,
		enc:   NewRenderer(quality),
		frame: gocv.NewMat(),
	}
}

// Grab blocks for the next frame.
func (e *FrameEncoder) Grab(ctx context.Context) error {
	return e.src.Read(ctx, &e.frame)
}

// Encode compresses the last grabbed frame and returns its size.
func (e *FrameEncoder) Encode() (jpeg []byte, width, height int, err error) {
	if e.frame.Empty() {
		return nil, 0, 0, fmt.Errorf("encode: no frame captured")
	}
	jpeg, err = e.enc.Encode(e.frame)
	return jpeg, e.frame.Cols(), e.frame.Rows(), err
}

// Close releases the frame buffer.
func (e *FrameEncoder) Close() error {
	return e.frame.Close()
}
