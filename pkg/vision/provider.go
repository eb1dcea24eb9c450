package vision

import (
	"context"

	"gocv.io/x/gocv"
)

// FrameReader is a blocking source of camera frames.
type FrameReader interface {
	Read(ctx context.Context, dst *gocv.Mat) error
}
