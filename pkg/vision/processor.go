package vision

import (
	"context"
	"fmt"

	"github.com/frc2228/pigrip/pkg/targeting"
	"gocv.io/x/gocv"
)

// Processor runs one camera's frames through the pipeline and renders the
// overlay onto the same frame. Next and Overlay must be called from one
// goroutine, in that order.
type Processor struct {
	src      FrameReader
	pipeline *Pipeline
	renderer *Renderer
	frame    gocv.Mat
}

// NewProcessor wires a frame reader to a pipeline and renderer.
func NewProcessor(src FrameReader, pipeline *Pipeline, renderer *Renderer) *Processor {
	return &Processor{
		src:      src,
		pipeline: pipeline,
		renderer: renderer,
		frame:    gocv.NewMat(),
	}
}

// Next blocks for the next frame and returns its candidates.
func (p *Processor) Next(ctx context.Context) ([]targeting.Candidate, error) {
	if err := p.src.Read(ctx, &p.frame); err != nil {
		return nil, err
	}
	return p.pipeline.Candidates(p.frame), nil
}

// Overlay draws snap onto the frame last returned by Next and encodes it.
func (p *Processor) Overlay(snap targeting.Snapshot) ([]byte, error) {
	if p.frame.Empty() {
		return nil, fmt.Errorf("overlay: no frame captured")
	}
	p.renderer.Draw(&p.frame, snap)
	return p.renderer.Encode(p.frame)
}

// Close releases the frame buffer and the pipeline.
func (p *Processor) Close() error {
	p.frame.Close()
	return p.pipeline.Close()
}
