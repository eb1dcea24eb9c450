package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/frc2228/pigrip/internal/log"
	"github.com/frc2228/pigrip/pkg/camera"
)

// Grabber reads and encodes frames from a driver camera.
// *vision.FrameEncoder satisfies it.
type Grabber interface {
	Grab(ctx context.Context) error
	Encode() (jpeg []byte, width, height int, err error)
}

// FrameSink receives encoded driver camera frames.
type FrameSink interface {
	SendFrame(camera string, frame uint64, width, height int, jpeg []byte) error
}

// StreamStats counts what a streamer has done.
type StreamStats struct {
	Frames  uint64 `json:"frames"`
	Sent    uint64 `json:"sent"`
	Skipped uint64 `json:"skipped"`
}

// Streamer forwards a driver camera's frames to the dashboard without
// running them through the targeting pipeline.
type Streamer struct {
	name  string
	src   Grabber
	sink  FrameSink
	every int
	retry time.Duration
	log   *slog.Logger

	frames  atomic.Uint64
	sent    atomic.Uint64
	skipped atomic.Uint64
}

// NewStreamer streams every Nth frame of src to sink. every below 1 is
// treated as 1.
func NewStreamer(name string, src Grabber, sink FrameSink, every int, retry time.Duration) *Streamer {
	if every < 1 {
		every = 1
	}
	return &Streamer{
		name:  name,
		src:   src,
		sink:  sink,
		every: every,
		retry: retry,
		log:   log.Component("stream").With("camera", name),
	}
}

// Name returns the camera name.
func (s *Streamer) Name() string {
	return s.name
}

// Run streams until ctx is done or the camera closes. It returns ctx.Err()
// or camera.ErrClosed.
func (s *Streamer) Run(ctx context.Context) error {
	s.log.Info("camera stream started", "every", s.every)
	defer s.log.Info("camera stream stopped", "frames", s.frames.Load(), "sent", s.sent.Load())

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := s.step(ctx)
		switch {
		case err == nil:
			continue
		case ctx.Err() != nil:
			return ctx.Err()
		case errors.Is(err, camera.ErrClosed):
			return err
		}

		n := s.skipped.Add(1)
		if errors.Is(err, camera.ErrEmptyFrame) {
			s.log.Debug("empty frame", "skipped", n)
		} else {
			s.log.Warn("frame skipped", "error", err, "skipped", n)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.retry):
		}
	}
}

func (s *Streamer) step(ctx context.Context) error {
	if err := s.src.Grab(ctx); err != nil {
		return err
	}
	n := s.frames.Add(1)
	if n%uint64(s.every) != 0 {
		return nil
	}

	jpeg, w, h, err := s.src.Encode()
	if err != nil {
		return err
	}
	if err := s.sink.SendFrame(s.name, n, w, h, jpeg); err != nil {
		s.log.Warn("frame send failed", "frame", n, "error", err)
		return nil
	}
	s.sent.Add(1)
	return nil
}

// Stats returns the streamer's counters.
func (s *Streamer) Stats() StreamStats {
	return StreamStats{
		Frames:  s.frames.Load(),
		Sent:    s.sent.Load(),
		Skipped: s.skipped.Load(),
	}
}
