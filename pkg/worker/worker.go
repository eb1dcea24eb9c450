// Package worker runs the per-camera frame loop: pull a frame, extract
// candidates, evaluate targeting, publish. Frames are processed strictly one
// after another.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/frc2228/pigrip/internal/log"
	"github.com/frc2228/pigrip/pkg/camera"
	"github.com/frc2228/pigrip/pkg/protocol"
	"github.com/frc2228/pigrip/pkg/targeting"
	"github.com/frc2228/pigrip/pkg/telemetry"
)

// Vision produces one frame's candidates and renders the overlay for the
// same frame. *vision.Processor satisfies it.
type Vision interface {
	Next(ctx context.Context) ([]targeting.Candidate, error)
	Overlay(snap targeting.Snapshot) ([]byte, error)
}

// Sink receives the telemetry table after every frame.
type Sink interface {
	Send(data protocol.TargetingData) error
}

// OverlaySink receives encoded overlay frames tagged with the frame number
// of the targeting data they were drawn from.
type OverlaySink interface {
	SendOverlay(frame uint64, jpeg []byte)
}

// Config holds worker tuning.
type Config struct {
	// OverlayEvery renders the overlay on every Nth frame. 0 disables it.
	OverlayEvery int

	// RetryDelay is how long to wait after a frame could not be read.
	RetryDelay time.Duration
}

// DefaultConfig renders every frame and retries a failed grab after 10ms.
func DefaultConfig() Config {
	return Config{
		OverlayEvery: 1,
		RetryDelay:   10 * time.Millisecond,
	}
}

// Stats counts what the worker has done.
type Stats struct {
	Frames       uint64 `json:"frames"`
	Skipped      uint64 `json:"skipped"`
	Overlays     uint64 `json:"overlays"`
	SinkErrors   uint64 `json:"sink_errors"`
	StateChanges uint64 `json:"state_changes"`
}

// Worker owns the frame loop for one camera.
type Worker struct {
	cfg      Config
	vision   Vision
	targeter *targeting.Targeter
	table    *telemetry.Table
	sinks    []Sink
	overlay  OverlaySink
	log      *slog.Logger

	mu   sync.Mutex
	last targeting.Snapshot

	frames       atomic.Uint64
	skipped      atomic.Uint64
	overlays     atomic.Uint64
	sinkErrors   atomic.Uint64
	stateChanges atomic.Uint64
}

// Option configures a Worker.
type Option func(*Worker)

// WithSinks adds telemetry sinks.
func WithSinks(sinks ...Sink) Option {
	return func(w *Worker) {
		w.sinks = append(w.sinks, sinks...)
	}
}

// WithOverlay sends rendered overlay frames to sink.
func WithOverlay(sink OverlaySink) Option {
	return func(w *Worker) {
		w.overlay = sink
	}
}

// New creates a worker. The table is written after every frame.
func New(cfg Config, v Vision, t *targeting.Targeter, table *telemetry.Table, opts ...Option) *Worker {
	w := &Worker{
		cfg:      cfg,
		vision:   v,
		targeter: t,
		table:    table,
		log:      log.Component("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run processes frames until ctx is done or the camera closes. It returns
// ctx.Err() or camera.ErrClosed.
func (w *Worker) Run(ctx context.Context) error {
	w.log.Info("frame loop started", "sinks", len(w.sinks), "overlay", w.overlay != nil)
	defer w.log.Info("frame loop stopped", "frames", w.frames.Load(), "skipped", w.skipped.Load())

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		_, err := w.Step(ctx)
		switch {
		case err == nil:
			continue
		case ctx.Err() != nil:
			return ctx.Err()
		case errors.Is(err, camera.ErrClosed):
			return err
		}

		n := w.skipped.Add(1)
		if errors.Is(err, camera.ErrEmptyFrame) {
			w.log.Debug("empty frame", "skipped", n)
		} else {
			w.log.Warn("frame skipped", "error", err, "skipped", n)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(w.cfg.RetryDelay):
		}
	}
}

// Step processes exactly one frame and returns its snapshot.
func (w *Worker) Step(ctx context.Context) (targeting.Snapshot, error) {
	cands, err := w.vision.Next(ctx)
	if err != nil {
		return targeting.Snapshot{}, err
	}

	w.mu.Lock()
	snap := w.targeter.Evaluate(w.last, cands)
	w.last = snap
	w.mu.Unlock()
	w.frames.Add(1)

	w.table.Publish(snap)
	w.report(snap, len(cands))

	data := w.table.Data()
	for _, sink := range w.sinks {
		if err := sink.Send(data); err != nil {
			w.sinkErrors.Add(1)
			if !errors.Is(err, telemetry.ErrNotConnected) {
				w.log.Warn("telemetry send failed", "error", err)
			}
		}
	}

	if w.overlay != nil && w.cfg.OverlayEvery > 0 && snap.Frame%uint64(w.cfg.OverlayEvery) == 0 {
		jpeg, err := w.vision.Overlay(snap)
		if err != nil {
			w.log.Warn("overlay render failed", "frame", snap.Frame, "error", err)
		} else {
			w.overlays.Add(1)
			w.overlay.SendOverlay(snap.Frame, jpeg)
		}
	}

	return snap, nil
}

func (w *Worker) report(snap targeting.Snapshot, raw int) {
	if snap.State != snap.Previous {
		w.stateChanges.Add(1)
		w.log.Info("target state changed",
			"from", snap.Previous.String(),
			"to", snap.State.String(),
			"frame", snap.Frame,
			"status", snap.Status(),
		)
	}
	w.log.Debug("frame evaluated",
		"frame", snap.Frame,
		"raw", raw,
		"kept", len(snap.Candidates),
		"path", snap.Path,
	)
}

// Last returns the most recent snapshot.
func (w *Worker) Last() targeting.Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.last
}

// Stats returns the worker's counters.
func (w *Worker) Stats() Stats {
	return Stats{
		Frames:       w.frames.Load(),
		Skipped:      w.skipped.Load(),
		Overlays:     w.overlays.Load(),
		SinkErrors:   w.sinkErrors.Load(),
		StateChanges: w.stateChanges.Load(),
	}
}
