// Package telemetry publishes per-frame targeting results to the robot.
//
// Table holds the latest values. It has exactly one writer, the vision
// worker, and any number of readers. Each field is its own atomic word, so
// a reader sees the old or the new value of a field but never a torn one.
// Fields are not updated together as one unit.
package telemetry

import (
	"math"
	"sync/atomic"

	"github.com/frc2228/pigrip/pkg/protocol"
	"github.com/frc2228/pigrip/pkg/targeting"
)

// Table is the coprocessor's targeting table.
type Table struct {
	name string

	frame     atomic.Uint64
	state     atomic.Int64
	distance  atomic.Uint64 // math.Float64bits
	offset    atomic.Uint64 // math.Float64bits
	distFrame atomic.Uint64
	offFrame  atomic.Uint64
	status    atomic.Pointer[string]
}

// NewTable creates an empty table. An empty name uses protocol.TableName.
func NewTable(name string) *Table {
	if name == "" {
		name = protocol.TableName
	}
	t := &Table{name: name}
	status := targeting.Snapshot{}.Status()
	t.status.Store(&status)
	return t
}

// Name returns the table name.
func (t *Table) Name() string {
	return t.name
}

// Publish writes one frame's results. The state is written every frame.
// The distance is written whenever one was computed, even if the offset was
// not; the offset only when it was computed. Values not rewritten keep
// their last value and their frame stamp says how old they are.
func (t *Table) Publish(s targeting.Snapshot) {
	if s.HasDistance() {
		t.distance.Store(math.Float64bits(s.Estimate.DistanceInches))
		t.distFrame.Store(s.Frame)
	}
	if s.HasOffset() {
		t.offset.Store(math.Float64bits(s.Estimate.OffsetInches))
		t.offFrame.Store(s.Frame)
	}
	status := s.Status()
	t.status.Store(&status)
	t.state.Store(int64(s.State))
	t.frame.Store(s.Frame)
}

// Frame returns the number of the last published frame.
func (t *Table) Frame() uint64 {
	return t.frame.Load()
}

// State returns the last published targeting state.
func (t *Table) State() targeting.State {
	return targeting.State(t.state.Load())
}

// Distance returns the last published distance in inches and whether one
// has ever been published.
func (t *Table) Distance() (float64, bool) {
	return math.Float64frombits(t.distance.Load()), t.distFrame.Load() != 0
}

// Offset returns the last published horizontal offset in inches and whether
// one has ever been published.
func (t *Table) Offset() (float64, bool) {
	return math.Float64frombits(t.offset.Load()), t.offFrame.Load() != 0
}

// Data reads the table into its wire form.
func (t *Table) Data() protocol.TargetingData {
	return protocol.TargetingData{
		Table:         t.name,
		Frame:         t.frame.Load(),
		TargState:     int(t.state.Load()),
		DistTargetIn:  math.Float64frombits(t.distance.Load()),
		HorzOffToIn:   math.Float64frombits(t.offset.Load()),
		DistanceFrame: t.distFrame.Load(),
		OffsetFrame:   t.offFrame.Load(),
		Status:        *t.status.Load(),
	}
}
