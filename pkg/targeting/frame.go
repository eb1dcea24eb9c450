package targeting

import (
	"fmt"
	"math"
)

// Snapshot is everything one frame's evaluation decided. It replaces the
// previous frame's snapshot wholesale.
type Snapshot struct {
	Frame    uint64 `json:"frame"`
	State    State  `json:"state"`
	Previous State  `json:"previous"`

	// Path lists the states passed through while evaluating this frame,
	// ending with State.
	Path []State `json:"path"`

	// Candidates is the orientation-filtered list, reduced to the pair's
	// two candidates when a pair was found.
	Candidates []Candidate `json:"candidates"`

	Pair     *Pair     `json:"pair,omitempty"`
	Estimate *Estimate `json:"estimate,omitempty"`
}

// HasDistance reports whether a distance was computed this frame.
func (s Snapshot) HasDistance() bool {
	return s.Estimate != nil
}

// HasOffset reports whether an offset was computed this frame.
func (s Snapshot) HasOffset() bool {
	return s.Estimate != nil && s.Estimate.HasOffset
}

// Targeter runs one frame through classification, pairing, estimation and
// the state machine.
type Targeter struct {
	cal        Calibration
	classifier *Classifier
	selector   *Selector
	estimator  *Estimator
}

// New creates a targeter for the calibration.
func New(cal Calibration) (*Targeter, error) {
	if err := cal.Validate(); err != nil {
		return nil, err
	}
	return &Targeter{
		cal:        cal,
		classifier: NewClassifier(cal),
		selector:   NewSelector(cal),
		estimator:  NewEstimator(cal),
	}, nil
}

// Calibration returns the record the targeter was built with.
func (t *Targeter) Calibration() Calibration {
	return t.cal
}

// Evaluate decides the new snapshot from this frame's raw candidates.
// Only prev's state and frame number are read; every decision is recomputed.
func (t *Targeter) Evaluate(prev Snapshot, cands []Candidate) Snapshot {
	snap := Snapshot{
		Frame:    prev.Frame + 1,
		Previous: prev.State,
		State:    Searching,
		Path:     []State{Searching},
	}

	filtered := t.classifier.Filter(cands)
	snap.Candidates = filtered
	if len(filtered) == 0 {
		return snap
	}

	pair, kept, ok := t.selector.Select(filtered)
	if !ok {
		return snap
	}
	snap.Candidates = kept
	snap.Pair = &pair
	snap.advance(Acquiring)

	if !t.estimator.WithinSeparation(pair) {
		snap.advance(Searching)
		return snap
	}

	est, ok := t.estimator.Estimate(pair)
	if !ok {
		return snap
	}
	snap.Estimate = &est
	if est.HasOffset {
		snap.advance(Locked)
	}
	return snap
}

func (s *Snapshot) advance(next State) {
	s.State = next
	s.Path = append(s.Path, next)
}

// Status returns the one-line banner text shown on the driver overlay.
func (s Snapshot) Status() string {
	switch {
	case s.State == Locked && s.Estimate != nil:
		e := s.Estimate
		switch {
		case e.OffsetInches < 0:
			return fmt.Sprintf("Target locked @ %d in. away, %.2f in. left of ctr",
				e.RoundedDistance, math.Abs(e.OffsetInches))
		case e.OffsetInches > 0:
			return fmt.Sprintf("Target locked @ %d in. away, %.2f in. right of ctr",
				e.RoundedDistance, e.OffsetInches)
		default:
			return fmt.Sprintf("Target locked @ %d in. away and centered on target", e.RoundedDistance)
		}
	case s.State == Acquiring, s.State == Locked:
		// A lock without an estimate is reported as acquiring.
		return "Acquiring Target"
	default:
		return "Searching..."
	}
}

// CenterLineX returns where to draw the perceived target centre. There is
// no line when no distance was computed or the offset is exactly zero.
func (s Snapshot) CenterLineX() (int, bool) {
	if s.Pair == nil || s.Estimate == nil {
		return 0, false
	}
	c1 := s.Pair.Left.Box.CenterX()
	c2 := s.Pair.Right.Box.CenterX()
	half := int(math.Round(float64(c2-c1) / 2.0))

	switch {
	case s.Estimate.OffsetPixels < 0:
		return c1 + half, true
	case s.Estimate.OffsetPixels > 0:
		return c2 - half, true
	default:
		return 0, false
	}
}
