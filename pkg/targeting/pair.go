package targeting

// MinCandidates and MaxCandidates bound the list sizes the selector pairs.
const (
	MinCandidates = 2
	MaxCandidates = 4
)

// Pair is the two candidates judged to be one target's strips.
type Pair struct {
	Left  Candidate `json:"left"`
	Right Candidate `json:"right"`
}

// Separation returns the horizontal distance between the two box centres.
func (p Pair) Separation() float64 {
	d := p.Right.CenterX() - p.Left.CenterX()
	if d < 0 {
		return -d
	}
	return d
}

// AverageHeight returns the mean bounding box height in pixels.
func (p Pair) AverageHeight() float64 {
	return (float64(p.Left.Box.Height) + float64(p.Right.Box.Height)) / 2.0
}

// Selector picks the target pair out of a frame's classified candidates.
type Selector struct {
	cal        Calibration
	classifier *Classifier
}

// NewSelector creates a selector.
func NewSelector(cal Calibration) *Selector {
	return &Selector{cal: cal, classifier: NewClassifier(cal)}
}

// Select finds the target pair in cands, which must already be orientation
// filtered. It returns the pair and the reduced candidate list holding just
// those two. cands is never modified.
//
// Neighbouring splits are tried left to right and the first one that
// straddles the image midline with a valid orientation wins.
func (s *Selector) Select(cands []Candidate) (Pair, []Candidate, bool) {
	n := len(cands)
	if n < MinCandidates || n > MaxCandidates {
		return Pair{}, nil, false
	}

	ordered := LeftToRight(cands)

	for i := 0; i+1 < n; i++ {
		left, right := ordered[i], ordered[i+1]
		if !s.straddles(left, right) {
			continue
		}
		if !s.classifier.ValidPair(left, right) {
			continue
		}
		return Pair{Left: left, Right: right}, []Candidate{left, right}, true
	}
	return Pair{}, nil, false
}

// straddles reports whether left starts left of the midline and right
// starts right of it.
func (s *Selector) straddles(left, right Candidate) bool {
	mid := s.cal.HalfWidth()
	return float64(left.Box.X) < mid && float64(right.Box.X) > mid
}

// LeftToRight returns a copy of cands, reversed when the source delivered
// them right to left (first box starts after the last).
func LeftToRight(cands []Candidate) []Candidate {
	out := make([]Candidate, len(cands))
	copy(out, cands)
	if len(out) < 2 || out[0].Box.X <= out[len(out)-1].Box.X {
		return out
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}
