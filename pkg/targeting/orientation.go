package targeting

import "math"

// Orientation is the strip identity inferred from angle and aspect ratio.
type Orientation int

const (
	// Unclassified candidates are dropped from the frame.
	Unclassified Orientation = iota
	// LowAngle strips sit near -15°.
	LowAngle
	// HighAngle strips sit near -75°.
	HighAngle
)

// String returns the orientation name.
func (o Orientation) String() string {
	switch o {
	case LowAngle:
		return "low"
	case HighAngle:
		return "high"
	default:
		return "unclassified"
	}
}

// Classifier sorts candidates into orientation classes.
type Classifier struct {
	cal Calibration
}

// NewClassifier creates a classifier using the calibration's bands.
func NewClassifier(cal Calibration) *Classifier {
	return &Classifier{cal: cal}
}

// Classify returns the candidate's orientation. The low and high tests are
// independent: a candidate inside the low angle band that fails the low
// aspect band is not retried against the high bands.
func (cl *Classifier) Classify(c Candidate) Orientation {
	if !usable(c.Rect) {
		return Unclassified
	}

	angle := c.Angle()
	aspect := c.AspectRatio()

	if cl.cal.LowAngle.Contains(angle) {
		if cl.cal.LowAspectRatio.Contains(aspect) {
			return LowAngle
		}
		return Unclassified
	}
	if cl.cal.HighAngle.Contains(angle) {
		if cl.cal.HighAspectRatio.Contains(aspect) {
			return HighAngle
		}
	}
	return Unclassified
}

// Filter keeps the classifiable candidates in their original order.
func (cl *Classifier) Filter(cands []Candidate) []Candidate {
	out := make([]Candidate, 0, len(cands))
	for _, c := range cands {
		if cl.Classify(c) != Unclassified {
			out = append(out, c)
		}
	}
	return out
}

// ValidPair reports whether left and right can be the two strips of one
// target. Only a high-angle strip on the left with a low-angle strip on the
// right is accepted; that is how the converging strips present on the field.
func (cl *Classifier) ValidPair(left, right Candidate) bool {
	return cl.Classify(left) == HighAngle && cl.Classify(right) == LowAngle
}

func usable(r RotatedRect) bool {
	for _, v := range []float64{r.Width, r.Height, r.Angle} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return r.Width > 0 && r.Height > 0
}
