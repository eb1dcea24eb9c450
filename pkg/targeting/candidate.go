// Package targeting decides, one camera frame at a time, whether the robot
// is looking at a valid pair of vision tape strips and, if so, how far away
// the target is and how far off centre.
//
// The package is pure: it has no camera, OpenCV, or network dependencies.
// Candidates come in, a Snapshot comes out.
package targeting

import "math"

// BoundingBox is an axis-aligned rectangle in pixel space.
type BoundingBox struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// CenterX returns the horizontal centre in whole pixels.
func (b BoundingBox) CenterX() int {
	return b.X + b.Width/2
}

// Empty reports whether the box has no area.
func (b BoundingBox) Empty() bool {
	return b.Width <= 0 || b.Height <= 0
}

// RotatedRect is a minimum-area rectangle. Angle is in degrees using the
// legacy OpenCV convention [-90, 0).
type RotatedRect struct {
	CenterX float64 `json:"center_x"`
	CenterY float64 `json:"center_y"`
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`
	Angle   float64 `json:"angle"`
}

// Candidate is one contour's geometry, considered as a possible tape strip.
type Candidate struct {
	Box  BoundingBox `json:"box"`
	Rect RotatedRect `json:"rect"`
}

// NewCandidate builds a candidate from its two rectangles.
func NewCandidate(box BoundingBox, rect RotatedRect) Candidate {
	return Candidate{Box: box, Rect: rect}
}

// AspectRatio returns rotated height over rotated width. A zero width gives
// NaN or Inf, which the classifier rejects.
func (c Candidate) AspectRatio() float64 {
	if c.Rect.Width == 0 {
		if c.Rect.Height == 0 {
			return math.NaN()
		}
		return math.Inf(1)
	}
	return c.Rect.Height / c.Rect.Width
}

// Angle returns the rotated rectangle's angle in degrees.
func (c Candidate) Angle() float64 {
	return c.Rect.Angle
}

// CenterX returns the bounding box centre in pixels.
func (c Candidate) CenterX() float64 {
	return float64(c.Box.CenterX())
}
