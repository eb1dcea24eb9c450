package vision

import (
	"image"
	"sort"

	"github.com/frc2228/pigrip/pkg/targeting"
	"gocv.io/x/gocv"
)

// BuildCandidate fits the upright bounding box and the minimum-area
// rotated rectangle of one contour. A degenerate contour yields a
// zero-sized rectangle that classification rejects.
func BuildCandidate(contour gocv.PointVector) targeting.Candidate {
	if contour.Size() == 0 {
		return targeting.Candidate{}
	}
	box := gocv.BoundingRect(contour)
	rr := gocv.MinAreaRect2f(contour)
	return CandidateFromRects(box, rr)
}

// CandidateFromRects converts OpenCV rectangles into a candidate with the
// rotated rectangle in the legacy angle convention.
func CandidateFromRects(box image.Rectangle, rr gocv.RotatedRect2f) targeting.Candidate {
	w, h, angle := LegacyAngle(float64(rr.Width), float64(rr.Height), rr.Angle)
	return targeting.NewCandidate(
		targeting.BoundingBox{
			X:      box.Min.X,
			Y:      box.Min.Y,
			Width:  box.Dx(),
			Height: box.Dy(),
		},
		targeting.RotatedRect{
			CenterX: float64(rr.Center.X),
			CenterY: float64(rr.Center.Y),
			Width:   w,
			Height:  h,
			Angle:   angle,
		},
	)
}

// LegacyAngle maps a rotated rectangle from the OpenCV 4.5.1+ convention,
// angle in (0, 90], to the older [-90, 0) one the angle bands are tuned
// against. Both describe the same rectangle: the angle moves by -90 and
// the sides swap. Angles already at or below zero are returned unchanged.
func LegacyAngle(width, height, angle float64) (w, h, a float64) {
	if angle <= 0 {
		return width, height, angle
	}
	return height, width, angle - 90
}

// SortLeftToRight orders candidates by bounding box X in place.
func SortLeftToRight(cands []targeting.Candidate) {
	sort.SliceStable(cands, func(i, j int) bool {
		return cands[i].Box.X < cands[j].Box.X
	})
}
