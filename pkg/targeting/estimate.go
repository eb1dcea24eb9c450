package targeting

import "math"

// Estimate is the distance and offset computed for one pair.
type Estimate struct {
	// DistanceInches is the corrected distance from the camera to the target.
	DistanceInches float64 `json:"distance_inches"`

	// RoundedDistance is DistanceInches rounded to the nearest inch; it is
	// the lookup table key.
	RoundedDistance int `json:"rounded_distance"`

	// OffsetPixels is half the difference between how far each strip's
	// centre sits from the image midline. Negative means the real centre is
	// to the robot's right of the perceived midpoint.
	OffsetPixels float64 `json:"offset_pixels"`

	// OffsetInches is only meaningful when HasOffset is true.
	OffsetInches float64 `json:"offset_inches"`
	HasOffset    bool    `json:"has_offset"`
}

// Estimator converts a pair's pixel geometry into inches.
type Estimator struct {
	cal     Calibration
	fovCalc float64
}

// NewEstimator creates an estimator. The FOV tangent is computed once.
func NewEstimator(cal Calibration) *Estimator {
	return &Estimator{cal: cal, fovCalc: math.Tan(cal.FOVAngle)}
}

// WithinSeparation reports whether the pair's centres are close enough to
// belong to the same target.
func (e *Estimator) WithinSeparation(p Pair) bool {
	return p.Separation() < e.cal.MaxSeparationPixels
}

// Distance returns the corrected distance in inches for an average strip
// height in pixels. It is NaN or Inf for a non-positive height.
//
//	distance = TargetHeightFeet * ImageHeight / (2 * PixelHeight * tan(FOV))
func (e *Estimator) Distance(avgPixelHeight float64) float64 {
	feet := (e.cal.TargetHeightInches / 12.0) * float64(e.cal.ImageHeight) /
		(2.0 * avgPixelHeight * e.fovCalc)
	return feet*12.0 - e.cal.DistanceCorrectionInches
}

// OffsetPixels returns the signed horizontal offset of the pair's midpoint.
func (e *Estimator) OffsetPixels(p Pair) float64 {
	half := e.cal.HalfWidth()
	delta1 := half - p.Left.CenterX()
	delta2 := p.Right.CenterX() - half
	return (delta2 - delta1) / 2.0
}

// Estimate computes distance and, when the rounded distance is a table key,
// the offset in inches. ok is false when no finite distance exists.
func (e *Estimator) Estimate(p Pair) (est Estimate, ok bool) {
	dist := e.Distance(p.AverageHeight())
	if math.IsNaN(dist) || math.IsInf(dist, 0) {
		return Estimate{}, false
	}

	est = Estimate{
		DistanceInches: dist,
		OffsetPixels:   e.OffsetPixels(p),
	}

	rounded := math.Round(dist)
	if rounded < float64(e.cal.Table.Min()) || rounded > float64(e.cal.Table.Max()) {
		// Keep the key for display without risking an int overflow.
		est.RoundedDistance = clampInt(rounded)
		return est, true
	}
	est.RoundedDistance = int(rounded)

	rate, found := e.cal.Table.Rate(est.RoundedDistance)
	if !found {
		return est, true
	}
	est.OffsetInches = est.OffsetPixels / rate
	est.HasOffset = true
	return est, true
}

func clampInt(v float64) int {
	const limit = 1 << 30
	switch {
	case v > limit:
		return limit
	case v < -limit:
		return -limit
	default:
		return int(v)
	}
}
