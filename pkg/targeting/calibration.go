package targeting

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidCalibration is returned by Calibration.Validate.
var ErrInvalidCalibration = errors.New("targeting: invalid calibration")

// Physical target strip and camera constants measured on the practice field.
const (
	DefaultImageWidth  = 320
	DefaultImageHeight = 240

	// TargetHeightInches and TargetWidthInches describe one tape strip.
	TargetHeightInches = 5.5
	TargetWidthInches  = 2.0

	// LowAngleDegrees is the nominal angle of the "\" strip, HighAngleDegrees of the "/" strip.
	LowAngleDegrees  = -15.0
	HighAngleDegrees = -75.0

	AngleToleranceDegrees = 10.0
	AspectRatioTolerance  = 0.20

	// CameraFOVAngle is passed to math.Tan as-is. Very small changes here
	// move the computed distance by inches.
	CameraFOVAngle = 60.010

	// DistanceCorrectionInches is subtracted from the computed distance.
	// Measured against a tape measure from the camera lens at 1 in. steps.
	DistanceCorrectionInches = 2.0

	// MaxPairSeparationPixels rejects the outer strips of two neighbouring
	// targets seen side by side from far away.
	MaxPairSeparationPixels = 200.0

	MinTableDistance = 18
	MaxTableDistance = 48
)

// pixelsPerInch holds the measured pixels-per-inch rate for every inch from
// MinTableDistance to MaxTableDistance. The strips are 11 1/8 in. apart, so
// the rate is the measured pixel gap divided by 11.125 at each distance.
var pixelsPerInch = [...]float64{
	16.62921348, // 18
	16.0,
	15.5505618,
	14.29213483,
	13.84269663,
	13.21348315,
	12.85393258,
	12.49438202,
	12.13483146,
	11.7752809,
	11.3258427,
	10.96629213,
	10.60674157,
	10.33707865,
	10.06741573,
	9.707865169,
	9.438202247,
	9.078651685,
	8.898876404,
	8.719101124,
	8.539325843,
	8.269662921,
	8.08988764,
	7.91011236,
	7.730337079,
	7.550561798,
	7.280898876,
	7.191011236,
	7.011235955,
	6.921348315,
	6.741573034, // 48
}

// DistanceTable maps a whole-inch distance to a pixels-per-inch rate.
// There is no fallback value and no interpolation between entries.
type DistanceTable struct {
	min   int
	rates []float64
}

// NewDistanceTable builds a table whose first entry is keyed by min.
// The rates slice is copied.
func NewDistanceTable(min int, rates []float64) DistanceTable {
	r := make([]float64, len(rates))
	copy(r, rates)
	return DistanceTable{min: min, rates: r}
}

// DefaultDistanceTable returns the 18..48 in. table.
func DefaultDistanceTable() DistanceTable {
	return NewDistanceTable(MinTableDistance, pixelsPerInch[:])
}

// Min returns the smallest key.
func (t DistanceTable) Min() int { return t.min }

// Max returns the largest key, or Min()-1 for an empty table.
func (t DistanceTable) Max() int { return t.min + len(t.rates) - 1 }

// Contains reports whether inches is a key of the table.
func (t DistanceTable) Contains(inches int) bool {
	return inches >= t.Min() && inches <= t.Max()
}

// Rate returns the pixels-per-inch rate at inches.
func (t DistanceTable) Rate(inches int) (float64, bool) {
	if !t.Contains(inches) {
		return 0, false
	}
	return t.rates[inches-t.min], true
}

// Entries returns a copy of the table as a map, for inspection and JSON.
func (t DistanceTable) Entries() map[int]float64 {
	m := make(map[int]float64, len(t.rates))
	for i, r := range t.rates {
		m[t.min+i] = r
	}
	return m
}

// Band is an inclusive [Min, Max] range.
type Band struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Contains reports whether v is a finite value inside the band.
func (b Band) Contains(v float64) bool {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return false
	}
	return v >= b.Min && v <= b.Max
}

// Around returns nominal ± tolerance.
func Around(nominal, tolerance float64) Band {
	return Band{Min: nominal - tolerance, Max: nominal + tolerance}
}

// Calibration is the immutable record of every empirically tuned constant
// the pipeline uses. Swap it out for different camera or target hardware.
type Calibration struct {
	ImageWidth  int `json:"image_width"`
	ImageHeight int `json:"image_height"`

	TargetHeightInches float64 `json:"target_height_inches"`

	LowAngle        Band `json:"low_angle"`
	HighAngle       Band `json:"high_angle"`
	LowAspectRatio  Band `json:"low_aspect_ratio"`
	HighAspectRatio Band `json:"high_aspect_ratio"`

	FOVAngle                 float64 `json:"fov_angle"`
	DistanceCorrectionInches float64 `json:"distance_correction_inches"`
	MaxSeparationPixels      float64 `json:"max_separation_pixels"`

	Table DistanceTable `json:"-"`
}

// DefaultCalibration returns the calibration for the 320x240 vision camera
// and the 2019 cargo ship / rocket tape targets.
func DefaultCalibration() Calibration {
	lowAspect := TargetHeightInches / TargetWidthInches
	// The "/" strip's min-area rect reports width and height swapped.
	highAspect := TargetWidthInches / TargetHeightInches

	return Calibration{
		ImageWidth:  DefaultImageWidth,
		ImageHeight: DefaultImageHeight,

		TargetHeightInches: TargetHeightInches,

		LowAngle:        Around(LowAngleDegrees, AngleToleranceDegrees),
		HighAngle:       Around(HighAngleDegrees, AngleToleranceDegrees),
		LowAspectRatio:  Around(lowAspect, lowAspect*AspectRatioTolerance),
		HighAspectRatio: Around(highAspect, highAspect*AspectRatioTolerance),

		FOVAngle:                 CameraFOVAngle,
		DistanceCorrectionInches: DistanceCorrectionInches,
		MaxSeparationPixels:      MaxPairSeparationPixels,

		Table: DefaultDistanceTable(),
	}
}

// HalfWidth returns the x coordinate of the image's vertical midline.
func (c Calibration) HalfWidth() float64 {
	return float64(c.ImageWidth) / 2.0
}

// Validate checks the record for values that would make the pipeline
// produce garbage.
func (c Calibration) Validate() error {
	var problems []string

	if c.ImageWidth <= 0 || c.ImageHeight <= 0 {
		problems = append(problems, "image size must be positive")
	}
	if c.TargetHeightInches <= 0 {
		problems = append(problems, "target height must be positive")
	}
	bands := []struct {
		name string
		band Band
	}{
		{"low_angle", c.LowAngle},
		{"high_angle", c.HighAngle},
		{"low_aspect_ratio", c.LowAspectRatio},
		{"high_aspect_ratio", c.HighAspectRatio},
	}
	for _, b := range bands {
		if b.band.Min > b.band.Max {
			problems = append(problems, b.name+" band is inverted")
		}
	}
	if c.LowAngle.Min <= c.HighAngle.Max && c.HighAngle.Min <= c.LowAngle.Max {
		problems = append(problems, "angle bands overlap")
	}
	if t := math.Tan(c.FOVAngle); t == 0 || math.IsNaN(t) || math.IsInf(t, 0) {
		problems = append(problems, "fov angle has no usable tangent")
	}
	if c.MaxSeparationPixels <= 0 {
		problems = append(problems, "max separation must be positive")
	}
	if len(c.Table.rates) == 0 {
		problems = append(problems, "distance table is empty")
	}
	for i, r := range c.Table.rates {
		if r <= 0 {
			problems = append(problems, fmt.Sprintf("table rate at %d in. must be positive", c.Table.min+i))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %v", ErrInvalidCalibration, problems)
	}
	return nil
}
