package targeting

import (
	"math"
	"testing"
)

// expectedDistance is the distance formula written out longhand.
func expectedDistance(avgHeight float64) float64 {
	feet := (5.5 / 12.0) * 240.0 / (2.0 * avgHeight * math.Tan(60.010))
	return feet*12.0 - 2.0
}

func TestEstimator_DistanceIsPure(t *testing.T) {
	e := NewEstimator(DefaultCalibration())

	first := e.Distance(85)
	for i := 0; i < 10; i++ {
		if got := e.Distance(85); got != first {
			t.Fatalf("call %d: Distance(85) = %v, first call gave %v", i, got, first)
		}
	}
	if math.Abs(first-expectedDistance(85)) > 1e-9 {
		t.Errorf("Distance(85) = %v, want %v", first, expectedDistance(85))
	}
}

func TestEstimator_DistanceShrinksWithHeight(t *testing.T) {
	e := NewEstimator(DefaultCalibration())

	if near, far := e.Distance(100), e.Distance(40); near >= far {
		t.Errorf("Distance(100) = %v should be less than Distance(40) = %v", near, far)
	}
}

func TestEstimator_EndToEndPair(t *testing.T) {
	e := NewEstimator(DefaultCalibration())
	pair := Pair{Left: highStrip(40, 80), Right: lowStrip(220, 90)}

	if got := pair.AverageHeight(); got != 85 {
		t.Fatalf("AverageHeight() = %v, want 85", got)
	}
	if got := pair.Separation(); got != 180 {
		t.Fatalf("Separation() = %v, want 180", got)
	}
	if !e.WithinSeparation(pair) {
		t.Fatal("WithinSeparation() = false for 180 px")
	}

	est, ok := e.Estimate(pair)
	if !ok {
		t.Fatal("Estimate() ok = false")
	}
	if math.Abs(est.DistanceInches-expectedDistance(85)) > 1e-9 {
		t.Errorf("DistanceInches = %v, want %v", est.DistanceInches, expectedDistance(85))
	}
	if est.RoundedDistance != 21 {
		t.Errorf("RoundedDistance = %d, want 21", est.RoundedDistance)
	}
	// delta1 = 160-50 = 110, delta2 = 230-160 = 70.
	if est.OffsetPixels != -20 {
		t.Errorf("OffsetPixels = %v, want -20", est.OffsetPixels)
	}
	if !est.HasOffset {
		t.Fatal("HasOffset = false")
	}
	if want := -20 / 14.29213483; math.Abs(est.OffsetInches-want) > 1e-12 {
		t.Errorf("OffsetInches = %v, want %v", est.OffsetInches, want)
	}
}

func TestEstimator_TableBoundaries(t *testing.T) {
	e := NewEstimator(DefaultCalibration())

	tests := []struct {
		name        string
		height      int
		wantRounded int
		wantOffset  bool
		wantRate    float64
	}{
		{"rounds to 18", 100, 18, true, 16.62921348},
		{"rounds to 48", 40, 48, true, 6.741573034},
		{"rounds to 17", 105, 17, false, 0},
		{"rounds to 49", 39, 49, false, 0},
		{"far away", 20, 98, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pair := Pair{Left: highStrip(40, tt.height), Right: lowStrip(220, tt.height)}

			est, ok := e.Estimate(pair)
			if !ok {
				t.Fatal("Estimate() ok = false")
			}
			if est.RoundedDistance != tt.wantRounded {
				t.Fatalf("RoundedDistance = %d (%.3f in.), want %d",
					est.RoundedDistance, est.DistanceInches, tt.wantRounded)
			}
			if est.HasOffset != tt.wantOffset {
				t.Fatalf("HasOffset = %v, want %v", est.HasOffset, tt.wantOffset)
			}
			if tt.wantOffset {
				if want := est.OffsetPixels / tt.wantRate; est.OffsetInches != want {
					t.Errorf("OffsetInches = %v, want %v", est.OffsetInches, want)
				}
			} else if est.OffsetInches != 0 {
				t.Errorf("OffsetInches = %v without an offset", est.OffsetInches)
			}
		})
	}
}

func TestEstimator_OffsetSign(t *testing.T) {
	e := NewEstimator(DefaultCalibration())

	tests := []struct {
		name string
		pair Pair
		sign int
	}{
		// Left strip farther from centre than right.
		{"left farther", Pair{Left: highStrip(40, 80), Right: lowStrip(220, 80)}, -1},
		{"right farther", Pair{Left: highStrip(120, 80), Right: lowStrip(260, 80)}, 1},
		{"symmetric", Pair{Left: highStrip(90, 80), Right: lowStrip(210, 80)}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.OffsetPixels(tt.pair)
			switch {
			case tt.sign < 0 && got >= 0, tt.sign > 0 && got <= 0, tt.sign == 0 && got != 0:
				t.Errorf("OffsetPixels() = %v, want sign %d", got, tt.sign)
			}
		})
	}
}

func TestEstimator_SeparationCap(t *testing.T) {
	e := NewEstimator(DefaultCalibration())

	tests := []struct {
		name string
		pair Pair
		want bool
	}{
		{"close", Pair{Left: highStrip(100, 80), Right: lowStrip(200, 80)}, true},
		{"just under", Pair{Left: highStrip(40, 80), Right: lowStrip(239, 80)}, true},
		{"exactly at cap", Pair{Left: highStrip(40, 80), Right: lowStrip(240, 80)}, false},
		{"two targets side by side", Pair{Left: highStrip(10, 40), Right: lowStrip(290, 40)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := e.WithinSeparation(tt.pair); got != tt.want {
				t.Errorf("WithinSeparation() = %v (separation %.0f), want %v",
					got, tt.pair.Separation(), tt.want)
			}
		})
	}
}

func TestEstimator_ZeroHeight(t *testing.T) {
	e := NewEstimator(DefaultCalibration())
	pair := Pair{Left: highStrip(40, 0), Right: lowStrip(220, 0)}

	if _, ok := e.Estimate(pair); ok {
		t.Error("Estimate() ok = true for zero-height boxes")
	}
}
