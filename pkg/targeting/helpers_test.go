package targeting

// Rotated rect sizes whose aspect ratios hit the nominal values exactly
// (11/4 = 2.75, 4/11 ≈ 0.364).
func highStrip(x, height int) Candidate {
	return NewCandidate(
		BoundingBox{X: x, Y: 100, Width: 20, Height: height},
		RotatedRect{CenterX: float64(x + 10), CenterY: 140, Width: 11, Height: 4, Angle: HighAngleDegrees},
	)
}

func lowStrip(x, height int) Candidate {
	return NewCandidate(
		BoundingBox{X: x, Y: 95, Width: 20, Height: height},
		RotatedRect{CenterX: float64(x + 10), CenterY: 140, Width: 4, Height: 11, Angle: LowAngleDegrees},
	)
}

func mustTargeter(t interface{ Fatalf(string, ...any) }) *Targeter {
	tg, err := New(DefaultCalibration())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return tg
}
