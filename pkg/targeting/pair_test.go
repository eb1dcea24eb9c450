package targeting

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestSelector_CountOutOfRange(t *testing.T) {
	s := NewSelector(DefaultCalibration())

	lists := map[string][]Candidate{
		"none":  nil,
		"one":   {highStrip(40, 80)},
		"five":  {highStrip(10, 80), highStrip(40, 80), lowStrip(180, 80), lowStrip(220, 80), lowStrip(260, 80)},
		"eight": make([]Candidate, 8),
	}

	for name, cands := range lists {
		t.Run(name, func(t *testing.T) {
			if _, kept, ok := s.Select(cands); ok || kept != nil {
				t.Errorf("Select() = (%v, %v), want no pair", kept, ok)
			}
		})
	}
}

func TestSelector_TwoCandidates(t *testing.T) {
	s := NewSelector(DefaultCalibration())

	tests := []struct {
		name  string
		cands []Candidate
		want  bool
	}{
		{"high left, low right", []Candidate{highStrip(40, 80), lowStrip(220, 90)}, true},
		{"low left, high right", []Candidate{lowStrip(40, 80), highStrip(220, 90)}, false},
		{"two high", []Candidate{highStrip(40, 80), highStrip(220, 90)}, false},
		{"two low", []Candidate{lowStrip(40, 80), lowStrip(220, 90)}, false},
		{"both left of midline", []Candidate{highStrip(40, 80), lowStrip(120, 90)}, false},
		{"both right of midline", []Candidate{highStrip(170, 80), lowStrip(220, 90)}, false},
		{"left strip on midline", []Candidate{highStrip(160, 80), lowStrip(220, 90)}, false},
		{"right strip on midline", []Candidate{highStrip(40, 80), lowStrip(160, 90)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pair, kept, ok := s.Select(tt.cands)
			if ok != tt.want {
				t.Fatalf("Select() ok = %v, want %v", ok, tt.want)
			}
			if !ok {
				return
			}
			if diff := cmp.Diff(tt.cands, kept); diff != "" {
				t.Errorf("kept mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(Pair{Left: tt.cands[0], Right: tt.cands[1]}, pair); diff != "" {
				t.Errorf("pair mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSelector_ReversedInput(t *testing.T) {
	s := NewSelector(DefaultCalibration())

	tests := []struct {
		name  string
		cands []Candidate
	}{
		{"two", []Candidate{highStrip(40, 80), lowStrip(220, 90)}},
		{"three", []Candidate{lowStrip(20, 80), highStrip(100, 80), lowStrip(200, 90)}},
		{"four", []Candidate{lowStrip(10, 70), highStrip(60, 70), highStrip(140, 80), lowStrip(200, 90)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reversed := make([]Candidate, len(tt.cands))
			for i, c := range tt.cands {
				reversed[len(tt.cands)-1-i] = c
			}

			wantPair, wantKept, wantOK := s.Select(tt.cands)
			gotPair, gotKept, gotOK := s.Select(reversed)

			if !wantOK || !gotOK {
				t.Fatalf("Select() ok = %v (forward), %v (reversed), want both true", wantOK, gotOK)
			}
			if diff := cmp.Diff(wantPair, gotPair); diff != "" {
				t.Errorf("pair mismatch (-forward +reversed):\n%s", diff)
			}
			if diff := cmp.Diff(wantKept, gotKept); diff != "" {
				t.Errorf("kept mismatch (-forward +reversed):\n%s", diff)
			}
		})
	}
}

func TestSelector_ThreeCandidates(t *testing.T) {
	s := NewSelector(DefaultCalibration())

	tests := []struct {
		name      string
		cands     []Candidate
		wantLeft  int
		wantRight int
		wantOK    bool
	}{
		{
			name:      "first split wins, third discarded",
			cands:     []Candidate{highStrip(100, 80), lowStrip(200, 80), highStrip(280, 80)},
			wantLeft:  100,
			wantRight: 200,
			wantOK:    true,
		},
		{
			name:      "second split wins, first discarded",
			cands:     []Candidate{lowStrip(20, 80), highStrip(100, 80), lowStrip(200, 80)},
			wantLeft:  100,
			wantRight: 200,
			wantOK:    true,
		},
		{
			name:   "straddling split has wrong orientation",
			cands:  []Candidate{highStrip(20, 80), lowStrip(100, 80), highStrip(200, 80)},
			wantOK: false,
		},
		{
			name:   "nothing straddles the midline",
			cands:  []Candidate{highStrip(20, 80), lowStrip(60, 80), highStrip(100, 80)},
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pair, kept, ok := s.Select(tt.cands)
			if ok != tt.wantOK {
				t.Fatalf("Select() ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if pair.Left.Box.X != tt.wantLeft || pair.Right.Box.X != tt.wantRight {
				t.Errorf("pair = (%d, %d), want (%d, %d)",
					pair.Left.Box.X, pair.Right.Box.X, tt.wantLeft, tt.wantRight)
			}
			if len(kept) != 2 {
				t.Errorf("kept %d candidates, want 2", len(kept))
			}
		})
	}
}

func TestSelector_FourCandidates(t *testing.T) {
	s := NewSelector(DefaultCalibration())

	tests := []struct {
		name      string
		cands     []Candidate
		wantLeft  int
		wantRight int
	}{
		{
			name:      "split 0-1",
			cands:     []Candidate{highStrip(100, 80), lowStrip(180, 80), highStrip(240, 80), lowStrip(290, 80)},
			wantLeft:  100,
			wantRight: 180,
		},
		{
			name:      "split 1-2",
			cands:     []Candidate{lowStrip(10, 70), highStrip(60, 70), lowStrip(200, 80), highStrip(280, 80)},
			wantLeft:  60,
			wantRight: 200,
		},
		{
			name:      "split 2-3",
			cands:     []Candidate{lowStrip(10, 70), highStrip(60, 70), highStrip(140, 80), lowStrip(200, 90)},
			wantLeft:  140,
			wantRight: 200,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pair, kept, ok := s.Select(tt.cands)
			if !ok {
				t.Fatal("Select() found no pair")
			}
			if pair.Left.Box.X != tt.wantLeft || pair.Right.Box.X != tt.wantRight {
				t.Errorf("pair = (%d, %d), want (%d, %d)",
					pair.Left.Box.X, pair.Right.Box.X, tt.wantLeft, tt.wantRight)
			}
			if diff := cmp.Diff([]Candidate{pair.Left, pair.Right}, kept); diff != "" {
				t.Errorf("kept mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSelector_DoesNotMutateInput(t *testing.T) {
	s := NewSelector(DefaultCalibration())

	in := []Candidate{lowStrip(200, 90), highStrip(100, 80), lowStrip(20, 80)}
	before := append([]Candidate(nil), in...)

	if _, _, ok := s.Select(in); !ok {
		t.Fatal("Select() found no pair")
	}
	if diff := cmp.Diff(before, in); diff != "" {
		t.Errorf("input mutated (-before +after):\n%s", diff)
	}
}
