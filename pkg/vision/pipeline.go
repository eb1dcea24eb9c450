// Package vision turns camera frames into targeting candidates and draws
// the driver overlay. It is the only package besides camera that touches
// OpenCV.
package vision

import (
	"image"
	"sort"

	"github.com/frc2228/pigrip/pkg/targeting"
	"gocv.io/x/gocv"
)

// HSVRange is an inclusive HSV threshold. OpenCV hue runs 0-180.
type HSVRange struct {
	HueMin, HueMax float64
	SatMin, SatMax float64
	ValMin, ValMax float64
}

// ContourFilter rejects contours that cannot be a tape strip before any
// rectangle fitting is done.
type ContourFilter struct {
	MinArea      float64
	MinPerimeter float64
	MinWidth     int
	MaxWidth     int
	MinHeight    int
	MaxHeight    int
	MinVertices  int
	MaxVertices  int
	MinRatio     float64 // bounding box width / height
	MaxRatio     float64
}

// PipelineConfig configures threshold and contour filtering.
type PipelineConfig struct {
	Threshold HSVRange
	BlurSize  int // Box blur kernel, 0 to disable
	Filter    ContourFilter

	// MaxContours caps how many contours are converted to candidates. The
	// largest by area are kept.
	MaxContours int
}

// DefaultPipelineConfig returns settings for a green LED ring on
// retro-reflective tape with a dark manual exposure.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		Threshold: HSVRange{
			HueMin: 55, HueMax: 95,
			SatMin: 100, SatMax: 255,
			ValMin: 80, ValMax: 255,
		},
		BlurSize: 0,
		Filter: ContourFilter{
			MinArea:      20,
			MinPerimeter: 10,
			MinWidth:     2,
			MaxWidth:     200,
			MinHeight:    5,
			MaxHeight:    240,
			MinVertices:  4,
			MaxVertices:  1000,
			MinRatio:     0,
			MaxRatio:     3,
		},
		MaxContours: 8,
	}
}

// Accept reports whether a contour with the given measurements passes.
func (f ContourFilter) Accept(area, perimeter float64, box image.Rectangle, vertices int) bool {
	w, h := box.Dx(), box.Dy()
	if area < f.MinArea || perimeter < f.MinPerimeter {
		return false
	}
	if w < f.MinWidth || w > f.MaxWidth || h < f.MinHeight || h > f.MaxHeight {
		return false
	}
	if vertices < f.MinVertices || vertices >= f.MaxVertices {
		return false
	}
	if h == 0 {
		return false
	}
	ratio := float64(w) / float64(h)
	return ratio >= f.MinRatio && ratio <= f.MaxRatio
}

// Pipeline owns the scratch matrices for one camera. It is not safe for
// concurrent use.
type Pipeline struct {
	cfg  PipelineConfig
	blur gocv.Mat
	hsv  gocv.Mat
	mask gocv.Mat
}

// NewPipeline allocates a pipeline.
func NewPipeline(cfg PipelineConfig) *Pipeline {
	return &Pipeline{
		cfg:  cfg,
		blur: gocv.NewMat(),
		hsv:  gocv.NewMat(),
		mask: gocv.NewMat(),
	}
}

// Config returns the pipeline settings.
func (p *Pipeline) Config() PipelineConfig {
	return p.cfg
}

// Threshold writes the binary HSV mask of frame into the pipeline's mask
// and returns it. The returned Mat is owned by the pipeline.
func (p *Pipeline) Threshold(frame gocv.Mat) gocv.Mat {
	src := frame
	if k := p.cfg.BlurSize; k > 1 {
		gocv.Blur(frame, &p.blur, image.Pt(k, k))
		src = p.blur
	}
	gocv.CvtColor(src, &p.hsv, gocv.ColorBGRToHSV)

	t := p.cfg.Threshold
	lower := gocv.NewScalar(t.HueMin, t.SatMin, t.ValMin, 0)
	upper := gocv.NewScalar(t.HueMax, t.SatMax, t.ValMax, 0)
	gocv.InRangeWithScalar(p.hsv, lower, upper, &p.mask)
	return p.mask
}

// Candidates thresholds frame, extracts external contours and converts
// those passing the filter into candidates, ordered left to right.
func (p *Pipeline) Candidates(frame gocv.Mat) []targeting.Candidate {
	if frame.Empty() {
		return nil
	}
	mask := p.Threshold(frame)

	contours := gocv.FindContours(mask, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	type scored struct {
		cand targeting.Candidate
		area float64
	}
	var kept []scored

	for i := 0; i < contours.Size(); i++ {
		contour := contours.At(i)
		area := gocv.ContourArea(contour)
		perimeter := gocv.ArcLength(contour, true)
		box := gocv.BoundingRect(contour)

		if !p.cfg.Filter.Accept(area, perimeter, box, contour.Size()) {
			continue
		}
		kept = append(kept, scored{cand: BuildCandidate(contour), area: area})
	}

	if limit := p.cfg.MaxContours; limit > 0 && len(kept) > limit {
		sort.SliceStable(kept, func(i, j int) bool { return kept[i].area > kept[j].area })
		kept = kept[:limit]
	}

	out := make([]targeting.Candidate, len(kept))
	for i, s := range kept {
		out[i] = s.cand
	}
	SortLeftToRight(out)
	return out
}

// Close releases the scratch matrices.
func (p *Pipeline) Close() error {
	p.blur.Close()
	p.hsv.Close()
	p.mask.Close()
	return nil
}
