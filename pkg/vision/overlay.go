package vision

import (
	"fmt"
	"image"
	"image/color"

	"github.com/frc2228/pigrip/pkg/targeting"
	"gocv.io/x/gocv"
)

// Overlay colours.
var (
	ColorGreen  = color.RGBA{0, 255, 0, 0}
	ColorRed    = color.RGBA{255, 0, 0, 0}
	ColorBlue   = color.RGBA{0, 0, 255, 0}
	ColorPurple = color.RGBA{255, 0, 255, 0}
	ColorBlack  = color.RGBA{0, 0, 0, 0}
)

// Overlay layout in pixels.
const (
	bannerHeight  = 15
	lineTop       = 25
	lineBottomGap = 10
)

// Renderer draws the targeting overlay for the driver station stream.
type Renderer struct {
	Quality int // JPEG quality 1-100
}

// NewRenderer creates a renderer encoding at the given JPEG quality.
func NewRenderer(quality int) *Renderer {
	return &Renderer{Quality: quality}
}

// Draw annotates img in place: the image centre line, the pair's boxes,
// the perceived target centre and the status banner.
func (r *Renderer) Draw(img *gocv.Mat, snap targeting.Snapshot) {
	w, h := img.Cols(), img.Rows()

	mid := w / 2
	gocv.Line(img, image.Pt(mid, lineTop), image.Pt(mid, h-lineBottomGap), ColorGreen, 1)

	if snap.Pair != nil {
		gocv.Rectangle(img, boxRect(snap.Pair.Left.Box), ColorBlue, 1)
		gocv.Rectangle(img, boxRect(snap.Pair.Right.Box), ColorPurple, 1)
	}

	if x, ok := snap.CenterLineX(); ok {
		gocv.Line(img, image.Pt(x, lineTop), image.Pt(x, h-lineBottomGap), ColorRed, 1)
	}

	gocv.Rectangle(img, image.Rect(0, 0, w-2, bannerHeight), ColorBlack, -1)
	if snap.State == targeting.Locked {
		gocv.PutText(img, snap.Status(), image.Pt(2, 10), gocv.FontHersheyPlain, 0.7, ColorGreen, 1)
	} else {
		gocv.PutText(img, snap.Status(), image.Pt(2, 10), gocv.FontHersheySimplex, 0.4, ColorRed, 1)
	}
}

// Encode compresses img to JPEG.
func (r *Renderer) Encode(img gocv.Mat) ([]byte, error) {
	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, img, []int{gocv.IMWriteJpegQuality, r.Quality})
	if err != nil {
		return nil, fmt.Errorf("encode overlay: %w", err)
	}
	defer buf.Close()

	data := buf.GetBytes()
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func boxRect(b targeting.BoundingBox) image.Rectangle {
	return image.Rect(b.X, b.Y, b.X+b.Width, b.Y+b.Height)
}
