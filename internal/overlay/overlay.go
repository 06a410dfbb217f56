package overlay

import (
	"fmt"
	"image"

	"github.com/andresmejia3/samaritan/internal/capture"
	"github.com/andresmejia3/samaritan/internal/types"
	"gocv.io/x/gocv"
)

// Glyph selects the locator symbol drawn over each face.
type Glyph string

const (
	GlyphSamaritan Glyph = "samaritan"
	GlyphMachine   Glyph = "machine"
)

// ParseGlyph validates a glyph name.
func ParseGlyph(s string) (Glyph, error) {
	switch g := Glyph(s); g {
	case GlyphSamaritan, GlyphMachine:
		return g, nil
	}
	return "", fmt.Errorf("invalid glyph '%s'. Must be one of: samaritan, machine", s)
}

// Renderer draws resolved annotations onto camera frames.
type Renderer struct {
	Glyph          Glyph
	Font           gocv.HersheyFont
	FontScale      float64
	TextThickness  int
	Padding        int
	LabelOffset    int
	LabelOpacity   float64
	GlyphThickness int
	MachineOpacity float64
}

// NewRenderer returns a renderer with the stock label style.
func NewRenderer(g Glyph) *Renderer {
	return &Renderer{
		Glyph:          g,
		Font:           gocv.FontHersheyDuplex,
		FontScale:      0.52,
		TextThickness:  1,
		Padding:        5,
		LabelOffset:    10,
		LabelOpacity:   0.1,
		GlyphThickness: 2,
		MachineOpacity: 0.4,
	}
}

// Render draws every annotation onto the frame in place.
func (r *Renderer) Render(f *capture.Frame, anns []types.ResolvedAnnotation) {
	for _, a := range anns {
		r.Draw(&f.Mat, a)
	}
}

// Draw renders the locator symbol, then the label.
func (r *Renderer) Draw(img *gocv.Mat, a types.ResolvedAnnotation) {
	switch r.Glyph {
	case GlyphMachine:
		r.drawMachine(img, a.Box, a.Color)
	default:
		r.drawSamaritan(img, a.Box, a.Color)
	}
	r.drawLabel(img, a)
}

func (r *Renderer) drawSamaritan(img *gocv.Mat, b types.Box, c types.Color) {
	g := samaritanGeometry(b)
	gray := types.GlyphGray.RGBA()
	th := r.GlyphThickness

	pts := gocv.NewPointsVectorFromPoints([][]image.Point{g.Triangle[:]})
	defer pts.Close()
	gocv.Polylines(img, pts, true, c.RGBA(), th)

	gocv.Circle(img, g.Center, g.Radius, gray, th)
	gocv.Circle(img, g.Center, g.Inner, gray, th)
	gocv.Line(img, g.LeftTick[0], g.LeftTick[1], gray, th)
	gocv.Line(img, g.RightTick[0], g.RightTick[1], gray, th)
	gocv.Circle(img, g.Center, g.Dot, gray, th)
}

func (r *Renderer) drawMachine(img *gocv.Mat, b types.Box, c types.Color) {
	g := machineGeometry(b)
	col := c.RGBA()
	x1, y1, x2, y2 := b.Left, b.Top, b.Right, b.Bottom
	mid := center(b)
	heavy := g.Thickness * 2

	gocv.Line(img, image.Pt(mid.X, y1), image.Pt(mid.X, y1+10), col, heavy)
	gocv.Line(img, image.Pt(mid.X, y2), image.Pt(mid.X, y2-10), col, heavy)
	gocv.Line(img, image.Pt(x1, mid.Y), image.Pt(x1+10, mid.Y), col, heavy)
	gocv.Line(img, image.Pt(x2, mid.Y), image.Pt(x2-10, mid.Y), col, heavy)

	rr := g.Radius * 2
	axes := image.Pt(rr, rr)
	gocv.Ellipse(img, image.Pt(x1+rr, y1+rr), axes, 180, 0, 90, col, heavy)
	gocv.Ellipse(img, image.Pt(x2-rr, y1+rr), axes, 270, 0, 90, col, heavy)
	gocv.Ellipse(img, image.Pt(x2-rr, y2-rr), axes, 0, 0, 90, col, heavy)
	gocv.Ellipse(img, image.Pt(x1+rr, y2-rr), axes, 90, 0, 90, col, heavy)

	layer := img.Clone()
	defer layer.Close()
	for _, d := range dashes(x1+g.Radius, x2-g.Radius, g.Dash) {
		gocv.Line(&layer, image.Pt(d[0], y1), image.Pt(d[1], y1), col, g.Thickness)
		gocv.Line(&layer, image.Pt(d[0], y2), image.Pt(d[1], y2), col, g.Thickness)
	}
	for _, d := range dashes(y1+g.Radius, y2-g.Radius, g.Dash) {
		gocv.Line(&layer, image.Pt(x1, d[0]), image.Pt(x1, d[1]), col, g.Thickness)
		gocv.Line(&layer, image.Pt(x2, d[0]), image.Pt(x2, d[1]), col, g.Thickness)
	}
	gocv.AddWeighted(layer, r.MachineOpacity, *img, 1-r.MachineOpacity, 5, img)
}

func (r *Renderer) drawLabel(img *gocv.Mat, a types.ResolvedAnnotation) {
	size, baseline := gocv.GetTextSizeWithBaseline(a.Label, r.Font, r.FontScale, r.TextThickness)
	l := layoutLabel(a.Box, size, baseline, r.Padding, r.LabelOffset)

	// Tint only the visible part of the background; labels may hang off the frame.
	bg := l.Background.Intersect(image.Rect(0, 0, img.Cols(), img.Rows()))
	if !bg.Empty() {
		roi := img.Region(bg)
		tint := gocv.NewMatWithSizeFromScalar(scalar(a.Color), bg.Dy(), bg.Dx(), img.Type())
		gocv.AddWeighted(tint, r.LabelOpacity, roi, 1-r.LabelOpacity, 0, &roi)
		tint.Close()
		roi.Close()
	}

	gocv.PutText(img, a.Label, l.Text, r.Font, r.FontScale, a.Color.RGBA(), r.TextThickness)
}

// scalar converts a BGR triple into an OpenCV scalar, which is BGR as well.
func scalar(c types.Color) gocv.Scalar {
	return gocv.NewScalar(float64(c[0]), float64(c[1]), float64(c[2]), 0)
}
