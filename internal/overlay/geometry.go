package overlay

import (
	"image"
	"math"

	"github.com/andresmejia3/samaritan/internal/types"
)

// floorDiv divides rounding toward negative infinity, so boxes that were
// rescaled past the frame origin still get a consistent centre.
func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func center(b types.Box) image.Point {
	return image.Pt(floorDiv(b.Left+b.Right, 2), floorDiv(b.Top+b.Bottom, 2))
}

// samaritanGlyph is the inverted triangle inside a double ring.
type samaritanGlyph struct {
	Center    image.Point
	Radius    int
	Inner     int
	Dot       int
	Triangle  [3]image.Point // bottom, top-left, top-right
	LeftTick  [2]image.Point
	RightTick [2]image.Point
}

func samaritanGeometry(b types.Box) samaritanGlyph {
	c := center(b)
	radius := floorDiv(b.Right-b.Left, 2)
	half := int(math.Floor(float64(radius) * 1.2 / 2))
	tick := int(float64(radius) * 0.3)
	gap := int(float64(radius) * 0.15)

	return samaritanGlyph{
		Center: c,
		Radius: radius,
		Inner:  int(float64(radius) * 0.9),
		Dot:    int(float64(radius) * 0.05),
		Triangle: [3]image.Point{
			{c.X, c.Y + half},
			{c.X - half, c.Y - half},
			{c.X + half, c.Y - half},
		},
		LeftTick:  [2]image.Point{{c.X - radius + gap, c.Y}, {c.X - radius + gap + tick, c.Y}},
		RightTick: [2]image.Point{{c.X + radius - gap, c.Y}, {c.X + radius - gap - tick, c.Y}},
	}
}

// labelLayout places the name to the right of the box at its vertical middle.
type labelLayout struct {
	Text       image.Point // baseline origin of the text
	Background image.Rectangle
}

func layoutLabel(b types.Box, textSize image.Point, baseline, padding, offset int) labelLayout {
	x := b.Right + offset
	y := b.Top + floorDiv(b.Bottom-b.Top, 2)
	return labelLayout{
		Text: image.Pt(x+padding, y),
		Background: image.Rectangle{
			Min: image.Pt(x, y-textSize.Y-padding),
			Max: image.Pt(x+textSize.X+padding*2, y+baseline+padding),
		},
	}
}

// machineGlyph is the rounded dashed frame drawn around the whole box.
type machineGlyph struct {
	Thickness int
	Dash      int
	Radius    int
}

func machineGeometry(b types.Box) machineGlyph {
	rate := float64(b.Right-b.Left) / 400
	return machineGlyph{
		Thickness: max(2, int(6*rate)),
		Dash:      max(6, int(20*rate)),
		Radius:    max(10, int(15*rate)),
	}
}

// dashes splits [from, to) into dash segments of length dash separated by equal gaps.
func dashes(from, to, dash int) [][2]int {
	var out [][2]int
	for i := from; i < to; i += dash * 2 {
		out = append(out, [2]int{i, min(i+dash, to)})
	}
	return out
}
