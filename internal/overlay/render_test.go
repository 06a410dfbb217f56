package overlay

import (
	"testing"

	"github.com/andresmejia3/samaritan/internal/capture"
	"github.com/andresmejia3/samaritan/internal/types"
	"gocv.io/x/gocv"
)

// blackFrame returns a zeroed 320x240 BGR frame.
func blackFrame(t *testing.T) *capture.Frame {
	t.Helper()
	m := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), 240, 320, gocv.MatTypeCV8UC3)
	t.Cleanup(func() { m.Close() })
	return &capture.Frame{Mat: m}
}

func pixel(f *capture.Frame, x, y int) [3]uint8 {
	v := f.Mat.GetVecbAt(y, x)
	return [3]uint8{v[0], v[1], v[2]}
}

var threat = types.Color{0, 0, 255}

func TestRenderNoFaces(t *testing.T) {
	f := blackFrame(t)
	NewRenderer(GlyphSamaritan).Render(f, nil)

	s := f.Mat.Sum()
	if s.Val1 != 0 || s.Val2 != 0 || s.Val3 != 0 {
		t.Errorf("frame without faces was drawn on: sum %+v", s)
	}
}

func TestRenderSamaritan(t *testing.T) {
	f := blackFrame(t)
	ann := types.ResolvedAnnotation{
		Box:   types.Box{Top: 40, Right: 140, Bottom: 140, Left: 40},
		Label: "Eve",
		Role:  types.RoleThreat,
		Color: threat,
	}
	NewRenderer(GlyphSamaritan).Render(f, []types.ResolvedAnnotation{ann})

	// Centre (90,90), radius 50: the triangle's top edge runs along y=60.
	if got := pixel(f, 90, 60); got != [3]uint8(threat) {
		t.Errorf("triangle pixel = %v, want %v", got, threat)
	}
	// Outer ring crosses the vertical axis at y=40.
	if got := pixel(f, 90, 40); got != [3]uint8(types.GlyphGray) {
		t.Errorf("ring pixel = %v, want %v", got, types.GlyphGray)
	}

	// Label background starts at right+10 = 150, text at 155, baseline y=90.
	bg := pixel(f, 151, 90)
	if bg[0] != 0 || bg[1] != 0 {
		t.Errorf("label tint leaked into other channels: %v", bg)
	}
	if bg[2] < 20 || bg[2] > 30 {
		t.Errorf("label background red = %d, want a 10%% tint of 255", bg[2])
	}
	// Outside the label stays untouched.
	if got := pixel(f, 300, 200); got != [3]uint8{} {
		t.Errorf("pixel far from the face = %v, want black", got)
	}
}

func TestRenderLabelOffFrame(t *testing.T) {
	f := blackFrame(t)
	asset := types.Color{34, 139, 34}
	ann := types.ResolvedAnnotation{
		// Label starts at x=310 and runs past the 320px edge.
		Box:   types.Box{Top: 40, Right: 300, Bottom: 100, Left: 250},
		Label: "Bob",
		Role:  types.RoleAsset,
		Color: asset,
	}
	NewRenderer(GlyphSamaritan).Render(f, []types.ResolvedAnnotation{ann})

	got := pixel(f, 311, 70)
	if got[1] == 0 || got[1] >= 40 {
		t.Errorf("in-frame part of the label = %v, want a faint green tint", got)
	}

	// A label entirely outside the frame is skipped.
	gone := ann
	gone.Box = types.Box{Top: 40, Right: 400, Bottom: 100, Left: 340}
	NewRenderer(GlyphSamaritan).Draw(&f.Mat, gone)
}

func TestRenderMachine(t *testing.T) {
	f := blackFrame(t)
	ann := types.ResolvedAnnotation{
		Box:   types.Box{Top: 40, Right: 140, Bottom: 140, Left: 40},
		Label: types.UnknownLabel,
		Color: threat,
	}
	NewRenderer(GlyphMachine).Render(f, []types.ResolvedAnnotation{ann})

	// Solid centre tick on the top edge survives the blend at full strength.
	if got := pixel(f, 90, 45); got[2] != 255 {
		t.Errorf("centre tick = %v, want full red", got)
	}
	// Third dash of the top edge, x in [74,80), clear of the corner arc, blended at 40%.
	if got := pixel(f, 77, 40); got[2] < 95 || got[2] > 120 {
		t.Errorf("dashed edge = %v, want red around 40%%", got)
	}
	// Gap between the second and third dashes.
	if got := pixel(f, 71, 40); got[2] > 10 {
		t.Errorf("dash gap = %v, want dark", got)
	}
}
