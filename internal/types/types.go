package types

import (
	"image"
	"image/color"
)

// Box is a face location in [top, right, bottom, left] order, the same order
// the face workers report.
type Box struct {
	Top    int `json:"top"`
	Right  int `json:"right"`
	Bottom int `json:"bottom"`
	Left   int `json:"left"`
}

// BoxFromRect converts an image.Rectangle into a Box.
func BoxFromRect(r image.Rectangle) Box {
	return Box{Top: r.Min.Y, Right: r.Max.X, Bottom: r.Max.Y, Left: r.Min.X}
}

// Rect returns the box as an image.Rectangle.
func (b Box) Rect() image.Rectangle {
	return image.Rect(b.Left, b.Top, b.Right, b.Bottom)
}

func (b Box) Width() int  { return b.Right - b.Left }
func (b Box) Height() int { return b.Bottom - b.Top }

// Loc returns the box in the [top, right, bottom, left] slice layout used by the journal.
func (b Box) Loc() []int {
	return []int{b.Top, b.Right, b.Bottom, b.Left}
}

// Descriptor is a fixed-length face encoding (128-d for dlib models).
type Descriptor []float64

// Color is a colour triple stored in the camera's native channel order (B, G, R).
type Color [3]uint8

// RGBA converts the BGR triple into an opaque color.RGBA for drawing.
func (c Color) RGBA() color.RGBA {
	return color.RGBA{R: c[2], G: c[1], B: c[0], A: 255}
}

// Role is the enrollment category of an identity.
type Role string

const (
	RoleAdmin        Role = "admin"
	RolePrimaryAsset Role = "primary_asset"
	RoleAsset        Role = "asset"
	RoleThreat       Role = "threat"
	// RoleNone marks an unresolved face.
	RoleNone Role = ""
)

var roleColors = map[Role]Color{
	RoleAdmin:        {56, 218, 255},
	RolePrimaryAsset: {211, 0, 148},
	RoleAsset:        {34, 139, 34},
	RoleThreat:       {0, 0, 255},
}

var (
	// UnknownColor is drawn for faces that match no enrolled identity.
	UnknownColor = Color{100, 100, 100}
	// GlyphGray strokes the locator circles and tick marks.
	GlyphGray = Color{180, 180, 180}
)

// UnknownLabel is the identity label of an unmatched face.
const UnknownLabel = "UNKNOWN"

// Color returns the fixed display colour of the role. ok is false for roles
// outside the table.
func (r Role) Color() (c Color, ok bool) {
	c, ok = roleColors[r]
	return c, ok
}

// Roles lists the role table in a stable order.
func Roles() []Role {
	return []Role{RoleAdmin, RolePrimaryAsset, RoleAsset, RoleThreat}
}

// EnrolledFace is one recognizable identity built at startup.
type EnrolledFace struct {
	Descriptor  Descriptor
	DisplayName string
	Role        Role
	RoleColor   Color
	Source      string // path of the enrollment image
}

// Identity is the outcome of matching one descriptor against the enrollment cache.
type Identity struct {
	Label string
	Role  Role
	Color Color
	Index int // position in the enrollment cache, -1 when unknown
}

// Known reports whether the identity resolved to an enrolled face.
func (id Identity) Known() bool { return id.Index >= 0 }

// DetectionCycleState is the working set produced by the latest sampled frame.
// Boxes, Descriptors and Identities are index-aligned and are replaced as a
// whole on every sampled frame.
type DetectionCycleState struct {
	Frame       int // counter value of the sampled frame that produced this state
	Boxes       []Box
	Descriptors []Descriptor
	Identities  []Identity
}

// Len returns the number of faces in the state.
func (s DetectionCycleState) Len() int { return len(s.Boxes) }

// ResolvedAnnotation is what gets drawn for one face on one frame.
type ResolvedAnnotation struct {
	Box   Box // full-resolution coordinates
	Label string
	Role  Role
	Color Color
}
