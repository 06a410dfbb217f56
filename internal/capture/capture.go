package capture

import (
	"errors"
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// Frame is a BGR camera frame. The Mat is owned by the Camera and reused
// across reads, so a Frame is only valid until the next Read.
type Frame struct {
	Mat gocv.Mat
}

// Shrink resizes the frame by factor in both axes and converts it from BGR to
// RGBA. The returned image owns its pixels.
func (f *Frame) Shrink(factor float64) (image.Image, error) {
	if f.Mat.Empty() {
		return nil, errors.New("empty frame")
	}

	small := gocv.NewMat()
	defer small.Close()
	gocv.Resize(f.Mat, &small, image.Point{}, factor, factor, gocv.InterpolationLinear)
	if small.Empty() {
		return nil, fmt.Errorf("resize by %.2f produced an empty frame", factor)
	}

	rgba := gocv.NewMat()
	defer rgba.Close()
	gocv.CvtColor(small, &rgba, gocv.ColorBGRToRGBA)

	// Wrap the converted bytes in an image.RGBA struct
	w, h := rgba.Cols(), rgba.Rows()
	return &image.RGBA{
		Pix:    rgba.ToBytes(),
		Stride: w * 4,
		Rect:   image.Rect(0, 0, w, h),
	}, nil
}

// Size returns the frame width and height.
func (f *Frame) Size() image.Point {
	return image.Pt(f.Mat.Cols(), f.Mat.Rows())
}

// Camera is a single opened capture device.
type Camera struct {
	vc    *gocv.VideoCapture
	frame *Frame
}

// Open opens the capture device (0 is the default system camera).
func Open(device int) (*Camera, error) {
	vc, err := gocv.OpenVideoCapture(device)
	if err != nil {
		return nil, fmt.Errorf("open device %d: %w", device, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("device %d is busy or missing", device)
	}
	return &Camera{vc: vc, frame: &Frame{Mat: gocv.NewMat()}}, nil
}

// Read blocks until the driver delivers the next frame. It has no timeout.
func (c *Camera) Read() (*Frame, error) {
	if ok := c.vc.Read(&c.frame.Mat); !ok || c.frame.Mat.Empty() {
		return nil, errors.New("no frame available")
	}
	return c.frame, nil
}

// Close releases the device and the frame buffer.
func (c *Camera) Close() error {
	c.frame.Mat.Close()
	return c.vc.Close()
}

// DefaultKeyDelay is how long PollKey waits for a key press, in milliseconds.
const DefaultKeyDelay = 1

// Window is the named display surface.
type Window struct {
	win   *gocv.Window
	delay int
}

// NewWindow opens a named window.
func NewWindow(name string) *Window {
	return &Window{win: gocv.NewWindow(name), delay: DefaultKeyDelay}
}

// Show draws the frame into the window.
func (w *Window) Show(f *Frame) error {
	if f.Mat.Empty() {
		return errors.New("cannot show an empty frame")
	}
	w.win.IMShow(f.Mat)
	return nil
}

// PollKey waits DefaultKeyDelay ms for a key and returns its code, or -1.
func (w *Window) PollKey() int {
	return w.win.WaitKey(w.delay)
}

// Close destroys the window.
func (w *Window) Close() error {
	return w.win.Close()
}
