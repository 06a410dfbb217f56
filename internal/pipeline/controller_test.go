package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/andresmejia3/samaritan/internal/types"
)

// fakeCamera serves a fixed number of frames, then fails.
type fakeCamera struct {
	frames int
	reads  int
	closes int
}

func (c *fakeCamera) Read() (fakeFrame, error) {
	if c.reads >= c.frames {
		return fakeFrame{}, errors.New("device unplugged")
	}
	c.reads++
	return fakeFrame{}, nil
}

func (c *fakeCamera) Close() error {
	c.closes++
	return nil
}

// fakeDisplay replays a key script, one key per PollKey.
type fakeDisplay struct {
	keys   []int
	shown  int
	closes int
}

func (d *fakeDisplay) Show(fakeFrame) error {
	d.shown++
	return nil
}

func (d *fakeDisplay) PollKey() int {
	if len(d.keys) == 0 {
		return -1
	}
	k := d.keys[0]
	d.keys = d.keys[1:]
	return k
}

func (d *fakeDisplay) Close() error {
	d.closes++
	return nil
}

type countingRenderer struct {
	calls int
	anns  [][]types.ResolvedAnnotation
}

func (r *countingRenderer) Render(_ fakeFrame, anns []types.ResolvedAnnotation) {
	r.calls++
	r.anns = append(r.anns, anns)
}

func newTestController(cam *fakeCamera, disp *fakeDisplay) (*Controller[fakeFrame], *countingRenderer) {
	eng := &scriptedEngine{
		boxes:       []types.Box{{Top: 10, Right: 50, Bottom: 40, Left: 5}},
		descriptors: []types.Descriptor{{0.1, 0.1}},
	}
	r := &countingRenderer{}
	return &Controller[fakeFrame]{
		Camera:   cam,
		Display:  disp,
		Renderer: r,
		Session:  NewSession(eng, eng, aliceResolver()),
	}, r
}

func TestControllerQuitKey(t *testing.T) {
	cam := &fakeCamera{frames: 100}
	// 'x' is ignored, 0x171 has 'q' in its low byte as some window toolkits report it.
	disp := &fakeDisplay{keys: []int{-1, 'x', -1, -1, -1, -1, 0x100 | 'q'}}
	c, r := newTestController(cam, disp)

	if err := c.Run(context.Background()); err != nil {
		t.Fatalf("Expected graceful stop, got %v", err)
	}
	if c.State() != Terminated {
		t.Errorf("Expected TERMINATED, got %v", c.State())
	}
	if cam.reads != 7 || r.calls != 7 || disp.shown != 7 {
		t.Errorf("Expected 7 iterations, got reads=%d renders=%d shown=%d", cam.reads, r.calls, disp.shown)
	}
	if cam.closes != 1 || disp.closes != 1 {
		t.Errorf("Expected camera and display released once, got %d/%d", cam.closes, disp.closes)
	}

	// Frames 1-4 precede the first sample and draw nothing; 5-7 draw Alice.
	for i, anns := range r.anns {
		wantFaces := 0
		if i >= 4 {
			wantFaces = 1
		}
		if len(anns) != wantFaces {
			t.Errorf("Frame %d rendered %d faces, want %d", i+1, len(anns), wantFaces)
		}
	}

	// Releasing again must not touch the devices.
	if err := c.release(); err != nil || cam.closes != 1 {
		t.Errorf("release is not idempotent: err=%v closes=%d", err, cam.closes)
	}
}

func TestControllerCameraFailureIsFatal(t *testing.T) {
	cam := &fakeCamera{frames: 3}
	disp := &fakeDisplay{}
	c, _ := newTestController(cam, disp)

	err := c.Run(context.Background())
	if !errors.Is(err, ErrCameraUnavailable) {
		t.Fatalf("Expected ErrCameraUnavailable, got %v", err)
	}
	if c.State() != Terminated {
		t.Errorf("Expected TERMINATED, got %v", c.State())
	}
	if cam.closes != 1 || disp.closes != 1 {
		t.Errorf("Expected camera and display released once, got %d/%d", cam.closes, disp.closes)
	}
	if disp.shown != 3 {
		t.Errorf("Expected 3 frames shown before failure, got %d", disp.shown)
	}
}

func TestControllerContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cam := &fakeCamera{frames: 10}
	disp := &fakeDisplay{}
	c, _ := newTestController(cam, disp)

	if err := c.Run(ctx); err != nil {
		t.Fatalf("Expected graceful stop on cancel, got %v", err)
	}
	if cam.reads != 0 || cam.closes != 1 {
		t.Errorf("Expected no reads and a single release, got reads=%d closes=%d", cam.reads, cam.closes)
	}
}

func TestStateString(t *testing.T) {
	if Running.String() != "RUNNING" || Terminated.String() != "TERMINATED" {
		t.Errorf("Unexpected state names %q %q", Running, Terminated)
	}
}
