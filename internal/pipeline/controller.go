package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/andresmejia3/samaritan/internal/types"
)

// ErrCameraUnavailable marks a camera that could not be opened or stopped
// delivering frames. It is fatal for the run.
var ErrCameraUnavailable = errors.New("cannot access the camera")

// QuitKey is the only recognised control key.
const QuitKey = 'q'

// State is the lifecycle state of the frame loop.
type State int

const (
	Running State = iota
	Terminated
)

func (s State) String() string {
	switch s {
	case Running:
		return "RUNNING"
	case Terminated:
		return "TERMINATED"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Camera yields frames. Read blocks until a frame is available; there is no timeout.
type Camera[F Frame] interface {
	Read() (F, error)
	Close() error
}

// Renderer draws annotations onto a frame in place.
type Renderer[F Frame] interface {
	Render(f F, anns []types.ResolvedAnnotation)
}

// Display shows frames and polls the keyboard.
type Display[F Frame] interface {
	Show(f F) error
	// PollKey waits briefly for a key press and returns its code, or -1.
	PollKey() int
	Close() error
}

// Controller drives the single-threaded frame loop: read, schedule, resolve,
// rescale, render, show, poll.
type Controller[F Frame] struct {
	Camera   Camera[F]
	Display  Display[F]
	Renderer Renderer[F]
	Session  *Session

	state    State
	released bool
}

// State returns the current lifecycle state.
func (c *Controller[F]) State() State { return c.state }

// Run loops until the quit key is pressed, ctx is cancelled, or the camera fails.
// Camera and display are released exactly once on every exit path. A camera
// failure is returned wrapped in ErrCameraUnavailable; a graceful stop returns nil.
func (c *Controller[F]) Run(ctx context.Context) (err error) {
	c.state = Running
	defer func() {
		c.state = Terminated
		if rerr := c.release(); err == nil {
			err = rerr
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		frame, rerr := c.Camera.Read()
		if rerr != nil {
			return fmt.Errorf("%w: %v", ErrCameraUnavailable, rerr)
		}

		c.Session.Advance(ctx, frame)
		c.Renderer.Render(frame, c.Session.Annotations())

		if serr := c.Display.Show(frame); serr != nil {
			return fmt.Errorf("display: %w", serr)
		}
		if key := c.Display.PollKey(); key >= 0 && key&0xFF == QuitKey {
			return nil
		}
	}
}

func (c *Controller[F]) release() error {
	if c.released {
		return nil
	}
	c.released = true
	camErr := c.Camera.Close()
	dispErr := c.Display.Close()
	return errors.Join(camErr, dispErr)
}
