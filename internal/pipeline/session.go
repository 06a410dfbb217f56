package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/andresmejia3/samaritan/internal/match"
	"github.com/andresmejia3/samaritan/internal/types"
)

// ErrMisaligned is returned when an encoder does not produce exactly one
// descriptor per box.
var ErrMisaligned = errors.New("descriptor count does not match box count")

// Frame is a captured camera frame.
type Frame interface {
	// Shrink returns an RGB copy of the frame scaled by factor in both axes.
	Shrink(factor float64) (image.Image, error)
}

// Detector locates faces in an RGB image.
type Detector interface {
	Detect(img image.Image) ([]types.Box, error)
}

// Encoder returns one descriptor per box, index-aligned with boxes.
type Encoder interface {
	Encode(img image.Image, boxes []types.Box) ([]types.Descriptor, error)
}

// Journal receives the resolved faces of every sampled cycle.
type Journal interface {
	Record(ctx context.Context, frame int, anns []types.ResolvedAnnotation) error
}

// Session owns everything that lives across frames for one run: the enrollment
// resolver, the frame counter and the last detection cycle state.
type Session struct {
	Scale     float64
	scheduler *Scheduler
	detector  Detector
	encoder   Encoder
	resolver  *match.Resolver
	state     types.DetectionCycleState

	// Journal is optional.
	Journal Journal
	// OnFault is called when a sampled cycle fails and is skipped. Optional.
	OnFault func(frame int, err error)
}

// NewSession wires a session with the default interval and scale.
func NewSession(det Detector, enc Encoder, resolver *match.Resolver) *Session {
	return &Session{
		Scale:     DefaultScale,
		scheduler: NewScheduler(DefaultInterval),
		detector:  det,
		encoder:   enc,
		resolver:  resolver,
	}
}

// SetInterval replaces the scheduler; used by tests and benchmarks.
func (s *Session) SetInterval(n int) { s.scheduler = NewScheduler(n) }

// Advance registers a new frame. On sampled frames it runs detection, encoding
// and matching and replaces the cycle state as a whole. On other frames the
// previous state is left untouched.
//
// A failure during a sampled cycle skips that cycle: the prior state is kept,
// OnFault is notified, and the frame is still reported as sampled.
func (s *Session) Advance(ctx context.Context, f Frame) (sampled bool) {
	frame, sampled := s.scheduler.Tick()
	if !sampled {
		return false
	}

	next, err := s.detect(frame, f)
	if err != nil {
		if s.OnFault != nil {
			s.OnFault(frame, err)
		}
		return true
	}
	s.state = next

	if s.Journal != nil {
		if err := s.Journal.Record(ctx, frame, s.Annotations()); err != nil && s.OnFault != nil {
			s.OnFault(frame, fmt.Errorf("journal: %w", err))
		}
	}
	return true
}

func (s *Session) detect(frame int, f Frame) (st types.DetectionCycleState, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("detection panicked: %v", r)
		}
	}()

	small, err := f.Shrink(s.Scale)
	if err != nil {
		return st, fmt.Errorf("downscale: %w", err)
	}
	boxes, err := s.detector.Detect(small)
	if err != nil {
		return st, fmt.Errorf("detect: %w", err)
	}
	descriptors, err := s.encoder.Encode(small, boxes)
	if err != nil {
		return st, fmt.Errorf("encode: %w", err)
	}
	if len(descriptors) != len(boxes) {
		return st, fmt.Errorf("%w: %d boxes, %d descriptors", ErrMisaligned, len(boxes), len(descriptors))
	}

	return types.DetectionCycleState{
		Frame:       frame,
		Boxes:       boxes,
		Descriptors: descriptors,
		Identities:  s.resolver.ResolveAll(descriptors),
	}, nil
}

// State returns the current detection cycle state.
func (s *Session) State() types.DetectionCycleState { return s.state }

// FrameCount returns the number of frames advanced so far.
func (s *Session) FrameCount() int { return s.scheduler.Count() }

// Annotations builds the full-resolution annotations for the current state.
// The slice is freshly allocated on every call.
func (s *Session) Annotations() []types.ResolvedAnnotation {
	anns := make([]types.ResolvedAnnotation, s.state.Len())
	for i, b := range s.state.Boxes {
		id := s.state.Identities[i]
		anns[i] = types.ResolvedAnnotation{
			Box:   Rescale(b, s.Scale),
			Label: id.Label,
			Role:  id.Role,
			Color: id.Color,
		}
	}
	return anns
}
