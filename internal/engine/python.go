package engine

import (
	"context"
	"fmt"
	"image"
	"time"

	"github.com/andresmejia3/samaritan/internal/types"
	"github.com/andresmejia3/samaritan/internal/utils"
	"github.com/andresmejia3/samaritan/internal/worker"
)

// Python delegates to a face_recognition worker process. A worker that timed
// out or crashed is replaced on the next call.
type Python struct {
	w     *worker.PythonWorker
	start func() (*worker.PythonWorker, error)

	toJPEG   func(image.Image) ([]byte, error)
	last     image.Image
	lastJPEG []byte
}

func NewPython(ctx context.Context, script string, timeout time.Duration) (*Python, error) {
	start := func() (*worker.PythonWorker, error) {
		return worker.NewPythonWorker(ctx, 0, script, timeout)
	}
	w, err := start()
	if err != nil {
		return nil, err
	}
	return &Python{w: w, start: start, toJPEG: EncodeJPEG}, nil
}

// Cmd exposes the worker process so callers can print its crash logs.
func (p *Python) Cmd() *utils.SafeCommand {
	if p.w == nil {
		return nil
	}
	return p.w.Cmd
}

// worker returns a healthy worker, restarting a broken one.
func (p *Python) worker() (*worker.PythonWorker, error) {
	if p.w != nil && p.w.Err() == nil {
		return p.w, nil
	}
	if p.w != nil {
		p.w.Close()
		p.w = nil
	}
	w, err := p.start()
	if err != nil {
		return nil, fmt.Errorf("restart python worker: %w", err)
	}
	p.w = w
	return w, nil
}

// payload encodes img once and reuses the bytes for the Encode that follows Detect.
func (p *Python) payload(img image.Image) ([]byte, error) {
	if p.last != nil && p.last == img {
		return p.lastJPEG, nil
	}
	b, err := p.toJPEG(img)
	if err != nil {
		return nil, err
	}
	p.last, p.lastJPEG = img, b
	return b, nil
}

func (p *Python) Detect(img image.Image) ([]types.Box, error) {
	b, err := p.payload(img)
	if err != nil {
		return nil, err
	}
	w, err := p.worker()
	if err != nil {
		return nil, err
	}
	return w.Locate(b)
}

func (p *Python) Encode(img image.Image, boxes []types.Box) ([]types.Descriptor, error) {
	if len(boxes) == 0 {
		return nil, nil
	}
	b, err := p.payload(img)
	if err != nil {
		return nil, err
	}
	w, err := p.worker()
	if err != nil {
		return nil, err
	}
	descs, err := w.Encode(b, boxes)
	if err != nil {
		return nil, err
	}
	if len(descs) != len(boxes) {
		return nil, fmt.Errorf("worker returned %d descriptors for %d faces", len(descs), len(boxes))
	}
	return descs, nil
}

func (p *Python) Close() error {
	p.last, p.lastJPEG = nil, nil
	if p.w == nil {
		return nil
	}
	err := p.w.Close()
	p.w = nil
	return err
}
