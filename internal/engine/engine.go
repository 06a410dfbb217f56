// Package engine provides the face detection and encoding capabilities used by
// enrollment and the live session.
package engine

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"time"

	"github.com/andresmejia3/samaritan/internal/types"
	"github.com/disintegration/imaging"
)

// Kind names a detection backend.
type Kind string

const (
	KindDlib   Kind = "dlib"
	KindPython Kind = "python"
)

// ParseKind validates a backend name.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindDlib, KindPython:
		return k, nil
	}
	return "", fmt.Errorf("invalid engine '%s'. Must be one of: dlib, python", s)
}

// Engine locates faces and turns them into descriptors.
type Engine interface {
	Detect(img image.Image) ([]types.Box, error)
	Encode(img image.Image, boxes []types.Box) ([]types.Descriptor, error)
	Close() error
}

type Options struct {
	Kind          Kind
	Models        string
	WorkerScript  string
	WorkerTimeout time.Duration
}

// New starts the selected backend.
func New(ctx context.Context, opts Options) (Engine, error) {
	switch opts.Kind {
	case KindDlib, "":
		return NewDlib(opts.Models)
	case KindPython:
		return NewPython(ctx, opts.WorkerScript, opts.WorkerTimeout)
	}
	return nil, fmt.Errorf("unknown engine %q", opts.Kind)
}

// JPEGQuality is used for every image handed to a backend.
const JPEGQuality = 95

// EncodeJPEG serializes img for backends that take encoded bytes.
func EncodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(JPEGQuality)); err != nil {
		return nil, fmt.Errorf("jpeg encode: %w", err)
	}
	return buf.Bytes(), nil
}

// IoU returns the intersection over union of two boxes.
func IoU(a, b types.Box) float64 {
	x1 := max(a.Left, b.Left)
	y1 := max(a.Top, b.Top)
	x2 := min(a.Right, b.Right)
	y2 := min(a.Bottom, b.Bottom)

	if x2 <= x1 || y2 <= y1 {
		return 0 // No intersection
	}

	intersection := float64((x2 - x1) * (y2 - y1))
	union := float64(a.Width()*a.Height()+b.Width()*b.Height()) - intersection
	if union <= 0 {
		return 0
	}
	return intersection / union
}

// MinAlignIoU is the overlap below which a requested box has no counterpart.
const MinAlignIoU = 0.3

// Align maps every wanted box to the index of the best-overlapping candidate,
// or -1 when none overlaps by at least MinAlignIoU.
func Align(want, have []types.Box) []int {
	out := make([]int, len(want))
	for i, w := range want {
		out[i] = -1
		best := MinAlignIoU
		for j, h := range have {
			if w == h {
				out[i] = j
				break
			}
			if iou := IoU(w, h); iou >= best {
				best, out[i] = iou, j
			}
		}
	}
	return out
}
