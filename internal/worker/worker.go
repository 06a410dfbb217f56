package worker

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/andresmejia3/samaritan/internal/types"
	"github.com/andresmejia3/samaritan/internal/utils" // Using the SafeCommand wrapper
)

// Request opcodes understood by python/worker.py.
const (
	OpLocate byte = 'L'
	OpEncode byte = 'E'
)

const (
	statusOK    byte = 0
	statusError byte = 1

	// DescriptorSize is the length of a face_recognition embedding.
	DescriptorSize = 128

	// MaxResponse bounds a single response frame.
	MaxResponse = 64 << 20
)

var (
	// ErrTimeout is returned when the worker does not answer within Timeout.
	ErrTimeout = errors.New("python worker timed out")
	// ErrBroken is returned by every call after a transport failure. A late
	// answer may still be in the pipe, so the worker cannot be reused.
	ErrBroken = errors.New("python worker is out of sync")
)

type PythonWorker struct {
	ID       int
	Cmd      *utils.SafeCommand
	Stdin    io.WriteCloser
	DataPipe io.ReadCloser
	Timeout  time.Duration

	broken error
}

// deadliner is satisfied by *os.File pipes.
type deadliner interface {
	SetReadDeadline(t time.Time) error
}

func NewPythonWorker(ctx context.Context, id int, script string, timeout time.Duration) (*PythonWorker, error) {
	py := utils.NewSafeCommand(ctx, "python3", "-u", script)

	// Create a side-channel pipe (FD 3) for clean data transfer
	r, w, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create pipe: %w", err)
	}
	// Pass the write-end to the child process. It will appear as FD 3.
	py.Cmd.ExtraFiles = []*os.File{w}

	stdin, err := py.StdinPipe()
	if err != nil {
		w.Close()
		r.Close()
		return nil, fmt.Errorf("failed to create stdin pipe: %w", err)
	}

	if err := py.Start(); err != nil {
		w.Close()
		r.Close()
		return nil, fmt.Errorf("worker %d failed to start: %w", id, err)
	}

	// Close the write-end in the parent so only the child holds it
	w.Close()

	return &PythonWorker{
		ID:       id,
		Cmd:      py,
		Stdin:    stdin,
		DataPipe: r,
		Timeout:  timeout,
	}, nil
}

// Communicate sends one request and returns the raw response body.
// Protocol: [Length][Op][Payload] -> [Length][Body]
//
// Any transport failure, a timeout included, kills the process and leaves the
// worker broken: later calls fail fast with ErrBroken.
func (w *PythonWorker) Communicate(op byte, payload []byte) ([]byte, error) {
	if w.broken != nil {
		return nil, w.broken
	}

	if err := binary.Write(w.Stdin, binary.BigEndian, uint32(len(payload)+1)); err != nil {
		return nil, w.fail(err)
	}
	if _, err := w.Stdin.Write(append([]byte{op}, payload...)); err != nil {
		return nil, w.fail(err)
	}

	if d, ok := w.DataPipe.(deadliner); ok && w.Timeout > 0 {
		d.SetReadDeadline(time.Now().Add(w.Timeout))
		defer d.SetReadDeadline(time.Time{})
	}

	// A worker that died before answering closes FD 3, so this read fails too.
	header := make([]byte, 4)
	if _, err := io.ReadFull(w.DataPipe, header); err != nil {
		return nil, w.fail(err)
	}

	respLen := binary.BigEndian.Uint32(header)
	if respLen > MaxResponse {
		return nil, w.fail(fmt.Errorf("response of %d bytes exceeds %d", respLen, MaxResponse))
	}
	respBody := make([]byte, respLen)
	if _, err := io.ReadFull(w.DataPipe, respBody); err != nil {
		return nil, w.fail(err)
	}
	return respBody, nil
}

// fail marks the worker broken and stops the process.
func (w *PythonWorker) fail(err error) error {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		err = ErrTimeout
	}
	w.broken = fmt.Errorf("%w: worker %d: %w", ErrBroken, w.ID, err)
	if w.Cmd != nil && w.Cmd.Process != nil {
		w.Cmd.Process.Kill()
	}
	return err
}

// Err reports why the worker became unusable, or nil while it is healthy.
func (w *PythonWorker) Err() error { return w.broken }

// Locate returns the face boxes found in a JPEG image.
func (w *PythonWorker) Locate(jpeg []byte) ([]types.Box, error) {
	body, err := w.Communicate(OpLocate, jpeg)
	if err != nil {
		return nil, err
	}
	r, err := openResponse(body)
	if err != nil {
		return nil, err
	}

	var n uint32
	if err := binary.Read(r, binary.BigEndian, &n); err != nil {
		return nil, fmt.Errorf("malformed locate response: %w", err)
	}
	if int64(n) > int64(r.Len()/16) {
		return nil, fmt.Errorf("malformed locate response: %d boxes in %d bytes", n, r.Len())
	}
	boxes := make([]types.Box, n)
	for i := range boxes {
		var loc [4]int32 // top, right, bottom, left
		if err := binary.Read(r, binary.BigEndian, &loc); err != nil {
			return nil, fmt.Errorf("malformed locate response: %w", err)
		}
		boxes[i] = types.Box{Top: int(loc[0]), Right: int(loc[1]), Bottom: int(loc[2]), Left: int(loc[3])}
	}
	return boxes, nil
}

// Encode returns one descriptor per box, in box order.
func (w *PythonWorker) Encode(jpeg []byte, boxes []types.Box) ([]types.Descriptor, error) {
	req := new(bytes.Buffer)
	binary.Write(req, binary.BigEndian, uint32(len(boxes)))
	for _, b := range boxes {
		binary.Write(req, binary.BigEndian, [4]int32{int32(b.Top), int32(b.Right), int32(b.Bottom), int32(b.Left)})
	}
	req.Write(jpeg)

	body, err := w.Communicate(OpEncode, req.Bytes())
	if err != nil {
		return nil, err
	}
	r, err := openResponse(body)
	if err != nil {
		return nil, err
	}

	var n uint32
	if err := binary.Read(r, binary.BigEndian, &n); err != nil {
		return nil, fmt.Errorf("malformed encode response: %w", err)
	}
	if int64(n) > int64(r.Len()/(DescriptorSize*4)) {
		return nil, fmt.Errorf("malformed encode response: %d descriptors in %d bytes", n, r.Len())
	}
	out := make([]types.Descriptor, n)
	for i := range out {
		var vec [DescriptorSize]float32
		if err := binary.Read(r, binary.BigEndian, &vec); err != nil {
			return nil, fmt.Errorf("malformed encode response: %w", err)
		}
		d := make(types.Descriptor, DescriptorSize)
		for j, v := range vec {
			d[j] = float64(v)
		}
		out[i] = d
	}
	return out, nil
}

// openResponse checks the status byte and turns a worker-side failure into an error.
// Protocol: [Status:0][...] or [Status:1][MsgLen][Msg]
func openResponse(body []byte) (*bytes.Reader, error) {
	if len(body) == 0 {
		return nil, errors.New("python worker sent an empty response")
	}
	r := bytes.NewReader(body[1:])
	if body[0] == statusOK {
		return r, nil
	}
	if body[0] != statusError {
		return nil, fmt.Errorf("python worker sent unknown status %d", body[0])
	}

	var msgLen uint32
	if err := binary.Read(r, binary.BigEndian, &msgLen); err != nil {
		return nil, fmt.Errorf("python worker error: unreadable message: %w", err)
	}
	msg := make([]byte, msgLen)
	if _, err := io.ReadFull(r, msg); err != nil {
		return nil, fmt.Errorf("python worker error: unreadable message: %w", err)
	}
	return nil, fmt.Errorf("python worker error: %s", msg)
}

func (w *PythonWorker) Close() error {
	w.Stdin.Close()
	w.DataPipe.Close()
	if w.Cmd == nil {
		return nil
	}
	return w.Cmd.Wait()
}
