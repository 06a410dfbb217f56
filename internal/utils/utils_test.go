package utils

import (
	"context"
	"io"
	"os"
	"strings"
	"testing"
)

// captureStderr runs fn with os.Stderr redirected and returns what it wrote.
func captureStderr(t *testing.T, fn func()) string {
	t.Helper()
	oldStderr := os.Stderr
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	os.Stderr = w

	fn()

	w.Close()
	os.Stderr = oldStderr
	out, _ := io.ReadAll(r)
	r.Close()
	return string(out)
}

func TestShowErrorIncludesWorkerLogs(t *testing.T) {
	s := NewSafeCommand(context.Background(), "true")
	s.Stderr.WriteString("Traceback: ModuleNotFoundError")

	out := captureStderr(t, func() {
		ShowError("Worker crashed", io.ErrUnexpectedEOF, s)
	})

	for _, want := range []string{"SAMARITAN ERROR: Worker crashed", "unexpected EOF", "ModuleNotFoundError"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected output to contain %q, got:\n%s", want, out)
		}
	}
}

func TestShowErrorWithoutCommand(t *testing.T) {
	out := captureStderr(t, func() {
		ShowError("Cannot access the camera", nil, nil)
	})
	if strings.Contains(out, "DETAILS") {
		t.Errorf("Expected no DETAILS line for nil error, got:\n%s", out)
	}
	if strings.Contains(out, "WORKER CRASH LOGS") {
		t.Errorf("Expected no worker logs without a command, got:\n%s", out)
	}
}

func TestWarn(t *testing.T) {
	out := captureStderr(t, func() {
		Warn("Error processing %s: %v", "admins/bob.jpg", io.EOF)
	})
	if !strings.HasSuffix(out, "Error processing admins/bob.jpg: EOF\n") {
		t.Errorf("Unexpected warning line: %q", out)
	}
}
