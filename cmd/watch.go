package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/andresmejia3/samaritan/internal/capture"
	"github.com/andresmejia3/samaritan/internal/engine"
	"github.com/andresmejia3/samaritan/internal/match"
	"github.com/andresmejia3/samaritan/internal/overlay"
	"github.com/andresmejia3/samaritan/internal/pipeline"
	"github.com/andresmejia3/samaritan/internal/utils"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:         "watch",
	Short:       "Open the camera and overlay identities until 'q' is pressed",
	Annotations: map[string]string{dbAnnotation: dbJournal},
	Run: func(cmd *cobra.Command, args []string) {
		runWatch(cmd.Context(), opts)
	},
}

func init() {
	for _, c := range []*cobra.Command{rootCmd, watchCmd} {
		f := c.Flags()
		f.IntVarP(&opts.Camera, "camera", "c", 0, "Camera device index")
		f.StringVarP(&opts.Window, "window", "w", "Video", "Display window title")
		f.StringVarP(&opts.Glyph, "glyph", "g", "samaritan", "Locator symbol: samaritan, machine")
		f.BoolVarP(&opts.Journal, "journal", "j", false, "Record every resolved face to the PostgreSQL sightings journal")
	}
	rootCmd.AddCommand(watchCmd)
}

// runWatch builds the enrollment cache and drives the frame loop until quit.
func runWatch(ctx context.Context, opts Options) {
	if err := validateWatchFlags(&opts); err != nil {
		utils.Die("Invalid flags", err, nil)
	}

	eng := startEngine(ctx, opts)
	faces, _ := loadEnrollment(opts.EnrollRoot, eng)
	fmt.Fprintf(os.Stderr, "🧬 Enrolled %d identities\n", len(faces))

	cam, err := capture.Open(opts.Camera)
	if err != nil {
		eng.Close()
		utils.Die("Cannot access the camera", err, nil)
	}
	win := capture.NewWindow(opts.Window)

	glyph, _ := overlay.ParseGlyph(opts.Glyph)
	session := pipeline.NewSession(eng, eng, match.NewResolver(faces, opts.Tolerance, nil))
	session.OnFault = func(frame int, err error) {
		utils.Warn("Frame %d: detection skipped: %v", frame, err)
	}
	if DB != nil {
		session.Journal = DB
		fmt.Fprintf(os.Stderr, "📒 Journaling sightings as run %s\n", DB.RunID())
	}

	ctrl := &pipeline.Controller[*capture.Frame]{
		Camera:   cam,
		Display:  win,
		Renderer: overlay.NewRenderer(glyph),
		Session:  session,
	}

	fmt.Fprintf(os.Stderr, "🎥 Watching camera %d (press 'q' to quit)\n", opts.Camera)
	runErr := ctrl.Run(ctx)
	logs := workerLogs(eng)
	// A cancelled context has already killed the worker process.
	if err := eng.Close(); err != nil && runErr == nil && ctx.Err() == nil {
		utils.Warn("Face engine did not shut down cleanly: %v", err)
	}

	if runErr != nil {
		closeDB()
		if errors.Is(runErr, pipeline.ErrCameraUnavailable) {
			utils.Die("Cannot access the camera", runErr, logs)
		}
		utils.Die("Video loop stopped unexpectedly", runErr, logs)
	}
	fmt.Fprintf(os.Stderr, "👋 Stopped after %d frames\n", session.FrameCount())
}

// startEngine launches the configured backend or exits.
func startEngine(ctx context.Context, opts Options) engine.Engine {
	kind, _ := engine.ParseKind(opts.Engine)
	timeout, _ := time.ParseDuration(opts.WorkerTimeout)

	fmt.Fprintf(os.Stderr, "⚙️  Starting %s face engine...\n", kind)
	eng, err := engine.New(ctx, engine.Options{
		Kind:          kind,
		Models:        opts.Models,
		WorkerScript:  opts.WorkerScript,
		WorkerTimeout: timeout,
	})
	if err != nil {
		utils.Die("Failed to start the face engine", err, nil)
	}
	return eng
}

// workerLogs returns the worker process of a Python engine so its stderr can be shown.
func workerLogs(eng engine.Engine) *utils.SafeCommand {
	if p, ok := eng.(*engine.Python); ok {
		return p.Cmd()
	}
	return nil
}

func validateWatchFlags(opts *Options) error {
	info, err := os.Stat(opts.EnrollRoot)
	if err != nil {
		return fmt.Errorf("enroll root %s: %w", opts.EnrollRoot, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("enroll root %s is not a directory", opts.EnrollRoot)
	}

	kind, err := engine.ParseKind(opts.Engine)
	if err != nil {
		return err
	}
	switch kind {
	case engine.KindDlib:
		if info, err := os.Stat(opts.Models); err != nil || !info.IsDir() {
			return fmt.Errorf("dlib model directory %s not found", opts.Models)
		}
	case engine.KindPython:
		if _, err := os.Stat(opts.WorkerScript); err != nil {
			return fmt.Errorf("worker script: %w", err)
		}
		d, err := time.ParseDuration(opts.WorkerTimeout)
		if err != nil {
			return fmt.Errorf("invalid worker-timeout format (use '30s', '500ms'): %w", err)
		}
		if d <= 0 {
			return fmt.Errorf("worker-timeout must be positive, got %s", d)
		}
	}

	if opts.Tolerance <= 0 {
		return fmt.Errorf("tolerance must be positive, got %f", opts.Tolerance)
	}
	if opts.Camera < 0 {
		return fmt.Errorf("camera index must be >= 0, got %d", opts.Camera)
	}
	if opts.Window == "" {
		return fmt.Errorf("window title must not be empty")
	}
	if _, err := overlay.ParseGlyph(opts.Glyph); err != nil {
		return err
	}
	return nil
}
