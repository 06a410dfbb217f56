package pipeline

const (
	// DefaultInterval is the sampling interval: detection runs on every 5th frame.
	DefaultInterval = 5
	// DefaultScale is the downscale factor applied to frames before detection.
	DefaultScale = 0.25
)

// Scheduler decides which frames pay for detection and encoding.
// The counter starts at zero and is incremented before each decision, so the
// first sampled frame is the Interval-th frame.
type Scheduler struct {
	Interval int
	count    int
}

// NewScheduler returns a scheduler with the given interval (values < 1 become 1).
func NewScheduler(interval int) *Scheduler {
	if interval < 1 {
		interval = 1
	}
	return &Scheduler{Interval: interval}
}

// Tick advances the frame counter and reports whether this frame is sampled.
func (s *Scheduler) Tick() (frame int, sampled bool) {
	s.count++
	return s.count, s.count%s.Interval == 0
}

// Count returns the number of frames seen so far.
func (s *Scheduler) Count() int { return s.count }
