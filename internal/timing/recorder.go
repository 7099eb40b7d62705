package timing

import (
	"strconv"
	"time"
)

// Clock returns the current time. time.Now carries a monotonic reading,
// which is what elapsed measurements rely on.
type Clock func() time.Time

// Recorder measures elapsed wall time around an operation.
type Recorder struct {
	now Clock
}

// Default uses the real clock.
var Default = NewRecorder(nil)

// NewRecorder creates a new Recorder
// Args:
// - now: Clock, nil selects time.Now
// Returns:
// - *Recorder: new Recorder instance
func NewRecorder(now Clock) *Recorder {
	if now == nil {
		now = time.Now
	}
	return &Recorder{now: now}
}

// Elapsed runs f and returns how long it took.
func (r *Recorder) Elapsed(f func()) time.Duration {
	start := r.now()
	f()
	return r.now().Sub(start)
}

// Measure runs f with r and returns its result and the elapsed time.
// Millis converts the elapsed time for the timestamp chain.
func Measure[T any](r *Recorder, f func() T) (T, time.Duration) {
	var out T
	d := r.Elapsed(func() { out = f() })
	return out, d
}

// Millis floors d to whole milliseconds. Negative durations clamp to zero.
func Millis(d time.Duration) int64 {
	if d < 0 {
		return 0
	}
	return d.Milliseconds()
}

// FormatMillis renders a millisecond count as a decimal string.
func FormatMillis(ms int64) string {
	return strconv.FormatInt(ms, 10)
}
