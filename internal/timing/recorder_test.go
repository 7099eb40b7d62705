package timing

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// steppingClock advances by step on every reading.
func steppingClock(start time.Time, step time.Duration) Clock {
	now := start
	return func() time.Time {
		t := now
		now = now.Add(step)
		return t
	}
}

func TestRecorder_Elapsed(t *testing.T) {
	r := NewRecorder(steppingClock(time.Unix(0, 0), 3*time.Millisecond))

	called := false
	d := r.Elapsed(func() { called = true })

	assert.True(t, called)
	assert.Equal(t, 3*time.Millisecond, d)
}

func TestMeasure(t *testing.T) {
	r := NewRecorder(steppingClock(time.Unix(0, 0), 2999*time.Microsecond))

	out, d := Measure(r, func() string { return "done" })
	assert.Equal(t, "done", out)
	assert.Equal(t, 2999*time.Microsecond, d)
	assert.Equal(t, int64(2), Millis(d))
}

func TestMeasure_PassesError(t *testing.T) {
	boom := errors.New("boom")
	r := NewRecorder(steppingClock(time.Unix(0, 0), time.Millisecond))

	err, d := Measure(r, func() error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, int64(1), Millis(d))
}

func TestDefaultRecorderUsesRealClock(t *testing.T) {
	_, d := Measure(Default, func() int {
		time.Sleep(2 * time.Millisecond)
		return 0
	})
	assert.GreaterOrEqual(t, Millis(d), int64(2))
}

func TestMillis(t *testing.T) {
	assert.Equal(t, int64(0), Millis(-time.Second))
	assert.Equal(t, int64(0), Millis(999*time.Microsecond))
	assert.Equal(t, int64(1500), Millis(1500*time.Millisecond))
}

func TestFormatMillis(t *testing.T) {
	assert.Equal(t, "0", FormatMillis(0))
	assert.Equal(t, "412", FormatMillis(412))
}
