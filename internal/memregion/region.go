package memregion

import (
	crand "crypto/rand"
	"fmt"
	"io"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"snapbench/internal/timing"
)

// PageSize is the traversal and alignment granularity.
const PageSize = 4096

// touched keeps the XOR of every walk alive so page reads are never elided.
var touched atomic.Uint32

// Region is a populated, read-only buffer. The only way to obtain one is
// Populate, so a *Region is never uninitialized.
type Region struct {
	buf      []byte
	recorder *timing.Recorder
}

type options struct {
	source   io.Reader
	recorder *timing.Recorder
}

// Option configures Populate.
type Option func(*options)

// WithSource fills the buffer from src instead of a freshly seeded ChaCha8 stream.
func WithSource(src io.Reader) Option {
	return func(o *options) { o.source = src }
}

// WithRecorder sets the recorder that times reads.
func WithRecorder(r *timing.Recorder) Option {
	return func(o *options) { o.recorder = r }
}

// Populate allocates size bytes and fills them with random data.
// Args:
// - size: int, positive multiple of PageSize
// - opts: Option
// Returns:
// - *Region: the populated region
// - error: ErrInvalidSize, *MisalignedBufferError or a fill error
func Populate(size int, opts ...Option) (*Region, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidSize, size)
	}
	if size%PageSize != 0 {
		return nil, &MisalignedBufferError{Size: size}
	}

	o := options{recorder: timing.Default}
	for _, opt := range opts {
		opt(&o)
	}
	if o.source == nil {
		src, err := newChaChaSource()
		if err != nil {
			return nil, err
		}
		o.source = src
	}

	buf := make([]byte, size)
	if _, err := io.ReadFull(o.source, buf); err != nil {
		return nil, fmt.Errorf("fill memory region: %w", err)
	}
	ensureNonZero(buf)

	return &Region{buf: buf, recorder: o.recorder}, nil
}

func newChaChaSource() (io.Reader, error) {
	var seed [32]byte
	if _, err := crand.Read(seed[:]); err != nil {
		return nil, fmt.Errorf("seed memory region: %w", err)
	}
	return rand.NewChaCha8(seed), nil
}

// ensureNonZero makes sure no page is backed by zeroes only, so the kernel
// cannot serve it from the shared zero page.
func ensureNonZero(buf []byte) {
	for off := 0; off < len(buf); off += PageSize {
		if buf[off] == 0 {
			buf[off] = 1
		}
	}
}

// Len returns the buffer length in bytes.
func (r *Region) Len() int { return len(r.buf) }

// Pages returns the number of pages in the buffer.
func (r *Region) Pages() int { return len(r.buf) / PageSize }

// Touch reads the first byte of page.
func (r *Region) Touch(page int) byte { return r.buf[page*PageSize] }

// Read walks the region in the order selected by plan and returns the
// elapsed wall time of the walk.
func (r *Region) Read(plan AccessPlan) time.Duration {
	return r.ReadWith(StrategyFor(plan))
}

// ReadWith walks the region with s and returns the elapsed wall time.
func (r *Region) ReadWith(s Strategy) time.Duration {
	sum, d := timing.Measure(r.recorder, func() byte { return s.Walk(r) })
	touched.Store(uint32(sum))
	return d
}
