package memregion

import (
	"errors"
	"fmt"
)

var (
	ErrUninitializedRegion = errors.New("memory region read before populate")
	ErrAlreadyPopulated    = errors.New("memory region already populated")
	ErrMisalignedBuffer    = errors.New("buffer size is not a multiple of the page size")
	ErrInvalidSize         = errors.New("buffer size must be positive")
)

// MisalignedBufferError carries the rejected size. It matches
// ErrMisalignedBuffer with errors.Is.
type MisalignedBufferError struct {
	Size int
}

func (e *MisalignedBufferError) Error() string {
	return fmt.Sprintf("%s: %d bytes is %d bytes past a %d-byte boundary",
		ErrMisalignedBuffer, e.Size, e.Size%PageSize, PageSize)
}

func (e *MisalignedBufferError) Is(target error) bool {
	return target == ErrMisalignedBuffer
}
