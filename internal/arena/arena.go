// Package arena implements a fixed-size, cache-aligned bump allocator that
// stands in for a GPU block's shared memory: a band's ImageGaussians are
// carved out of one pre-sized buffer, instead of allocated per pixel or
// per source.
package arena

import (
	"errors"
	"fmt"
	"unsafe"
)

// CacheLineSize is the alignment used for every allocation out of the
// arena, matching the cache-line granularity a real shared-memory bank
// layout would use.
const CacheLineSize = 64

// ErrRegionExhausted is returned when an allocation would run past the
// end of the arena's buffer.
var ErrRegionExhausted = errors.New("arena: region exhausted")

// ErrRegionNotDefined is returned by operations on an Arena that was
// constructed with a zero size.
var ErrRegionNotDefined = errors.New("arena: region not defined")

// AlignedSize rounds size up to the next multiple of CacheLineSize.
func AlignedSize(size uintptr) uintptr {
	return (size + CacheLineSize - 1) &^ (CacheLineSize - 1)
}

// AlignedBytes allocates a byte slice whose backing array starts on a
// CacheLineSize boundary.
func AlignedBytes(size int) []byte {
	if size == 0 {
		return nil
	}
	buf := make([]byte, size+CacheLineSize-1)
	ptr := uintptr(unsafe.Pointer(&buf[0]))
	offset := uintptr(0)
	if mod := ptr % CacheLineSize; mod != 0 {
		offset = CacheLineSize - mod
	}
	return buf[offset : offset+uintptr(size)]
}

// Arena is a single pre-allocated, cache-aligned byte buffer used as
// scratch memory for one band's worth of work: the ImageGaussians
// produced by CreateImageGaussians. It is reused across exposures within
// a band via Reset, so the ImageGaussians need no per-exposure heap
// allocation; the per-worker partial-sum buffers are not held in the
// arena.
//
// Arena is not safe for concurrent allocation; callers that parallelize
// across bands give each band goroutine its own Arena (see
// photkernel.EvaluateProposal).
type Arena struct {
	buffer []byte
	offset uintptr
}

// New allocates an Arena backed by a cache-aligned buffer of at least
// size bytes.
func New(size uintptr) *Arena {
	return &Arena{buffer: AlignedBytes(int(AlignedSize(size)))}
}

// Cap returns the total capacity of the arena's buffer in bytes.
func (a *Arena) Cap() uintptr {
	return uintptr(len(a.buffer))
}

// Used returns the number of bytes currently committed since the last
// Reset.
func (a *Arena) Used() uintptr {
	return a.offset
}

// Remaining returns the number of bytes still available before the
// next allocation would exhaust the arena.
func (a *Arena) Remaining() uintptr {
	if a.offset > uintptr(len(a.buffer)) {
		return 0
	}
	return uintptr(len(a.buffer)) - a.offset
}

// Reset rewinds the bump pointer to the start of the buffer, making the
// whole arena available for reuse. It does not zero the buffer.
func (a *Arena) Reset() {
	a.offset = 0
}

// Alloc carves size bytes, aligned to CacheLineSize, off the front of
// the arena's remaining space and returns them as a slice into the
// arena's own backing array.
func (a *Arena) Alloc(size uintptr) ([]byte, error) {
	if len(a.buffer) == 0 {
		return nil, ErrRegionNotDefined
	}
	aligned := AlignedSize(a.offset)
	if aligned+size > uintptr(len(a.buffer)) {
		return nil, fmt.Errorf("%w: requested %d, have %d", ErrRegionExhausted, size, uintptr(len(a.buffer))-aligned)
	}
	out := a.buffer[aligned : aligned+size]
	a.offset = aligned + size
	return out, nil
}

// AllocFloat32 carves n float32 elements off the arena and returns them
// as a slice sharing the arena's backing storage.
func (a *Arena) AllocFloat32(n int) ([]float32, error) {
	if n == 0 {
		return nil, nil
	}
	buf, err := a.Alloc(uintptr(n) * 4)
	if err != nil {
		return nil, err
	}
	return unsafe.Slice((*float32)(unsafe.Pointer(&buf[0])), n), nil
}
