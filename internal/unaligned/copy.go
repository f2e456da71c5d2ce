// Package unaligned copies record arrays out of a foreign arena.
//
// Arena offsets carry no alignment guarantee, so records are never read in place.
// Copy moves the raw bytes into an aligned host buffer and reinterprets that
// buffer as a slice of records. Record types must be pointer-free and built from
// 4-byte little-endian words and byte arrays.
package unaligned

import (
	"math"
	"unsafe"

	fdbwasm "github.com/wippyai/fdb-wasm"
	"github.com/wippyai/fdb-wasm/errors"
	"github.com/wippyai/fdb-wasm/pool"
)

// Buffer is an aligned, owned copy of a foreign record array.
type Buffer[T any] struct {
	alloc   pool.Allocator
	backing []byte
	recs    []T
	taken   []bool
}

// Copy copies count records of type T found at ptr in mem into a new Buffer.
// A zero count yields an empty buffer without allocating. A nil alloc uses the heap.
func Copy[T any](mem fdbwasm.Memory, ptr uint32, count int32, alloc pool.Allocator) (*Buffer[T], error) {
	if count < 0 {
		return nil, errors.InvalidSpan(errors.PhaseCopy, ptr, count)
	}
	if count == 0 {
		return &Buffer[T]{}, nil
	}
	if ptr == 0 {
		return nil, errors.NilPointer(errors.PhaseCopy, count)
	}

	var zero T
	size := unsafe.Sizeof(zero)
	align := unsafe.Alignof(zero)
	total := uint64(count) * uint64(size)
	if total > math.MaxUint32 {
		return nil, errors.Overflow(errors.PhaseCopy, count, size)
	}

	src, err := mem.Read(ptr, uint32(total))
	if err != nil {
		return nil, errors.New(errors.PhaseCopy, errors.KindOutOfBounds).
			Span(ptr, uint32(total)).
			Detailf("%d records of %d bytes", count, size).
			Cause(err).
			Build()
	}

	if alloc == nil {
		alloc = pool.Heap
	}
	backing, err := alloc.Get(int(total) + int(align) - 1)
	if err != nil {
		return nil, errors.AllocationFailed(errors.PhaseCopy, int(total), err)
	}

	start := alignOffset(backing, align)
	dst := backing[start : start+int(total)]
	copy(dst, src)

	recs := unsafe.Slice((*T)(unsafe.Pointer(unsafe.SliceData(dst))), int(count))
	if !hostLittleEndian {
		swapWords(dst)
	}

	return &Buffer[T]{
		alloc:   alloc,
		backing: backing,
		recs:    recs,
		taken:   make([]bool, count),
	}, nil
}

// alignOffset returns the first index of b whose address is aligned to align.
func alignOffset(b []byte, align uintptr) int {
	addr := uintptr(unsafe.Pointer(unsafe.SliceData(b)))
	return int((align - addr%align) % align)
}

// Len returns the number of records in the buffer, taken or not.
func (b *Buffer[T]) Len() int {
	return len(b.recs)
}

// Records returns the records in place. The slice is only valid until Free.
func (b *Buffer[T]) Records() []T {
	return b.recs
}

// At returns a pointer to record i in place.
func (b *Buffer[T]) At(i int) *T {
	return &b.recs[i]
}

// Take moves record i out of the buffer. The slot is zeroed and marked taken;
// taking it again panics.
func (b *Buffer[T]) Take(i int) T {
	if b.taken[i] {
		panic("unaligned: record taken twice")
	}
	r := b.recs[i]
	var zero T
	b.recs[i] = zero
	b.taken[i] = true
	return r
}

// Taken reports whether record i has been moved out.
func (b *Buffer[T]) Taken(i int) bool {
	return b.taken[i]
}

// Free gives the backing allocation back to its allocator. Only the first call
// has an effect; no per-record work is done.
func (b *Buffer[T]) Free() {
	if b.backing == nil {
		return
	}
	backing := b.backing[:cap(b.backing)]
	b.backing = nil
	b.recs = nil
	b.taken = nil
	b.alloc.Put(backing)
}

// Freed reports whether the buffer no longer holds a backing allocation.
// Empty buffers never hold one.
func (b *Buffer[T]) Freed() bool {
	return b.backing == nil
}
