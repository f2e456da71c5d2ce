// Package pool provides the host-side allocators behind owned record buffers.
package pool

import (
	"github.com/prometheus/prometheus/util/pool"

	"github.com/wippyai/fdb-wasm/errors"
)

// Allocator supplies the byte slices that back copied record arrays.
// A slice from Get goes back through Put once, when its array is released.
// Put reports whether the allocator took the slice back.
type Allocator interface {
	Get(size int) ([]byte, error)
	Put([]byte) bool
}

// Heap allocates with make and lets the GC reclaim released buffers.
var Heap Allocator = heap{}

type heap struct{}

func (heap) Get(size int) ([]byte, error) { return make([]byte, size), nil }
func (heap) Put([]byte) bool              { return true }

// Buckets recycles record buffers through size classes growing from min to
// max by a constant factor. Requests above max are served from the heap.
type Buckets struct {
	min, max int
	sizes    []int
	pool     *pool.Pool
}

// NewBuckets builds a bucketed allocator. min must be positive, max at
// least min, and factor must grow min by at least one byte.
func NewBuckets(min, max int, factor float64) (*Buckets, error) {
	if min < 1 || max < min || int(float64(min)*factor) <= min {
		return nil, errors.New(errors.PhaseConfig, errors.KindInvalidInput).
			Detailf("bucket sizes min=%d max=%d factor=%g", min, max, factor).Build()
	}
	var sizes []int
	for s := min; s <= max; s = int(float64(s) * factor) {
		sizes = append(sizes, s)
	}
	return &Buckets{
		min:   min,
		max:   max,
		sizes: sizes,
		pool: pool.New(min, max, factor, func(size int) interface{} {
			return make([]byte, 0, size)
		}),
	}, nil
}

// Sizes returns the capacity of each size class, smallest first.
func (b *Buckets) Sizes() []int { return append([]int(nil), b.sizes...) }

func (b *Buckets) Get(size int) ([]byte, error) {
	if size < 0 {
		return nil, errors.New(errors.PhaseCopy, errors.KindAllocation).
			Detailf("negative buffer size %d", size).Build()
	}
	buf := b.pool.Get(size).([]byte)
	return buf[:size], nil
}

// Put recycles buf when its capacity is one of the size classes. Anything
// else, including oversize heap buffers, is left to the GC and reported false.
func (b *Buckets) Put(buf []byte) bool {
	c := cap(buf)
	if c < b.min || c > b.max || !b.sized(c) {
		return false
	}
	b.pool.Put(buf[:0])
	return true
}

func (b *Buckets) sized(c int) bool {
	for _, s := range b.sizes {
		if s == c {
			return true
		}
	}
	return false
}
