package pool

import (
	"go.uber.org/atomic"
)

// Counting wraps an Allocator and counts calls and outstanding bytes.
type Counting struct {
	inner       Allocator
	gets        atomic.Int64
	puts        atomic.Int64
	outstanding atomic.Int64
}

// NewCounting wraps inner; a nil inner counts heap allocations.
func NewCounting(inner Allocator) *Counting {
	if inner == nil {
		inner = Heap
	}
	return &Counting{inner: inner}
}

func (c *Counting) Get(size int) ([]byte, error) {
	b, err := c.inner.Get(size)
	if err != nil {
		return nil, err
	}
	c.gets.Inc()
	c.outstanding.Add(int64(cap(b)))
	return b, nil
}

func (c *Counting) Put(b []byte) bool {
	c.puts.Inc()
	c.outstanding.Sub(int64(cap(b)))
	return c.inner.Put(b)
}

// Gets returns the number of successful Get calls.
func (c *Counting) Gets() int64 { return c.gets.Load() }

// Puts returns the number of Put calls.
func (c *Counting) Puts() int64 { return c.puts.Load() }

// Outstanding returns the capacity in bytes handed out and not yet put back.
func (c *Counting) Outstanding() int64 { return c.outstanding.Load() }
