package fdb

import (
	"go.uber.org/multierr"

	fdbwasm "github.com/wippyai/fdb-wasm"
	"github.com/wippyai/fdb-wasm/errors"
	"github.com/wippyai/fdb-wasm/future"
	"github.com/wippyai/fdb-wasm/internal/unaligned"
	"github.com/wippyai/fdb-wasm/pool"
)

// record is a raw ABI struct that can check its spans against the arena.
type record interface {
	validate(mem fdbwasm.Memory) error
}

// records is an owned buffer plus the reference keeping its arena alive.
// A zero records is empty and holds nothing.
type records[R any] struct {
	buf *unaligned.Buffer[R]
	ref *future.Ref
}

// newRecords copies and validates count records at ptr. It takes ownership of
// ref and releases it on failure.
func newRecords[R record](ref *future.Ref, ptr uint32, count int32, alloc pool.Allocator) (records[R], error) {
	if ref == nil {
		return records[R]{}, errors.InvalidInput(errors.PhaseView, "nil future reference")
	}

	buf, err := unaligned.Copy[R](ref, ptr, count, alloc)
	if err != nil {
		return records[R]{}, multierr.Append(err, ref.Release())
	}

	recs := buf.Records()
	for i := range recs {
		if err := recs[i].validate(ref); err != nil {
			buf.Free()
			err = errors.New(errors.PhaseView, errors.KindInvalidInput).
				Detailf("record %d of %d", i, len(recs)).
				Cause(err).
				Build()
			return records[R]{}, multierr.Append(err, ref.Release())
		}
	}

	return records[R]{buf: buf, ref: ref}, nil
}

func (a *records[R]) len() int {
	if a.buf == nil {
		return 0
	}
	return a.buf.Len()
}

func (a *records[R]) at(i int) R {
	return *a.buf.At(i)
}

// detach moves the contents out, leaving a empty.
func (a *records[R]) detach() records[R] {
	out := *a
	*a = records[R]{}
	return out
}

func (a *records[R]) close() error {
	c := a.detach()
	if c.buf != nil {
		c.buf.Free()
	}
	if c.ref == nil {
		return nil
	}
	return c.ref.Release()
}

// cursor is the consuming side of records: the front index pos and the back
// boundary end close in on each other and never cross.
type cursor[R any] struct {
	buf *unaligned.Buffer[R]
	ref *future.Ref
	pos int
	end int
}

func newCursor[R any](a records[R]) *cursor[R] {
	return &cursor[R]{buf: a.buf, ref: a.ref, end: a.len()}
}

func (c *cursor[R]) len() int {
	return c.end - c.pos
}

// nth moves out the record k places after the front and drops the k records
// before it. Past the back boundary the cursor is exhausted.
func (c *cursor[R]) nth(k int) (R, *future.Ref, bool) {
	var zero R
	if k < 0 {
		return zero, nil, false
	}
	if k >= c.end-c.pos {
		c.pos = c.end
		return zero, nil, false
	}
	i := c.pos + k
	c.pos = i + 1
	return c.buf.Take(i), c.ref.Clone(), true
}

// nthBack is nth from the back boundary.
func (c *cursor[R]) nthBack(k int) (R, *future.Ref, bool) {
	var zero R
	if k < 0 {
		return zero, nil, false
	}
	if k >= c.end-c.pos {
		c.pos = c.end
		return zero, nil, false
	}
	c.end -= k + 1
	return c.buf.Take(c.end), c.ref.Clone(), true
}

// close frees the buffer without visiting unread slots and drops the
// cursor's reference. Yielded rows keep their own.
func (c *cursor[R]) close() error {
	buf, ref := c.buf, c.ref
	c.buf, c.ref = nil, nil
	c.pos, c.end = 0, 0

	if buf != nil {
		buf.Free()
	}
	if ref == nil {
		return nil
	}
	return ref.Release()
}
