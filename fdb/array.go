package fdb

import (
	"iter"

	"github.com/wippyai/fdb-wasm/future"
	"github.com/wippyai/fdb-wasm/pool"
)

// layout ties a raw record to the view arrays hand out and the row iterators
// yield. A view borrows its array's reference; a row owns a clone.
type layout[V, Row any] interface {
	record
	view(ref *future.Ref) V
	row(ref *future.Ref) Row
}

// array is the owned record array of a resolved future.
type array[R layout[V, Row], V, Row any] struct {
	recs records[R]
	more bool
}

func newArray[R layout[V, Row], V, Row any](ref *future.Ref, ptr uint32, count int32, more bool, alloc pool.Allocator) (*array[R, V, Row], error) {
	recs, err := newRecords[R](ref, ptr, count, alloc)
	if err != nil {
		return nil, err
	}
	return &array[R, V, Row]{recs: recs, more: more}, nil
}

// Len returns the number of records.
func (a *array[R, V, Row]) Len() int {
	return a.recs.len()
}

// IsEmpty reports whether the array holds no records.
func (a *array[R, V, Row]) IsEmpty() bool {
	return a.Len() == 0
}

// More reports whether the range read has results past this batch. Key
// arrays always report false.
func (a *array[R, V, Row]) More() bool {
	return a.more
}

// At returns a view of record i. It panics if i is out of range. The view's
// bytes alias the arena and are valid until Close.
func (a *array[R, V, Row]) At(i int) V {
	return a.recs.at(i).view(a.recs.ref)
}

// All iterates the records front to back without consuming them.
func (a *array[R, V, Row]) All() iter.Seq2[int, V] {
	return func(yield func(int, V) bool) {
		for i := 0; i < a.Len(); i++ {
			if !yield(i, a.At(i)) {
				return
			}
		}
	}
}

// Close frees the buffer and releases the array's reference.
func (a *array[R, V, Row]) Close() error {
	return a.recs.close()
}

// IntoIter moves the buffer and reference into a consuming iterator and
// leaves the array empty.
func (a *array[R, V, Row]) IntoIter() *iterator[R, V, Row] {
	return &iterator[R, V, Row]{c: newCursor(a.recs.detach())}
}

// iterator consumes an array from either end.
type iterator[R layout[V, Row], V, Row any] struct {
	c *cursor[R]
}

func (it *iterator[R, V, Row]) row(raw R, ref *future.Ref, ok bool) (Row, bool) {
	if !ok {
		var zero Row
		return zero, false
	}
	return raw.row(ref), true
}

// Next yields the front record.
func (it *iterator[R, V, Row]) Next() (Row, bool) {
	return it.Nth(0)
}

// NextBack yields the back record.
func (it *iterator[R, V, Row]) NextBack() (Row, bool) {
	return it.NthBack(0)
}

// Nth skips k records from the front and yields the next one. If fewer than
// k+1 records remain the iterator is exhausted.
func (it *iterator[R, V, Row]) Nth(k int) (Row, bool) {
	return it.row(it.c.nth(k))
}

// NthBack skips k records from the back and yields the next one.
func (it *iterator[R, V, Row]) NthBack(k int) (Row, bool) {
	return it.row(it.c.nthBack(k))
}

// Len returns the exact number of records left.
func (it *iterator[R, V, Row]) Len() int {
	return it.c.len()
}

// All yields the remaining records front to back.
func (it *iterator[R, V, Row]) All() iter.Seq[Row] {
	return func(yield func(Row) bool) {
		for {
			r, ok := it.Next()
			if !ok || !yield(r) {
				return
			}
		}
	}
}

// Backward yields the remaining records back to front.
func (it *iterator[R, V, Row]) Backward() iter.Seq[Row] {
	return func(yield func(Row) bool) {
		for {
			r, ok := it.NextBack()
			if !ok || !yield(r) {
				return
			}
		}
	}
}

// Close frees the buffer and releases the iterator's reference. Unread
// records are dropped; yielded rows are not affected.
func (it *iterator[R, V, Row]) Close() error {
	return it.c.close()
}
