package fdb

import (
	"github.com/wippyai/fdb-wasm/future"
	"github.com/wippyai/fdb-wasm/pool"
)

// KeyValues is the owned key-value array of a resolved range read.
type KeyValues = array[rawKeyValue, KeyValue, RowKeyValue]

// KeyValuesIter consumes a key-value array from either end.
type KeyValuesIter = iterator[rawKeyValue, KeyValue, RowKeyValue]

// NewKeyValues copies count FDBKeyValue records at ptr out of ref's arena.
// more records whether the range has results past this batch. It takes
// ownership of ref.
func NewKeyValues(ref *future.Ref, ptr uint32, count int32, more bool, alloc pool.Allocator) (*KeyValues, error) {
	return newArray[rawKeyValue, KeyValue, RowKeyValue](ref, ptr, count, more, alloc)
}

// RowKeyValue is a key-value pair that holds its own reference to the future.
type RowKeyValue struct {
	KeyValue
}

func (r RowKeyValue) Release() error {
	return r.ref.Release()
}

func (kv rawKeyValue) view(ref *future.Ref) KeyValue {
	return KeyValue{raw: kv, ref: ref}
}

func (kv rawKeyValue) row(ref *future.Ref) RowKeyValue {
	return RowKeyValue{kv.view(ref)}
}
