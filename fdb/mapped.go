package fdb

import (
	"github.com/wippyai/fdb-wasm/future"
	"github.com/wippyai/fdb-wasm/pool"
)

// MappedKeyValues is the owned result array of a mapped range read.
type MappedKeyValues = array[rawMappedKeyValue, MappedKeyValue, MappedValue]

// MappedKeyValuesIter consumes a mapped array from either end.
type MappedKeyValuesIter = iterator[rawMappedKeyValue, MappedKeyValue, MappedValue]

// NewMappedKeyValues copies count FDBMappedKeyValue records at ptr out of
// ref's arena. Each record's nested range is validated as well. It takes
// ownership of ref: on error ref has already been released.
func NewMappedKeyValues(ref *future.Ref, ptr uint32, count int32, more bool, alloc pool.Allocator) (*MappedKeyValues, error) {
	return newArray[rawMappedKeyValue, MappedKeyValue, MappedValue](ref, ptr, count, more, alloc)
}

// MappedValue is a mapped record that holds its own reference to the future.
// Child pairs returned by KeyValues share that reference.
type MappedValue struct {
	MappedKeyValue
}

func (r MappedValue) Release() error {
	return r.ref.Release()
}

func (m rawMappedKeyValue) view(ref *future.Ref) MappedKeyValue {
	return MappedKeyValue{raw: m, ref: ref}
}

func (m rawMappedKeyValue) row(ref *future.Ref) MappedValue {
	return MappedValue{m.view(ref)}
}
