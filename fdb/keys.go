package fdb

import (
	"github.com/wippyai/fdb-wasm/future"
	"github.com/wippyai/fdb-wasm/pool"
)

// Keys is the owned key array of a resolved future.
type Keys = array[rawKey, Key, RowKey]

// KeysIter consumes a key array from either end.
type KeysIter = iterator[rawKey, Key, RowKey]

// NewKeys copies count FDBKey records at ptr out of ref's arena. It takes
// ownership of ref: on error ref has already been released. A nil alloc uses
// the heap.
func NewKeys(ref *future.Ref, ptr uint32, count int32, alloc pool.Allocator) (*Keys, error) {
	return newArray[rawKey, Key, RowKey](ref, ptr, count, false, alloc)
}

// RowKey is a key that holds its own reference to the future.
type RowKey struct {
	key Key
}

// Key returns the key bytes. They alias the arena and stay valid until
// Release; use CopyKey to keep them longer.
func (r RowKey) Key() []byte {
	return r.key.Key()
}

// CopyKey returns the key bytes in a fresh slice.
func (r RowKey) CopyKey() []byte {
	return r.key.CopyKey()
}

// View returns the underlying key view.
func (r RowKey) View() Key {
	return r.key
}

func (r RowKey) Equal(o RowKey) bool {
	return r.key.Equal(o.key)
}

func (r RowKey) String() string {
	return r.key.String()
}

// Release drops the row's reference.
func (r RowKey) Release() error {
	return r.key.ref.Release()
}

func (k rawKey) view(ref *future.Ref) Key {
	return Key{raw: k, ref: ref}
}

func (k rawKey) row(ref *future.Ref) RowKey {
	return RowKey{key: k.view(ref)}
}
