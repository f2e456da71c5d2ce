package fdb

import (
	"bytes"
	"fmt"

	"github.com/wippyai/fdb-wasm/errors"
	"github.com/wippyai/fdb-wasm/future"
	"github.com/wippyai/fdb-wasm/internal/unaligned"
	"github.com/wippyai/fdb-wasm/pool"
)

// read returns the foreign bytes of s. Spans are validated when the array is
// built, so the only failure left is a released reference. The slice aliases
// guest memory: writes go to the arena and its contents are only meaningful
// while ref is live.
func read(ref *future.Ref, s rawKey) []byte {
	if ref.Released() {
		panic(errors.Released(ref.ID()))
	}
	if s.Len == 0 {
		return []byte{}
	}
	b, err := ref.Read(s.Ptr, uint32(s.Len))
	if err != nil {
		panic(err)
	}
	return b
}

// Key is a view of one FDBKey.
type Key struct {
	raw rawKey
	ref *future.Ref
}

// Key returns the key bytes. They alias guest memory and are valid until the
// owning array or row is released; do not modify them.
func (k Key) Key() []byte {
	return read(k.ref, k.raw)
}

// CopyKey returns the key bytes in a slice owned by the caller.
func (k Key) CopyKey() []byte {
	return bytes.Clone(k.Key())
}

// Equal reports whether both keys hold the same bytes.
func (k Key) Equal(o Key) bool {
	return bytes.Equal(k.Key(), o.Key())
}

func (k Key) String() string {
	return fmt.Sprintf("(%q)", k.Key())
}

// KeyValue is a view of one FDBKeyValue.
type KeyValue struct {
	raw rawKeyValue
	ref *future.Ref
}

// Key returns the key bytes. Like Value, the slice aliases guest memory and
// is valid until the owning array or row is released.
func (kv KeyValue) Key() []byte {
	return read(kv.ref, kv.raw.Key)
}

// Value returns the value bytes.
func (kv KeyValue) Value() []byte {
	return read(kv.ref, kv.raw.Value)
}

// CopyKey returns the key bytes in a slice owned by the caller.
func (kv KeyValue) CopyKey() []byte {
	return bytes.Clone(kv.Key())
}

// CopyValue returns the value bytes in a slice owned by the caller.
func (kv KeyValue) CopyValue() []byte {
	return bytes.Clone(kv.Value())
}

// Equal reports whether both pairs hold the same key and value bytes.
func (kv KeyValue) Equal(o KeyValue) bool {
	return bytes.Equal(kv.Key(), o.Key()) && bytes.Equal(kv.Value(), o.Value())
}

func (kv KeyValue) String() string {
	return fmt.Sprintf("(%q, %q)", kv.Key(), kv.Value())
}

// MappedKeyValue is a view of one FDBMappedKeyValue: a parent pair from the
// primary range plus the secondary range it was mapped to.
type MappedKeyValue struct {
	raw rawMappedKeyValue
	ref *future.Ref
}

// ParentKey returns the key of the primary record. All byte accessors of a
// mapped record alias guest memory and are valid until it is released.
func (m MappedKeyValue) ParentKey() []byte {
	return read(m.ref, m.raw.Key)
}

// ParentValue returns the value of the primary record.
func (m MappedKeyValue) ParentValue() []byte {
	return read(m.ref, m.raw.Value)
}

// BeginRange returns the begin key of the secondary range.
func (m MappedKeyValue) BeginRange() []byte {
	return read(m.ref, m.raw.Range.Begin.Key)
}

// EndRange returns the end key of the secondary range.
func (m MappedKeyValue) EndRange() []byte {
	return read(m.ref, m.raw.Range.End.Key)
}

// CopyParentKey returns the parent key in a slice owned by the caller.
func (m MappedKeyValue) CopyParentKey() []byte {
	return bytes.Clone(m.ParentKey())
}

// CopyParentValue returns the parent value in a slice owned by the caller.
func (m MappedKeyValue) CopyParentValue() []byte {
	return bytes.Clone(m.ParentValue())
}

// BeginSelector returns the begin of the secondary range as a selector.
// The producer always resolves boundaries exactly, so OrEqual is false and
// Offset is zero. The selector's Key aliases guest memory like BeginRange.
func (m MappedKeyValue) BeginSelector() KeySelector {
	return NewKeySelector(m.BeginRange(), false, 0)
}

// EndSelector returns the end of the secondary range as a selector.
func (m MappedKeyValue) EndSelector() KeySelector {
	return NewKeySelector(m.EndRange(), false, 0)
}

// KeyValues copies the secondary range's records out of the arena. Every call
// makes a fresh copy. The returned views share this record's reference.
func (m MappedKeyValue) KeyValues() []KeyValue {
	if m.ref.Released() {
		panic(errors.Released(m.ref.ID()))
	}
	buf, err := unaligned.Copy[rawKeyValue](m.ref, m.raw.Range.Data, m.raw.Range.Size, pool.Heap)
	if err != nil {
		panic(err)
	}
	defer buf.Free()

	recs := buf.Records()
	out := make([]KeyValue, len(recs))
	for i := range recs {
		out[i] = KeyValue{raw: recs[i], ref: m.ref}
	}
	return out
}

// Equal compares parent key and value only.
func (m MappedKeyValue) Equal(o MappedKeyValue) bool {
	return bytes.Equal(m.ParentKey(), o.ParentKey()) && bytes.Equal(m.ParentValue(), o.ParentValue())
}

func (m MappedKeyValue) String() string {
	return fmt.Sprintf("(%q, %q)", m.ParentKey(), m.ParentValue())
}

// KeySelector describes a range boundary: the last key less than (or equal
// to) Key, moved Offset keys forward.
type KeySelector struct {
	Key     []byte
	OrEqual bool
	Offset  int32
}

// NewKeySelector creates a selector.
func NewKeySelector(key []byte, orEqual bool, offset int32) KeySelector {
	return KeySelector{Key: key, OrEqual: orEqual, Offset: offset}
}

// LastLessThan selects the last key strictly below key.
func LastLessThan(key []byte) KeySelector {
	return NewKeySelector(key, false, 0)
}

// LastLessOrEqual selects the last key at or below key.
func LastLessOrEqual(key []byte) KeySelector {
	return NewKeySelector(key, true, 0)
}

// FirstGreaterThan selects the first key strictly above key.
func FirstGreaterThan(key []byte) KeySelector {
	return NewKeySelector(key, true, 1)
}

// FirstGreaterOrEqual selects the first key at or above key.
func FirstGreaterOrEqual(key []byte) KeySelector {
	return NewKeySelector(key, false, 1)
}

func (s KeySelector) String() string {
	return fmt.Sprintf("KeySelector(%q, %t, %d)", s.Key, s.OrEqual, s.Offset)
}
