package arenatest

import (
	fdbwasm "github.com/wippyai/fdb-wasm"
)

// Record sizes of the wasm32 FDB C ABI.
const (
	KeySize            = 8
	KeyValueSize       = 16
	KeySelectorSize    = 16
	GetRangeSize       = 44
	MappedKeyValueSize = 92
)

// KV is one key-value pair to lay out.
type KV struct {
	Key, Value []byte
}

// Selector is a key selector boundary to lay out.
type Selector struct {
	Key     []byte
	OrEqual bool
	Offset  int32
}

// Mapped is one mapped key-value record to lay out.
type Mapped struct {
	Key, Value []byte
	Begin, End Selector
	Range      []KV
}

// Builder writes records into a WritableMemory, bumping a cursor.
// The first write error is kept and every later call becomes a no-op.
type Builder struct {
	mem  fdbwasm.WritableMemory
	next uint32
	err  error
}

// NewBuilder starts laying out records at start.
func NewBuilder(mem fdbwasm.WritableMemory, start uint32) *Builder {
	return &Builder{mem: mem, next: start}
}

// Err returns the first write error.
func (b *Builder) Err() error {
	return b.err
}

// Next returns the offset of the next write.
func (b *Builder) Next() uint32 {
	return b.next
}

// Skip leaves n bytes unused.
func (b *Builder) Skip(n uint32) {
	b.next += n
}

func (b *Builder) misalign() {
	if b.next%2 == 0 {
		b.next++
	}
}

func (b *Builder) reserve(n uint32) uint32 {
	p := b.next
	b.next += n
	return p
}

func (b *Builder) u32(off, v uint32) {
	if b.err != nil {
		return
	}
	b.err = b.mem.WriteU32(off, v)
}

// Bytes copies data into the arena at an odd offset and returns its pointer.
func (b *Builder) Bytes(data []byte) uint32 {
	b.misalign()
	p := b.reserve(uint32(len(data)))
	if b.err == nil && len(data) > 0 {
		b.err = b.mem.Write(p, data)
	}
	return p
}

func (b *Builder) key(off uint32, data []byte) {
	p := b.Bytes(data)
	b.u32(off, p)
	b.u32(off+4, uint32(len(data)))
}

func (b *Builder) boolean(v bool) uint32 {
	if v {
		return 1
	}
	return 0
}

// Keys lays out an FDBKey array and returns its pointer and count.
func (b *Builder) Keys(keys ...[]byte) (uint32, int32) {
	if len(keys) == 0 {
		return 0, 0
	}
	b.misalign()
	arr := b.reserve(uint32(len(keys)) * KeySize)
	for i, k := range keys {
		b.key(arr+uint32(i)*KeySize, k)
	}
	return arr, int32(len(keys))
}

// KeyValues lays out an FDBKeyValue array and returns its pointer and count.
func (b *Builder) KeyValues(kvs ...KV) (uint32, int32) {
	if len(kvs) == 0 {
		return 0, 0
	}
	b.misalign()
	arr := b.reserve(uint32(len(kvs)) * KeyValueSize)
	for i, kv := range kvs {
		off := arr + uint32(i)*KeyValueSize
		b.key(off, kv.Key)
		b.key(off+8, kv.Value)
	}
	return arr, int32(len(kvs))
}

func (b *Builder) selector(off uint32, s Selector) {
	b.key(off, s.Key)
	b.u32(off+8, b.boolean(s.OrEqual))
	b.u32(off+12, uint32(s.Offset))
}

// MappedKeyValues lays out an FDBMappedKeyValue array and returns its pointer
// and count. Each nested range array is laid out separately.
func (b *Builder) MappedKeyValues(ms ...Mapped) (uint32, int32) {
	if len(ms) == 0 {
		return 0, 0
	}
	b.misalign()
	arr := b.reserve(uint32(len(ms)) * MappedKeyValueSize)
	for i, m := range ms {
		off := arr + uint32(i)*MappedKeyValueSize
		b.key(off, m.Key)
		b.key(off+8, m.Value)

		rng := off + 16
		b.selector(rng, m.Begin)
		b.selector(rng+KeySelectorSize, m.End)
		data, n := b.KeyValues(m.Range...)
		b.u32(rng+32, data)
		b.u32(rng+36, uint32(n))
		b.u32(rng+40, uint32(n))
	}
	return arr, int32(len(ms))
}
