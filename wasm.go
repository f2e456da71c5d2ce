package fdbwasm

// Memory is read access to a foreign arena addressed by 32-bit offsets.
// Read returns a view of the arena, not a copy. Offsets carry no alignment
// guarantee.
type Memory interface {
	Read(offset uint32, length uint32) ([]byte, error)
	ReadU32(offset uint32) (uint32, error)
}

// WritableMemory is a Memory that can also be written.
type WritableMemory interface {
	Memory
	Write(offset uint32, data []byte) error
	WriteU32(offset uint32, value uint32) error
}

// MemorySizer provides the current size of the arena in bytes.
type MemorySizer interface {
	Size() uint32
}

// Allocator allocates memory inside the foreign arena
type Allocator interface {
	Alloc(size, align uint32) (uint32, error)
	Free(ptr, size, align uint32)
}
