package memory

import (
	"context"

	"github.com/tetratelabs/wazero/api"

	fdbwasm "github.com/wippyai/fdb-wasm"
	"github.com/wippyai/fdb-wasm/errors"
)

// WrapMemory wraps a wazero api.Memory to implement fdbwasm.WritableMemory.
func WrapMemory(mem api.Memory) fdbwasm.WritableMemory {
	if mem == nil {
		return nil
	}
	return &Wrapper{Mem: mem}
}

// WrapAllocator wraps a wazero api.Function to implement fdbwasm.Allocator.
func WrapAllocator(ctx context.Context, fn api.Function) fdbwasm.Allocator {
	if fn == nil {
		return nil
	}
	return &AllocatorWrapper{Ctx: ctx, Fn: fn}
}

// Wrapper adapts wazero api.Memory to the fdbwasm memory interfaces.
type Wrapper struct {
	Mem api.Memory
}

// Read returns a view of length bytes at offset.
func (m *Wrapper) Read(offset uint32, length uint32) ([]byte, error) {
	data, ok := m.Mem.Read(offset, length)
	if !ok {
		return nil, errors.OutOfBounds(errors.PhaseView, offset, length)
	}
	return data, nil
}

// ReadU32 reads an unsigned 32-bit little-endian value.
func (m *Wrapper) ReadU32(offset uint32) (uint32, error) {
	v, ok := m.Mem.ReadUint32Le(offset)
	if !ok {
		return 0, errors.OutOfBounds(errors.PhaseView, offset, 4)
	}
	return v, nil
}

// Write writes bytes to memory.
func (m *Wrapper) Write(offset uint32, data []byte) error {
	if !m.Mem.Write(offset, data) {
		return errors.OutOfBounds(errors.PhaseGuest, offset, uint32(len(data)))
	}
	return nil
}

// WriteU32 writes an unsigned 32-bit little-endian value.
func (m *Wrapper) WriteU32(offset uint32, value uint32) error {
	if !m.Mem.WriteUint32Le(offset, value) {
		return errors.OutOfBounds(errors.PhaseGuest, offset, 4)
	}
	return nil
}

// Size returns the current size of linear memory in bytes.
func (m *Wrapper) Size() uint32 {
	return m.Mem.Size()
}

// AllocatorWrapper adapts wazero api.Function (cabi_realloc) to fdbwasm.Allocator.
type AllocatorWrapper struct {
	Ctx context.Context
	Fn  api.Function
}

// Alloc allocates memory using cabi_realloc.
func (a *AllocatorWrapper) Alloc(size, align uint32) (uint32, error) {
	results, err := a.Fn.Call(a.Ctx, 0, 0, uint64(align), uint64(size))
	if err != nil {
		return 0, errors.CallFailed("cabi_realloc", err)
	}
	if len(results) == 0 {
		return 0, errors.New(errors.PhaseGuest, errors.KindAllocation).
			Detail("cabi_realloc returned no result").
			Build()
	}
	ptr := uint32(results[0])
	if ptr == 0 && size > 0 {
		return 0, errors.New(errors.PhaseGuest, errors.KindAllocation).
			Detailf("cabi_realloc returned null for %d bytes", size).
			Build()
	}
	return ptr, nil
}

// Free deallocates memory using cabi_realloc.
func (a *AllocatorWrapper) Free(ptr, size, align uint32) {
	_, _ = a.Fn.Call(a.Ctx, uint64(ptr), uint64(size), uint64(align), 0)
}
