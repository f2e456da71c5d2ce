// Package memory provides arena access adapters for wazero.
//
// This package bridges wazero's memory API with the fdbwasm Memory and
// Allocator interfaces, so records produced by a guest FDB client can be read
// straight out of its linear memory.
//
// # Memory Wrapper
//
// Wraps wazero api.Memory:
//
//	mem := memory.WrapMemory(mod.ExportedMemory("memory"))
//	// mem implements fdbwasm.WritableMemory
//
// # Allocator Wrapper
//
// Wraps the guest's cabi_realloc export for out-parameter scratch space:
//
//	alloc := memory.WrapAllocator(ctx, mod.ExportedFunction("cabi_realloc"))
//	// alloc implements fdbwasm.Allocator
package memory
