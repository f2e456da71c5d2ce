// Package fdbwasm hosts the results of FoundationDB futures whose client runs as a
// WebAssembly guest.
//
// The FDB client allocates every result inside its own arenas, which here live in
// the guest's linear memory. Those arenas give no alignment guarantee and are
// freed when the owning future is destroyed. This module copies the record
// arrays into aligned host buffers and keeps the future alive for exactly as long
// as any record derived from it can still be read.
//
// # Architecture Overview
//
//	fdbwasm/             Root package with the arena Memory and guest Allocator interfaces
//	├── fdb/             Record views, owned arrays and double-ended consuming iterators
//	├── future/          Reference-counted completion handle owning the foreign arena
//	├── guest/           Binding to the FDB C exports of a wazero guest module
//	├── pool/            Host buffer allocators (heap, bucketed pool, counting, metrics)
//	├── errors/          Structured error types
//	└── cmd/arenabench/  Synthetic arena bench
//
// # Quick Start
//
//	client, err := guest.NewClient(ctx, mod, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	keys, err := client.Keys(ctx, fut)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	it := keys.IntoIter()
//	defer it.Close()
//
//	first, _ := it.Next()
//	last, _ := it.NextBack()
//	defer first.Release()
//	defer last.Release()
//
// # Lifetimes
//
// Views returned by an array (At, All) read through the array's reference and stop
// working once the array, or the iterator it was turned into, is closed. Rows
// yielded by an iterator hold their own reference and must be released. The guest
// future is destroyed when the last reference goes away.
//
// # Thread Safety
//
// Arrays and rows may be read from several goroutines. Iterators are single-writer.
package fdbwasm
