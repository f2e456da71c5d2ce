// Package future implements the completion handle that owns a future's arena.
//
// A resolved FDB future owns every byte of its results. The guest frees all of
// it at once when the future is destroyed, so the host must not destroy the
// future while any record derived from it can still be read.
//
// # References
//
// New creates the handle together with its first Ref, the exclusive owner:
//
//	ref := future.New(mem, func() error {
//	    return destroyInGuest(ptr)
//	})
//
//	// Share with an independently lived value
//	row := ref.Clone()
//
//	// Each Ref is released once; later calls are no-ops
//	ref.Release()
//	row.Release() // last reference: the destroy callback runs here
//
// Counting is atomic, so Refs may be cloned and released from any goroutine.
//
// # Arena Reads
//
// A Ref implements fdbwasm.Memory. Reads through a released Ref fail with a
// KindReleased error instead of touching memory the guest may have reused.
//
// # Observers
//
// Register observers to track handle lifecycle events:
//
//	ref := future.New(mem, destroy, future.WithObserver(future.ObserverFunc(func(e future.Event) {
//	    if e.Type == future.EventDestroyed {
//	        log.Printf("future %d destroyed", e.ID)
//	    }
//	})))
package future
