package future

import (
	"go.uber.org/atomic"
	"go.uber.org/zap"

	fdbwasm "github.com/wippyai/fdb-wasm"
	"github.com/wippyai/fdb-wasm/errors"
)

var lastID atomic.Uint64

type handle struct {
	mem       fdbwasm.Memory
	destroy   DestroyFunc
	name      string
	observers []Observer
	id        uint64
	refs      atomic.Int32
}

// Ref is one counted reference to a future's handle.
type Ref struct {
	h        *handle
	released atomic.Bool
}

// New creates a handle over mem and returns its only reference.
// destroy may be nil.
func New(mem fdbwasm.Memory, destroy DestroyFunc, opts ...Option) *Ref {
	h := &handle{
		mem:     mem,
		destroy: destroy,
		id:      lastID.Inc(),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.refs.Store(1)

	h.notify(Event{Type: EventCreated, Refs: 1})
	Logger().Debug("future created", zap.Uint64("future", h.id), zap.String("name", h.name))
	return &Ref{h: h}
}

// ID returns the handle's process-unique id.
func (r *Ref) ID() uint64 {
	return r.h.id
}

// Name returns the handle's label.
func (r *Ref) Name() string {
	return r.h.name
}

// Count returns the number of live references to the handle.
func (r *Ref) Count() int32 {
	return r.h.refs.Load()
}

// Released reports whether this reference has been released.
func (r *Ref) Released() bool {
	return r.released.Load()
}

// Clone returns a new reference to the same handle.
// Cloning a released reference panics.
func (r *Ref) Clone() *Ref {
	if r.released.Load() {
		panic(errors.Released(r.h.id))
	}
	n := r.h.refs.Inc()
	r.h.notify(Event{Type: EventCloned, Refs: n})
	return &Ref{h: r.h}
}

// Release drops this reference. Only the first call has an effect. When the
// last reference goes, the handle's destroy callback runs and its error is
// returned.
func (r *Ref) Release() error {
	if !r.released.CompareAndSwap(false, true) {
		return nil
	}
	n := r.h.refs.Dec()
	r.h.notify(Event{Type: EventReleased, Refs: n})
	if n > 0 {
		return nil
	}
	return r.h.finish()
}

// Read reads the future's arena through this reference.
func (r *Ref) Read(offset, length uint32) ([]byte, error) {
	if r.released.Load() {
		return nil, errors.Released(r.h.id)
	}
	return r.h.mem.Read(offset, length)
}

// ReadU32 reads a little-endian word from the future's arena.
func (r *Ref) ReadU32(offset uint32) (uint32, error) {
	if r.released.Load() {
		return 0, errors.Released(r.h.id)
	}
	return r.h.mem.ReadU32(offset)
}

func (h *handle) finish() error {
	var err error
	if h.destroy != nil {
		err = h.destroy()
	}
	h.notify(Event{Type: EventDestroyed, Err: err})

	if err != nil {
		Logger().Warn("future destroy failed", zap.Uint64("future", h.id), zap.String("name", h.name), zap.Error(err))
		return errors.Wrap(errors.PhaseFuture, errors.KindCallFailed, err, "destroy future")
	}
	Logger().Debug("future destroyed", zap.Uint64("future", h.id), zap.String("name", h.name))
	return nil
}

func (h *handle) notify(e Event) {
	if len(h.observers) == 0 {
		return
	}
	e.ID = h.id
	e.Name = h.name
	for _, o := range h.observers {
		o.OnFutureEvent(e)
	}
}

var _ fdbwasm.Memory = (*Ref)(nil)
