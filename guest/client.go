package guest

import (
	"bytes"
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/tetratelabs/wazero/api"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	fdbwasm "github.com/wippyai/fdb-wasm"
	"github.com/wippyai/fdb-wasm/errors"
	"github.com/wippyai/fdb-wasm/fdb"
	"github.com/wippyai/fdb-wasm/future"
	"github.com/wippyai/fdb-wasm/internal/memory"
	"github.com/wippyai/fdb-wasm/pool"
)

// Future is an FDBFuture pointer in guest memory.
type Future uint32

const (
	// out-parameter block: array pointer, count, more flag
	outSize  = 12
	outAlign = 4

	maxErrorMessage = 1024
)

// Client reads future results out of a guest FDB client.
type Client struct {
	mem       fdbwasm.WritableMemory
	alloc     pool.Allocator
	observers []future.Observer
	names     Config

	getKeys   api.Function
	getKVs    api.Function
	getMapped api.Function
	destroy   api.Function
	getError  api.Function
	realloc   api.Function

	mu   sync.Mutex
	live map[uint64]tracked
}

type tracked struct {
	name string
	fut  Future
}

// NewClient binds the FDB exports of mod. A nil cfg uses DefaultConfig.
// Every missing export is reported. Host modules are rejected: their exports
// cannot be called from the host.
func NewClient(ctx context.Context, mod api.Module, cfg *Config) (*Client, error) {
	if mod == nil {
		return nil, errors.InvalidInput(errors.PhaseConfig, "nil module")
	}
	c := cfg.withDefaults()

	if err := callable(mod, c.GetKeyArray); err != nil {
		return nil, err
	}

	mem := c.Memory
	if mem == nil {
		mem = mod.ExportedMemory(c.MemoryName)
	}

	var err error
	if mem == nil {
		err = multierr.Append(err, errors.MissingExport(c.MemoryName))
	}
	lookup := func(name string) api.Function {
		fn := mod.ExportedFunction(name)
		if fn == nil {
			err = multierr.Append(err, errors.MissingExport(name))
		}
		return fn
	}

	client := &Client{
		mem:       memory.WrapMemory(mem),
		alloc:     c.Allocator,
		observers: c.Observers,
		names:     c,
		getKeys:   lookup(c.GetKeyArray),
		getKVs:    lookup(c.GetKeyValueArray),
		getMapped: lookup(c.GetMappedKeyValueArray),
		destroy:   lookup(c.Destroy),
		getError:  lookup(c.GetError),
		realloc:   lookup(c.Realloc),
		live:      make(map[uint64]tracked),
	}
	if err != nil {
		return nil, err
	}

	Logger().Debug("guest bound", zap.String("module", mod.Name()), zap.Uint32("memory_bytes", mem.Size()))
	return client, nil
}

// Keys takes ownership of a ready future from a key-array read such as
// fdb_transaction_get_range_split_points and returns its keys. The future is
// destroyed on error.
func (c *Client) Keys(ctx context.Context, fut Future) (*fdb.Keys, error) {
	out, err := c.get(ctx, c.getKeys, c.names.GetKeyArray, fut, false)
	if err != nil {
		return nil, err
	}
	return fdb.NewKeys(c.track(ctx, fut, "keys"), out.ptr, out.count, c.alloc)
}

// KeyValues takes ownership of a ready range-read future and returns its
// key-value pairs.
func (c *Client) KeyValues(ctx context.Context, fut Future) (*fdb.KeyValues, error) {
	out, err := c.get(ctx, c.getKVs, c.names.GetKeyValueArray, fut, true)
	if err != nil {
		return nil, err
	}
	return fdb.NewKeyValues(c.track(ctx, fut, "key_values"), out.ptr, out.count, out.more, c.alloc)
}

// MappedKeyValues takes ownership of a ready mapped-range future and returns
// its mapped records.
func (c *Client) MappedKeyValues(ctx context.Context, fut Future) (*fdb.MappedKeyValues, error) {
	out, err := c.get(ctx, c.getMapped, c.names.GetMappedKeyValueArray, fut, true)
	if err != nil {
		return nil, err
	}
	return fdb.NewMappedKeyValues(c.track(ctx, fut, "mapped_key_values"), out.ptr, out.count, out.more, c.alloc)
}

// Outstanding returns the number of futures wrapped by this client that
// have not been destroyed yet.
func (c *Client) Outstanding() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.live)
}

// Close reports every future that is still referenced. It does not destroy
// them: their records may still be read.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var err error
	for _, id := range slices.Sorted(maps.Keys(c.live)) {
		t := c.live[id]
		Logger().Warn("future still referenced",
			zap.Uint64("future", id),
			zap.Uint32("handle", uint32(t.fut)),
			zap.String("name", t.name))
		err = multierr.Append(err, errors.New(errors.PhaseGuest, errors.KindLeaked).
			Value(t.fut).
			Detailf("future %d (%s) still referenced", id, t.name).
			Build())
	}
	return err
}

// callable checks that wazero lets the host look up exports of mod.
// ExportedFunction panics on host modules.
func callable(mod api.Module, name string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.New(errors.PhaseConfig, errors.KindInvalidInput).
				Value(r).
				Detailf("module %q does not allow export lookups: %v", mod.Name(), r).
				Build()
		}
	}()
	mod.ExportedFunction(name)
	return nil
}

type outParams struct {
	ptr   uint32
	count int32
	more  bool
}

// get calls one fdb_future_get_*_array export. On any failure the future is
// destroyed and the destroy error joined to the result.
func (c *Client) get(ctx context.Context, fn api.Function, name string, fut Future, withMore bool) (outParams, error) {
	if fut == 0 {
		return outParams{}, errors.InvalidInput(errors.PhaseGuest, "null future")
	}

	out, err := c.call(ctx, fn, name, fut, withMore)
	if err != nil {
		Logger().Debug("future result failed", zap.Uint32("handle", uint32(fut)), zap.String("call", name), zap.Error(err))
		return outParams{}, multierr.Append(err, c.destroyFuture(context.WithoutCancel(ctx), fut))
	}
	return out, nil
}

func (c *Client) call(ctx context.Context, fn api.Function, name string, fut Future, withMore bool) (outParams, error) {
	scratch := memory.WrapAllocator(ctx, c.realloc)
	block, err := scratch.Alloc(outSize, outAlign)
	if err != nil {
		return outParams{}, err
	}
	defer scratch.Free(block, outSize, outAlign)

	for off := uint32(0); off < outSize; off += 4 {
		if err := c.mem.WriteU32(block+off, 0); err != nil {
			return outParams{}, err
		}
	}

	params := []uint64{uint64(fut), uint64(block), uint64(block + 4)}
	if withMore {
		params = append(params, uint64(block+8))
	}
	results, err := fn.Call(ctx, params...)
	if err != nil {
		return outParams{}, errors.CallFailed(name, err)
	}
	if len(results) == 0 {
		return outParams{}, errors.New(errors.PhaseGuest, errors.KindCallFailed).
			Detailf("%s returned no result", name).
			Build()
	}
	if code := int32(uint32(results[0])); code != 0 {
		return outParams{}, errors.FDB(code, c.message(ctx, code))
	}

	var out outParams
	if out.ptr, err = c.mem.ReadU32(block); err != nil {
		return outParams{}, err
	}
	count, err := c.mem.ReadU32(block + 4)
	if err != nil {
		return outParams{}, err
	}
	out.count = int32(count)
	more, err := c.mem.ReadU32(block + 8)
	if err != nil {
		return outParams{}, err
	}
	out.more = more != 0
	return out, nil
}

// message returns the guest's description of code, or "" if it has none.
func (c *Client) message(ctx context.Context, code int32) string {
	results, err := c.getError.Call(ctx, uint64(uint32(code)))
	if err != nil || len(results) == 0 {
		return ""
	}
	ptr := uint32(results[0])
	if ptr == 0 {
		return ""
	}

	n := uint32(maxErrorMessage)
	if s, ok := c.mem.(fdbwasm.MemorySizer); ok {
		if ptr >= s.Size() {
			return ""
		}
		n = min(n, s.Size()-ptr)
	}
	b, err := c.mem.Read(ptr, n)
	if err != nil {
		return ""
	}
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}

func (c *Client) track(ctx context.Context, fut Future, name string) *future.Ref {
	destroyCtx := context.WithoutCancel(ctx)

	opts := make([]future.Option, 0, len(c.observers)+2)
	opts = append(opts, future.WithName(name), future.WithObserver(future.ObserverFunc(func(e future.Event) {
		c.mu.Lock()
		defer c.mu.Unlock()
		switch e.Type {
		case future.EventCreated:
			c.live[e.ID] = tracked{name: name, fut: fut}
		case future.EventDestroyed:
			delete(c.live, e.ID)
		}
	})))
	for _, o := range c.observers {
		opts = append(opts, future.WithObserver(o))
	}

	return future.New(c.mem, func() error {
		return c.destroyFuture(destroyCtx, fut)
	}, opts...)
}

func (c *Client) destroyFuture(ctx context.Context, fut Future) error {
	if _, err := c.destroy.Call(ctx, uint64(fut)); err != nil {
		return errors.CallFailed(c.names.Destroy, err)
	}
	return nil
}
