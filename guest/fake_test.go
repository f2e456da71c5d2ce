package guest

import (
	"context"
	"slices"
	"testing"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	fdbwasm "github.com/wippyai/fdb-wasm"
	"github.com/wippyai/fdb-wasm/internal/arenatest"
	"github.com/wippyai/fdb-wasm/internal/memory"
)

const heapStart = 48 * 1024

var i32 = api.ValueTypeI32

type fakeResult struct {
	ptr   uint32
	count int32
	more  bool
	code  int32
}

// fakeFDB plays the FDB C client. Its exports are host functions in the
// "fdb" module, re-exported together with a memory by a small core guest.
type fakeFDB struct {
	mem       fdbwasm.WritableMemory
	raw       api.Memory
	host      api.Module
	mod       api.Module
	b         *arenatest.Builder
	results   map[uint32]fakeResult
	messages  map[int32]uint32
	destroyed map[uint32]int
	heap      uint32
	allocs    int
	frees     int
}

func newFake(t *testing.T, skip ...string) (context.Context, *fakeFDB) {
	t.Helper()
	ctx := context.Background()
	rt := wazero.NewRuntime(ctx)
	t.Cleanup(func() { rt.Close(ctx) })

	f := &fakeFDB{
		results:   make(map[uint32]fakeResult),
		messages:  make(map[int32]uint32),
		destroyed: make(map[uint32]int),
		heap:      heapStart,
	}

	hb := rt.NewHostModuleBuilder("fdb")
	guest := arenatest.NewGuestBuilder("fdb")
	export := func(name string, fn any, params, results []api.ValueType) {
		hb.NewFunctionBuilder().WithFunc(fn).Export(name)
		if !slices.Contains(skip, name) {
			guest.Func(name, params, results)
		}
	}

	export(DefaultRealloc, func(_ context.Context, ptr, oldSize, align, newSize uint32) uint32 {
		if newSize == 0 {
			f.frees++
			return 0
		}
		f.allocs++
		p := (f.heap + align - 1) &^ (align - 1)
		f.heap = p + newSize
		return p
	}, []api.ValueType{i32, i32, i32, i32}, []api.ValueType{i32})
	export(DefaultGetKeyArray, func(_ context.Context, fut, outArr, outCount uint32) int32 {
		r, code := f.result(fut)
		if code != 0 {
			return code
		}
		f.mem.WriteU32(outArr, r.ptr)
		f.mem.WriteU32(outCount, uint32(r.count))
		return 0
	}, []api.ValueType{i32, i32, i32}, []api.ValueType{i32})
	getWithMore := func(_ context.Context, fut, outArr, outCount, outMore uint32) int32 {
		r, code := f.result(fut)
		if code != 0 {
			return code
		}
		f.mem.WriteU32(outArr, r.ptr)
		f.mem.WriteU32(outCount, uint32(r.count))
		if r.more {
			f.mem.WriteU32(outMore, 1)
		}
		return 0
	}
	export(DefaultGetKeyValueArray, getWithMore, []api.ValueType{i32, i32, i32, i32}, []api.ValueType{i32})
	export(DefaultGetMappedKeyValueArray, getWithMore, []api.ValueType{i32, i32, i32, i32}, []api.ValueType{i32})
	export(DefaultDestroy, func(_ context.Context, fut uint32) {
		f.destroyed[fut]++
	}, []api.ValueType{i32}, nil)
	export(DefaultGetError, func(_ context.Context, code int32) uint32 {
		return f.messages[code]
	}, []api.ValueType{i32}, []api.ValueType{i32})

	var err error
	if f.host, err = hb.Instantiate(ctx); err != nil {
		t.Fatalf("failed to instantiate host module: %v", err)
	}
	f.mod, err = rt.InstantiateWithConfig(ctx, guest.Build(), wazero.NewModuleConfig().WithName("fdb_c"))
	if err != nil {
		t.Fatalf("failed to instantiate guest: %v", err)
	}

	f.raw = f.mod.ExportedMemory("memory")
	f.mem = memory.WrapMemory(f.raw)
	f.b = arenatest.NewBuilder(f.mem, 1)
	return ctx, f
}

func (f *fakeFDB) result(fut uint32) (fakeResult, int32) {
	r, ok := f.results[fut]
	if !ok {
		return r, 2000 // client_invalid_operation
	}
	return r, r.code
}

func (f *fakeFDB) config() *Config {
	return &Config{}
}

func (f *fakeFDB) client(t *testing.T) *Client {
	t.Helper()
	c, err := NewClient(context.Background(), f.mod, f.config())
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func (f *fakeFDB) keys(fut uint32, keys ...string) {
	data := make([][]byte, len(keys))
	for i, k := range keys {
		data[i] = []byte(k)
	}
	ptr, count := f.b.Keys(data...)
	f.results[fut] = fakeResult{ptr: ptr, count: count}
}

func (f *fakeFDB) keyValues(fut uint32, more bool, kvs ...arenatest.KV) {
	ptr, count := f.b.KeyValues(kvs...)
	f.results[fut] = fakeResult{ptr: ptr, count: count, more: more}
}

func (f *fakeFDB) mapped(fut uint32, more bool, ms ...arenatest.Mapped) {
	ptr, count := f.b.MappedKeyValues(ms...)
	f.results[fut] = fakeResult{ptr: ptr, count: count, more: more}
}

func (f *fakeFDB) fail(fut uint32, code int32, msg string) {
	f.results[fut] = fakeResult{code: code}
	f.messages[code] = f.b.Bytes(append([]byte(msg), 0))
}
