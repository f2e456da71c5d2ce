package fdb

import (
	"fmt"
	"testing"

	"go.uber.org/atomic"
	"go.uber.org/goleak"

	"github.com/wippyai/fdb-wasm/future"
	"github.com/wippyai/fdb-wasm/internal/arenatest"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fixture struct {
	mem       *arenatest.Memory
	b         *arenatest.Builder
	destroyed atomic.Int32
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mem := arenatest.NewMemory(1 << 16)
	return &fixture{mem: mem, b: arenatest.NewBuilder(mem, 1)}
}

func (f *fixture) ref() *future.Ref {
	return future.New(f.mem, func() error {
		f.destroyed.Inc()
		return nil
	})
}

func (f *fixture) keys(t *testing.T, names ...string) *Keys {
	t.Helper()
	data := make([][]byte, len(names))
	for i, n := range names {
		data[i] = []byte(n)
	}
	ptr, count := f.b.Keys(data...)
	if err := f.b.Err(); err != nil {
		t.Fatalf("layout: %v", err)
	}
	keys, err := NewKeys(f.ref(), ptr, count, nil)
	if err != nil {
		t.Fatalf("NewKeys: %v", err)
	}
	return keys
}

func (f *fixture) keyValues(t *testing.T, more bool, kvs ...arenatest.KV) *KeyValues {
	t.Helper()
	ptr, count := f.b.KeyValues(kvs...)
	if err := f.b.Err(); err != nil {
		t.Fatalf("layout: %v", err)
	}
	a, err := NewKeyValues(f.ref(), ptr, count, more, nil)
	if err != nil {
		t.Fatalf("NewKeyValues: %v", err)
	}
	return a
}

func (f *fixture) mapped(t *testing.T, more bool, ms ...arenatest.Mapped) *MappedKeyValues {
	t.Helper()
	ptr, count := f.b.MappedKeyValues(ms...)
	if err := f.b.Err(); err != nil {
		t.Fatalf("layout: %v", err)
	}
	a, err := NewMappedKeyValues(f.ref(), ptr, count, more, nil)
	if err != nil {
		t.Fatalf("NewMappedKeyValues: %v", err)
	}
	return a
}

func names(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("k%d", i)
	}
	return out
}

func kv(k, v string) arenatest.KV {
	return arenatest.KV{Key: []byte(k), Value: []byte(v)}
}
