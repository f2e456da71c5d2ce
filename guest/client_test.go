package guest

import (
	"context"
	stderrors "errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/wippyai/fdb-wasm/errors"
	"github.com/wippyai/fdb-wasm/future"
	"github.com/wippyai/fdb-wasm/internal/arenatest"
	"github.com/wippyai/fdb-wasm/pool"
)

func isKind(err error, phase errors.Phase, kind errors.Kind) bool {
	return stderrors.Is(err, &errors.Error{Phase: phase, Kind: kind})
}

func TestConfig_Defaults(t *testing.T) {
	got := (*Config)(nil).withDefaults()
	if diff := cmp.Diff(*DefaultConfig(), got); diff != "" {
		t.Errorf("nil config mismatch (-want +got):\n%s", diff)
	}

	custom := (&Config{GetKeyArray: "my_keys", Realloc: "malloc_ish"}).withDefaults()
	if custom.GetKeyArray != "my_keys" || custom.Realloc != "malloc_ish" {
		t.Errorf("overrides lost: %+v", custom)
	}
	if custom.Destroy != DefaultDestroy || custom.MemoryName != DefaultMemoryName {
		t.Errorf("defaults not applied: %+v", custom)
	}
}

func TestNewClient_NilModule(t *testing.T) {
	if _, err := NewClient(context.Background(), nil, nil); !isKind(err, errors.PhaseConfig, errors.KindInvalidInput) {
		t.Errorf("expected invalid input, got %v", err)
	}
}

func TestNewClient_MissingMemory(t *testing.T) {
	ctx, f := newFake(t)

	_, err := NewClient(ctx, f.mod, &Config{MemoryName: "heap"})
	if !isKind(err, errors.PhaseConfig, errors.KindMissingExport) {
		t.Fatalf("expected missing export, got %v", err)
	}
	if !strings.Contains(err.Error(), `"heap"`) {
		t.Errorf("expected the memory name in the error, got %v", err)
	}
}

func TestNewClient_MemoryOverride(t *testing.T) {
	ctx, f := newFake(t)
	f.keys(3, "k")

	c, err := NewClient(ctx, f.mod, &Config{MemoryName: "heap", Memory: f.raw})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	keys, err := c.Keys(ctx, 3)
	if err != nil {
		t.Fatalf("Keys: %v", err)
	}
	defer keys.Close()
	if got := string(keys.At(0).Key()); got != "k" {
		t.Errorf("expected k, got %q", got)
	}
}

func TestNewClient_HostModule(t *testing.T) {
	ctx, f := newFake(t)

	_, err := NewClient(ctx, f.host, nil)
	if !isKind(err, errors.PhaseConfig, errors.KindInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if !strings.Contains(err.Error(), `"fdb"`) {
		t.Errorf("expected the module name in the error, got %v", err)
	}
}

func TestNewClient_MissingExports(t *testing.T) {
	ctx, f := newFake(t, DefaultDestroy, DefaultGetError)

	_, err := NewClient(ctx, f.mod, f.config())
	if err == nil {
		t.Fatal("expected error")
	}
	errs := multierr.Errors(err)
	if len(errs) != 2 {
		t.Fatalf("expected 2 errors, got %v", errs)
	}
	for i, name := range []string{DefaultDestroy, DefaultGetError} {
		if !isKind(errs[i], errors.PhaseConfig, errors.KindMissingExport) || !strings.Contains(errs[i].Error(), name) {
			t.Errorf("error %d: expected missing %s, got %v", i, name, errs[i])
		}
	}
}

func TestClient_Keys(t *testing.T) {
	ctx, f := newFake(t)
	f.keys(7, "a", "bb", "ccc")
	c := f.client(t)

	keys, err := c.Keys(ctx, 7)
	if err != nil {
		t.Fatalf("Keys: %v", err)
	}
	if c.Outstanding() != 1 {
		t.Errorf("expected 1 outstanding future, got %d", c.Outstanding())
	}

	var got []string
	for _, k := range keys.All() {
		got = append(got, string(k.Key()))
	}
	if diff := cmp.Diff([]string{"a", "bb", "ccc"}, got); diff != "" {
		t.Errorf("keys mismatch (-want +got):\n%s", diff)
	}

	it := keys.IntoIter()
	row, _ := it.NextBack()
	it.Close()
	if f.destroyed[7] != 0 {
		t.Fatal("future destroyed while a row is alive")
	}
	if string(row.Key()) != "ccc" {
		t.Errorf("expected ccc, got %s", row)
	}
	row.Release()

	if f.destroyed[7] != 1 {
		t.Errorf("expected 1 destroy, got %d", f.destroyed[7])
	}
	if c.Outstanding() != 0 {
		t.Errorf("expected no outstanding futures, got %d", c.Outstanding())
	}
	if f.allocs != 1 || f.frees != 1 {
		t.Errorf("expected scratch to be freed, got %d allocs %d frees", f.allocs, f.frees)
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}

func TestClient_KeyValues(t *testing.T) {
	ctx, f := newFake(t)
	f.keyValues(3, true,
		arenatest.KV{Key: []byte("a"), Value: []byte("1")},
		arenatest.KV{Key: []byte("b"), Value: []byte("2")},
	)
	f.keyValues(4, false)
	c := f.client(t)

	kvs, err := c.KeyValues(ctx, 3)
	if err != nil {
		t.Fatalf("KeyValues: %v", err)
	}
	if kvs.Len() != 2 || !kvs.More() {
		t.Errorf("expected 2 pairs with more, got %d more=%v", kvs.Len(), kvs.More())
	}
	if got := kvs.At(1).String(); got != `("b", "2")` {
		t.Errorf("unexpected pair %s", got)
	}
	kvs.Close()

	empty, err := c.KeyValues(ctx, 4)
	if err != nil {
		t.Fatalf("KeyValues: %v", err)
	}
	if !empty.IsEmpty() || empty.More() {
		t.Errorf("expected empty batch without more")
	}
	empty.Close()

	if f.destroyed[3] != 1 || f.destroyed[4] != 1 {
		t.Errorf("expected both futures destroyed once, got %v", f.destroyed)
	}
}

func TestClient_MappedKeyValues(t *testing.T) {
	ctx, f := newFake(t)
	f.mapped(5, true,
		arenatest.Mapped{
			Key:   []byte("idx/a"),
			Value: []byte("rec/a"),
			Begin: arenatest.Selector{Key: []byte("rec/a/")},
			End:   arenatest.Selector{Key: []byte("rec/a0")},
			Range: []arenatest.KV{
				{Key: []byte("rec/a/name"), Value: []byte("alice")},
				{Key: []byte("rec/a/role"), Value: []byte("admin")},
			},
		},
		arenatest.Mapped{Key: []byte("idx/b"), Value: []byte("rec/b")},
	)
	c := f.client(t)

	mkv, err := c.MappedKeyValues(ctx, 5)
	if err != nil {
		t.Fatalf("MappedKeyValues: %v", err)
	}
	if mkv.Len() != 2 || !mkv.More() {
		t.Fatalf("expected 2 records with more, got %d more=%v", mkv.Len(), mkv.More())
	}

	it := mkv.IntoIter()
	first, _ := it.Next()
	it.Close()

	children := first.KeyValues()
	var got []string
	for _, kv := range children {
		got = append(got, string(kv.Key())+"="+string(kv.Value()))
	}
	want := []string{"rec/a/name=alice", "rec/a/role=admin"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("children mismatch (-want +got):\n%s", diff)
	}
	if string(first.BeginSelector().Key) != "rec/a/" || string(first.EndRange()) != "rec/a0" {
		t.Errorf("unexpected range %s..%q", first.BeginSelector(), first.EndRange())
	}

	first.Release()
	if f.destroyed[5] != 1 {
		t.Errorf("expected 1 destroy, got %d", f.destroyed[5])
	}
}

func TestClient_FDBError(t *testing.T) {
	ctx, f := newFake(t)
	f.fail(9, 1007, "Transaction is too old to perform reads or be committed")
	c := f.client(t)

	_, err := c.KeyValues(ctx, 9)
	if !isKind(err, errors.PhaseGuest, errors.KindFDB) {
		t.Fatalf("expected fdb error, got %v", err)
	}
	if code, ok := errors.Code(err); !ok || code != 1007 {
		t.Errorf("expected code 1007, got %d %v", code, ok)
	}
	if !strings.Contains(err.Error(), "too old") {
		t.Errorf("expected guest message, got %v", err)
	}
	if f.destroyed[9] != 1 {
		t.Errorf("expected failed future to be destroyed, got %d", f.destroyed[9])
	}
	if c.Outstanding() != 0 {
		t.Errorf("expected no outstanding futures, got %d", c.Outstanding())
	}
}

func TestClient_FDBErrorWithoutMessage(t *testing.T) {
	ctx, f := newFake(t)
	c := f.client(t)

	// unknown future: the fake reports client_invalid_operation and has no text for it
	_, err := c.Keys(ctx, 77)
	if code, ok := errors.Code(err); !ok || code != 2000 {
		t.Fatalf("expected code 2000, got %v", err)
	}
	if got := err.Error(); got != "[guest] fdb: fdb error 2000" {
		t.Errorf("unexpected message %q", got)
	}
}

func TestClient_NullFuture(t *testing.T) {
	ctx, f := newFake(t)
	c := f.client(t)

	if _, err := c.MappedKeyValues(ctx, 0); !isKind(err, errors.PhaseGuest, errors.KindInvalidInput) {
		t.Errorf("expected invalid input, got %v", err)
	}
	if len(f.destroyed) != 0 {
		t.Errorf("expected no destroy calls, got %v", f.destroyed)
	}
}

func TestClient_InvalidArray(t *testing.T) {
	ctx, f := newFake(t)
	f.results[11] = fakeResult{ptr: 1<<16 - 8, count: 4}
	c := f.client(t)

	_, err := c.Keys(ctx, 11)
	if !isKind(err, errors.PhaseCopy, errors.KindOutOfBounds) {
		t.Fatalf("expected out of bounds, got %v", err)
	}
	if f.destroyed[11] != 1 {
		t.Errorf("expected future to be destroyed, got %d", f.destroyed[11])
	}
}

func TestClient_DestroyAfterCancel(t *testing.T) {
	_, f := newFake(t)
	f.keys(2, "k")
	c := f.client(t)

	ctx, cancel := context.WithCancel(context.Background())
	keys, err := c.Keys(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	cancel()

	if err := keys.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if f.destroyed[2] != 1 {
		t.Errorf("expected destroy after cancel, got %d", f.destroyed[2])
	}
}

func TestClient_Options(t *testing.T) {
	ctx, f := newFake(t)
	f.keys(1, "x", "y")

	var events []future.EventType
	alloc := pool.NewCounting(nil)
	cfg := f.config()
	cfg.Allocator = alloc
	cfg.Observers = []future.Observer{future.ObserverFunc(func(e future.Event) {
		events = append(events, e.Type)
	})}

	c, err := NewClient(ctx, f.mod, cfg)
	if err != nil {
		t.Fatal(err)
	}
	keys, err := c.Keys(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	if alloc.Gets() != 1 {
		t.Errorf("expected configured allocator to be used, got %d gets", alloc.Gets())
	}
	keys.Close()
	if alloc.Puts() != 1 {
		t.Errorf("expected buffer to be returned, got %d puts", alloc.Puts())
	}

	want := []future.EventType{future.EventCreated, future.EventReleased, future.EventDestroyed}
	if diff := cmp.Diff(want, events); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestClient_CloseReportsLeaks(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	SetLogger(zap.New(core))
	defer SetLogger(nil)

	ctx, f := newFake(t)
	f.keys(1, "a")
	f.keys(2, "b")
	c := f.client(t)

	first, err := c.Keys(ctx, 1)
	if err != nil {
		t.Fatal(err)
	}
	second, err := c.Keys(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	first.Close()

	err = c.Close()
	if !isKind(err, errors.PhaseGuest, errors.KindLeaked) {
		t.Fatalf("expected leak error, got %v", err)
	}
	if n := len(multierr.Errors(err)); n != 1 {
		t.Errorf("expected 1 leak, got %d", n)
	}
	if logs.FilterMessage("future still referenced").Len() != 1 {
		t.Errorf("expected one leak warning, got %v", logs.All())
	}
	if f.destroyed[2] != 0 {
		t.Error("Close destroyed a referenced future")
	}

	second.Close()
	if err := c.Close(); err != nil {
		t.Errorf("expected clean close, got %v", err)
	}
}
