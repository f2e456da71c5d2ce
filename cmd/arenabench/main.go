package main

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fulldump/goconfig"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/tetratelabs/wazero"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	fdbwasm "github.com/wippyai/fdb-wasm"
	"github.com/wippyai/fdb-wasm/fdb"
	"github.com/wippyai/fdb-wasm/future"
	"github.com/wippyai/fdb-wasm/internal/arenatest"
	"github.com/wippyai/fdb-wasm/internal/memory"
	"github.com/wippyai/fdb-wasm/pool"
)

type Config struct {
	Pattern  string `usage:"consume pattern: FRONT | BACK | MIXED | ABANDON"`
	Records  int    `usage:"records per result array"`
	Rounds   int    `usage:"number of result arrays per shape"`
	KeySize  int    `usage:"key and value size in bytes"`
	Children int    `usage:"child pairs per mapped record"`
	Pool     bool   `usage:"recycle host buffers through a bucketed pool"`
	Seed     int64  `usage:"seed for the MIXED pattern"`
	Verbose  bool   `usage:"log future lifecycle"`
}

// arenaWASM exports one 16 page memory as "memory"
var arenaWASM = []byte{
	0x00, 0x61, 0x73, 0x6d, // magic
	0x01, 0x00, 0x00, 0x00, // version
	0x05, 0x03, 0x01, 0x00, 0x10, // memory section: 16 pages, no max
	0x07, 0x0a, 0x01, // export section: 10 bytes, 1 export
	0x06, 0x6d, 0x65, 0x6d, 0x6f, 0x72, 0x79, // name: "memory"
	0x02, 0x00, // kind: memory, index 0
}

func main() {
	c := Config{
		Pattern:  "mixed",
		Records:  256,
		Rounds:   1000,
		KeySize:  24,
		Children: 4,
		Pool:     true,
		Seed:     1,
	}
	goconfig.Read(&c)

	if c.Verbose {
		l, err := zap.NewDevelopment()
		if err != nil {
			log.Fatal(err)
		}
		defer l.Sync()
		future.SetLogger(l)
	}

	if err := run(c); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type bench struct {
	c         Config
	mem       fdbwasm.WritableMemory
	alloc     *pool.Counting
	rng       *rand.Rand
	created   atomic.Int64
	destroyed atomic.Int64
	rows      atomic.Int64
}

func run(c Config) error {
	switch strings.ToUpper(c.Pattern) {
	case "FRONT", "BACK", "MIXED", "ABANDON":
	default:
		return fmt.Errorf("unknown pattern %s", c.Pattern)
	}

	ctx := context.Background()
	rt := wazero.NewRuntime(ctx)
	defer rt.Close(ctx)

	mod, err := rt.InstantiateWithConfig(ctx, arenaWASM, wazero.NewModuleConfig())
	if err != nil {
		return fmt.Errorf("instantiate arena: %w", err)
	}
	mem := memory.WrapMemory(mod.ExportedMemory("memory"))

	reg := prometheus.NewRegistry()
	var inner pool.Allocator = pool.Heap
	if c.Pool {
		buckets, err := pool.NewBuckets(256, 1<<20, 2)
		if err != nil {
			return err
		}
		inner = buckets
	}

	b := &bench{
		c:     c,
		mem:   mem,
		alloc: pool.NewCounting(pool.NewInstrumented(inner, reg)),
		rng:   rand.New(rand.NewSource(c.Seed)),
	}

	fmt.Printf("Arena: %s linear memory, %d records x %d rounds, pattern %s\n",
		humanize.IBytes(uint64(mem.(fdbwasm.MemorySizer).Size())), c.Records, c.Rounds, strings.ToUpper(c.Pattern))

	start := time.Now()
	if err := b.keys(); err != nil {
		return err
	}
	fmt.Printf("keys:   %v\n", time.Since(start))

	start = time.Now()
	if err := b.mapped(); err != nil {
		return err
	}
	fmt.Printf("mapped: %v\n", time.Since(start))

	return b.report(reg)
}

func (b *bench) ref(name string) *future.Ref {
	b.created.Inc()
	return future.New(b.mem, func() error {
		b.destroyed.Inc()
		return nil
	}, future.WithName(name))
}

func (b *bench) payload(prefix string, i int) []byte {
	p := make([]byte, b.c.KeySize)
	copy(p, fmt.Sprintf("%s/%08d/", prefix, i))
	return p
}

func (b *bench) keys() error {
	data := make([][]byte, b.c.Records)
	for i := range data {
		data[i] = b.payload("key", i)
	}

	for round := 0; round < b.c.Rounds; round++ {
		layout := arenatest.NewBuilder(b.mem, 1)
		ptr, count := layout.Keys(data...)
		if err := layout.Err(); err != nil {
			return fmt.Errorf("layout keys: %w", err)
		}

		keys, err := fdb.NewKeys(b.ref("keys"), ptr, count, b.alloc)
		if err != nil {
			return err
		}
		it := keys.IntoIter()
		rows := b.consume(it.Len(), func(back bool) (func() error, bool) {
			next := it.Next
			if back {
				next = it.NextBack
			}
			r, ok := next()
			return r.Release, ok
		})
		if err := b.finish(it.Close, rows); err != nil {
			return err
		}
	}
	return nil
}

func (b *bench) mapped() error {
	recs := make([]arenatest.Mapped, b.c.Records)
	for i := range recs {
		m := arenatest.Mapped{
			Key:   b.payload("idx", i),
			Value: b.payload("rec", i),
			Begin: arenatest.Selector{Key: b.payload("rec/b", i)},
			End:   arenatest.Selector{Key: b.payload("rec/e", i)},
		}
		for j := 0; j < b.c.Children; j++ {
			m.Range = append(m.Range, arenatest.KV{Key: b.payload("child", j), Value: b.payload("val", j)})
		}
		recs[i] = m
	}

	for round := 0; round < b.c.Rounds; round++ {
		layout := arenatest.NewBuilder(b.mem, 1)
		ptr, count := layout.MappedKeyValues(recs...)
		if err := layout.Err(); err != nil {
			return fmt.Errorf("layout mapped records: %w", err)
		}

		mkv, err := fdb.NewMappedKeyValues(b.ref("mapped"), ptr, count, false, b.alloc)
		if err != nil {
			return err
		}
		it := mkv.IntoIter()
		rows := b.consume(it.Len(), func(back bool) (func() error, bool) {
			next := it.Next
			if back {
				next = it.NextBack
			}
			r, ok := next()
			if ok && len(r.KeyValues()) != b.c.Children {
				panic("child count mismatch")
			}
			return r.Release, ok
		})
		if err := b.finish(it.Close, rows); err != nil {
			return err
		}
	}
	return nil
}

// consume pulls rows with next according to the pattern and returns their
// release functions. ABANDON stops halfway.
func (b *bench) consume(n int, next func(back bool) (func() error, bool)) []func() error {
	limit := n
	if strings.EqualFold(b.c.Pattern, "abandon") {
		limit = n / 2
	}

	var rows []func() error
	for len(rows) < limit {
		var back bool
		switch strings.ToUpper(b.c.Pattern) {
		case "BACK":
			back = true
		case "MIXED", "ABANDON":
			back = b.rng.Intn(2) == 0
		}
		release, ok := next(back)
		if !ok {
			break
		}
		rows = append(rows, release)
	}
	b.rows.Add(int64(len(rows)))
	return rows
}

// finish closes the iterator and then releases the rows in random order,
// checking that the future outlives them.
func (b *bench) finish(closeIter func() error, rows []func() error) error {
	before := b.destroyed.Load()
	if err := closeIter(); err != nil {
		return err
	}

	b.rng.Shuffle(len(rows), func(i, j int) { rows[i], rows[j] = rows[j], rows[i] })
	for i, release := range rows {
		if b.destroyed.Load() != before {
			return fmt.Errorf("future destroyed with %d rows alive", len(rows)-i)
		}
		if err := release(); err != nil {
			return err
		}
	}
	if b.destroyed.Load() != before+1 {
		return fmt.Errorf("future not destroyed after its last row")
	}
	return nil
}

func (b *bench) report(reg *prometheus.Registry) error {
	fmt.Printf("\nrows yielded:      %s\n", humanize.Comma(b.rows.Load()))
	fmt.Printf("futures:           %s created, %s destroyed\n",
		humanize.Comma(b.created.Load()), humanize.Comma(b.destroyed.Load()))
	fmt.Printf("buffers:           %s gets, %s puts\n",
		humanize.Comma(b.alloc.Gets()), humanize.Comma(b.alloc.Puts()))
	fmt.Printf("outstanding bytes: %s\n", humanize.IBytes(uint64(b.alloc.Outstanding())))

	families, err := reg.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	sort.Slice(families, func(i, j int) bool { return families[i].GetName() < families[j].GetName() })
	fmt.Println("\nmetrics:")
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			v := m.GetCounter().GetValue()
			if g := m.GetGauge(); g != nil {
				v = g.GetValue()
			}
			fmt.Printf("  %-45s %s\n", mf.GetName(), humanize.Commaf(v))
		}
	}

	if b.created.Load() != b.destroyed.Load() {
		return fmt.Errorf("%d futures leaked", b.created.Load()-b.destroyed.Load())
	}
	if b.alloc.Gets() != b.alloc.Puts() || b.alloc.Outstanding() != 0 {
		return fmt.Errorf("buffer accounting mismatch: %d gets, %d puts, %d bytes outstanding",
			b.alloc.Gets(), b.alloc.Puts(), b.alloc.Outstanding())
	}
	return nil
}
