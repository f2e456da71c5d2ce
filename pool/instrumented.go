package pool

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Instrumented wraps an Allocator with Prometheus metrics.
type Instrumented struct {
	inner       Allocator
	allocations prometheus.Counter
	releases    prometheus.Counter
	failures    prometheus.Counter
	outstanding prometheus.Gauge
}

// NewInstrumented registers the buffer metrics on reg and wraps inner.
func NewInstrumented(inner Allocator, reg prometheus.Registerer) *Instrumented {
	if inner == nil {
		inner = Heap
	}
	f := promauto.With(reg)
	return &Instrumented{
		inner: inner,
		allocations: f.NewCounter(prometheus.CounterOpts{
			Namespace: "fdb_wasm",
			Name:      "buffer_allocations_total",
			Help:      "Owned record buffers allocated.",
		}),
		releases: f.NewCounter(prometheus.CounterOpts{
			Namespace: "fdb_wasm",
			Name:      "buffer_releases_total",
			Help:      "Owned record buffers released.",
		}),
		failures: f.NewCounter(prometheus.CounterOpts{
			Namespace: "fdb_wasm",
			Name:      "buffer_allocation_failures_total",
			Help:      "Owned record buffer allocations that failed.",
		}),
		outstanding: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "fdb_wasm",
			Name:      "buffer_outstanding_bytes",
			Help:      "Bytes held by owned record buffers not yet released.",
		}),
	}
}

func (a *Instrumented) Get(size int) ([]byte, error) {
	b, err := a.inner.Get(size)
	if err != nil {
		a.failures.Inc()
		return nil, err
	}
	a.allocations.Inc()
	a.outstanding.Add(float64(cap(b)))
	return b, nil
}

func (a *Instrumented) Put(b []byte) bool {
	a.releases.Inc()
	a.outstanding.Sub(float64(cap(b)))
	return a.inner.Put(b)
}
