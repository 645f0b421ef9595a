// Package metrics records Prometheus metrics for foreign method calls and
// foreign object lifetimes.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wippyai/wren-bridge/foreign"
	"github.com/wippyai/wren-bridge/registry"
	"github.com/wippyai/wren-bridge/slot"
)

const namespace = "wren"

// Metrics holds the collectors for one registerer.
type Metrics struct {
	gatherer prometheus.Gatherer

	calls        *prometheus.CounterVec
	callDuration *prometheus.HistogramVec
	allocated    *prometheus.CounterVec
	finalized    *prometheus.CounterVec
	live         *prometheus.GaugeVec
}

// New registers the collectors with a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	return NewWith(reg, reg)
}

// NewWith registers the collectors with reg. g is used by Handler and may
// be nil when metrics are exposed elsewhere.
func NewWith(reg prometheus.Registerer, g prometheus.Gatherer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		gatherer: g,
		calls: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "foreign_calls_total",
				Help:      "Total number of foreign method calls",
			},
			[]string{"module", "class", "signature", "result"},
		),
		callDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "foreign_call_duration_seconds",
				Help:      "Foreign method call duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"module", "class", "signature"},
		),
		allocated: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "foreign_objects_allocated_total",
				Help:      "Total number of foreign objects allocated",
			},
			[]string{"class"},
		),
		finalized: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "foreign_objects_finalized_total",
				Help:      "Total number of foreign objects finalized",
			},
			[]string{"class"},
		),
		live: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "foreign_objects_live",
				Help:      "Foreign objects currently alive",
			},
			[]string{"class"},
		),
	}
}

// Middleware records a call count and duration for every bound method.
func (m *Metrics) Middleware() registry.Middleware {
	return func(key registry.MethodKey, next slot.MethodFn) slot.MethodFn {
		sig := key.Signature
		if key.Static {
			sig = "static " + sig
		}
		return func(f *slot.Frame) error {
			start := time.Now()
			err := next(f)

			result := "ok"
			if err != nil {
				result = "error"
			}
			m.calls.WithLabelValues(key.Module, key.Class, sig, result).Inc()
			m.callDuration.WithLabelValues(key.Module, key.Class, sig).Observe(time.Since(start).Seconds())
			return err
		}
	}
}

// OnForeignEvent implements foreign.Observer.
func (m *Metrics) OnForeignEvent(e foreign.Event) {
	class := "unknown"
	if e.Class != nil {
		class = e.Class.Name
	}
	switch e.Type {
	case foreign.EventAllocated:
		m.allocated.WithLabelValues(class).Inc()
		m.live.WithLabelValues(class).Inc()
	case foreign.EventFinalized:
		m.finalized.WithLabelValues(class).Inc()
		m.live.WithLabelValues(class).Dec()
	}
}

// Handler serves the gathered metrics in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m.gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
