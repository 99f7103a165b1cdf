// Package prommetrics exports analyser metrics through Prometheus.
package prommetrics

import (
	"errors"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/discochess/pgnspy/internal/metrics"
)

// Collector implements metrics.Collector, registering each metric with the
// registry the first time it is used.
type Collector struct {
	registry prometheus.Registerer

	mu         sync.Mutex
	counters   map[string]prometheus.Counter
	gauges     map[string]prometheus.Gauge
	histograms map[string]prometheus.Histogram
}

var _ metrics.Collector = (*Collector)(nil)

// New returns a collector registering with registry, or with
// prometheus.DefaultRegisterer when registry is nil.
func New(registry prometheus.Registerer) *Collector {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	return &Collector{
		registry:   registry,
		counters:   make(map[string]prometheus.Counter),
		gauges:     make(map[string]prometheus.Gauge),
		histograms: make(map[string]prometheus.Histogram),
	}
}

func (c *Collector) IncCounter(name string, delta int64) {
	if delta < 0 {
		return
	}
	lookup(c, c.counters, name, func() prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{Name: name, Help: help(name)})
	}).Add(float64(delta))
}

func (c *Collector) AddGauge(name string, delta int64) {
	lookup(c, c.gauges, name, func() prometheus.Gauge {
		return prometheus.NewGauge(prometheus.GaugeOpts{Name: name, Help: help(name)})
	}).Add(float64(delta))
}

func (c *Collector) ObserveHistogram(name string, value float64) {
	lookup(c, c.histograms, name, func() prometheus.Histogram {
		return prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    name,
			Help:    help(name),
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		})
	}).Observe(value)
}

// lookup returns the metric cached under name, creating and registering it
// on first use. A metric already registered by another collector is reused.
func lookup[M prometheus.Collector](c *Collector, cache map[string]M, name string, create func() M) M {
	c.mu.Lock()
	defer c.mu.Unlock()

	if m, ok := cache[name]; ok {
		return m
	}
	m := create()
	if err := c.registry.Register(m); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(M); ok {
				m = existing
			}
		}
	}
	cache[name] = m
	return m
}

var helps = map[string]string{
	metrics.GamesQueued:       "Games submitted for analysis.",
	metrics.GamesAnalysed:     "Games fully analysed.",
	metrics.GamesErrored:      "Games discarded because of an engine or protocol error.",
	metrics.GamesSkipped:      "Games skipped by the player filter.",
	metrics.Positions:         "Positions evaluated by an engine or the cache.",
	metrics.PositionErrors:    "Positions skipped because of unparseable engine output.",
	metrics.EngineLaunches:    "Engine processes started.",
	metrics.EngineRestarts:    "Engine processes relaunched after a failure.",
	metrics.EngineLive:        "Engine processes currently running.",
	metrics.EvaluationSeconds: "Time spent evaluating one position.",
	metrics.CacheHits:         "Evaluation cache hits.",
	metrics.CacheMisses:       "Evaluation cache misses.",
}

func help(name string) string {
	if h, ok := helps[name]; ok {
		return h
	}
	return name
}
