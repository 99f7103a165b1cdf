// Package metrics defines the collector the analyser reports run progress to.
package metrics

// Metric names reported by the analyser.
const (
	// Run metrics.
	GamesQueued    = "pgnspy_games_queued_total"
	GamesAnalysed  = "pgnspy_games_analysed_total"
	GamesErrored   = "pgnspy_games_errored_total"
	GamesSkipped   = "pgnspy_games_skipped_total"
	Positions      = "pgnspy_positions_total"
	PositionErrors = "pgnspy_position_errors_total"

	// Engine metrics.
	EngineLaunches    = "pgnspy_engine_launches_total"
	EngineRestarts    = "pgnspy_engine_restarts_total"
	EngineLive        = "pgnspy_engine_live"
	EvaluationSeconds = "pgnspy_evaluation_seconds"

	// Evaluation cache metrics.
	CacheHits   = "pgnspy_eval_cache_hits_total"
	CacheMisses = "pgnspy_eval_cache_misses_total"
)

// Collector receives counters, gauges and histogram observations.
// Implementations must be safe for concurrent use.
type Collector interface {
	// IncCounter increments a counter metric by delta.
	IncCounter(name string, delta int64)

	// AddGauge moves a gauge metric by delta.
	AddGauge(name string, delta int64)

	// ObserveHistogram records a value in a histogram metric.
	ObserveHistogram(name string, value float64)
}

// Noop discards everything.
type Noop struct{}

var _ Collector = Noop{}

// NewNoop returns a collector that discards all metrics.
func NewNoop() Noop { return Noop{} }

func (Noop) IncCounter(string, int64)         {}
func (Noop) AddGauge(string, int64)           {}
func (Noop) ObserveHistogram(string, float64) {}
