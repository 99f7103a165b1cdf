package pgnspy

import (
	"time"

	"go.uber.org/zap"

	"github.com/discochess/pgnspy/internal/evalcache"
	"github.com/discochess/pgnspy/internal/metrics"
)

// Option configures an Analyser.
type Option interface {
	apply(*options)
}

// options holds the analyser configuration.
type options struct {
	settings      AnalysisSettings
	logger        *zap.Logger
	metrics       metrics.Collector
	cache         *evalcache.Cache
	engineArgs    []string
	engineEnv     []string
	grace         time.Duration
	launchRetries int
	shutdown      time.Duration
	searchTimeout time.Duration
}

// defaultOptions returns the default configuration.
func defaultOptions() options {
	return options{
		settings:      DefaultSettings(),
		logger:        zap.NewNop(),
		metrics:       metrics.NewNoop(),
		grace:         2 * time.Second,
		launchRetries: 2,
		shutdown:      2 * time.Second,
		searchTimeout: time.Minute,
	}
}

// optionFunc wraps a function to implement Option.
type optionFunc func(*options)

// Compile-time check that optionFunc implements Option.
var _ Option = optionFunc(nil)

func (f optionFunc) apply(o *options) { f(o) }

// WithSettings sets the analysis settings.
// If not set, DefaultSettings is used.
func WithSettings(s AnalysisSettings) Option {
	return optionFunc(func(o *options) {
		o.settings = s
	})
}

// WithLogger sets the logger.
// If not set, a no-op logger is used.
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(o *options) {
		if l != nil {
			o.logger = l
		}
	})
}

// WithMetrics sets the metrics collector.
// If not set, a no-op collector is used.
func WithMetrics(c metrics.Collector) Option {
	return optionFunc(func(o *options) {
		if c != nil {
			o.metrics = c
		}
	})
}

// WithEvalCache shares evaluations between workers and runs. The cache
// must only be shared by analysers with identical engine settings.
func WithEvalCache(c *evalcache.Cache) Option {
	return optionFunc(func(o *options) {
		o.cache = c
	})
}

// WithEngineArgs sets extra command-line arguments for the engine.
func WithEngineArgs(args ...string) Option {
	return optionFunc(func(o *options) {
		o.engineArgs = args
	})
}

// WithEngineEnv adds "KEY=value" entries to the engine's environment.
func WithEngineEnv(env ...string) Option {
	return optionFunc(func(o *options) {
		o.engineEnv = env
	})
}

// WithResponseGrace sets how long past MaxTime the engine may take to
// answer before the search counts as timed out.
// Default is 2s.
func WithResponseGrace(d time.Duration) Option {
	return optionFunc(func(o *options) {
		o.grace = d
	})
}

// WithLaunchRetries sets how many times a worker retries a failed engine
// launch before giving up its slot.
// Default is 2.
func WithLaunchRetries(n int) Option {
	return optionFunc(func(o *options) {
		o.launchRetries = max(0, n)
	})
}

// WithShutdownTimeout sets how long an engine gets to exit after "quit"
// before it is killed.
// Default is 2s.
func WithShutdownTimeout(d time.Duration) Option {
	return optionFunc(func(o *options) {
		o.shutdown = d
	})
}

// WithSearchTimeout bounds how long a search without MaxTime may run
// before the engine is treated as hung and replaced.
// Default is 1m.
func WithSearchTimeout(d time.Duration) Option {
	return optionFunc(func(o *options) {
		o.searchTimeout = d
	})
}
