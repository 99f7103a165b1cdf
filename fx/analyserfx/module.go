// Package analyserfx provides an fx module for a pgnspy analyser.
package analyserfx

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/discochess/pgnspy"
	"github.com/discochess/pgnspy/internal/evalcache"
	"github.com/discochess/pgnspy/internal/metrics"
	"github.com/discochess/pgnspy/internal/metrics/prommetrics"
	"github.com/discochess/pgnspy/internal/metrics/zapmetrics"
)

// Config holds configuration for the analyser.
type Config struct {
	Settings pgnspy.AnalysisSettings

	// CacheSize is the number of positions whose evaluations are kept.
	// Zero disables the cache.
	CacheSize int

	// EngineArgs are extra command-line arguments for the engine.
	EngineArgs []string

	// ResponseGrace is how long past MaxTime the engine may take to answer.
	// Zero keeps the analyser default.
	ResponseGrace time.Duration

	// SearchTimeout bounds searches when the settings give no MaxTime.
	// Zero keeps the analyser default.
	SearchTimeout time.Duration
}

// Module provides an *pgnspy.Analyser.
// Requires a Config and a *zap.Logger to be provided. When a
// prometheus.Registerer is also provided, analyser metrics are registered
// with it; otherwise they are logged at debug level.
var Module = fx.Module("analyser",
	fx.Provide(
		newCollector,
		newCache,
		newAnalyser,
	),
)

// CollectorParams holds dependencies for creating the metrics collector.
type CollectorParams struct {
	fx.In

	Logger     *zap.Logger
	Registerer prometheus.Registerer `optional:"true"`
}

func newCollector(p CollectorParams) metrics.Collector {
	if p.Registerer != nil {
		return prommetrics.New(p.Registerer)
	}
	return zapmetrics.New(p.Logger.Named("pgnspy.metrics"))
}

func newCache(cfg Config) (*evalcache.Cache, error) {
	if cfg.CacheSize <= 0 {
		return nil, nil
	}
	return evalcache.New(cfg.CacheSize)
}

// Params holds dependencies for creating the analyser.
type Params struct {
	fx.In

	Config    Config
	Logger    *zap.Logger
	Collector metrics.Collector
	Cache     *evalcache.Cache
	Lifecycle fx.Lifecycle
}

// Result holds the provided analyser.
type Result struct {
	fx.Out

	Analyser *pgnspy.Analyser
}

func newAnalyser(p Params) (Result, error) {
	opts := []pgnspy.Option{
		pgnspy.WithSettings(p.Config.Settings),
		pgnspy.WithLogger(p.Logger),
		pgnspy.WithMetrics(p.Collector),
		pgnspy.WithEngineArgs(p.Config.EngineArgs...),
	}
	if p.Cache != nil {
		opts = append(opts, pgnspy.WithEvalCache(p.Cache))
	}
	if p.Config.ResponseGrace > 0 {
		opts = append(opts, pgnspy.WithResponseGrace(p.Config.ResponseGrace))
	}
	if p.Config.SearchTimeout > 0 {
		opts = append(opts, pgnspy.WithSearchTimeout(p.Config.SearchTimeout))
	}

	a, err := pgnspy.New(opts...)
	if err != nil {
		return Result{}, err
	}

	p.Lifecycle.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return a.Close()
		},
	})

	return Result{Analyser: a}, nil
}
