// Package zapmetrics reports metrics as debug log entries.
package zapmetrics

import (
	"go.uber.org/zap"

	"github.com/discochess/pgnspy/internal/metrics"
)

// Collector implements metrics.Collector by logging each update.
type Collector struct {
	logger *zap.Logger
}

var _ metrics.Collector = (*Collector)(nil)

// New returns a collector writing to logger. A nil logger discards.
func New(logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Collector{logger: logger.Named("metrics")}
}

func (c *Collector) IncCounter(name string, delta int64) {
	c.logger.Debug("counter", zap.String("metric", name), zap.Int64("delta", delta))
}

func (c *Collector) AddGauge(name string, delta int64) {
	c.logger.Debug("gauge", zap.String("metric", name), zap.Int64("delta", delta))
}

func (c *Collector) ObserveHistogram(name string, value float64) {
	c.logger.Debug("histogram", zap.String("metric", name), zap.Float64("value", value))
}
