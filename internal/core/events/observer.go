package events

import (
	"time"

	"github.com/zeusync/zeusengine/internal/core/observability/log"
)

// LogObserver logs bus deliveries: failed ones at warn, the rest at debug.
type LogObserver struct {
	logger log.Log
}

func NewLogObserver(logger log.Log) *LogObserver {
	if logger == nil {
		logger = log.NewNop()
	}
	return &LogObserver{logger: logger.Named("bus")}
}

func (o *LogObserver) OnDelivered(eventType string, handlers int, err error, d time.Duration) {
	fields := []log.Field{log.String("event", eventType), log.Int("handlers", handlers), log.Duration("took", d)}
	if err != nil {
		o.logger.Warn("event handler failed", append(fields, log.Error(err))...)
		return
	}
	o.logger.Debug("event delivered", fields...)
}
