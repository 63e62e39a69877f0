package costs

import (
	"go.uber.org/zap"
)

// ZapSink forwards every ledger record to a structured log stream.
type ZapSink struct {
	logger *zap.Logger
}

// NewZapSink creates a sink writing to logger.
func NewZapSink(logger *zap.Logger) *ZapSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ZapSink{logger: logger}
}

// Append implements Sink.
func (s *ZapSink) Append(rec Record) {
	s.logger.Info("cost record",
		zap.String("provider", rec.Provider),
		zap.String("cost", rec.Cost.String()),
		zap.Duration("latency", rec.Latency),
		zap.Bool("success", rec.Success),
		zap.Time("timestamp", rec.Timestamp))
}
