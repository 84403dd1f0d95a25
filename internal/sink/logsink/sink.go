// Package logsink is a dry-run sink that logs entries instead of storing them.
package logsink

import (
	"context"

	"go.uber.org/zap"

	"github.com/JakeFAU/sdvx-chart-sync/internal/chart"
)

// LogSink emits one structured log line per entry.
type LogSink struct {
	logger *zap.Logger
	seen   int
}

var _ chart.Sink = (*LogSink)(nil)

// New wires a Zap logger to the sink interface.
func New(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

// Accept logs entry.
func (s *LogSink) Accept(_ context.Context, entry chart.Entry) error {
	s.seen++
	s.logger.Info("chart entry",
		zap.String("name", entry.Name),
		zap.String("level", entry.Level),
		zap.String("link", entry.Link),
	)
	return nil
}

// Finalize logs how many entries were seen.
func (s *LogSink) Finalize(context.Context) error {
	s.logger.Info("dry run complete", zap.Int("entries", s.seen))
	return nil
}
