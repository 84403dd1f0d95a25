// Package pipeline runs the fetch → extract → sink loop over the level range.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/sdvx-chart-sync/internal/chart"
	"github.com/JakeFAU/sdvx-chart-sync/internal/logging"
	"github.com/JakeFAU/sdvx-chart-sync/internal/metrics"
)

// Extractor turns one page into entries.
type Extractor interface {
	EntriesFromHTML(body []byte, level string) (iter.Seq[chart.Entry], error)
}

// Recorder receives run metrics. metrics.Recorder satisfies it.
type Recorder interface {
	ObservePage(status string, bytesFetched int)
	ObserveEntry(outcome string)
	ObserveRun(duration time.Duration, finished time.Time)
}

// Config controls Runner behavior.
type Config struct {
	MinLevel   int
	MaxLevel   int
	LevelPause time.Duration
	// Topic receives the run summary when a publisher is configured.
	Topic string
	// SinkName is reported in the summary.
	SinkName string
}

// Runner processes levels one at a time. Nothing runs concurrently: a page
// and all of its sink writes finish before the next page is fetched.
type Runner struct {
	fetcher   chart.Fetcher
	extractor Extractor
	sink      chart.Sink
	publisher chart.Publisher
	recorder  Recorder
	clock     chart.Clock
	ids       chart.IDGenerator
	cfg       Config
	logger    *zap.Logger
}

// New constructs a Runner. publisher and recorder may be nil.
func New(
	fetcher chart.Fetcher,
	extractor Extractor,
	sink chart.Sink,
	publisher chart.Publisher,
	recorder Recorder,
	clock chart.Clock,
	ids chart.IDGenerator,
	cfg Config,
	logger *zap.Logger,
) *Runner {
	if cfg.MinLevel == 0 && cfg.MaxLevel == 0 {
		cfg.MinLevel, cfg.MaxLevel = chart.MinLevel, chart.MaxLevel
	}
	return &Runner{
		fetcher:   fetcher,
		extractor: extractor,
		sink:      sink,
		publisher: publisher,
		recorder:  recorder,
		clock:     clock,
		ids:       ids,
		cfg:       cfg,
		logger:    logging.Named(logger, "pipeline"),
	}
}

// Run processes every level in order and finalizes the sink. Page and entry
// failures are logged and counted in the summary; only cancellation and
// unexpected panics end the run early with an error.
func (r *Runner) Run(ctx context.Context) (summary Summary, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("unexpected failure: %v", rec)
			r.logger.Error("run aborted", zap.Error(err))
		}
	}()

	runID, err := r.ids.NewID()
	if err != nil {
		return Summary{}, fmt.Errorf("run id: %w", err)
	}
	summary = Summary{
		RunID:     runID,
		Sink:      r.cfg.SinkName,
		StartedAt: r.clock.Now(),
	}
	logger := r.logger.With(zap.String("run_id", runID))
	logger.Info("run started",
		zap.Int("min_level", r.cfg.MinLevel),
		zap.Int("max_level", r.cfg.MaxLevel),
		zap.String("sink", r.cfg.SinkName),
	)

	for level := r.cfg.MinLevel; level <= r.cfg.MaxLevel; level++ {
		if err := ctx.Err(); err != nil {
			return summary, fmt.Errorf("run canceled: %w", err)
		}
		res := r.processLevel(ctx, logger, level)
		summary.add(res)

		if level < r.cfg.MaxLevel {
			if err := r.clock.Sleep(ctx, r.cfg.LevelPause); err != nil {
				return summary, fmt.Errorf("run canceled: %w", err)
			}
		}
	}
	// Cancellation during the last level leaves nothing to pause on.
	if err := ctx.Err(); err != nil {
		return summary, fmt.Errorf("run canceled: %w", err)
	}

	if err := r.sink.Finalize(ctx); err != nil {
		summary.FinalizeError = err.Error()
		logger.Error("sink finalize failed", zap.Error(err))
	}

	summary.FinishedAt = r.clock.Now()
	if r.recorder != nil {
		r.recorder.ObserveRun(summary.FinishedAt.Sub(summary.StartedAt), summary.FinishedAt)
	}
	r.publish(ctx, logger, summary)

	logger.Info("run finished",
		zap.Int("processed", summary.Processed),
		zap.Int("failed", summary.Failed),
		zap.Int("pages_failed", summary.PagesFailed),
	)
	return summary, nil
}

func (r *Runner) processLevel(ctx context.Context, logger *zap.Logger, level int) LevelResult {
	lv, err := chart.FormatLevel(level)
	if err != nil {
		return LevelResult{Level: fmt.Sprintf("%d", level), Error: err.Error()}
	}
	res := LevelResult{Level: lv}
	logger = logger.With(zap.String("level", lv))
	logger.Info("processing level")

	body, err := r.fetcher.FetchLevel(ctx, level)
	if err != nil {
		res.Error = err.Error()
		r.observePage(metrics.PageFailed, 0)
		logger.Error("page fetch failed; skipping level", zap.Error(err))
		return res
	}

	entries, err := r.extractor.EntriesFromHTML(body, lv)
	if err != nil {
		res.Error = err.Error()
		r.observePage(metrics.PageFailed, len(body))
		logger.Error("page parse failed; skipping level", zap.Error(err))
		return res
	}
	res.Fetched = true
	r.observePage(metrics.PageOK, len(body))

	for entry := range entries {
		if ctx.Err() != nil {
			break
		}
		if err := r.sink.Accept(ctx, entry); err != nil {
			res.Failed++
			r.observeEntry(metrics.EntryFailed)
			logger.Error("entry not recorded",
				zap.String("name", entry.Name),
				zap.String("link", entry.Link),
				zap.Error(err),
			)
			continue
		}
		res.Entries++
		r.observeEntry(metrics.EntryAccepted)
	}

	logger.Info("level processed", zap.Int("entries", res.Entries), zap.Int("failed", res.Failed))
	return res
}

func (r *Runner) publish(ctx context.Context, logger *zap.Logger, summary Summary) {
	if r.publisher == nil || r.cfg.Topic == "" {
		return
	}
	id, err := r.publisher.Publish(ctx, r.cfg.Topic, summary)
	if err != nil {
		logger.Warn("run notification failed", zap.String("topic", r.cfg.Topic), zap.Error(err))
		return
	}
	logger.Debug("run notification published", zap.String("message_id", id))
}

func (r *Runner) observePage(status string, n int) {
	if r.recorder != nil {
		r.recorder.ObservePage(status, n)
	}
}

func (r *Runner) observeEntry(outcome string) {
	if r.recorder != nil {
		r.recorder.ObserveEntry(outcome)
	}
}

// IsCanceled reports whether err ended a run through context cancellation.
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
