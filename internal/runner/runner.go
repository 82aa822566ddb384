// Package runner executes scrape cycles on a fixed schedule.
package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/streamlens/streamlens/internal/metrics"
	"github.com/streamlens/streamlens/internal/scrape"
)

// Prober checks that the target site is reachable before a browser session
// is spent on it.
type Prober interface {
	Check(ctx context.Context, url string) error
}

// IDSource mints cycle identifiers.
type IDSource interface {
	NewID() (string, error)
}

// Config controls Runner scheduling.
type Config struct {
	// Interval is the delay after a successful cycle.
	Interval time.Duration
	// Backoff is the delay after a failed cycle. It is never shorter than
	// Interval.
	Backoff time.Duration
	// Topic receives cycle summaries.
	Topic string
	// ProbeURL, when set together with a prober, is checked before each
	// cycle.
	ProbeURL string
}

// Runner drives the scrape pipeline. Cycles run strictly one at a time: the
// next delay starts only after the previous cycle finishes, so a slow cycle
// can never overlap with its successor.
type Runner struct {
	extractor scrape.Extractor
	store     scrape.SnapshotStore
	publisher scrape.Publisher
	prober    Prober
	clock     scrape.Clock
	ids       IDSource
	cfg       Config
	logger    *zap.Logger
}

// New constructs a Runner.
func New(
	extractor scrape.Extractor,
	store scrape.SnapshotStore,
	publisher scrape.Publisher,
	prober Prober,
	clock scrape.Clock,
	ids IDSource,
	cfg Config,
	logger *zap.Logger,
) (*Runner, error) {
	if extractor == nil {
		return nil, fmt.Errorf("extractor is required")
	}
	if store == nil {
		return nil, fmt.Errorf("snapshot store is required")
	}
	if clock == nil {
		return nil, fmt.Errorf("clock is required")
	}
	if ids == nil {
		return nil, fmt.Errorf("id source is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 15 * time.Minute
	}
	if cfg.Backoff < cfg.Interval {
		cfg.Backoff = cfg.Interval
	}
	return &Runner{
		extractor: extractor,
		store:     store,
		publisher: publisher,
		prober:    prober,
		clock:     clock,
		ids:       ids,
		cfg:       cfg,
		logger:    logger,
	}, nil
}

// Run blocks, executing one cycle immediately and then rescheduling after
// each cycle completes until the context finishes.
func (r *Runner) Run(ctx context.Context) {
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("runner stopping", zap.Error(ctx.Err()))
			return
		case <-timer.C:
		}

		summary := r.Cycle(ctx)
		if ctx.Err() != nil {
			r.logger.Info("runner stopping", zap.Error(ctx.Err()))
			return
		}

		delay := r.cfg.Interval
		if summary.Failed {
			delay = r.cfg.Backoff
			r.logger.Warn("cycle failed, backing off",
				zap.String("cycle_id", summary.CycleID),
				zap.Duration("backoff", delay),
				zap.String("error", summary.ErrorText),
			)
		}
		timer.Reset(delay)
	}
}

// Cycle runs one full scrape pass and reports what happened. It never
// panics: a panic anywhere in the pipeline is recovered into a failed
// summary so the schedule survives.
func (r *Runner) Cycle(ctx context.Context) (summary scrape.CycleSummary) {
	started := r.clock.Now()
	cycleID, err := r.ids.NewID()
	if err != nil {
		r.logger.Warn("cycle id generation failed", zap.Error(err))
		cycleID = fmt.Sprintf("cycle-%d", started.UnixNano())
	}
	summary = scrape.CycleSummary{
		CycleID:   cycleID,
		StartedAt: started,
	}

	defer func() {
		if rec := recover(); rec != nil {
			summary.Failed = true
			summary.ErrorText = fmt.Sprintf("cycle panic: %v", rec)
			r.logger.Error("cycle panicked", zap.String("cycle_id", summary.CycleID), zap.Any("panic", rec))
		}
		summary.Duration = r.clock.Now().Sub(started)
		summary.DurationMs = summary.Duration.Milliseconds()

		result := "success"
		if summary.Failed {
			result = "failure"
		}
		metrics.ObserveCycle(result, summary.Duration)
		r.publishSummary(ctx, summary)
		r.logger.Info("cycle finished",
			zap.String("cycle_id", summary.CycleID),
			zap.String("result", result),
			zap.Duration("duration", summary.Duration),
			zap.Int("categories_scraped", summary.CategoriesScraped),
			zap.Int("categories_persisted", summary.CategoriesPersisted),
			zap.Int("streams_scraped", summary.StreamsScraped),
			zap.Int("streams_persisted", summary.StreamsPersisted),
		)
	}()

	r.logger.Info("cycle starting", zap.String("cycle_id", summary.CycleID))

	if r.prober != nil && r.cfg.ProbeURL != "" {
		if err := r.prober.Check(ctx, r.cfg.ProbeURL); err != nil {
			summary.Failed = true
			summary.ErrorText = fmt.Sprintf("probe: %v", err)
			return summary
		}
	}

	categories, err := r.extractor.Categories(ctx)
	if err != nil {
		// A directory that never presented its cards means nothing to
		// scrape this cycle, not a broken pipeline; keep normal cadence.
		if errors.Is(err, scrape.ErrPageLoadTimeout) {
			r.logger.Warn("directory page not ready, skipping cycle",
				zap.String("cycle_id", summary.CycleID),
				zap.Error(err),
			)
			return summary
		}
		summary.Failed = true
		summary.ErrorText = fmt.Sprintf("scrape categories: %v", err)
		return summary
	}
	summary.CategoriesScraped = len(categories)
	if len(categories) == 0 {
		r.logger.Warn("no categories scraped this cycle", zap.String("cycle_id", summary.CycleID))
		return summary
	}

	// Categories are persisted before stream scraping begins so a stream
	// failure never costs the cycle its category snapshots.
	if err := r.store.AppendCategories(ctx, categories); err != nil {
		summary.Failed = true
		summary.ErrorText = fmt.Sprintf("persist categories: %v", err)
		return summary
	}
	summary.CategoriesPersisted = len(categories)

	names := make([]string, 0, len(categories))
	for _, c := range categories {
		names = append(names, c.Category)
	}

	streams, err := r.extractor.Streams(ctx, names)
	if err != nil {
		summary.Failed = true
		summary.ErrorText = fmt.Sprintf("scrape streams: %v", err)
		return summary
	}
	summary.StreamsScraped = len(streams)
	if len(streams) == 0 {
		return summary
	}

	if err := r.store.AppendStreams(ctx, streams); err != nil {
		summary.Failed = true
		summary.ErrorText = fmt.Sprintf("persist streams: %v", err)
		return summary
	}
	summary.StreamsPersisted = len(streams)
	return summary
}

func (r *Runner) publishSummary(ctx context.Context, summary scrape.CycleSummary) {
	if r.publisher == nil || r.cfg.Topic == "" {
		return
	}
	id, err := r.publisher.Publish(ctx, r.cfg.Topic, summary)
	if err != nil {
		r.logger.Warn("publish cycle summary failed",
			zap.String("cycle_id", summary.CycleID),
			zap.Error(err),
		)
		return
	}
	if id != "" {
		r.logger.Debug("cycle summary published",
			zap.String("cycle_id", summary.CycleID),
			zap.String("message_id", id),
		)
	}
}
