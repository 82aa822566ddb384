// Package extract drives a headless browser against the streaming directory
// and per-category pages, producing snapshot records.
package extract

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/streamlens/streamlens/internal/metrics"
	"github.com/streamlens/streamlens/internal/normalize"
	"github.com/streamlens/streamlens/internal/scrape"
)

// Config controls the behavior of the extractor.
type Config struct {
	DirectoryURL        string
	CategoryURLTemplate string
	CategoryCap         int
	DirectoryScrollMax  int
	CategoryScrollMax   int
	ScrollPause         time.Duration
	WaitTimeout         time.Duration
	UserAgent           string
}

// Extractor implements scrape.Extractor using chromedp and headless Chrome.
// A single extraction call exclusively owns its browser tab; the tab is
// closed on every exit path before control returns to the caller.
type Extractor struct {
	cfg         Config
	allocator   context.Context
	allocCancel context.CancelFunc
	archiver    scrape.Archiver
	clock       scrape.Clock
	logger      *zap.Logger

	// fetchStreams, when set, replaces the browser-backed per-category
	// scrape. Tests use it to exercise the category loop without Chrome.
	fetchStreams func(ctx context.Context, name string) ([]scrape.StreamSnapshot, error)
}

// New creates a chromedp-backed Extractor.
func New(cfg Config, clock scrape.Clock, archiver scrape.Archiver, logger *zap.Logger) (*Extractor, error) {
	if cfg.DirectoryURL == "" {
		return nil, fmt.Errorf("directory URL is required")
	}
	if cfg.CategoryURLTemplate == "" {
		return nil, fmt.Errorf("category URL template is required")
	}
	if clock == nil {
		return nil, fmt.Errorf("clock is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.CategoryCap <= 0 {
		cfg.CategoryCap = 20
	}
	if cfg.DirectoryScrollMax <= 0 {
		cfg.DirectoryScrollMax = 8
	}
	if cfg.CategoryScrollMax <= 0 {
		cfg.CategoryScrollMax = 3
	}
	if cfg.ScrollPause <= 0 {
		cfg.ScrollPause = 3 * time.Second
	}
	if cfg.WaitTimeout <= 0 {
		cfg.WaitTimeout = 10 * time.Second
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("enable-automation", false),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)

	return &Extractor{
		cfg:         cfg,
		allocator:   allocCtx,
		allocCancel: allocCancel,
		archiver:    archiver,
		clock:       clock,
		logger:      logger,
	}, nil
}

// Close cancels the allocator context, terminating the browser.
func (e *Extractor) Close() {
	e.allocCancel()
}

// Categories scrapes the directory listing page. A wait timeout yields
// scrape.ErrPageLoadTimeout and an empty slice.
func (e *Extractor) Categories(ctx context.Context) ([]scrape.CategorySnapshot, error) {
	taskCtx, taskCancel := chromedp.NewContext(e.allocator)
	defer taskCancel()

	if err := chromedp.Run(taskCtx, e.sessionSetup(), chromedp.Navigate(e.cfg.DirectoryURL)); err != nil {
		return nil, fmt.Errorf("navigate directory: %w", err)
	}
	if err := e.waitForContent(taskCtx, directoryCardSelector); err != nil {
		return nil, err
	}

	e.scrollToEnd(taskCtx, e.cfg.DirectoryScrollMax)
	e.archiveDirectory(taskCtx)

	var raw []*rawCategory
	if err := chromedp.Run(taskCtx, chromedp.Evaluate(categoryCardsJS, &raw)); err != nil {
		return nil, fmt.Errorf("evaluate category cards: %w", err)
	}
	e.logger.Info("directory cards found", zap.Int("count", len(raw)))

	label := e.clock.Now().Format(scrape.TimestampLayout)
	return buildCategorySnapshots(raw, label, e.logger), nil
}

// Streams scrapes per-category stream listings for at most the first
// CategoryCap entries of names. A single category's failure never aborts the
// run: it is logged, counted, and the next category proceeds.
func (e *Extractor) Streams(ctx context.Context, names []string) ([]scrape.StreamSnapshot, error) {
	if len(names) == 0 {
		e.logger.Warn("no categories to scrape streams for")
		return nil, nil
	}
	if len(names) > e.cfg.CategoryCap {
		e.logger.Info("capping categories for this cycle",
			zap.Int("requested", len(names)),
			zap.Int("cap", e.cfg.CategoryCap),
		)
		names = names[:e.cfg.CategoryCap]
	}

	fetch := e.fetchStreams
	if fetch == nil {
		// One tab serves all categories for the cycle.
		taskCtx, taskCancel := chromedp.NewContext(e.allocator)
		defer taskCancel()

		if err := chromedp.Run(taskCtx, e.sessionSetup()); err != nil {
			return nil, fmt.Errorf("session setup: %w", err)
		}
		fetch = func(_ context.Context, name string) ([]scrape.StreamSnapshot, error) {
			return e.categoryStreams(taskCtx, name)
		}
	}

	var all []scrape.StreamSnapshot
	for _, name := range names {
		if ctx.Err() != nil {
			break
		}
		recs, err := fetch(ctx, name)
		if err != nil {
			metrics.ObserveCategoryFailed()
			e.logger.Warn("category stream scrape failed",
				zap.String("category", name),
				zap.Error(err),
			)
			continue
		}
		all = append(all, recs...)
		e.logger.Info("category streams scraped",
			zap.String("category", name),
			zap.Int("streams", len(recs)),
			zap.Int("total", len(all)),
		)
	}
	return all, nil
}

func (e *Extractor) categoryStreams(taskCtx context.Context, name string) ([]scrape.StreamSnapshot, error) {
	url := fmt.Sprintf(e.cfg.CategoryURLTemplate, normalize.Slug(name))
	if err := chromedp.Run(taskCtx, chromedp.Navigate(url)); err != nil {
		return nil, fmt.Errorf("navigate category page: %w", err)
	}
	if err := e.waitForContent(taskCtx, streamTitleSelector); err != nil {
		return nil, err
	}
	e.scrollToEnd(taskCtx, e.cfg.CategoryScrollMax)

	// Primary path reads each stream card as one structural unit so a
	// missing element cannot shift fields between streams.
	var raw []*rawStream
	if err := chromedp.Run(taskCtx, chromedp.Evaluate(streamCardsJS, &raw)); err != nil {
		return nil, fmt.Errorf("evaluate stream cards: %w", err)
	}

	label := e.clock.Now().Format(scrape.TimestampLayout)
	if len(raw) > 0 {
		return buildStreamSnapshots(raw, name, label, e.logger), nil
	}

	// Fallback for templates that expose titles/channels/viewers/tags as
	// sibling structures: pair by index up to the shortest group only.
	var groups streamGroups
	if err := chromedp.Run(taskCtx, chromedp.Evaluate(streamGroupsJS, &groups)); err != nil {
		return nil, fmt.Errorf("evaluate stream groups: %w", err)
	}
	return pairStreamGroups(groups, name, label, e.logger), nil
}

// waitForContent blocks until the selector is ready or the wait bound
// expires. Timeouts map to scrape.ErrPageLoadTimeout.
func (e *Extractor) waitForContent(taskCtx context.Context, selector string) error {
	waitCtx, cancel := context.WithTimeout(taskCtx, e.cfg.WaitTimeout)
	defer cancel()

	if err := chromedp.Run(waitCtx, chromedp.WaitReady(selector, chromedp.ByQuery)); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: %q not present within %s", scrape.ErrPageLoadTimeout, selector, e.cfg.WaitTimeout)
		}
		return fmt.Errorf("wait for %q: %w", selector, err)
	}
	return nil
}

// scrollToEnd triggers incremental content loading until the page height
// converges or maxRounds is reached. Scroll errors end the loop but never
// fail the extraction; whatever has loaded so far is still usable.
func (e *Extractor) scrollToEnd(taskCtx context.Context, maxRounds int) {
	var last float64
	if err := chromedp.Run(taskCtx, chromedp.Evaluate(`document.body.scrollHeight`, &last)); err != nil {
		e.logger.Warn("measure page height failed", zap.Error(err))
		return
	}

	for round := 1; round <= maxRounds; round++ {
		var height float64
		err := chromedp.Run(taskCtx,
			chromedp.Evaluate(scrollAndMeasureJS, &height),
			chromedp.Sleep(e.cfg.ScrollPause),
			chromedp.Evaluate(`document.body.scrollHeight`, &height),
		)
		if err != nil {
			e.logger.Warn("scroll round failed", zap.Int("round", round), zap.Error(err))
			return
		}
		e.logger.Debug("scroll round",
			zap.Int("round", round),
			zap.Int("max", maxRounds),
			zap.Float64("height", height),
		)
		if height == last {
			return
		}
		last = height
	}
}

func (e *Extractor) archiveDirectory(taskCtx context.Context) {
	if e.archiver == nil {
		return
	}
	var html string
	if err := chromedp.Run(taskCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		e.logger.Warn("capture directory html failed", zap.Error(err))
		return
	}
	path := fmt.Sprintf("directory-%d.html", e.clock.Now().Unix())
	uri, err := e.archiver.Save(taskCtx, path, "text/html; charset=utf-8", []byte(html))
	if err != nil {
		e.logger.Warn("archive directory html failed", zap.Error(err))
		return
	}
	e.logger.Debug("directory html archived", zap.String("uri", uri))
}

func (e *Extractor) sessionSetup() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if e.cfg.UserAgent == "" {
			return nil
		}
		if err := emulation.SetUserAgentOverride(e.cfg.UserAgent).Do(ctx); err != nil {
			return fmt.Errorf("set user-agent: %w", err)
		}
		return nil
	})
}
