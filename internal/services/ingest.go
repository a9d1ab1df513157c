package services

import (
	"context"
	"strings"
	"time"

	"github.com/glancehq/glance-backend/internal/clients/screenpipe"
	"github.com/glancehq/glance-backend/internal/logger"
	"github.com/glancehq/glance-backend/internal/types"
	"github.com/glancehq/glance-backend/internal/utils"
)

// Ingestor polls screenpipe for fresh OCR captures, cleans them through
// the cache, and feeds the results into the thread store. Captures from
// denylisted apps or windows are dropped before any text leaves the
// process.
type Ingestor struct {
	log   *logger.Logger
	sp    *screenpipe.Client
	cache *CleanCache
	store *ThreadStore
	deny  *utils.Denylist

	pollInterval time.Duration
	batchLimit   int
}

func NewIngestor(log *logger.Logger, sp *screenpipe.Client, cache *CleanCache, store *ThreadStore, deny *utils.Denylist) *Ingestor {
	return &Ingestor{
		log:          log.With("service", "Ingestor"),
		sp:           sp,
		cache:        cache,
		store:        store,
		deny:         deny,
		pollInterval: utils.GetEnvAsMillis("POLL_INTERVAL_MS", 1000, log),
		batchLimit:   utils.GetEnvAsInt("POLL_BATCH_LIMIT", 25, log),
	}
}

// Start polls until ctx is cancelled. Each tick covers the span since the
// previous one, so captures are neither skipped nor double-ingested.
func (i *Ingestor) Start(ctx context.Context) error {
	ticker := time.NewTicker(i.pollInterval)
	defer ticker.Stop()

	i.log.Info("Ingestor started", "poll_interval", i.pollInterval.String())

	last := time.Now().Add(-i.pollInterval)
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			i.tick(ctx, last, now)
			last = now
		}
	}
}

func (i *Ingestor) tick(ctx context.Context, start, end time.Time) {
	captures, err := i.sp.RecentOCR(ctx, start, end, i.batchLimit)
	if err != nil {
		i.log.Warn("OCR poll failed", "error", err.Error())
		return
	}

	for _, capture := range captures {
		i.ingest(ctx, capture)
	}
}

func (i *Ingestor) ingest(ctx context.Context, capture types.Capture) {
	if strings.TrimSpace(capture.Text) == "" {
		return
	}
	if i.deny.Matches(capture.AppName, capture.WindowName) {
		i.log.Debug("Capture dropped by denylist", "app_name", capture.AppName)
		return
	}

	cleaned, err := i.cache.GetOrCompute(ctx, capture)
	if err != nil {
		i.log.Warn("Cleaning failed, capture dropped", "app_name", capture.AppName, "error", err.Error())
		return
	}
	if strings.TrimSpace(cleaned.CleanedText) == "" {
		return
	}
	if cleaned.Topic == "" {
		i.log.Warn("Cleaned capture missing topic, filing under unrecognised", "app_name", capture.AppName)
		cleaned.Topic = "unrecognised"
	}

	i.store.AddEvent(cleaned.Topic, types.ThreadEvent{
		Timestamp:  capture.Timestamp,
		AppName:    capture.AppName,
		WindowName: capture.WindowName,
		BrowserURL: capture.BrowserURL,
		Text:       cleaned.CleanedText,
	})
}
