package stories

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/hnpulse/hnpulse/internal/cache"
)

// Warmer rebuilds the published snapshot, on demand and on a fixed
// cadence. Warmup is idempotent and safe to invoke concurrently; the last
// writer's snapshot wins.
type Warmer struct {
	fetcher *Fetcher
	cache   cache.Store

	maxStories      int
	cacheDuration   time.Duration
	refreshInterval time.Duration
	startupDelay    time.Duration
	errorBackoff    time.Duration

	now func() time.Time
}

// WarmerOptions configures a Warmer.
type WarmerOptions struct {
	MaxStories int
	// CacheDuration is the snapshot freshness window; the stored entry
	// outlives it by one minute so stale-fallback has something to
	// serve.
	CacheDuration   time.Duration
	RefreshInterval time.Duration
	StartupDelay    time.Duration
	ErrorBackoff    time.Duration
}

// NewWarmer creates a warmer publishing into store.
func NewWarmer(fetcher *Fetcher, store cache.Store, opts WarmerOptions) *Warmer {
	return &Warmer{
		fetcher:         fetcher,
		cache:           store,
		maxStories:      opts.MaxStories,
		cacheDuration:   opts.CacheDuration,
		refreshInterval: opts.RefreshInterval,
		startupDelay:    opts.StartupDelay,
		errorBackoff:    opts.ErrorBackoff,
		now:             time.Now,
	}
}

// Warmup rebuilds the top-story snapshot and publishes it atomically. Any
// failure leaves the previous snapshot untouched.
func (w *Warmer) Warmup(ctx context.Context) error {
	start := w.now()

	ids, err := w.fetcher.BestStoryIDs(ctx)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		log.Printf("warn: upstream returned no story ids, keeping existing snapshot")
		return nil
	}
	if len(ids) > w.maxStories {
		ids = ids[:w.maxStories]
	}

	items := w.fetcher.FetchMany(ctx, ids)
	if missed := len(ids) - len(items); missed > 0 {
		log.Printf("warn: warmup missing %d of %d items", missed, len(ids))
	}

	built := Build(items)
	snap := Snapshot{
		Stories:      built,
		CachedAt:     w.now(),
		TotalStories: len(built),
	}
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	if err := w.cache.Set(ctx, snapshotKey, raw, w.cacheDuration+time.Minute); err != nil {
		return fmt.Errorf("publishing snapshot: %w", err)
	}

	log.Printf("warmup: published %d stories from %d ids in %s",
		len(built), len(ids), w.now().Sub(start).Round(time.Millisecond))
	return nil
}

// Run drives periodic warmups until ctx is cancelled. The first run is
// delayed so the process can finish starting up; a failed warmup retries
// after a shorter error backoff instead of a full interval.
func (w *Warmer) Run(ctx context.Context) {
	if !sleepCtx(ctx, w.startupDelay) {
		return
	}
	for {
		delay := w.refreshInterval
		if err := w.Warmup(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("warmup failed: %v", err)
			delay = w.errorBackoff
		}
		if !sleepCtx(ctx, delay) {
			return
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
