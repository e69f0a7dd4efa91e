package stories

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/hnpulse/hnpulse/internal/cache"
	"github.com/hnpulse/hnpulse/internal/hn"
)

// ErrServiceUnavailable is returned when a rebuild failed and no snapshot,
// stale or otherwise, exists to serve.
var ErrServiceUnavailable = errors.New("stories: no snapshot available")

// Reader serves the pre-computed top stories: cache hit on the fast path,
// a synchronous rebuild on a cold miss, and a stale snapshot when the
// upstream circuit is open.
type Reader struct {
	cache  cache.Store
	warmer *Warmer

	maxStories int
	// freshFor is how long a snapshot counts as fresh. The stored entry
	// outlives this by a minute, which is what makes stale-fallback
	// possible.
	freshFor time.Duration

	now func() time.Time
}

// NewReader creates a reader over the warmer's published snapshots.
func NewReader(store cache.Store, warmer *Warmer, maxStories int, freshFor time.Duration) *Reader {
	return &Reader{
		cache:      store,
		warmer:     warmer,
		maxStories: maxStories,
		freshFor:   freshFor,
		now:        time.Now,
	}
}

// TopStories returns at most n stories from the freshest snapshot
// available. n is clamped: non-positive returns an empty list, anything
// beyond the working-set bound is capped.
func (r *Reader) TopStories(ctx context.Context, n int) ([]Story, error) {
	if n <= 0 {
		return []Story{}, nil
	}
	if n > r.maxStories {
		n = r.maxStories
	}

	if snap := r.read(ctx, false); snap != nil {
		return truncate(snap.Stories, n), nil
	}

	log.Printf("top stories: cache miss, rebuilding")
	if err := r.warmer.Warmup(ctx); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(err, hn.ErrCircuitOpen) {
			if snap := r.read(ctx, true); snap != nil {
				log.Printf("warn: upstream unavailable, serving stale snapshot from %s",
					snap.CachedAt.Format(time.RFC3339))
				return truncate(snap.Stories, n), nil
			}
			return nil, ErrServiceUnavailable
		}
		return nil, err
	}

	if snap := r.read(ctx, true); snap != nil {
		return truncate(snap.Stories, n), nil
	}
	return nil, ErrServiceUnavailable
}

// read loads the stored snapshot. Unless stale is set, a snapshot older
// than the freshness window is treated as missing.
func (r *Reader) read(ctx context.Context, stale bool) *Snapshot {
	raw, ok, err := r.cache.Get(ctx, snapshotKey)
	if err != nil || !ok {
		return nil
	}
	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil
	}
	if !stale && r.now().Sub(snap.CachedAt) > r.freshFor {
		return nil
	}
	return &snap
}

func truncate(s []Story, n int) []Story {
	if len(s) > n {
		return s[:n]
	}
	return s
}
