package stories

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/hnpulse/hnpulse/internal/cache"
	"github.com/hnpulse/hnpulse/internal/hn"
)

// Upstream is the fetch capability the engine needs from the HN client.
type Upstream interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Fetcher retrieves raw items through a short-lived per-item cache, with a
// bounded number of in-flight upstream calls. The semaphore is held by the
// Fetcher itself, so the bound applies across all callers, not per batch.
type Fetcher struct {
	client    Upstream
	cache     cache.Store
	sem       *semaphore.Weighted
	baseURL   string
	idListTTL time.Duration
	itemTTL   time.Duration
}

// NewFetcher creates a fetcher allowing at most concurrency simultaneous
// item fetches.
func NewFetcher(client Upstream, store cache.Store, baseURL string, concurrency int64, idListTTL, itemTTL time.Duration) *Fetcher {
	return &Fetcher{
		client:    client,
		cache:     store,
		sem:       semaphore.NewWeighted(concurrency),
		baseURL:   baseURL,
		idListTTL: idListTTL,
		itemTTL:   itemTTL,
	}
}

// BestStoryIDs returns the upstream's score-ordered id list, cached
// briefly under a fixed key. Upstream failures propagate: nothing can be
// rebuilt without ids.
func (f *Fetcher) BestStoryIDs(ctx context.Context) ([]int, error) {
	if raw, ok, err := f.cache.Get(ctx, idListKey); err == nil && ok {
		var ids []int
		if err := json.Unmarshal(raw, &ids); err == nil {
			return ids, nil
		}
	}

	raw, err := f.client.Fetch(ctx, hn.BestStoriesURL(f.baseURL))
	if err != nil {
		return nil, fmt.Errorf("fetching best story ids: %w", err)
	}
	var ids []int
	if err := json.Unmarshal(raw, &ids); err != nil {
		return nil, fmt.Errorf("decoding best story ids: %w", err)
	}

	if err := f.cache.Set(ctx, idListKey, raw, f.idListTTL); err != nil {
		log.Printf("warn: caching story ids: %v", err)
	}
	return ids, nil
}

// FetchMany retrieves the given items concurrently. Order is not
// preserved and failed items are simply absent from the result; a
// cancelled batch returns whatever was already collected.
func (f *Fetcher) FetchMany(ctx context.Context, ids []int) []hn.Item {
	var (
		mu    sync.Mutex
		items []hn.Item
		wg    sync.WaitGroup
	)

	for _, id := range ids {
		if err := f.sem.Acquire(ctx, 1); err != nil {
			break
		}
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			defer f.sem.Release(1)
			if it := f.item(ctx, id); it != nil {
				mu.Lock()
				items = append(items, *it)
				mu.Unlock()
			}
		}(id)
	}

	wg.Wait()
	return items
}

// item returns one raw item, consulting the micro-cache first. Every
// error, circuit refusals included, is swallowed: a single missing item
// must never poison the whole batch. Two concurrent misses may both fetch;
// the last writer wins.
func (f *Fetcher) item(ctx context.Context, id int) *hn.Item {
	key := itemKey(id)
	if raw, ok, err := f.cache.Get(ctx, key); err == nil && ok {
		if it := decodeItem(raw); it != nil {
			return it
		}
	}

	raw, err := f.client.Fetch(ctx, hn.ItemURL(f.baseURL, id))
	if err != nil {
		log.Printf("warn: fetching item %d: %v", id, err)
		return nil
	}
	it := decodeItem(raw)
	if it == nil {
		log.Printf("warn: item %d: malformed or deleted payload", id)
		return nil
	}

	if err := f.cache.Set(ctx, key, raw, f.itemTTL); err != nil {
		log.Printf("warn: caching item %d: %v", id, err)
	}
	return it
}

func itemKey(id int) string {
	return fmt.Sprintf("item_%d", id)
}

// decodeItem parses a raw item payload. The upstream answers "null" for
// deleted or unknown ids, which decodes to an item without an ID.
func decodeItem(raw []byte) *hn.Item {
	var it hn.Item
	if err := json.Unmarshal(raw, &it); err != nil {
		return nil
	}
	if it.ID == 0 {
		return nil
	}
	return &it
}
