package stories

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/hnpulse/hnpulse/internal/cache"
	"github.com/hnpulse/hnpulse/internal/hn"
)

const testBase = "http://hn.test/v0"

// fakeUpstream serves canned responses keyed by URL and counts calls.
type fakeUpstream struct {
	mu        sync.Mutex
	responses map[string][]byte
	errs      map[string]error
	calls     map[string]int

	// block, when set, is closed to release all in-flight fetches.
	block    chan struct{}
	inflight int
	maxSeen  int
}

func newFakeUpstream() *fakeUpstream {
	return &fakeUpstream{
		responses: make(map[string][]byte),
		errs:      make(map[string]error),
		calls:     make(map[string]int),
	}
}

func (f *fakeUpstream) Fetch(ctx context.Context, url string) ([]byte, error) {
	f.mu.Lock()
	f.calls[url]++
	f.inflight++
	if f.inflight > f.maxSeen {
		f.maxSeen = f.inflight
	}
	block := f.block
	f.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.inflight--

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if err, ok := f.errs[url]; ok {
		return nil, err
	}
	if body, ok := f.responses[url]; ok {
		return body, nil
	}
	return nil, &hn.StatusError{Code: 404, URL: url}
}

func (f *fakeUpstream) totalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, n := range f.calls {
		total += n
	}
	return total
}

func (f *fakeUpstream) seedIDs(ids string) {
	f.responses[hn.BestStoriesURL(testBase)] = []byte(ids)
}

func (f *fakeUpstream) seedStory(id, score int, title string) {
	f.responses[hn.ItemURL(testBase, id)] = []byte(fmt.Sprintf(
		`{"id":%d,"type":"story","by":"user%d","time":1741600200,"title":%q,"url":"https://example.com/%d","score":%d,"descendants":%d}`,
		id, id, title, id, score, id))
}

func (f *fakeUpstream) seedItem(id int, body string) {
	f.responses[hn.ItemURL(testBase, id)] = []byte(body)
}

func newTestFetcher(up Upstream, store cache.Store) *Fetcher {
	return NewFetcher(up, store, testBase, 10, 30*time.Second, 5*time.Minute)
}

func TestBestStoryIDs(t *testing.T) {
	up := newFakeUpstream()
	up.seedIDs(`[10,20,30]`)
	f := newTestFetcher(up, cache.NewMemory())

	ids, err := f.BestStoryIDs(context.Background())
	if err != nil {
		t.Fatalf("BestStoryIDs: %v", err)
	}
	if len(ids) != 3 || ids[0] != 10 || ids[2] != 30 {
		t.Errorf("ids = %v, want [10 20 30]", ids)
	}
}

func TestBestStoryIDsCached(t *testing.T) {
	up := newFakeUpstream()
	up.seedIDs(`[1,2]`)
	f := newTestFetcher(up, cache.NewMemory())
	ctx := context.Background()

	f.BestStoryIDs(ctx)
	f.BestStoryIDs(ctx)

	if n := up.calls[hn.BestStoriesURL(testBase)]; n != 1 {
		t.Errorf("upstream id-list calls = %d, want 1 (second read served from cache)", n)
	}
}

func TestBestStoryIDsErrorPropagates(t *testing.T) {
	up := newFakeUpstream()
	up.errs[hn.BestStoriesURL(testBase)] = hn.ErrCircuitOpen
	f := newTestFetcher(up, cache.NewMemory())

	_, err := f.BestStoryIDs(context.Background())
	if !errors.Is(err, hn.ErrCircuitOpen) {
		t.Fatalf("err = %v, want ErrCircuitOpen", err)
	}
}

func TestFetchManyReturnsItems(t *testing.T) {
	up := newFakeUpstream()
	up.seedStory(1, 10, "one")
	up.seedStory(2, 20, "two")
	f := newTestFetcher(up, cache.NewMemory())

	items := f.FetchMany(context.Background(), []int{1, 2})
	if len(items) != 2 {
		t.Fatalf("len = %d, want 2", len(items))
	}
}

func TestFetchManySwallowsFailures(t *testing.T) {
	up := newFakeUpstream()
	up.seedStory(1, 10, "one")
	up.errs[hn.ItemURL(testBase, 2)] = context.DeadlineExceeded
	up.seedStory(3, 20, "three")
	f := newTestFetcher(up, cache.NewMemory())

	items := f.FetchMany(context.Background(), []int{1, 2, 3})
	if len(items) != 2 {
		t.Fatalf("len = %d, want 2 (failed item dropped)", len(items))
	}
	for _, it := range items {
		if it.ID == 2 {
			t.Error("failed item must not appear in results")
		}
	}
}

func TestFetchManyAllFailed(t *testing.T) {
	up := newFakeUpstream()
	up.errs[hn.ItemURL(testBase, 1)] = hn.ErrCircuitOpen
	up.errs[hn.ItemURL(testBase, 2)] = hn.ErrCircuitOpen
	f := newTestFetcher(up, cache.NewMemory())

	items := f.FetchMany(context.Background(), []int{1, 2})
	if len(items) != 0 {
		t.Fatalf("len = %d, want 0", len(items))
	}
}

func TestFetchManyUsesItemCache(t *testing.T) {
	up := newFakeUpstream()
	up.seedStory(7, 70, "seven")
	f := newTestFetcher(up, cache.NewMemory())
	ctx := context.Background()

	f.FetchMany(ctx, []int{7})
	f.FetchMany(ctx, []int{7})

	if n := up.calls[hn.ItemURL(testBase, 7)]; n != 1 {
		t.Errorf("upstream item calls = %d, want 1", n)
	}
}

func TestFetchManyConcurrencyCeiling(t *testing.T) {
	up := newFakeUpstream()
	up.block = make(chan struct{})
	ids := make([]int, 50)
	for i := range ids {
		ids[i] = i + 1
		up.seedStory(i+1, i, "s")
	}
	f := newTestFetcher(up, cache.NewMemory())

	done := make(chan []hn.Item)
	go func() {
		done <- f.FetchMany(context.Background(), ids)
	}()

	// Give the fan-out time to saturate its permits, then release.
	time.Sleep(50 * time.Millisecond)
	close(up.block)
	items := <-done

	if len(items) != 50 {
		t.Fatalf("len = %d, want 50", len(items))
	}
	up.mu.Lock()
	maxSeen := up.maxSeen
	up.mu.Unlock()
	if maxSeen > 10 {
		t.Errorf("max in-flight fetches = %d, want <= 10", maxSeen)
	}
}

func TestFetchManyCancelled(t *testing.T) {
	up := newFakeUpstream()
	up.block = make(chan struct{})
	for i := 1; i <= 30; i++ {
		up.seedStory(i, i, "s")
	}
	ids := make([]int, 30)
	for i := range ids {
		ids[i] = i + 1
	}
	f := newTestFetcher(up, cache.NewMemory())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan []hn.Item)
	go func() {
		done <- f.FetchMany(ctx, ids)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case items := <-done:
		// In-flight fetches were cancelled; nothing useful collected,
		// and the call must not hang waiting for the rest.
		if len(items) > 10 {
			t.Errorf("len = %d, expected only in-flight results at most", len(items))
		}
	case <-time.After(2 * time.Second):
		t.Fatal("FetchMany did not return after cancellation")
	}
}

func TestItemDecodeNull(t *testing.T) {
	up := newFakeUpstream()
	up.seedItem(9, `null`)
	f := newTestFetcher(up, cache.NewMemory())

	items := f.FetchMany(context.Background(), []int{9})
	if len(items) != 0 {
		t.Fatalf("len = %d, want 0 for null payload", len(items))
	}
}

func TestItemKey(t *testing.T) {
	if got := itemKey(42); got != "item_42" {
		t.Errorf("itemKey(42) = %q, want item_42", got)
	}
}
