package catalog

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ashureev/dashgenie/internal/domain"
)

type fakeLoader struct {
	mu      sync.Mutex
	results []domain.Catalog
	errs    []error
	calls   int
}

func (f *fakeLoader) FetchCatalog(_ context.Context) (domain.Catalog, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	if i < len(f.results) {
		return f.results[i], nil
	}
	return f.results[len(f.results)-1], nil
}

func (f *fakeLoader) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func sales() domain.Catalog {
	return domain.Catalog{
		"sales":     domain.NewDatasetInfo(1, []string{"region", "amount"}),
		"customers": domain.NewDatasetInfo(2, []string{"name"}),
	}
}

func TestCacheReplaceIgnoresEmpty(t *testing.T) {
	t.Parallel()

	c := NewCache()
	if c.Replace(domain.Catalog{}) {
		t.Fatal("empty catalog should be ignored")
	}
	if c.IsReady() {
		t.Fatal("cache should not be ready before first population")
	}
	if !c.Replace(sales()) {
		t.Fatal("expected replace to succeed")
	}
	c.Replace(nil)
	if c.Len() != 2 {
		t.Fatalf("expected populated cache to survive empty refresh, got %d", c.Len())
	}
	if _, ok := c.IDs()[2]; !ok {
		t.Fatal("expected id 2 in catalog")
	}
}

func TestCacheSnapshotIsACopy(t *testing.T) {
	t.Parallel()

	c := NewCache()
	c.Replace(sales())
	snap := c.Snapshot()
	snap["sales"].Columns[0] = "tampered"
	delete(snap, "customers")

	again := c.Snapshot()
	if len(again) != 2 || again["sales"].Columns[0] != "amount" {
		t.Fatalf("snapshot mutation leaked into cache: %+v", again)
	}
}

func TestCacheOnReady(t *testing.T) {
	t.Parallel()

	c := NewCache()
	var calls atomic.Int32
	c.OnReady(func() { calls.Add(1) })
	c.Replace(sales())
	c.Replace(sales())
	c.OnReady(func() { calls.Add(1) })

	if calls.Load() != 2 {
		t.Fatalf("expected each listener to run once, got %d calls", calls.Load())
	}
	select {
	case <-c.Ready():
	default:
		t.Fatal("ready channel should be closed")
	}
}

func TestRetryPolicyNextDelay(t *testing.T) {
	t.Parallel()

	constant := StartupRetryPolicy()
	if constant.NextDelay(1) != 10*time.Second || constant.NextDelay(7) != 10*time.Second {
		t.Fatal("startup policy should use a constant delay")
	}
	exp := RetryPolicy{MaxAttempts: 5, Delay: time.Second, Multiplier: 2, MaxDelay: 5 * time.Second}
	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 5 * time.Second}
	for i, w := range want {
		if got := exp.NextDelay(i + 1); got != w {
			t.Errorf("NextDelay(%d) = %s, want %s", i+1, got, w)
		}
	}
}

func TestRetryPolicyStopsOnContextCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	p := RetryPolicy{MaxAttempts: 10, Delay: time.Hour}
	attempts := 0
	err := p.Execute(ctx, func(int) error {
		attempts++
		cancel()
		return errors.New("not yet")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("expected 1 attempt, got %d", attempts)
	}
}

func TestStartupRetriesUntilPopulated(t *testing.T) {
	t.Parallel()

	loader := &fakeLoader{
		errs:    []error{errors.New("connection refused"), nil, nil},
		results: []domain.Catalog{nil, {}, sales()},
	}
	cache := NewCache()
	r := NewRefresher(cache, loader, nil)

	policy := RetryPolicy{MaxAttempts: 5, Delay: time.Millisecond}
	if err := r.Startup(context.Background(), policy); err != nil {
		t.Fatalf("Startup: %v", err)
	}
	if loader.callCount() != 3 {
		t.Fatalf("expected 3 attempts, got %d", loader.callCount())
	}
	if !cache.IsReady() || cache.Len() != 2 {
		t.Fatalf("cache not populated: ready=%v len=%d", cache.IsReady(), cache.Len())
	}
}

func TestStartupGivesUp(t *testing.T) {
	t.Parallel()

	down := errors.New("down")
	loader := &fakeLoader{errs: []error{down, down, down}, results: []domain.Catalog{nil}}
	r := NewRefresher(NewCache(), loader, nil)

	err := r.Startup(context.Background(), RetryPolicy{MaxAttempts: 3, Delay: time.Millisecond})
	if err == nil {
		t.Fatal("expected startup to fail")
	}
	if loader.callCount() != 3 {
		t.Fatalf("expected exactly 3 attempts, got %d", loader.callCount())
	}
}

func TestRefreshFailureKeepsPreviousCatalog(t *testing.T) {
	t.Parallel()

	loader := &fakeLoader{
		errs:    []error{nil, errors.New("timeout")},
		results: []domain.Catalog{sales(), nil},
	}
	cache := NewCache()
	r := NewRefresher(cache, loader, nil)
	if err := r.Refresh(context.Background()); err != nil {
		t.Fatalf("first refresh: %v", err)
	}
	if err := r.Refresh(context.Background()); err == nil {
		t.Fatal("expected second refresh to fail")
	}
	if cache.Len() != 2 {
		t.Fatalf("expected previous catalog to be kept, got %d datasets", cache.Len())
	}
}

func TestStartRefreshesPeriodically(t *testing.T) {
	t.Parallel()

	loader := &fakeLoader{results: []domain.Catalog{sales()}}
	cache := NewCache()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	NewRefresher(cache, loader, nil).Start(ctx, 5*time.Millisecond)

	select {
	case <-cache.Ready():
	case <-time.After(2 * time.Second):
		t.Fatal("periodic refresh never populated the cache")
	}
}
