package dataloader

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tailcall-gateway/engine/internal/ir"
	"github.com/tailcall-gateway/engine/internal/value"
)

func TestLoaderBatchesConcurrentKeys(t *testing.T) {
	var calls int32
	var seenMu sync.Mutex
	seen := map[string]int{}

	l := NewLoader(func(ctx context.Context, key string) (value.Value, error) {
		atomic.AddInt32(&calls, 1)
		seenMu.Lock()
		seen[key]++
		seenMu.Unlock()
		return value.String("v:" + key), nil
	}, 20*time.Millisecond, 1000)

	var wg sync.WaitGroup
	keys := []string{"a", "b", "a", "c", "b"}
	results := make([]value.Value, len(keys))
	for i, k := range keys {
		wg.Add(1)
		go func(i int, k string) {
			defer wg.Done()
			v, err := l.Load(context.Background(), k)
			if err != nil {
				t.Errorf("Load(%q) error = %v", k, err)
			}
			results[i] = v
		}(i, k)
	}
	wg.Wait()

	for i, k := range keys {
		if got := results[i].As(); got != "v:"+k {
			t.Fatalf("results[%d] = %v, want v:%s", i, got, k)
		}
	}
	seenMu.Lock()
	defer seenMu.Unlock()
	if len(seen) != 3 {
		t.Fatalf("distinct keys resolved = %d, want 3 (a,b,c)", len(seen))
	}
	for k, n := range seen {
		if n != 1 {
			t.Fatalf("key %q resolved %d times, want exactly once per batch", k, n)
		}
	}
}

func TestLoaderMemoizesAcrossWindows(t *testing.T) {
	var calls int32
	l := NewLoader(func(ctx context.Context, key string) (value.Value, error) {
		atomic.AddInt32(&calls, 1)
		return value.String(key), nil
	}, time.Millisecond, 1000)

	if _, err := l.Load(context.Background(), "x"); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	time.Sleep(10 * time.Millisecond)
	if _, err := l.Load(context.Background(), "x"); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("fn called %d times, want 1 (memoized)", got)
	}
}

func TestLoaderFlushesAtMaxBatchSize(t *testing.T) {
	var calls int32
	l := NewLoader(func(ctx context.Context, key string) (value.Value, error) {
		atomic.AddInt32(&calls, 1)
		return value.String(key), nil
	}, time.Hour, 2) // delay long enough that only the size trigger can flush

	var wg sync.WaitGroup
	for _, k := range []string{"a", "b"} {
		wg.Add(1)
		go func(k string) {
			defer wg.Done()
			if _, err := l.Load(context.Background(), k); err != nil {
				t.Errorf("Load(%q) error = %v", k, err)
			}
		}(k)
	}
	wg.Wait()
	if got := atomic.LoadInt32(&calls); got != 2 {
		t.Fatalf("fn called %d times, want 2", got)
	}
}

func TestLoaderPropagatesError(t *testing.T) {
	boom := context.DeadlineExceeded
	l := NewLoader(func(ctx context.Context, key string) (value.Value, error) {
		return value.Null, boom
	}, time.Millisecond, 1000)

	if _, err := l.Load(context.Background(), "x"); err != boom {
		t.Fatalf("Load() error = %v, want %v", err, boom)
	}
}

func TestManagerReusesLoaderAcrossKeys(t *testing.T) {
	var builds int32
	fn := func(id ir.DataLoaderID) BatchFunc {
		atomic.AddInt32(&builds, 1)
		return func(ctx context.Context, key string) (value.Value, error) {
			return value.String(string(id) + ":" + key), nil
		}
	}

	m := NewManager()
	v, err := m.Load(context.Background(), "User.byID", "1", time.Millisecond, 1000, fn("User.byID"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if v.As() != "User.byID:1" {
		t.Fatalf("Load() = %v", v.As())
	}
	v2, err := m.Load(context.Background(), "User.byID", "2", time.Millisecond, 1000, fn("Other"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if v2.As() != "User.byID:2" {
		t.Fatalf("second Load() = %v, want User.byID:2 from the loader the first call installed", v2.As())
	}
	if atomic.LoadInt32(&builds) != 2 {
		t.Fatalf("fn() builder called %d times (it's fine that both ran; only the first's BatchFunc was installed)", builds)
	}
}
