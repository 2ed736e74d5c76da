package ratelimit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/keithlinneman/rentwise-web/internal/httpmw"
)

func newTestLimiter(t *testing.T, opts ...Option) *IPLimiter {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	base := []Option{WithRate(1, 3), WithTTL(time.Minute)}
	return New(ctx, append(base, opts...)...)
}

func TestAllow_BurstThenDeny(t *testing.T) {
	l := newTestLimiter(t)
	for i := range 3 {
		if !l.allow("10.0.0.1") {
			t.Fatalf("request %d denied inside burst", i+1)
		}
	}
	if l.allow("10.0.0.1") {
		t.Fatal("request past burst allowed")
	}
	if !l.allow("10.0.0.2") {
		t.Fatal("second client shares first client's bucket")
	}
}

func TestAllow_Refills(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	l := newTestLimiter(t, WithRate(1, 1))
	l.now = func() time.Time { return now }

	if !l.allow("ip") || l.allow("ip") {
		t.Fatal("burst of 1 not enforced")
	}
	now = now.Add(1100 * time.Millisecond)
	if !l.allow("ip") {
		t.Fatal("bucket did not refill")
	}
}

func TestHooks(t *testing.T) {
	var first, denied atomic.Int32
	l := newTestLimiter(t, WithRate(0.001, 1),
		WithOnFirstDenied(func(string) { first.Add(1) }),
		WithOnDenied(func(string) { denied.Add(1) }),
	)
	l.allow("ip")
	for range 4 {
		l.allow("ip")
	}
	if first.Load() != 1 || denied.Load() != 4 {
		t.Fatalf("first = %d denied = %d", first.Load(), denied.Load())
	}
}

func TestCapacity(t *testing.T) {
	var full atomic.Int32
	l := newTestLimiter(t, WithCapacity(2), WithOnCapacity(func() { full.Add(1) }))
	if !l.allow("a") || !l.allow("b") {
		t.Fatal("clients under capacity denied")
	}
	if l.allow("c") {
		t.Fatal("client over capacity allowed")
	}
	if !l.allow("a") {
		t.Fatal("known client denied at capacity")
	}
	if full.Load() != 1 || l.Len() != 2 {
		t.Fatalf("capacity hook = %d len = %d", full.Load(), l.Len())
	}
}

func TestEvict(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	l := newTestLimiter(t, WithTTL(time.Minute))
	l.now = func() time.Time { return now }
	l.allow("old")
	now = now.Add(50 * time.Second)
	l.allow("fresh")
	l.evict(now.Add(20 * time.Second))
	if l.Len() != 1 {
		t.Fatalf("len = %d, want 1", l.Len())
	}
}

func TestMiddleware(t *testing.T) {
	l := newTestLimiter(t, WithRate(0.001, 1))
	h := httpmw.ClientIP(l.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))
	do := func() *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/homes", http.NoBody)
		req.RemoteAddr = "203.0.113.50:1234"
		h.ServeHTTP(rec, req)
		return rec
	}
	if rec := do(); rec.Code != http.StatusOK {
		t.Fatalf("first = %d", rec.Code)
	}
	rec := do()
	if rec.Code != http.StatusTooManyRequests || rec.Header().Get("Retry-After") == "" {
		t.Fatalf("second = %d retry-after %q", rec.Code, rec.Header().Get("Retry-After"))
	}
}

func TestConcurrentAllow(t *testing.T) {
	l := newTestLimiter(t, WithRate(1000, 1000))
	var wg sync.WaitGroup
	for i := range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				l.allow(string(rune('a' + i)))
			}
		}()
	}
	wg.Wait()
	if l.Len() != 16 {
		t.Fatalf("len = %d", l.Len())
	}
}

func TestCleanupStopsWithContext(t *testing.T) {
	defer goleak.VerifyNone(t)
	ctx, cancel := context.WithCancel(context.Background())
	New(ctx, WithTTL(10*time.Millisecond))
	time.Sleep(30 * time.Millisecond)
	cancel()
	time.Sleep(20 * time.Millisecond)
}
