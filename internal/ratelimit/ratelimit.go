package ratelimit

import (
	"context"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/keithlinneman/rentwise-web/internal/httpmw"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
	// logged is reset when the entry is evicted.
	logged bool
}

// IPLimiter keeps one bucket per client address, evicting idle ones.
type IPLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor

	perSecond rate.Limit
	burst     int
	ttl       time.Duration
	// capacity bounds the visitor map; 0 means unbounded.
	capacity int

	onFirstDenied func(ip string)
	onDenied      func(ip string)
	onCapacity    func()

	now func() time.Time
}

type Option func(*IPLimiter)

// WithRate sets refill per second and bucket size. WithRate(10, 50) lets a
// client burst 50 requests and then sustain 10/s.
func WithRate(perSecond float64, burst int) Option {
	return func(l *IPLimiter) {
		l.perSecond = rate.Limit(perSecond)
		l.burst = burst
	}
}

// WithTTL sets how long an idle client is remembered.
func WithTTL(d time.Duration) Option {
	return func(l *IPLimiter) { l.ttl = d }
}

// WithCapacity bounds how many clients are tracked. New clients beyond the
// bound are rejected until eviction frees room, so a spoofed-address flood
// cannot grow the map without limit.
func WithCapacity(n int) Option {
	return func(l *IPLimiter) { l.capacity = n }
}

// WithOnFirstDenied is called once per client per tracking lifetime.
func WithOnFirstDenied(fn func(ip string)) Option {
	return func(l *IPLimiter) { l.onFirstDenied = fn }
}

// WithOnDenied is called on every rejection.
func WithOnDenied(fn func(ip string)) Option {
	return func(l *IPLimiter) { l.onDenied = fn }
}

// WithOnCapacity is called when a new client is rejected because the map is full.
func WithOnCapacity(fn func()) Option {
	return func(l *IPLimiter) { l.onCapacity = fn }
}

// New starts the eviction loop, which stops when ctx is done.
func New(ctx context.Context, opts ...Option) *IPLimiter {
	l := &IPLimiter{
		visitors:  make(map[string]*visitor),
		perSecond: 10,
		burst:     30,
		ttl:       5 * time.Minute,
		now:       time.Now,
	}
	for _, o := range opts {
		o(l)
	}
	go l.cleanup(ctx)
	return l
}

type verdict int

const (
	allowed verdict = iota
	denied
	deniedFirst
	deniedCapacity
)

func (l *IPLimiter) check(ip string) verdict {
	l.mu.Lock()
	defer l.mu.Unlock()

	v, ok := l.visitors[ip]
	if !ok {
		if l.capacity > 0 && len(l.visitors) >= l.capacity {
			return deniedCapacity
		}
		v = &visitor{limiter: rate.NewLimiter(l.perSecond, l.burst)}
		l.visitors[ip] = v
	}
	now := l.now()
	v.lastSeen = now
	if v.limiter.AllowN(now, 1) {
		return allowed
	}
	if !v.logged {
		v.logged = true
		return deniedFirst
	}
	return denied
}

// allow reports whether ip may proceed. Hooks run outside the lock.
func (l *IPLimiter) allow(ip string) bool {
	switch l.check(ip) {
	case allowed:
		return true
	case deniedCapacity:
		if l.onCapacity != nil {
			l.onCapacity()
		}
		return false
	case deniedFirst:
		if l.onFirstDenied != nil {
			l.onFirstDenied(ip)
		}
	}
	if l.onDenied != nil {
		l.onDenied(ip)
	}
	return false
}

// Len is the number of tracked clients.
func (l *IPLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.visitors)
}

func (l *IPLimiter) evict(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for ip, v := range l.visitors {
		if now.Sub(v.lastSeen) > l.ttl {
			delete(l.visitors, ip)
		}
	}
}

func (l *IPLimiter) cleanup(ctx context.Context) {
	ticker := time.NewTicker(l.ttl / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.evict(l.now())
		}
	}
}

// Middleware answers 429 for clients over their budget. It relies on
// httpmw.ClientIP having run first.
func (l *IPLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.allow(httpmw.ClientIPFromContext(r.Context())) {
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			w.Header().Set("Retry-After", "30")
			w.WriteHeader(http.StatusTooManyRequests)
			// no remaining budget or refill detail
			_, _ = w.Write([]byte(`{"error":"too many requests"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}
