package listings

import (
	"context"
	"fmt"
	"time"

	"github.com/keithlinneman/rentwise-web/internal/cryptoutil"
	"github.com/keithlinneman/rentwise-web/internal/log"
)

const (
	DefaultPollInterval = 30 * time.Second

	maxBackoff            = 5 * time.Minute
	defaultStaleThreshold = 30 * time.Minute
)

type pollOutcome int

const (
	pollUnchanged pollOutcome = iota
	pollSwapped
	pollHashError // SSM unreachable, back off
	pollLoadError // hash known but feed unusable, keep current catalog
)

// FeedFetcher is what the Watcher needs from a Loader.
type FeedFetcher interface {
	FetchCurrentHash(ctx context.Context) (string, error)
	LoadHash(ctx context.Context, hash string) (*Snapshot, error)
}

// WatcherMetrics is implemented by the metrics package.
type WatcherMetrics interface {
	IncFeedPolls()
	IncFeedSwaps()
	IncFeedError(kind string)
	ObserveFeedLoadDuration(seconds float64)
	SetFeedLastSuccess(unixSeconds float64)
	SetFeedStale(stale bool)
}

type WatcherOptions struct {
	Logger       log.Logger
	Loader       FeedFetcher
	Store        *Store
	PollInterval time.Duration

	// StaleThreshold is how long SSM may be unreachable before the feed
	// is reported stale. Zero means 30 minutes.
	StaleThreshold time.Duration

	Metrics WatcherMetrics

	// OnSwap runs on the poll goroutine after each swap. Panics are recovered.
	OnSwap func(snap *Snapshot)

	// now is overridable in tests
	now func() time.Time
}

// Watcher polls SSM for a new feed hash and swaps validated catalogs into
// the Store. A failed load never replaces the current catalog.
type Watcher struct {
	opts WatcherOptions
	log  log.Logger
	now  func() time.Time

	currentHash   string
	errStreak     int
	lastSuccessAt time.Time
	stale         bool

	polls, swaps int64
}

func NewWatcher(opts WatcherOptions) *Watcher {
	if opts.Logger == nil {
		opts.Logger = log.Nop()
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.StaleThreshold <= 0 {
		opts.StaleThreshold = defaultStaleThreshold
	}
	now := opts.now
	if now == nil {
		now = time.Now
	}
	w := &Watcher{opts: opts, log: opts.Logger, now: now, lastSuccessAt: now()}
	// the startup load already fetched this hash
	if snap, ok := opts.Store.Get(); ok && snap.Meta.Source == SourceS3 {
		w.currentHash = snap.Meta.SHA256
	}
	return w
}

// Run polls until ctx is cancelled. Launch with go w.Run(ctx).
func (w *Watcher) Run(ctx context.Context) error {
	w.log.Info(ctx, "listing feed watcher starting",
		"poll_interval", w.opts.PollInterval.String(),
		"current_hash", shortHash(w.currentHash),
	)
	t := time.NewTimer(w.opts.PollInterval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info(ctx, "listing feed watcher stopping",
				"reason", ctx.Err(),
				"polls", w.polls,
				"swaps", w.swaps,
			)
			return ctx.Err()
		case <-t.C:
			t.Reset(w.afterPoll(ctx, w.pollOnce(ctx)))
		}
	}
}

// afterPoll updates backoff and staleness and returns the next delay.
func (w *Watcher) afterPoll(ctx context.Context, out pollOutcome) time.Duration {
	if out != pollHashError {
		if w.errStreak > 0 {
			w.log.Info(ctx, "listing feed watcher recovered", "had_consecutive_errors", w.errStreak)
			w.errStreak = 0
		}
		w.setStale(ctx, false)
		return w.opts.PollInterval
	}

	w.errStreak++
	if since := w.now().Sub(w.lastSuccessAt); since > w.opts.StaleThreshold {
		w.setStale(ctx, true)
	}
	d := backoff(w.opts.PollInterval, w.errStreak)
	w.log.Warn(ctx, "listing feed watcher backing off",
		"consecutive_errors", w.errStreak,
		"next_poll_in", d.String(),
	)
	return d
}

func (w *Watcher) setStale(ctx context.Context, stale bool) {
	if w.stale == stale {
		return
	}
	w.stale = stale
	if w.opts.Metrics != nil {
		w.opts.Metrics.SetFeedStale(stale)
	}
	if stale {
		w.log.Error(ctx, fmt.Errorf("last successful SSM poll was %s ago", w.now().Sub(w.lastSuccessAt).Truncate(time.Second)),
			"listing feed is stale, unable to verify freshness")
		return
	}
	w.log.Info(ctx, "listing feed staleness recovered")
}

func (w *Watcher) pollOnce(ctx context.Context) pollOutcome {
	w.polls++
	m := w.opts.Metrics
	if m != nil {
		m.IncFeedPolls()
	}

	hash, err := w.opts.Loader.FetchCurrentHash(ctx)
	if err != nil {
		w.log.Error(ctx, err, "listing feed poll failed")
		if m != nil {
			m.IncFeedError("ssm")
		}
		return pollHashError
	}
	w.lastSuccessAt = w.now()
	if m != nil {
		m.SetFeedLastSuccess(float64(w.lastSuccessAt.Unix()))
	}
	if cryptoutil.HashEqual(hash, w.currentHash) {
		return pollUnchanged
	}

	w.log.Info(ctx, "new listing feed hash detected",
		"old_hash", shortHash(w.currentHash),
		"new_hash", shortHash(hash),
	)
	start := time.Now()
	snap, err := w.opts.Loader.LoadHash(ctx, hash)
	if m != nil {
		m.ObserveFeedLoadDuration(time.Since(start).Seconds())
	}
	if err != nil {
		w.log.Error(ctx, err, "listing feed rejected, keeping current catalog",
			"rejected_hash", shortHash(hash),
			"current_hash", shortHash(w.currentHash),
		)
		if m != nil {
			m.IncFeedError("load")
		}
		return pollLoadError
	}

	w.opts.Store.Set(*snap)
	w.currentHash = hash
	w.swaps++
	if m != nil {
		m.IncFeedSwaps()
	}
	w.log.Info(ctx, "listing feed swapped",
		"hash", shortHash(hash),
		"version", snap.Meta.Version,
		"listings", snap.Catalog.Len(),
		"total_swaps", w.swaps,
	)
	w.notify(ctx, snap)
	return pollSwapped
}

func (w *Watcher) notify(ctx context.Context, snap *Snapshot) {
	if w.opts.OnSwap == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			w.log.Error(ctx, fmt.Errorf("OnSwap panic: %v", r), "listing feed OnSwap callback panicked, continuing")
		}
	}()
	w.opts.OnSwap(snap)
}

// backoff doubles the interval per consecutive error, capped at maxBackoff.
func backoff(interval time.Duration, streak int) time.Duration {
	d := interval
	for i := 0; i < streak && d < maxBackoff; i++ {
		d *= 2
	}
	return min(d, maxBackoff)
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
