package metrics

import (
	"time"

	"github.com/keithlinneman/rentwise-web/internal/listings"
)

// ObserveCMSFetch implements cms.Observer.
func (m *ServerMetrics) ObserveCMSFetch(contentType, mode, outcome string, d time.Duration) {
	m.cmsFetchTotal.WithLabelValues(contentType, mode, outcome).Inc()
	m.cmsFetchDuration.WithLabelValues(contentType, mode).Observe(d.Seconds())
}

// IncModuleSkipped implements modules.SkipCounter.
func (m *ServerMetrics) IncModuleSkipped(reason string) {
	m.moduleSkippedTotal.WithLabelValues(reason).Inc()
}

func (m *ServerMetrics) IncPageFallback(page, section string) {
	m.pageFallbackTotal.WithLabelValues(page, section).Inc()
}

func (m *ServerMetrics) SetCMSConfigured(ok bool) { m.cmsConfigured.Set(b2f(ok)) }

// SetListings records the identity of the active catalog.
func (m *ServerMetrics) SetListings(snap *listings.Snapshot) {
	if snap == nil {
		return
	}
	m.listingsSource.Reset()
	m.listingsSource.WithLabelValues(string(snap.Meta.Source)).Set(1)
	m.listingsFeedInfo.Reset()
	m.listingsFeedInfo.WithLabelValues(snap.Meta.Version, snap.Meta.SHA256).Set(1)
	if !snap.LoadedAt.IsZero() {
		m.listingsLoadedTs.Set(float64(snap.LoadedAt.Unix()))
	}
	m.listingsCount.Set(float64(snap.Catalog.Len()))
}

// listings.WatcherMetrics

func (m *ServerMetrics) IncFeedPolls()                     { m.feedPollsTotal.Inc() }
func (m *ServerMetrics) IncFeedSwaps()                     { m.feedSwapsTotal.Inc() }
func (m *ServerMetrics) IncFeedError(kind string)          { m.feedErrorsTotal.WithLabelValues(kind).Inc() }
func (m *ServerMetrics) ObserveFeedLoadDuration(s float64) { m.feedLoadDuration.Observe(s) }
func (m *ServerMetrics) SetFeedLastSuccess(unix float64)   { m.feedLastSuccessTs.Set(unix) }
func (m *ServerMetrics) SetFeedStale(stale bool)           { m.feedStale.Set(b2f(stale)) }

var _ listings.WatcherMetrics = (*ServerMetrics)(nil)
