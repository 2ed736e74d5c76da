package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/keithlinneman/rentwise-web/internal/version"
)

type ServerMetrics struct {
	reg     *prometheus.Registry
	handler http.Handler

	// http
	inflight       prometheus.Gauge
	reqTotal       *prometheus.CounterVec
	reqDur         *prometheus.HistogramVec
	respBytes      *prometheus.HistogramVec
	errorsTotal    *prometheus.CounterVec
	httpPanicTotal prometheus.Counter
	modeTotal      *prometheus.CounterVec

	buildInfo       *prometheus.GaugeVec
	profilingActive prometheus.Gauge

	ratelimitDeniedTotal   prometheus.Counter
	ratelimitCapacityTotal prometheus.Counter

	// cms + page composition
	cmsFetchTotal      *prometheus.CounterVec
	cmsFetchDuration   *prometheus.HistogramVec
	moduleSkippedTotal *prometheus.CounterVec
	pageFallbackTotal  *prometheus.CounterVec
	cmsConfigured      prometheus.Gauge

	// listings
	listingsSource   *prometheus.GaugeVec
	listingsFeedInfo *prometheus.GaugeVec
	listingsLoadedTs prometheus.Gauge
	listingsCount    prometheus.Gauge

	// feed watcher
	feedPollsTotal    prometheus.Counter
	feedSwapsTotal    prometheus.Counter
	feedErrorsTotal   *prometheus.CounterVec
	feedLoadDuration  prometheus.Histogram
	feedLastSuccessTs prometheus.Gauge
	feedStale         prometheus.Gauge
}

// New returns a fresh registry with runtime collectors and every metric the
// server exports. HTTP labels are limited to method, route pattern and status.
func New() *ServerMetrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &ServerMetrics{
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "http_inflight_requests",
			Help: "Current number of in-flight HTTP requests",
		}),
		reqTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests by method, route, and status",
		}, []string{"method", "route", "status"}),
		reqDur: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Request latency by method and route",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"method", "route"}),
		respBytes: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_response_size_bytes",
			Help:    "Response size by method and route",
			Buckets: prometheus.ExponentialBuckets(256, 4, 9),
		}, []string{"method", "route"}),
		errorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_errors_total",
			Help: "Total 5xx HTTP server errors by method and route",
		}, []string{"method", "route"}),
		httpPanicTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "http_panic_total",
			Help: "Total number of recovered handler panics",
		}),
		modeTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_by_content_mode_total",
			Help: "Routed requests by content mode (published or preview)",
		}, []string{"mode"}),
		buildInfo: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "build_info",
			Help: "Build metadata (value is always 1)",
		}, []string{"app", "component", "version", "commit", "commit_date", "build_id", "build_date", "vcs_dirty", "go_version"}),
		profilingActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "profiling_active",
			Help: "Whether continuous profiling is active (1) or disabled/failed (0)",
		}),
		ratelimitDeniedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "http_requests_rate_limited_total",
			Help: "Total requests rejected by rate limiter",
		}),
		ratelimitCapacityTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "http_requests_rate_limited_capacity_total",
			Help: "Total requests rejected because the limiter was tracking too many clients",
		}),
		cmsFetchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cms_fetch_total",
			Help: "CMS fetches by content type, mode and outcome",
		}, []string{"content_type", "mode", "outcome"}),
		cmsFetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cms_fetch_duration_seconds",
			Help:    "CMS fetch latency by content type and mode",
			Buckets: []float64{0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 4, 8},
		}, []string{"content_type", "mode"}),
		moduleSkippedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cms_module_skipped_total",
			Help: "Page modules dropped during resolution by reason",
		}, []string{"reason"}),
		pageFallbackTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "page_fallback_total",
			Help: "Page sections rendered from built-in defaults instead of CMS content",
		}, []string{"page", "section"}),
		cmsConfigured: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cms_configured",
			Help: "Whether CMS credentials are configured (1) or fallback-only (0)",
		}),
		listingsSource: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "listings_source_info",
			Help: "Current listings source (label carries value, gauge is always 1)",
		}, []string{"source"}),
		listingsFeedInfo: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "listings_feed_info",
			Help: "Active listing feed identity (labels carry identity, value is always 1)",
		}, []string{"version", "sha256"}),
		listingsLoadedTs: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "listings_loaded_timestamp_seconds",
			Help: "Unix timestamp of when the current listing catalog was loaded",
		}),
		listingsCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "listings_active",
			Help: "Number of listings in the active catalog",
		}),
		feedPollsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "listings_feed_polls_total",
			Help: "Total number of feed watcher poll cycles",
		}),
		feedSwapsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "listings_feed_swaps_total",
			Help: "Total number of successful listing feed swaps",
		}),
		feedErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "listings_feed_errors_total",
			Help: "Total feed watcher errors by kind",
		}, []string{"kind"}),
		feedLoadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "listings_feed_load_duration_seconds",
			Help:    "Time to download, verify and validate a listing feed",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		feedLastSuccessTs: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "listings_feed_last_success_timestamp_seconds",
			Help: "Unix timestamp of the last successful SSM poll",
		}),
		feedStale: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "listings_feed_stale",
			Help: "Whether the listing feed is stale (1) or healthy (0)",
		}),
	}
	reg.MustRegister(
		m.inflight,
		m.reqTotal,
		m.reqDur,
		m.respBytes,
		m.errorsTotal,
		m.httpPanicTotal,
		m.modeTotal,
		m.buildInfo,
		m.profilingActive,
		m.ratelimitDeniedTotal,
		m.ratelimitCapacityTotal,
		m.cmsFetchTotal,
		m.cmsFetchDuration,
		m.moduleSkippedTotal,
		m.pageFallbackTotal,
		m.cmsConfigured,
		m.listingsSource,
		m.listingsFeedInfo,
		m.listingsLoadedTs,
		m.listingsCount,
		m.feedPollsTotal,
		m.feedSwapsTotal,
		m.feedErrorsTotal,
		m.feedLoadDuration,
		m.feedLastSuccessTs,
		m.feedStale,
	)

	m.handler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
	m.reg = reg
	return m
}

func (m *ServerMetrics) Handler() http.Handler { return m.handler }

// Registry is exposed for tests and for registering extra collectors.
func (m *ServerMetrics) Registry() *prometheus.Registry { return m.reg }

// set once at startup.
func (m *ServerMetrics) SetBuildInfo(component string, vi version.Info) {
	m.buildInfo.With(prometheus.Labels{
		"app":         vi.AppName,
		"component":   component,
		"version":     vi.Version,
		"commit":      vi.Commit,
		"commit_date": vi.CommitDate,
		"build_id":    vi.BuildId,
		"build_date":  vi.BuildDate,
		"go_version":  vi.GoVersion,
		"vcs_dirty":   vi.Dirty(),
	}).Set(1)
}

func (m *ServerMetrics) IncHttpPanic() { m.httpPanicTotal.Inc() }

func (m *ServerMetrics) IncRateLimitDenied() { m.ratelimitDeniedTotal.Inc() }

func (m *ServerMetrics) IncRateLimitCapacity() { m.ratelimitCapacityTotal.Inc() }

func (m *ServerMetrics) SetProfilingActive(active bool) { m.profilingActive.Set(b2f(active)) }

func b2f(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
