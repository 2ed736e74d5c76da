package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"

	"github.com/keithlinneman/rentwise-web/internal/listings"
	"github.com/keithlinneman/rentwise-web/internal/version"
)

func TestMiddleware_RouteLabels(t *testing.T) {
	m := New()
	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/market/{slug}", func(w http.ResponseWriter, r *http.Request) {})
	r.Get("/boom", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusBadGateway) })

	for _, p := range []string{"/market/austin", "/market/denver", "/boom", "/wp-admin", "/.env"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, p, http.NoBody))
	}

	if got := testutil.ToFloat64(m.reqTotal.WithLabelValues("GET", "/market/{slug}", "200")); got != 2 {
		t.Errorf("market requests = %v", got)
	}
	if got := testutil.ToFloat64(m.reqTotal.WithLabelValues("GET", unmatchedRoute, "404")); got != 2 {
		t.Errorf("unmatched requests = %v", got)
	}
	if got := testutil.ToFloat64(m.errorsTotal.WithLabelValues("GET", "/boom")); got != 1 {
		t.Errorf("5xx = %v", got)
	}
	// raw paths must never become label values
	if n := testutil.CollectAndCount(m.reqTotal); n != 3 {
		t.Errorf("series = %d, want 3", n)
	}
}

func TestMiddleware_ContentMode(t *testing.T) {
	m := New()
	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		mode := "published"
		if r.URL.Query().Has("preview") {
			mode = "preview"
		}
		w.Header().Set("X-Content-Mode", mode)
	})
	r.Get("/metrics-free", func(w http.ResponseWriter, r *http.Request) {})

	for _, p := range []string{"/", "/?preview", "/", "/metrics-free"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, p, http.NoBody))
	}
	if got := testutil.ToFloat64(m.modeTotal.WithLabelValues("published")); got != 2 {
		t.Errorf("published = %v", got)
	}
	if got := testutil.ToFloat64(m.modeTotal.WithLabelValues("preview")); got != 1 {
		t.Errorf("preview = %v", got)
	}
	if n := testutil.CollectAndCount(m.modeTotal); n != 2 {
		t.Errorf("series = %d, want 2", n)
	}
}

func TestSetBuildInfo(t *testing.T) {
	m := New()
	m.SetBuildInfo("server", version.Info{AppName: version.AppName, Version: "1.2.3", Commit: "abc"})
	want := `
# HELP build_info Build metadata (value is always 1)
# TYPE build_info gauge
build_info{app="rentwise-web",build_date="",build_id="",commit="abc",commit_date="",component="server",go_version="",vcs_dirty="unknown",version="1.2.3"} 1
`
	if err := testutil.CollectAndCompare(m.buildInfo, strings.NewReader(want)); err != nil {
		t.Fatal(err)
	}
}

func TestDomainMetrics(t *testing.T) {
	m := New()
	m.ObserveCMSFetch("page", "published", "ok", 30*time.Millisecond)
	m.ObserveCMSFetch("page", "published", "error", time.Second)
	m.ObserveCMSFetch("navigation", "preview", "not_configured", 0)
	m.IncModuleSkipped("unknown_type")
	m.IncModuleSkipped("unknown_type")
	m.IncPageFallback("home", "hero")
	m.SetCMSConfigured(true)

	if got := testutil.ToFloat64(m.cmsFetchTotal.WithLabelValues("page", "published", "error")); got != 1 {
		t.Errorf("cms errors = %v", got)
	}
	if got := testutil.ToFloat64(m.moduleSkippedTotal.WithLabelValues("unknown_type")); got != 2 {
		t.Errorf("skipped = %v", got)
	}
	if got := testutil.ToFloat64(m.pageFallbackTotal.WithLabelValues("home", "hero")); got != 1 {
		t.Errorf("fallback = %v", got)
	}
	if got := testutil.ToFloat64(m.cmsConfigured); got != 1 {
		t.Errorf("configured = %v", got)
	}

	var metric dto.Metric
	if err := m.cmsFetchDuration.WithLabelValues("page", "published").(prometheus.Metric).Write(&metric); err != nil {
		t.Fatal(err)
	}
	if c := metric.GetHistogram().GetSampleCount(); c != 2 {
		t.Errorf("histogram samples = %d", c)
	}
}

func TestSetListings_ReplacesIdentity(t *testing.T) {
	m := New()
	now := time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC)
	m.SetListings(&listings.Snapshot{
		Catalog:  listings.NewCatalog(listings.Generate(5, 1, now)),
		Meta:     listings.Meta{Version: "v1", SHA256: "aa", Source: listings.SourceGenerated},
		LoadedAt: now,
	})
	m.SetListings(&listings.Snapshot{
		Catalog:  listings.NewCatalog(listings.Generate(7, 1, now)),
		Meta:     listings.Meta{Version: "v2", SHA256: "bb", Source: listings.SourceS3},
		LoadedAt: now.Add(time.Minute),
	})
	m.SetListings(nil)

	if n := testutil.CollectAndCount(m.listingsFeedInfo); n != 1 {
		t.Fatalf("feed info series = %d, want 1", n)
	}
	if got := testutil.ToFloat64(m.listingsFeedInfo.WithLabelValues("v2", "bb")); got != 1 {
		t.Errorf("feed info = %v", got)
	}
	if got := testutil.ToFloat64(m.listingsSource.WithLabelValues("s3")); got != 1 {
		t.Errorf("source = %v", got)
	}
	if got := testutil.ToFloat64(m.listingsCount); got != 7 {
		t.Errorf("count = %v", got)
	}
	if got := testutil.ToFloat64(m.listingsLoadedTs); got != float64(now.Add(time.Minute).Unix()) {
		t.Errorf("loaded ts = %v", got)
	}
}

func TestWatcherMetrics(t *testing.T) {
	m := New()
	var wm listings.WatcherMetrics = m
	wm.IncFeedPolls()
	wm.IncFeedPolls()
	wm.IncFeedSwaps()
	wm.IncFeedError("ssm")
	wm.ObserveFeedLoadDuration(0.4)
	wm.SetFeedLastSuccess(1_700_000_000)
	wm.SetFeedStale(true)

	if got := testutil.ToFloat64(m.feedPollsTotal); got != 2 {
		t.Errorf("polls = %v", got)
	}
	if got := testutil.ToFloat64(m.feedErrorsTotal.WithLabelValues("ssm")); got != 1 {
		t.Errorf("errors = %v", got)
	}
	if got := testutil.ToFloat64(m.feedStale); got != 1 {
		t.Errorf("stale = %v", got)
	}
}

func TestHandler_ServesOpenMetrics(t *testing.T) {
	m := New()
	m.IncHttpPanic()
	m.IncRateLimitDenied()
	m.IncRateLimitCapacity()
	m.SetProfilingActive(true)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody)
	req.Header.Set("Accept", "application/openmetrics-text")
	m.Handler().ServeHTTP(rec, req)
	body := rec.Body.String()
	for _, want := range []string{"http_panic_total", "http_requests_rate_limited_total", "profiling_active 1", "go_goroutines"} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}
