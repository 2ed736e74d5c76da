package opshttp

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/keithlinneman/rentwise-web/internal/health"
)

func get(h http.Handler, path, remote string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, http.NoBody)
	req.RemoteAddr = remote
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestNewHandler(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("m")) })
	h := NewHandler(Options{
		Metrics:   metrics,
		Health:    health.OK(),
		Readiness: health.Failing("no listings"),
	})
	const local = "127.0.0.1:4000"

	cases := []struct {
		path   string
		remote string
		want   int
	}{
		{"/-/healthy", local, http.StatusOK},
		{"/-/ready", local, http.StatusServiceUnavailable},
		{"/metrics", "10.1.2.3:9", http.StatusOK},
		{"/debug/pprof/", local, http.StatusNotFound},
		{"/-/info", local, http.StatusNotFound},
		{"/metrics", "203.0.113.7:9", http.StatusForbidden},
	}
	for _, tc := range cases {
		if rec := get(h, tc.path, tc.remote); rec.Code != tc.want {
			t.Errorf("%s from %s = %d, want %d", tc.path, tc.remote, rec.Code, tc.want)
		}
	}
}

func TestNewHandler_PprofAndInfo(t *testing.T) {
	info := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte(`{}`)) })
	h := NewHandler(Options{EnablePprof: true, Info: info})
	if rec := get(h, "/debug/pprof/", "127.0.0.1:1"); rec.Code != http.StatusOK {
		t.Fatalf("pprof index = %d", rec.Code)
	}
	if rec := get(h, "/-/info", "[::1]:1"); rec.Code != http.StatusOK {
		t.Fatalf("info = %d", rec.Code)
	}
}
