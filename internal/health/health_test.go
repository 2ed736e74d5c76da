package health

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type readyStub struct{ err error }

func (s readyStub) ReadyErr() error { return s.err }

func TestHealthzHandler(t *testing.T) {
	cases := []struct {
		name     string
		probe    Probe
		wantCode int
		wantBody string
	}{
		{"nil probe", nil, http.StatusOK, "ok"},
		{"passing", OK(), http.StatusOK, "ok"},
		{"failing", Failing("catalog empty"), http.StatusServiceUnavailable, "catalog empty"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			HealthzHandler(tc.probe).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/-/healthy", http.NoBody))
			if rec.Code != tc.wantCode {
				t.Fatalf("status = %d, want %d", rec.Code, tc.wantCode)
			}
			if !strings.Contains(rec.Body.String(), tc.wantBody) {
				t.Fatalf("body = %q, want %q", rec.Body.String(), tc.wantBody)
			}
		})
	}
}

func TestReadyzHandler_HeadHasNoBody(t *testing.T) {
	rec := httptest.NewRecorder()
	ReadyzHandler(OK()).ServeHTTP(rec, httptest.NewRequest(http.MethodHead, "/-/ready", http.NoBody))
	if rec.Code != http.StatusOK || rec.Body.Len() != 0 {
		t.Fatalf("HEAD = %d %q", rec.Code, rec.Body.String())
	}
}

func TestAll_ReportsEveryFailure(t *testing.T) {
	p := All(OK(), nil, Named("listings", Failing("empty")), Named("gate", Failing("draining")))
	err := p.Check(context.Background())
	if err == nil {
		t.Fatal("expected failure")
	}
	for _, want := range []string{"listings", "empty", "gate", "draining"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q missing %q", err, want)
		}
	}
	if err := All(OK(), OK()).Check(context.Background()); err != nil {
		t.Fatalf("all passing: %v", err)
	}
}

func TestReady(t *testing.T) {
	if err := Ready(readyStub{}).Check(context.Background()); err != nil {
		t.Fatal(err)
	}
	sentinel := errors.New("no catalog")
	if err := Ready(readyStub{err: sentinel}).Check(context.Background()); !errors.Is(err, sentinel) {
		t.Fatalf("err = %v", err)
	}
	if err := Ready(nil).Check(context.Background()); err == nil {
		t.Fatal("nil reporter should fail")
	}
}

func TestGate(t *testing.T) {
	var g Gate
	if err := g.Probe().Check(context.Background()); err != nil {
		t.Fatalf("open gate failed: %v", err)
	}
	g.Close("")
	if !g.Draining() {
		t.Fatal("Draining = false after Close")
	}
	if err := g.Probe().Check(context.Background()); err == nil || err.Error() != "draining" {
		t.Fatalf("closed gate err = %v", err)
	}
	g.Close("shutting down")
	if err := g.Probe().Check(context.Background()); err == nil || err.Error() != "shutting down" {
		t.Fatalf("closed gate err = %v", err)
	}
	g.Open()
	if err := g.Probe().Check(context.Background()); err != nil {
		t.Fatalf("reopened gate failed: %v", err)
	}
}
