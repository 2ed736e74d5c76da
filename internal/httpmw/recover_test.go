package httpmw

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/keithlinneman/rentwise-web/internal/log"
	"github.com/keithlinneman/rentwise-web/internal/xerrors"
)

// spyLogger captures Error calls.
type spyLogger struct {
	log.Logger
	mu   sync.Mutex
	errs []error
	msgs []string
}

func newSpyLogger() *spyLogger { return &spyLogger{Logger: log.Nop()} }

func (s *spyLogger) With(...any) log.Logger { return s }

func (s *spyLogger) Error(_ context.Context, err error, msg string, _ ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs = append(s.errs, err)
	s.msgs = append(s.msgs, msg)
}

func (s *spyLogger) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.errs)
}

func TestRecover_NoPanic(t *testing.T) {
	spy := newSpyLogger()
	h := Recover(spy, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", http.NoBody))
	if rec.Code != http.StatusNoContent || spy.count() != 0 {
		t.Fatalf("status = %d, logged = %d", rec.Code, spy.count())
	}
}

func TestRecover_Panics(t *testing.T) {
	boom := errors.New("boom")
	cases := []struct {
		name string
		v    any
	}{
		{"string", "template exploded"},
		{"error", boom},
		{"int", 42},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			spy := newSpyLogger()
			panics := 0
			h := Recover(spy, func() { panics++ })(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
				panic(tc.v)
			}))
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/homes", http.NoBody))

			if rec.Code != http.StatusInternalServerError {
				t.Fatalf("status = %d", rec.Code)
			}
			if panics != 1 || spy.count() != 1 {
				t.Fatalf("onPanic = %d, logged = %d", panics, spy.count())
			}
			if !xerrors.HasStack(spy.errs[0]) {
				t.Error("logged error has no stack")
			}
			if err, ok := tc.v.(error); ok && !errors.Is(spy.errs[0], err) {
				t.Errorf("logged %v, want chain containing %v", spy.errs[0], err)
			}
		})
	}
}

func TestRecover_AbortHandlerRepanics(t *testing.T) {
	h := Recover(newSpyLogger(), nil)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic(http.ErrAbortHandler)
	}))
	defer func() {
		if v := recover(); v != http.ErrAbortHandler {
			t.Fatalf("recovered %v, want ErrAbortHandler", v)
		}
	}()
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", http.NoBody))
}
