package health

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/keithlinneman/rentwise-web/internal/xerrors"
)

// Probe is evaluated per request. nil means pass.
type Probe interface{ Check(context.Context) error }

// CheckFunc adapts a function into a Probe.
type CheckFunc func(context.Context) error

func (f CheckFunc) Check(ctx context.Context) error { return f(ctx) }

// OK always passes.
func OK() CheckFunc { return func(context.Context) error { return nil } }

// Failing always fails with reason.
func Failing(reason string) CheckFunc {
	if reason == "" {
		reason = "unhealthy"
	}
	return func(context.Context) error { return xerrors.New(reason) }
}

// All passes only when every probe passes. Unlike a short-circuit AND it
// reports every failing probe so the 503 body names all of them.
func All(ps ...Probe) CheckFunc {
	return func(ctx context.Context) error {
		var errs []error
		for _, p := range ps {
			if p == nil {
				continue
			}
			if err := p.Check(ctx); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}
}

// Named prefixes a probe's failure with name.
func Named(name string, p Probe) CheckFunc {
	return func(ctx context.Context) error {
		if p == nil {
			return nil
		}
		if err := p.Check(ctx); err != nil {
			return xerrors.Wrapf(err, "%s", name)
		}
		return nil
	}
}

// ReadyReporter is implemented by stores that know whether they hold data.
type ReadyReporter interface{ ReadyErr() error }

// Ready adapts a ReadyReporter (e.g. the listings store) into a Probe.
func Ready(r ReadyReporter) CheckFunc {
	return func(context.Context) error {
		if r == nil {
			return xerrors.New("not configured")
		}
		return r.ReadyErr()
	}
}

// Gate fails readiness once the process starts draining so load balancers
// stop routing before in-flight requests finish.
type Gate struct {
	draining atomic.Bool
	reason   atomic.Pointer[string]
}

func (g *Gate) Close(reason string) {
	if reason == "" {
		reason = "draining"
	}
	g.reason.Store(&reason)
	g.draining.Store(true)
}

func (g *Gate) Open() {
	g.draining.Store(false)
	g.reason.Store(nil)
}

func (g *Gate) Draining() bool { return g.draining.Load() }

func (g *Gate) Probe() CheckFunc {
	return func(context.Context) error {
		if !g.draining.Load() {
			return nil
		}
		reason := "draining"
		if p := g.reason.Load(); p != nil {
			reason = *p
		}
		return xerrors.New(reason)
	}
}
