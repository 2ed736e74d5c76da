package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/keithlinneman/rentwise-web/internal/health"
	"github.com/keithlinneman/rentwise-web/internal/httpmw"
	"github.com/keithlinneman/rentwise-web/internal/log"
	"github.com/keithlinneman/rentwise-web/internal/preview"
	"github.com/keithlinneman/rentwise-web/internal/xerrors"
)

// NewHandler builds the public handler: site pages, the listings API and
// health endpoints behind the shared middleware chain. main() owns shutdown
// through the stop func returned by Start.
func NewHandler(opts *Options) http.Handler {
	L := opts.Logger
	if L == nil {
		L = log.Nop()
	}

	r := chi.NewRouter()
	r.Use(
		middleware.Compress(5,
			"text/html",
			"text/css",
			"application/javascript",
			"application/json",
			"image/svg+xml",
		),
		// HEAD falls through to GET routes; handlers skip the body themselves
		middleware.GetHead,
		httpmw.AnnotateHTTPRoute,
		httpmw.AccessLog(),
		// only GETs are routed and the filter form submits via query string
		httpmw.MaxBody(1024),
		preview.Middleware(opts.CMSConfigured),
	)

	if opts.Health != nil {
		r.Get("/-/healthy", health.HealthzHandler(opts.Health))
	}
	if opts.Readiness != nil {
		r.Get("/-/ready", health.ReadyzHandler(opts.Readiness))
	}
	if opts.APIRoutes != nil {
		opts.APIRoutes(r)
	}
	// last: the site owns NotFound and MethodNotAllowed
	if opts.SiteRoutes != nil {
		opts.SiteRoutes(r)
	}

	imgOrigins := opts.ImageOrigins
	if imgOrigins == nil {
		imgOrigins = httpmw.DefaultImageOrigins
	}
	var recoverMW func(http.Handler) http.Handler
	if opts.UseRecoverMW {
		recoverMW = httpmw.Recover(L, opts.OnPanic)
	}

	// outermost first
	return httpmw.Chain(r,
		// security headers land even on recovered panics
		httpmw.SecurityHeaders(imgOrigins),
		recoverMW,
		httpmw.RequestID("X-Request-Id"),
		// the rate limiter and logger key off the resolved client ip
		httpmw.ClientIPWithOptions(opts.ClientIPOpts),
		opts.RateLimitMW,
		tracing,
		httpmw.ContentHeaders(opts.ListingsInfo),
		httpmw.TraceHeaders,
		opts.MetricsMW,
		// innermost so request logs carry trace ids
		httpmw.WithLogger(L),
	)
}

func tracing(next http.Handler) http.Handler {
	return otelhttp.NewHandler(next, "http.server",
		otelhttp.WithFilter(func(r *http.Request) bool { return shouldTrace(r.URL.Path) }),
		// AnnotateHTTPRoute renames the span to the route pattern once chi matched
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
		otelhttp.WithPublicEndpointFn(func(*http.Request) bool { return true }),
	)
}

// shouldTrace keeps probes and static assets out of the trace pipeline.
func shouldTrace(p string) bool {
	switch p {
	case "/favicon.ico", "/robots.txt", "/-/healthy", "/-/ready":
		return false
	}
	if strings.HasPrefix(p, "/static/") {
		return false
	}
	switch strings.ToLower(path.Ext(p)) {
	case ".css", ".js", ".png", ".jpg", ".jpeg", ".webp", ".svg", ".ico", ".woff", ".woff2", ".map":
		return false
	}
	return true
}

const (
	DefaultPort              = 8080
	DefaultReadHeaderTimeout = 5 * time.Second
	DefaultReadTimeout       = 10 * time.Second
	// CMS fetches are bounded by -cms-timeout, well inside this
	DefaultWriteTimeout   = 15 * time.Second
	DefaultIdleTimeout    = 60 * time.Second
	DefaultMaxHeaderBytes = 1 << 20
	shutdownTimeout       = 5 * time.Second
)

func NewServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: DefaultReadHeaderTimeout,
		ReadTimeout:       DefaultReadTimeout,
		WriteTimeout:      DefaultWriteTimeout,
		IdleTimeout:       DefaultIdleTimeout,
		MaxHeaderBytes:    DefaultMaxHeaderBytes,
	}
}

// Start binds the public listener and serves in the background. The
// returned stop func is idempotent.
func Start(ctx context.Context, opts *Options) (func(context.Context) error, error) {
	L := opts.Logger
	if L == nil {
		L = log.Nop()
	}
	port := opts.Port
	if port == 0 {
		port = DefaultPort
	}
	addr := fmt.Sprintf(":%d", port)
	srv := NewServer(addr, NewHandler(opts))

	ln, err := (&net.ListenConfig{}).Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, xerrors.Wrapf(err, "listen site addr=%s", addr)
	}

	go func() {
		L.Info(ctx, "http server listening", "addr", addr)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			L.Error(ctx, err, "http server error")
		}
	}()

	var once sync.Once
	return func(sctx context.Context) (retErr error) {
		once.Do(func() {
			L.Info(sctx, "http server shutting down")
			c, cancel := context.WithTimeout(sctx, shutdownTimeout)
			defer cancel()
			retErr = srv.Shutdown(c)
		})
		return retErr
	}, nil
}
