package httpmw

import (
	"bufio"
	"context"
	"errors"
	"net"
	"net/http"
	"path"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/keithlinneman/rentwise-web/internal/log"
)

// accessWriter records status and size, and opens a response.write child
// span on the first byte so time-to-first-byte shows up in traces.
type accessWriter struct {
	http.ResponseWriter
	status int
	bytes  int64

	ctx      context.Context
	reqStart time.Time

	span     trace.Span
	started  bool
	ttfb     time.Duration
	blocked  time.Duration
	writeErr error
}

func (aw *accessWriter) begin() {
	if aw.started {
		return
	}
	aw.started = true
	aw.ttfb = time.Since(aw.reqStart)

	if !trace.SpanFromContext(aw.ctx).IsRecording() {
		return
	}
	aw.ctx, aw.span = otel.Tracer("rentwise-web/httpmw").Start(aw.ctx, "response.write",
		trace.WithAttributes(attribute.Float64("http.server.ttfb_seconds", aw.ttfb.Seconds())),
	)
}

func (aw *accessWriter) end() {
	if aw.span == nil {
		return
	}
	aw.span.SetAttributes(
		attribute.Int("http.response.status_code", aw.statusCode()),
		attribute.Int64("http.response.body.size", aw.bytes),
		attribute.Float64("http.server.write.block_seconds", aw.blocked.Seconds()),
	)
	if aw.writeErr != nil {
		aw.span.RecordError(aw.writeErr)
		aw.span.SetStatus(codes.Error, aw.writeErr.Error())
	}
	aw.span.End()
}

func (aw *accessWriter) statusCode() int {
	if aw.status == 0 {
		return http.StatusOK
	}
	return aw.status
}

func (aw *accessWriter) WriteHeader(code int) {
	aw.begin()
	if aw.status == 0 {
		aw.status = code
	}
	t := time.Now()
	aw.ResponseWriter.WriteHeader(code)
	aw.blocked += time.Since(t)
}

func (aw *accessWriter) Write(b []byte) (int, error) {
	aw.begin()
	if aw.status == 0 {
		aw.status = http.StatusOK
	}
	t := time.Now()
	n, err := aw.ResponseWriter.Write(b)
	aw.blocked += time.Since(t)
	aw.bytes += int64(n)
	if err != nil && aw.writeErr == nil {
		aw.writeErr = err
	}
	return n, err
}

func (aw *accessWriter) Flush() {
	if f, ok := aw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (aw *accessWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := aw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("underlying ResponseWriter does not implement http.Hijacker")
	}
	return h.Hijack()
}

func (aw *accessWriter) Unwrap() http.ResponseWriter { return aw.ResponseWriter }

// WithLogger stores a request-scoped logger carrying request id, resolved
// client address and path. The query string goes on the span only.
func WithLogger(base log.Logger) func(http.Handler) http.Handler {
	if base == nil {
		base = log.Nop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			reqID := RequestIDFromContext(ctx)
			client := ClientIPFromContext(ctx)
			peer := r.RemoteAddr
			if host, _, err := net.SplitHostPort(peer); err == nil {
				peer = host
			}
			scheme := schemeFromRequest(r)

			if span := trace.SpanFromContext(ctx); span.IsRecording() {
				span.SetAttributes(
					attribute.String("request_id", reqID),
					attribute.String("client.address", client),
					attribute.String("network.peer.address", peer),
					attribute.String("url.scheme", scheme),
				)
				if q := r.URL.RawQuery; q != "" {
					span.SetAttributes(attribute.String("url.query", q))
				}
			}

			L := base.With(
				"request_id", reqID,
				"client.address", client,
				"network.peer.address", peer,
				"server.address", r.Host,
				"http.request.method", r.Method,
				"url.path", r.URL.Path,
				"url.scheme", scheme,
			)
			next.ServeHTTP(w, r.WithContext(log.WithContext(ctx, L)))
		})
	}
}

var quietExt = map[string]bool{
	".css": true, ".js": true, ".png": true, ".jpg": true, ".jpeg": true,
	".webp": true, ".svg": true, ".ico": true, ".woff2": true, ".map": true,
}

// AccessLog emits one line per page or API request. Static assets and
// health probes are skipped.
func AccessLog() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			aw := &accessWriter{ResponseWriter: w, ctx: r.Context(), reqStart: start}

			next.ServeHTTP(aw, r)
			aw.end()

			if quietExt[strings.ToLower(path.Ext(r.URL.Path))] {
				return
			}
			if strings.HasPrefix(r.URL.Path, "/-/") {
				return
			}

			status := aw.statusCode()
			kv := []any{
				"http.response.status_code", status,
				"http.server.request.duration", time.Since(start).Seconds(),
				"http.response.body.size", aw.bytes,
				"http.route", RoutePattern(r),
			}
			L := log.FromContext(r.Context())
			if status >= http.StatusInternalServerError {
				L.Warn(r.Context(), "http request", kv...)
				return
			}
			L.Info(r.Context(), "http request", kv...)
		})
	}
}

func schemeFromRequest(r *http.Request) string {
	// ClientIP has already stripped this header unless the peer is a trusted proxy.
	if xf := r.Header.Get("X-Forwarded-Proto"); xf != "" {
		s := strings.ToLower(strings.TrimSpace(strings.Split(xf, ",")[0]))
		if s == "http" || s == "https" {
			return s
		}
	}
	if r.TLS != nil {
		return "https"
	}
	return "http"
}

// Scope tags the request logger and span with a handler name.
func Scope(handler string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			ctx = log.WithContext(ctx, log.FromContext(ctx).With("handler", handler))
			if span := trace.SpanFromContext(ctx); span.IsRecording() {
				span.SetAttributes(attribute.String("app.handler", handler))
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
