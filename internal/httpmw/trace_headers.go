package httpmw

import (
	"net/http"

	"go.opentelemetry.io/otel/trace"
)

const (
	HeaderTraceID = "X-Trace-Id"
	HeaderSpanID  = "X-Span-Id"
)

// TraceHeaders echoes the trace and span ids of sampled requests so a
// visitor's report ("the market page was blank") can be matched to a trace.
// Unsampled ids are not exported anywhere, so they are not echoed.
func TraceHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if sc := trace.SpanContextFromContext(r.Context()); sc.IsValid() && sc.IsSampled() {
			w.Header().Set(HeaderTraceID, sc.TraceID().String())
			w.Header().Set(HeaderSpanID, sc.SpanID().String())
		}
		next.ServeHTTP(w, r)
	})
}
