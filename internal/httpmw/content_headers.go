package httpmw

import (
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ListingsInfo identifies the active listing catalog.
type ListingsInfo interface {
	ListingsVersion() string
	Hash() string
}

const (
	HeaderListingsVersion = "X-Listings-Version"
	HeaderListingsHash    = "X-Listings-Hash"
)

// ContentHeaders stamps every response with the catalog identity so a cached
// page can be traced back to the feed that produced it.
func ContentHeaders(info ListingsInfo) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if info == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			v, h := info.ListingsVersion(), info.Hash()
			if v != "" {
				w.Header().Set(HeaderListingsVersion, v)
			}
			if h != "" {
				w.Header().Set(HeaderListingsHash, shortHash(h))
			}
			if span := trace.SpanFromContext(r.Context()); span.IsRecording() {
				span.SetAttributes(
					attribute.String("listings.version", v),
					attribute.String("listings.sha256", h),
				)
			}
			next.ServeHTTP(w, r)
		})
	}
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
