package httpmw

import "net/http"

// DefaultMaxBody covers the site's only inputs: query strings, no bodies.
const DefaultMaxBody = 1 << 10

// MaxBody caps request bodies. Reading past n yields 413.
func MaxBody(n int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil && r.Body != http.NoBody {
				r.Body = http.MaxBytesReader(w, r.Body, n)
			}
			next.ServeHTTP(w, r)
		})
	}
}
