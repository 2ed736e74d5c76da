package health

import (
	"net/http"
)

// Handler answers 200 with okBody when p passes and 503 with the failure
// reason otherwise. A nil probe always passes.
func Handler(p Probe, okBody string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		if p != nil {
			if err := p.Check(r.Context()); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				if r.Method != http.MethodHead {
					_, _ = w.Write([]byte(err.Error() + "\n"))
				}
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		if r.Method != http.MethodHead {
			_, _ = w.Write([]byte(okBody + "\n"))
		}
	}
}

func HealthzHandler(p Probe) http.HandlerFunc { return Handler(p, "ok") }

func ReadyzHandler(p Probe) http.HandlerFunc { return Handler(p, "ready") }
