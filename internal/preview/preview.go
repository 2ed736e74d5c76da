// Package preview carries the per-request choice between published and draft
// CMS content.
//
// The choice is made from the "preview=true" query parameter and is only
// honored when the CMS client is configured. It lives in the request context;
// there is no process-wide preview switch.
package preview

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/keithlinneman/rentwise-web/internal/cms"
)

const (
	// Param is the query parameter that turns preview on.
	Param = "preview"
	// TogglePath serves the toggle redirect.
	TogglePath = "/preview/toggle"
	// HeaderContentMode tells caches and clients which content a response carries.
	HeaderContentMode = "X-Content-Mode"
)

type State struct {
	Enabled    bool
	Configured bool
}

// Mode maps the state to the CMS endpoint selector.
func (s State) Mode() cms.Mode {
	if s.Enabled {
		return cms.ModePreview
	}
	return cms.ModePublished
}

type ctxKey struct{}

func WithState(ctx context.Context, s State) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext returns the state set by Middleware, or a disabled,
// unconfigured state.
func FromContext(ctx context.Context) State {
	s, _ := ctx.Value(ctxKey{}).(State)
	return s
}

// Requested reports whether q asks for preview.
func Requested(q url.Values) bool { return q.Get(Param) == "true" }

// Middleware stores the request's State and labels the response. Preview
// responses are never cached.
func Middleware(configured bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s := State{Configured: configured}
			s.Enabled = configured && Requested(r.URL.Query())
			w.Header().Set(HeaderContentMode, s.Mode().String())
			if s.Enabled {
				w.Header().Set("Cache-Control", "no-store")
			}
			next.ServeHTTP(w, r.WithContext(WithState(r.Context(), s)))
		})
	}
}

// Toggle flips the preview parameter on u, keeping every other parameter:
// set to "true" when absent or not "true", removed when on.
func Toggle(u *url.URL) *url.URL {
	out := *u
	q := u.Query()
	if Requested(q) {
		q.Del(Param)
	} else {
		q.Set(Param, "true")
	}
	out.RawQuery = q.Encode()
	return &out
}

// ToggleHref is the link a page renders for its preview toggle.
func ToggleHref(current *url.URL) string {
	return TogglePath + "?" + url.Values{"return": {current.RequestURI()}}.Encode()
}

// SafeReturn parses a same-site relative return path. Absolute URLs,
// scheme-relative "//host" forms and backslash tricks are refused.
func SafeReturn(raw string) (*url.URL, bool) {
	if !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") || strings.ContainsAny(raw, "\\\r\n\x00") {
		return nil, false
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme != "" || u.Host != "" || u.User != nil {
		return nil, false
	}
	return u, true
}

// ToggleHandler redirects to the return path with preview toggled. The
// browser fetches the target fresh, which re-runs every CMS query in the new
// mode. Without CMS configuration it only strips the parameter.
func ToggleHandler(configured bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		target, ok := SafeReturn(r.URL.Query().Get("return"))
		if !ok {
			target = &url.URL{Path: "/"}
		}
		if configured {
			target = Toggle(target)
		} else {
			q := target.Query()
			q.Del(Param)
			target.RawQuery = q.Encode()
		}
		w.Header().Set("Cache-Control", "no-store")
		http.Redirect(w, r, target.RequestURI(), http.StatusSeeOther)
	}
}
