package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/keithlinneman/rentwise-web/internal/health"
	"github.com/keithlinneman/rentwise-web/internal/httpmw"
	"github.com/keithlinneman/rentwise-web/internal/log"
)

type Options struct {
	Logger       log.Logger
	Port         int
	UseRecoverMW bool
	OnPanic      func()
	MetricsMW    func(http.Handler) http.Handler
	RateLimitMW  func(http.Handler) http.Handler
	ClientIPOpts httpmw.ClientIPOptions

	Health    health.Probe
	Readiness health.Probe

	// ListingsInfo stamps X-Listings-Version and X-Listings-Hash.
	ListingsInfo httpmw.ListingsInfo

	// CMSConfigured enables the preview query parameter. Without CMS
	// credentials every request renders in published mode.
	CMSConfigured bool

	// ImageOrigins are added to the CSP img-src. Defaults to
	// httpmw.DefaultImageOrigins when nil.
	ImageOrigins []string

	// APIRoutes registers the JSON endpoints.
	APIRoutes func(chi.Router)
	// SiteRoutes registers the HTML pages and owns NotFound/MethodNotAllowed.
	SiteRoutes func(chi.Router)
}
