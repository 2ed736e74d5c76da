package sitehandler

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/keithlinneman/rentwise-web/internal/cms"
	"github.com/keithlinneman/rentwise-web/internal/fallback"
	"github.com/keithlinneman/rentwise-web/internal/listings"
	"github.com/keithlinneman/rentwise-web/internal/log"
)

var ErrInvalidOptions = errors.New("sitehandler: invalid options")

// ContentSource is the nil-on-failure side of the CMS client.
type ContentSource interface {
	Configured() bool
	Page(ctx context.Context, slug string, mode cms.Mode) *cms.Page
	MarketPage(ctx context.Context, slug string, mode cms.Mode) *cms.MarketPage
	Navigation(ctx context.Context, mode cms.Mode) *cms.Navigation
}

type CatalogSource interface {
	Catalog() *listings.Catalog
}

// PageMetrics counts sections rendered from defaults and modules dropped
// while resolving a page.
type PageMetrics interface {
	IncPageFallback(page, section string)
	IncModuleSkipped(reason string)
}

type Options struct {
	Logger   log.Logger
	CMS      ContentSource
	Listings CatalogSource
	Defaults *fallback.Defaults
	Metrics  PageMetrics

	// TemplatesFS holds layout.html, partials.html and one file per page.
	TemplatesFS fs.FS
	// StaticFS is served under /static/ and holds MaintenanceFile.
	StaticFS fs.FS

	MaintenanceFile string // default: "maintenance.html"

	// Cache policies applied by file extension.
	HTMLCacheControl  string // default: "no-cache"
	AssetCacheControl string // default: "public, max-age=86400"
	OtherCacheControl string // default: "public, max-age=3600"

	Now func() time.Time
}

func (o *Options) setDefaults() {
	if o.Logger == nil {
		o.Logger = log.Nop()
	}
	if o.MaintenanceFile == "" {
		o.MaintenanceFile = "maintenance.html"
	}
	if o.HTMLCacheControl == "" {
		o.HTMLCacheControl = "no-cache"
	}
	// assets are not content-hashed, so no immutable
	if o.AssetCacheControl == "" {
		o.AssetCacheControl = "public, max-age=86400"
	}
	if o.OtherCacheControl == "" {
		o.OtherCacheControl = "public, max-age=3600"
	}
	if o.Now == nil {
		o.Now = time.Now
	}
}

func (o *Options) validate() error {
	if o.CMS == nil {
		return fmt.Errorf("%w: CMS is nil", ErrInvalidOptions)
	}
	if o.Listings == nil {
		return fmt.Errorf("%w: Listings is nil", ErrInvalidOptions)
	}
	if o.Defaults == nil {
		return fmt.Errorf("%w: Defaults is nil", ErrInvalidOptions)
	}
	if o.TemplatesFS == nil || o.StaticFS == nil {
		return fmt.Errorf("%w: TemplatesFS and StaticFS are required", ErrInvalidOptions)
	}
	// fail fast on boot if mispackaged
	if _, err := fs.Stat(o.StaticFS, o.MaintenanceFile); err != nil {
		return fmt.Errorf("%w: missing %q in static FS: %v", ErrInvalidOptions, o.MaintenanceFile, err)
	}
	return nil
}
