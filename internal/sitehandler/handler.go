package sitehandler

import (
	"bytes"
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/keithlinneman/rentwise-web/internal/cms"
	"github.com/keithlinneman/rentwise-web/internal/log"
	"github.com/keithlinneman/rentwise-web/internal/preview"
)

type Handler struct {
	opts  Options
	pages map[string]*template.Template
}

func New(opts *Options) (*Handler, error) {
	opts.setDefaults()
	if err := opts.validate(); err != nil {
		return nil, err
	}
	pages, err := parseTemplates(opts.TemplatesFS)
	if err != nil {
		return nil, err
	}
	return &Handler{opts: *opts, pages: pages}, nil
}

// RegisterRoutes mounts the pages, static files and the preview toggle.
// It also takes over NotFound and MethodNotAllowed, so register it last.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.home)
	r.Get("/homes", h.homes)
	r.Get("/homes/{id}", h.listing)
	r.Get("/market/{slug}", h.market)
	r.Get(preview.TogglePath, preview.ToggleHandler(h.opts.CMS.Configured()))
	r.Get("/static/*", h.static)
	r.Get("/robots.txt", h.staticFile("robots.txt"))
	r.Get("/favicon.ico", h.staticFile("favicon.svg"))

	r.NotFound(h.notFound)
	r.MethodNotAllowed(h.methodNotAllowed)
}

func (h *Handler) static(w http.ResponseWriter, r *http.Request) {
	file, ok := resolveAsset(chi.URLParam(r, "*"), h.opts.StaticFS)
	if !ok {
		h.notFound(w, r)
		return
	}
	if cc := h.opts.cacheControl(file); cc != "" {
		w.Header().Set("Cache-Control", cc)
	}
	http.ServeFileFS(w, r, h.opts.StaticFS, file)
}

func (h *Handler) staticFile(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", h.opts.OtherCacheControl)
		http.ServeFileFS(w, r, h.opts.StaticFS, name)
	}
}

func (h *Handler) methodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Allow", "GET, HEAD")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusMethodNotAllowed)
}

// notFound renders the themed 404 with default navigation. It makes no CMS
// calls so path probes cannot fan out to the content store.
func (h *Handler) notFound(w http.ResponseWriter, r *http.Request) {
	v := &pageView{Layout: h.layout(r, nil)}
	v.Layout.Title = "Page not found | " + h.opts.Defaults.Brand.Name
	w.Header().Set("Cache-Control", "no-store")
	h.render(w, r, http.StatusNotFound, pageNotFound, v)
}

// render executes a page into a buffer so a template failure can still be
// answered with the maintenance page.
func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, page string, v *pageView) {
	var buf bytes.Buffer
	if err := h.pages[page].ExecuteTemplate(&buf, "layout", v); err != nil {
		h.logger(r.Context()).Error(r.Context(), err, "page render failed", "page", page)
		h.serveMaintenance(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if w.Header().Get("Cache-Control") == "" {
		w.Header().Set("Cache-Control", h.opts.HTMLCacheControl)
	}
	w.WriteHeader(status)
	if r.Method != http.MethodHead {
		_, _ = w.Write(buf.Bytes())
	}
}

func (h *Handler) serveMaintenance(w http.ResponseWriter, r *http.Request) {
	body, err := fs.ReadFile(h.opts.StaticFS, h.opts.MaintenanceFile)
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Retry-After", "60")
	if err != nil {
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusInternalServerError)
	if r.Method != http.MethodHead {
		_, _ = w.Write(body)
	}
}

// layout fills the chrome shared by every page. nav may be nil.
func (h *Handler) layout(r *http.Request, nav *cms.Navigation) layoutView {
	d := h.opts.Defaults
	st := preview.FromContext(r.Context())
	n := d.Navigation(h.opts.CMS.Configured(), nav)
	if nav == nil && h.opts.CMS.Configured() {
		h.fallbackUsed(r.Context(), "navigation")
	}

	lv := layoutView{
		Title:       d.Brand.Name,
		Description: d.Brand.Tagline,
		CurrentPath: r.URL.Path,
		Year:        h.opts.Now().Year(),
		Brand:       d.Brand,
		Nav:         n,
		MarketLinks: d.MarketLinks,
		SocialLinks: d.SocialLinks,
		Preview:     st,
		ToggleHref:  preview.ToggleHref(r.URL),
	}
	lv.FooterPrimary = n.Footer
	if len(n.Footer) > footerPrimaryLinks {
		lv.FooterPrimary, lv.FooterSecondary = n.Footer[:footerPrimaryLinks], n.Footer[footerPrimaryLinks:]
	}
	return lv
}

func (h *Handler) fallbackUsed(ctx context.Context, section string) {
	if h.opts.Metrics == nil {
		return
	}
	page, _ := ctx.Value(pageKey{}).(string)
	if page == "" {
		return
	}
	h.opts.Metrics.IncPageFallback(page, section)
}

// logger prefers the request logger and falls back to Options.Logger.
func (h *Handler) logger(ctx context.Context) log.Logger {
	return log.FromContextOr(ctx, h.opts.Logger)
}

type pageKey struct{}

func withPage(r *http.Request, page string) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), pageKey{}, page))
}

func titled(title, brand string) string {
	if title == "" || strings.EqualFold(title, brand) {
		return brand
	}
	return title + " | " + brand
}
