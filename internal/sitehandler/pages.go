package sitehandler

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/keithlinneman/rentwise-web/internal/cms"
	"github.com/keithlinneman/rentwise-web/internal/fallback"
	"github.com/keithlinneman/rentwise-web/internal/listings"
	"github.com/keithlinneman/rentwise-web/internal/modules"
	"github.com/keithlinneman/rentwise-web/internal/pathutil"
	"github.com/keithlinneman/rentwise-web/internal/preview"
	"github.com/keithlinneman/rentwise-web/internal/richtext"
)

const homeSlug = "home"

var (
	bedOptions  = []int{1, 2, 3, 4}
	bathOptions = []int{1, 2, 3}
)

func (h *Handler) home(w http.ResponseWriter, r *http.Request) {
	r = withPage(r, pageHome)
	ctx := r.Context()
	mode := preview.FromContext(ctx).Mode()

	// each fetch degrades on its own; the group only joins them
	var (
		page *cms.Page
		nav  *cms.Navigation
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { page = h.opts.CMS.Page(gctx, homeSlug, mode); return nil })
	g.Go(func() error { nav = h.opts.CMS.Navigation(gctx, mode); return nil })
	_ = g.Wait()

	v := &pageView{Layout: h.layout(r, nav)}
	if page != nil {
		v.Sections = h.sections(r, modules.Resolve(ctx, page.Fields.Modules, h.opts.Metrics))
		h.applySEO(&v.Layout, &page.Fields)
	}
	if len(v.Sections) == 0 {
		h.fallbackUsed(ctx, "modules")
		v.Sections = h.defaultSections()
	}
	v.Grid = gridView{Listings: h.opts.Listings.Catalog().Featured()}
	h.render(w, r, http.StatusOK, pageHome, v)
}

func (h *Handler) homes(w http.ResponseWriter, r *http.Request) {
	r = withPage(r, pageHomes)
	ctx := r.Context()
	nav := h.opts.CMS.Navigation(ctx, preview.FromContext(ctx).Mode())

	q := r.URL.Query()
	crit, err := listings.CriteriaFromQuery(q)
	v := &pageView{Layout: h.layout(r, nav)}
	v.Layout.Title = titled("Browse All Homes", h.opts.Defaults.Brand.Name)
	if err != nil {
		h.logger(ctx).Debug(ctx, "ignoring invalid listing filters", "error", err.Error())
		v.FilterError = "Some filters were not understood and have been ignored."
		crit = listings.Criteria{}
	}

	cat := h.opts.Listings.Catalog()
	v.Cities = cat.Cities()
	v.BedOptions, v.BathOptions = bedOptions, bathOptions
	v.Form = crit.Query()
	v.HasFilters = !crit.IsEmpty()
	v.ClearHref = "/homes"
	if preview.Requested(q) {
		v.ClearHref += "?" + url.Values{preview.Param: {"true"}}.Encode()
	}
	v.Grid = gridView{
		Listings:     cat.Filter(crit),
		EmptyMessage: "Try adjusting your filters to see more results.",
	}
	h.render(w, r, http.StatusOK, pageHomes, v)
}

func (h *Handler) market(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	if !pathutil.ValidSlug(slug) {
		h.notFound(w, r)
		return
	}
	r = withPage(r, pageMarket)
	ctx := r.Context()
	mode := preview.FromContext(ctx).Mode()
	d := h.opts.Defaults

	var (
		mp  *cms.MarketPage
		nav *cms.Navigation
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { mp = h.opts.CMS.MarketPage(gctx, slug, mode); return nil })
	g.Go(func() error { nav = h.opts.CMS.Navigation(gctx, mode); return nil })
	_ = g.Wait()

	city := d.CityName(slug)
	var crit listings.Criteria
	var (
		hero  *modules.Hero
		intro []section
	)
	if mp != nil {
		if mp.Fields.MarketName != "" {
			city = mp.Fields.MarketName
		}
		hero = h.marketHero(r, mp)
		if html, err := richtext.RenderJSON(mp.Fields.IntroRichText); err != nil {
			h.logger(ctx).Error(ctx, err, "market intro not rendered", "slug", slug)
		} else if html != "" {
			intro = append(intro, section{ID: mp.Sys.ID + "-intro", RichText: html})
		}
		crit = searchCriteria(city, mp.Fields.DefaultSearchConfig)
	}
	if hero == nil {
		h.fallbackUsed(ctx, "hero")
	}

	fb := d.MarketHero(slug)
	if mp != nil && mp.Fields.MarketName != "" {
		fb.Headline = "Homes in " + city
	}

	v := &pageView{Layout: h.layout(r, nav)}
	v.Layout.Title = titled("Homes in "+city, d.Brand.Name)
	if m, ok := d.Market(slug); ok {
		v.Layout.Description = m.Description
	}
	v.Sections = append([]section{h.heroSection("", fallback.Hero(hero, fb))}, intro...)

	cat := h.opts.Listings.Catalog()
	var ls []listings.Listing
	if searchConfigured(mp) {
		ls = cat.Filter(crit)
	} else {
		ls = cat.ByCity(city)
	}
	v.Grid = gridView{
		Title:        "Available in " + city,
		Subtitle:     fmt.Sprintf("%d homes currently available for rent", len(ls)),
		EmptyMessage: fmt.Sprintf("No listings currently available in %s. Check back soon!", city),
		Listings:     ls,
	}
	h.render(w, r, http.StatusOK, pageMarket, v)
}

func (h *Handler) listing(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	l, ok := h.opts.Listings.Catalog().ByID(id)
	if !pathutil.ValidSlug(id) || !ok {
		h.notFound(w, r)
		return
	}
	r = withPage(r, pageListing)
	nav := h.opts.CMS.Navigation(r.Context(), preview.FromContext(r.Context()).Mode())
	v := &pageView{Layout: h.layout(r, nav), Listing: &l}
	v.Layout.Title = titled(l.Title, h.opts.Defaults.Brand.Name)
	v.Layout.Description = l.Description
	v.Layout.OGImage = l.CoverImage()
	h.render(w, r, http.StatusOK, pageListing, v)
}

// marketHero decodes the market page hero link. Anything but a hero entry
// is dropped like an unknown page module.
func (h *Handler) marketHero(r *http.Request, mp *cms.MarketPage) *modules.Hero {
	if mp.Fields.HeroModule == nil {
		return nil
	}
	for _, m := range modules.Resolve(r.Context(), []cms.Entry{*mp.Fields.HeroModule}, h.opts.Metrics) {
		if hero, ok := m.(*modules.Hero); ok {
			return hero
		}
	}
	return nil
}

func searchConfigured(mp *cms.MarketPage) bool {
	return mp != nil && mp.Fields.DefaultSearchConfig != nil
}

// searchCriteria seeds the market listing filter from the page's search
// config. The config city wins over the market name when set.
func searchCriteria(city string, sc *cms.SearchConfig) listings.Criteria {
	c := listings.Criteria{City: &city}
	if sc == nil {
		return c
	}
	if sc.City != "" {
		c.City = &sc.City
	}
	if sc.MinPrice > 0 {
		c.MinPrice = &sc.MinPrice
	}
	if sc.MaxPrice > 0 {
		c.MaxPrice = &sc.MaxPrice
	}
	if sc.MinBeds > 0 {
		c.MinBeds = &sc.MinBeds
	}
	return c
}

// sections turns resolved modules into renderable sections. Each module is
// merged with its own defaults.
func (h *Handler) sections(r *http.Request, ms []modules.Module) []section {
	d := h.opts.Defaults
	out := make([]section, 0, len(ms))
	for _, m := range ms {
		switch m := m.(type) {
		case *modules.Hero:
			out = append(out, h.heroSection(m.ID, fallback.Hero(m, d.Hero)))
		case *modules.PromoStrip:
			out = append(out, section{ID: m.ID, Promo: fallback.PromoItems(m, d.PromoItems)})
		case *modules.CardGrid:
			g := fallback.CardGrid(m, d.CardGrid, d.PlaceholderImage)
			out = append(out, section{ID: m.ID, Grid: &g})
		case *modules.RichText:
			html, err := richtext.RenderJSON(m.Fields.Body)
			if err != nil {
				h.logger(r.Context()).Error(r.Context(), err, "rich text module not rendered", "entry_id", m.ID)
				continue
			}
			if html != "" {
				out = append(out, section{ID: m.ID, RichText: html})
			}
		}
	}
	return out
}

func (h *Handler) defaultSections() []section {
	d := h.opts.Defaults
	g := fallback.CardGrid(nil, d.CardGrid, d.PlaceholderImage)
	return []section{
		h.heroSection("", fallback.Hero(nil, d.Hero)),
		{Promo: fallback.PromoItems(nil, d.PromoItems)},
		{Grid: &g},
	}
}

func (h *Handler) heroSection(id string, c fallback.HeroContent) section {
	d := h.opts.Defaults
	return section{ID: id, Hero: &heroView{Hero: c, QuickLinks: d.QuickLinks, Stats: d.Stats}}
}

func (h *Handler) applySEO(lv *layoutView, p *cms.PageFields) {
	brand := h.opts.Defaults.Brand.Name
	switch {
	case p.SEOTitle != "":
		lv.Title = titled(p.SEOTitle, brand)
	case p.Title != "":
		lv.Title = titled(p.Title, brand)
	}
	if p.SEODescription != "" {
		lv.Description = p.SEODescription
	}
	if u := p.OGImage.URL(); u != "" {
		lv.OGImage = u
	}
	if u := p.Favicon.URL(); u != "" {
		lv.Favicon = u
	}
}
