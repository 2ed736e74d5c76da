package sitehandler

import (
	"fmt"
	"html/template"
	"io/fs"
	"net/url"
	"strconv"

	"github.com/keithlinneman/rentwise-web/internal/cms"
	"github.com/keithlinneman/rentwise-web/internal/fallback"
	"github.com/keithlinneman/rentwise-web/internal/listings"
	"github.com/keithlinneman/rentwise-web/internal/modules"
	"github.com/keithlinneman/rentwise-web/internal/preview"
)

// Page template names. Each is parsed on top of layout.html and partials.html.
const (
	pageHome     = "home"
	pageHomes    = "homes"
	pageMarket   = "market"
	pageListing  = "listing"
	pageNotFound = "404"
)

var pageNames = []string{pageHome, pageHomes, pageMarket, pageListing, pageNotFound}

// footerPrimaryLinks is how many footer links go in the Quick Links column.
const footerPrimaryLinks = 4

type layoutView struct {
	Title       string
	Description string
	OGImage     string
	Favicon     string
	CurrentPath string
	Year        int

	Brand           fallback.Brand
	Nav             fallback.Nav
	FooterPrimary   []cms.NavLink
	FooterSecondary []cms.NavLink
	MarketLinks     []cms.NavLink
	SocialLinks     []cms.NavLink

	Preview    preview.State
	ToggleHref string
}

type heroView struct {
	Hero       fallback.HeroContent
	QuickLinks []cms.NavLink
	Stats      []fallback.Stat
}

// section is one rendered page module; exactly one field is set.
type section struct {
	ID       string
	Hero     *heroView
	Promo    []modules.PromoItem
	Grid     *fallback.CardGridContent
	RichText template.HTML
}

type gridView struct {
	Title        string
	Subtitle     string
	EmptyMessage string
	Listings     []listings.Listing
}

type pageView struct {
	Layout   layoutView
	Sections []section
	Grid     gridView

	// browse page
	Cities      []string
	BedOptions  []int
	BathOptions []int
	Form        url.Values
	HasFilters  bool
	ClearHref   string
	FilterError string

	// listing page
	Listing *listings.Listing
}

var funcs = template.FuncMap{
	"usd":       usd,
	"thousands": thousands,
	"mod":       func(a, b int) int { return a % b },
}

// usd formats whole dollars as $1,234.
func usd(n int) string { return "$" + thousands(n) }

func thousands(n int) string {
	neg := n < 0
	if neg {
		n = -n
	}
	s := strconv.Itoa(n)
	out := make([]byte, 0, len(s)+len(s)/3)
	for i := range len(s) {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, s[i])
	}
	if neg {
		return "-" + string(out)
	}
	return string(out)
}

func parseTemplates(fsys fs.FS) (map[string]*template.Template, error) {
	base, err := template.New("").Funcs(funcs).ParseFS(fsys, "layout.html", "partials.html")
	if err != nil {
		return nil, fmt.Errorf("%w: parse layout: %v", ErrInvalidOptions, err)
	}
	out := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		t, err := base.Clone()
		if err != nil {
			return nil, err
		}
		if _, err := t.ParseFS(fsys, name+".html"); err != nil {
			return nil, fmt.Errorf("%w: parse %s: %v", ErrInvalidOptions, name, err)
		}
		out[name] = t
	}
	return out, nil
}
