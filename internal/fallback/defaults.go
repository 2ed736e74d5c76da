package fallback

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/keithlinneman/rentwise-web/internal/cms"
	"github.com/keithlinneman/rentwise-web/internal/modules"
	"github.com/keithlinneman/rentwise-web/internal/xerrors"
)

//go:embed defaults.yaml
var defaultsYAML []byte

type Brand struct {
	Name      string   `yaml:"name"`
	Tagline   string   `yaml:"tagline"`
	Email     string   `yaml:"email"`
	Phone     string   `yaml:"phone"`
	PhoneHref string   `yaml:"phoneHref"`
	Address   []string `yaml:"address"`
}

// HeroContent is a hero ready to render.
type HeroContent struct {
	Headline        string `yaml:"headline"`
	Subheadline     string `yaml:"subheadline"`
	BackgroundImage string `yaml:"backgroundImage"`
	BackgroundAlt   string `yaml:"backgroundAlt"`
	CTALabel        string `yaml:"ctaLabel"`
	CTALink         string `yaml:"ctaLink"`
}

type Stat struct {
	Value string `yaml:"value"`
	Label string `yaml:"label"`
}

type Card struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Image       string `yaml:"image"`
	ImageAlt    string `yaml:"imageAlt"`
	Href        string `yaml:"href"`
}

type CardGridContent struct {
	Eyebrow  string `yaml:"eyebrow"`
	Headline string `yaml:"headline"`
	Cards    []Card `yaml:"cards"`
}

// Market is a market landing page known without the CMS.
type Market struct {
	Slug        string `yaml:"slug"`
	Name        string `yaml:"name"`
	State       string `yaml:"state"`
	Image       string `yaml:"image"`
	Description string `yaml:"description"`
}

type Defaults struct {
	Brand            Brand               `yaml:"brand"`
	Hero             HeroContent         `yaml:"hero"`
	QuickLinks       []cms.NavLink       `yaml:"quickLinks"`
	Stats            []Stat              `yaml:"stats"`
	PromoItems       []modules.PromoItem `yaml:"promoItems"`
	CardGrid         CardGridContent     `yaml:"cardGrid"`
	PlaceholderImage string              `yaml:"placeholderImage"`
	HeaderLinks      []cms.NavLink       `yaml:"headerLinks"`
	FooterLinks      []cms.NavLink       `yaml:"footerLinks"`
	MarketLinks      []cms.NavLink       `yaml:"marketLinks"`
	SocialLinks      []cms.NavLink       `yaml:"socialLinks"`
	Markets          []Market            `yaml:"markets"`

	bySlug map[string]Market
}

// Load parses and validates the embedded defaults.
func Load() (*Defaults, error) { return Parse(defaultsYAML) }

// Parse decodes a defaults document. Unknown keys are rejected.
func Parse(raw []byte) (*Defaults, error) {
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	var d Defaults
	if err := dec.Decode(&d); err != nil {
		return nil, xerrors.Wrap(err, "decode fallback defaults")
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	d.bySlug = make(map[string]Market, len(d.Markets))
	for _, m := range d.Markets {
		d.bySlug[m.Slug] = m
	}
	return &d, nil
}

// Validate checks that every section the pages render has content.
func (d *Defaults) Validate() error {
	var errs []error
	req := func(v, what string) {
		if strings.TrimSpace(v) == "" {
			errs = append(errs, fmt.Errorf("%s is required", what))
		}
	}
	links := func(ls []cms.NavLink, what string, internal bool) {
		if len(ls) == 0 {
			errs = append(errs, fmt.Errorf("%s: at least one link is required", what))
		}
		for i, l := range ls {
			req(l.Label, fmt.Sprintf("%s[%d].label", what, i))
			if internal && !strings.HasPrefix(l.Href, "/") {
				errs = append(errs, fmt.Errorf("%s[%d].href %q must be a site path", what, i, l.Href))
			}
			if !internal {
				req(l.Href, fmt.Sprintf("%s[%d].href", what, i))
			}
		}
	}

	req(d.Brand.Name, "brand.name")
	req(d.Hero.Headline, "hero.headline")
	req(d.Hero.BackgroundImage, "hero.backgroundImage")
	req(d.Hero.CTALabel, "hero.ctaLabel")
	req(d.Hero.CTALink, "hero.ctaLink")
	req(d.PlaceholderImage, "placeholderImage")

	if len(d.PromoItems) == 0 {
		errs = append(errs, errors.New("promoItems: at least one item is required"))
	}
	for i, p := range d.PromoItems {
		req(p.Title, fmt.Sprintf("promoItems[%d].title", i))
	}

	req(d.CardGrid.Headline, "cardGrid.headline")
	if len(d.CardGrid.Cards) == 0 {
		errs = append(errs, errors.New("cardGrid.cards: at least one card is required"))
	}
	for i, c := range d.CardGrid.Cards {
		req(c.Title, fmt.Sprintf("cardGrid.cards[%d].title", i))
	}

	links(d.QuickLinks, "quickLinks", true)
	links(d.HeaderLinks, "headerLinks", true)
	links(d.FooterLinks, "footerLinks", true)
	links(d.MarketLinks, "marketLinks", true)

	seen := make(map[string]bool, len(d.Markets))
	for i, m := range d.Markets {
		req(m.Slug, fmt.Sprintf("markets[%d].slug", i))
		req(m.Name, fmt.Sprintf("markets[%d].name", i))
		req(m.Image, fmt.Sprintf("markets[%d].image", i))
		if seen[m.Slug] {
			errs = append(errs, fmt.Errorf("markets[%d]: duplicate slug %q", i, m.Slug))
		}
		seen[m.Slug] = true
	}

	if err := errors.Join(errs...); err != nil {
		return xerrors.Wrap(err, "invalid fallback defaults")
	}
	return nil
}

// Market looks up a known market by slug.
func (d *Defaults) Market(slug string) (Market, bool) {
	m, ok := d.bySlug[slug]
	return m, ok
}

// CityName is the market name for slug, or the slug with its first letter
// upper-cased for markets the defaults do not know.
func (d *Defaults) CityName(slug string) string {
	if m, ok := d.Market(slug); ok {
		return m.Name
	}
	if slug == "" {
		return ""
	}
	return strings.ToUpper(slug[:1]) + slug[1:]
}

// MarketHero is the hero for a market page without CMS content.
func (d *Defaults) MarketHero(slug string) HeroContent {
	city := d.CityName(slug)
	h := HeroContent{
		Headline:    "Homes in " + city,
		Subheadline: "Discover amazing rental properties in " + city + ".",
		CTALabel:    "View All Homes",
		CTALink:     "/homes",
	}
	m, ok := d.Market(slug)
	if !ok {
		h.BackgroundImage = d.Hero.BackgroundImage
		return h
	}
	h.BackgroundImage = m.Image
	h.BackgroundAlt = m.Name
	if m.Description != "" {
		h.Subheadline = m.Description
	}
	return h
}
