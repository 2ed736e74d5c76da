package fallback

import (
	"github.com/keithlinneman/rentwise-web/internal/cms"
	"github.com/keithlinneman/rentwise-web/internal/modules"
)

const (
	defaultCTALabel = "Search"
	defaultCTALink  = "/homes"
)

// Hero picks the CMS hero or fb as a whole. The background image is the
// one field backfilled from fb, and an empty CTA gets Search -> /homes.
func Hero(h *modules.Hero, fb HeroContent) HeroContent {
	var remote *HeroContent
	if h != nil {
		remote = &HeroContent{
			Headline:        h.Fields.Headline,
			Subheadline:     h.Fields.Subheadline,
			BackgroundImage: h.Fields.BackgroundImage.URL(),
			BackgroundAlt:   h.Fields.BackgroundImage.Alt(),
			CTALabel:        h.Fields.CTALabel,
			CTALink:         h.Fields.CTALink,
		}
	}
	out := Choose(remote, fb)
	if out.BackgroundImage == "" {
		out.BackgroundImage, out.BackgroundAlt = fb.BackgroundImage, fb.BackgroundAlt
	}
	if out.CTALabel == "" {
		out.CTALabel = defaultCTALabel
	}
	if out.CTALink == "" {
		out.CTALink = defaultCTALink
	}
	return out
}

// PromoItems picks the CMS item list or fb as a whole.
func PromoItems(p *modules.PromoStrip, fb []modules.PromoItem) []modules.PromoItem {
	var remote *[]modules.PromoItem
	if p != nil {
		remote = &p.Fields.Items
	}
	return Choose(remote, fb)
}

// CardGrid picks the CMS grid or fb as a whole. Cards without an image get
// placeholder.
func CardGrid(g *modules.CardGrid, fb CardGridContent, placeholder string) CardGridContent {
	var remote *CardGridContent
	if g != nil {
		c := CardGridContent{Eyebrow: g.Fields.Eyebrow, Headline: g.Fields.Headline}
		for _, it := range g.Fields.Cards {
			c.Cards = append(c.Cards, Card{
				Title:       it.Title,
				Description: it.Description,
				Image:       it.Image.URL(),
				ImageAlt:    it.Image.Alt(),
				Href:        it.Href,
			})
		}
		remote = &c
	}
	out := Choose(remote, fb)
	cards := make([]Card, len(out.Cards))
	for i, c := range out.Cards {
		if c.Image == "" {
			c.Image = placeholder
		}
		if c.ImageAlt == "" {
			c.ImageAlt = c.Title
		}
		cards[i] = c
	}
	out.Cards = cards
	return out
}

// Links picks remote links only when the store is configured and the list
// is present, else fb.
func Links(configured bool, remote []cms.NavLink, fb []cms.NavLink) []cms.NavLink {
	if !configured {
		return fb
	}
	var r *[]cms.NavLink
	if remote != nil {
		r = &remote
	}
	return Choose(r, fb)
}

// Nav is the header and footer navigation for one request.
type Nav struct {
	Header []cms.NavLink
	Footer []cms.NavLink
}

// Navigation resolves header and footer links from the navigation entry.
func (d *Defaults) Navigation(configured bool, n *cms.Navigation) Nav {
	var header, footer []cms.NavLink
	if n != nil {
		header, footer = n.Fields.HeaderLinks, n.Fields.FooterLinks
	}
	return Nav{
		Header: Links(configured, header, d.HeaderLinks),
		Footer: Links(configured, footer, d.FooterLinks),
	}
}
