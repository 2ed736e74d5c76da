package fallback

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/keithlinneman/rentwise-web/internal/cms"
	"github.com/keithlinneman/rentwise-web/internal/modules"
)

func mustLoad(t *testing.T) *Defaults {
	t.Helper()
	d, err := Load()
	if err != nil {
		t.Fatalf("embedded defaults: %v", err)
	}
	return d
}

func asset(url, title string) *cms.Asset {
	a := &cms.Asset{}
	a.Fields.Title = title
	a.Fields.File = &cms.AssetFile{URL: url}
	return a
}

func TestChoose(t *testing.T) {
	type obj struct {
		A string
		B []int
	}
	def := obj{A: "def"}
	if got := Choose[obj](nil, def); got.A != "def" {
		t.Fatalf("nil remote: %+v", got)
	}
	if got := Choose(&obj{}, def); got.A != "def" {
		t.Fatalf("zero remote: %+v", got)
	}
	// partially filled remote wins as a whole
	if got := Choose(&obj{B: []int{1}}, def); got.A != "" || len(got.B) != 1 {
		t.Fatalf("partial remote: %+v", got)
	}
	empty := []string{}
	if got := Choose(&empty, []string{"x"}); len(got) != 0 {
		t.Fatalf("present empty list should win: %v", got)
	}
}

func TestLoad_EmbeddedContent(t *testing.T) {
	d := mustLoad(t)
	if d.Brand.Name != "NestFinder" || d.Hero.Headline != "Find Your Perfect Home" || d.Hero.CTALabel != "Start Searching" {
		t.Fatalf("unexpected defaults: %+v %+v", d.Brand, d.Hero)
	}
	var titles []string
	for _, p := range d.PromoItems {
		titles = append(titles, p.Title)
	}
	if diff := cmp.Diff([]string{"Verified Listings", "Secure Payments", "24/7 Support", "Love Guarantee"}, titles); diff != "" {
		t.Fatal(diff)
	}
	if len(d.FooterLinks) != 6 || len(d.HeaderLinks) != 4 || len(d.MarketLinks) != 5 || len(d.CardGrid.Cards) != 4 {
		t.Fatalf("link counts: footer=%d header=%d market=%d cards=%d", len(d.FooterLinks), len(d.HeaderLinks), len(d.MarketLinks), len(d.CardGrid.Cards))
	}
	if !strings.Contains(d.PromoItems[3].Description, "We'll help") {
		t.Fatalf("apostrophe lost: %q", d.PromoItems[3].Description)
	}
}

func TestParse_Rejects(t *testing.T) {
	cases := map[string]string{
		"unknown key":   "brand: {name: x}\nnonsense: 1\n",
		"missing parts": "brand: {name: x}\n",
		"bad link":      strings.Replace(string(defaultsYAML), "{label: Browse Homes, href: /homes}", "{label: Browse Homes, href: homes}", 1),
		"dup market":    strings.Replace(string(defaultsYAML), "slug: denver", "slug: austin", 1),
	}
	for name, doc := range cases {
		if _, err := Parse([]byte(doc)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestMarketHero(t *testing.T) {
	d := mustLoad(t)

	h := d.MarketHero("denver")
	want := HeroContent{
		Headline:        "Homes in Denver",
		Subheadline:     "Mountain views, outdoor adventures, and craft beer paradise.",
		BackgroundImage: "https://images.unsplash.com/photo-1619856699906-09e1f58c98b1?w=1920&q=80",
		BackgroundAlt:   "Denver",
		CTALabel:        "View All Homes",
		CTALink:         "/homes",
	}
	if diff := cmp.Diff(want, h); diff != "" {
		t.Fatalf("known market (-want +got):\n%s", diff)
	}

	h = d.MarketHero("portland")
	if h.Headline != "Homes in Portland" || h.Subheadline != "Discover amazing rental properties in Portland." {
		t.Fatalf("unknown market: %+v", h)
	}
	if h.BackgroundImage != d.Hero.BackgroundImage {
		t.Fatalf("unknown market image = %q", h.BackgroundImage)
	}
}

func TestHero(t *testing.T) {
	d := mustLoad(t)

	if got := Hero(nil, d.Hero); got != d.Hero {
		t.Fatalf("nil hero: %+v", got)
	}

	// remote without image or CTA: image backfilled, CTA defaulted, no
	// other field merged
	got := Hero(&modules.Hero{ID: "h", Fields: modules.HeroFields{Headline: "CMS headline"}}, d.Hero)
	want := HeroContent{
		Headline:        "CMS headline",
		BackgroundImage: d.Hero.BackgroundImage,
		CTALabel:        "Search",
		CTALink:         "/homes",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}

	got = Hero(&modules.Hero{Fields: modules.HeroFields{
		Headline:        "x",
		BackgroundImage: asset("//images.ctfassets.net/a.jpg", "porch"),
		CTALabel:        "Go",
		CTALink:         "/market/austin",
	}}, d.Hero)
	if got.BackgroundImage != "https://images.ctfassets.net/a.jpg" || got.BackgroundAlt != "porch" || got.CTALabel != "Go" {
		t.Fatalf("remote hero: %+v", got)
	}
}

func TestPromoItems(t *testing.T) {
	d := mustLoad(t)
	if got := PromoItems(nil, d.PromoItems); len(got) != 4 {
		t.Fatalf("nil strip: %d items", len(got))
	}
	if got := PromoItems(&modules.PromoStrip{}, d.PromoItems); len(got) != 4 {
		t.Fatalf("strip without items: %d items", len(got))
	}
	remote := &modules.PromoStrip{Fields: modules.PromoStripFields{Items: []modules.PromoItem{{Title: "Only"}}}}
	if got := PromoItems(remote, d.PromoItems); len(got) != 1 || got[0].Title != "Only" {
		t.Fatalf("remote strip: %+v", got)
	}
}

func TestCardGrid(t *testing.T) {
	d := mustLoad(t)
	fb := CardGrid(nil, d.CardGrid, d.PlaceholderImage)
	if fb.Headline != "Find Homes in Top Cities" || fb.Cards[0].ImageAlt != "Austin, TX" {
		t.Fatalf("fallback grid: %+v", fb)
	}

	g := &modules.CardGrid{Fields: modules.CardGridFields{
		Headline: "Remote",
		Cards: []modules.CardItem{
			{Title: "No image", Href: "/homes"},
			{Title: "With image", Image: asset("https://cdn/x.png", "")},
		},
	}}
	got := CardGrid(g, d.CardGrid, d.PlaceholderImage)
	want := CardGridContent{
		Headline: "Remote",
		Cards: []Card{
			{Title: "No image", Image: d.PlaceholderImage, ImageAlt: "No image", Href: "/homes"},
			{Title: "With image", Image: "https://cdn/x.png", ImageAlt: "With image"},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
	if d.CardGrid.Cards[0].ImageAlt != "" {
		t.Fatal("defaults were mutated")
	}
}

func TestNavigation(t *testing.T) {
	d := mustLoad(t)
	remote := &cms.Navigation{Fields: cms.NavigationFields{HeaderLinks: []cms.NavLink{{Label: "CMS", Href: "/cms"}}}}

	cases := []struct {
		name       string
		configured bool
		nav        *cms.Navigation
		header     []cms.NavLink
		footer     []cms.NavLink
	}{
		{"unconfigured ignores entry", false, remote, d.HeaderLinks, d.FooterLinks},
		{"configured without entry", true, nil, d.HeaderLinks, d.FooterLinks},
		{"configured with header only", true, remote, remote.Fields.HeaderLinks, d.FooterLinks},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := d.Navigation(tc.configured, tc.nav)
			if diff := cmp.Diff(Nav{Header: tc.header, Footer: tc.footer}, got, cmpopts.EquateEmpty()); diff != "" {
				t.Fatalf("(-want +got):\n%s", diff)
			}
		})
	}
}
