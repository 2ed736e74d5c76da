package modules

import (
	"encoding/json"
	"errors"

	"github.com/keithlinneman/rentwise-web/internal/cms"
	"github.com/keithlinneman/rentwise-web/internal/xerrors"
)

// Content type ids of the module variants.
const (
	TypeHero       = "heroModule"
	TypePromoStrip = "promoStripModule"
	TypeCardGrid   = "cardGridModule"
	TypeRichText   = "richTextModule"
)

// ErrUnknownType is returned by Decode for entries whose content type is not
// a module variant.
var ErrUnknownType = errors.New("modules: unknown module type")

// Module is one of *Hero, *PromoStrip, *CardGrid or *RichText.
type Module interface {
	// EntryID is the CMS entry id, stable across renders.
	EntryID() string
	ContentType() string
	isModule()
}

type HeroFields struct {
	Headline        string     `json:"headline"`
	Subheadline     string     `json:"subheadline,omitempty"`
	BackgroundImage *cms.Asset `json:"backgroundImage,omitempty"`
	CTALabel        string     `json:"ctaLabel,omitempty"`
	CTALink         string     `json:"ctaLink,omitempty"`
}

type Hero struct {
	ID     string
	Fields HeroFields
}

type PromoItem struct {
	Title       string `json:"title" yaml:"title"`
	Description string `json:"description" yaml:"description"`
	LinkLabel   string `json:"linkLabel,omitempty" yaml:"linkLabel,omitempty"`
	LinkURL     string `json:"linkUrl,omitempty" yaml:"linkUrl,omitempty"`
}

type PromoStripFields struct {
	InternalName string      `json:"internalName"`
	Items        []PromoItem `json:"items"`
}

type PromoStrip struct {
	ID     string
	Fields PromoStripFields
}

type CardItem struct {
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Image       *cms.Asset `json:"image,omitempty"`
	Href        string     `json:"href,omitempty"`
}

type CardGridFields struct {
	Eyebrow  string     `json:"eyebrow,omitempty"`
	Headline string     `json:"headline"`
	Cards    []CardItem `json:"cards"`
}

type CardGrid struct {
	ID     string
	Fields CardGridFields
}

type RichTextFields struct {
	InternalName string `json:"internalName"`
	// Body is a rich-text document, rendered by package richtext.
	Body json.RawMessage `json:"body"`
}

type RichText struct {
	ID     string
	Fields RichTextFields
}

func (m *Hero) EntryID() string       { return m.ID }
func (m *PromoStrip) EntryID() string { return m.ID }
func (m *CardGrid) EntryID() string   { return m.ID }
func (m *RichText) EntryID() string   { return m.ID }

func (*Hero) ContentType() string       { return TypeHero }
func (*PromoStrip) ContentType() string { return TypePromoStrip }
func (*CardGrid) ContentType() string   { return TypeCardGrid }
func (*RichText) ContentType() string   { return TypeRichText }

func (*Hero) isModule()       {}
func (*PromoStrip) isModule() {}
func (*CardGrid) isModule()   {}
func (*RichText) isModule()   {}

// Decode maps an entry to its module variant by content type.
func Decode(e cms.Entry) (Module, error) {
	var (
		m   Module
		err error
	)
	switch ct := e.ContentType(); ct {
	case TypeHero:
		h := &Hero{ID: e.Sys.ID}
		m, err = h, e.DecodeFields(&h.Fields)
	case TypePromoStrip:
		p := &PromoStrip{ID: e.Sys.ID}
		m, err = p, e.DecodeFields(&p.Fields)
	case TypeCardGrid:
		g := &CardGrid{ID: e.Sys.ID}
		m, err = g, e.DecodeFields(&g.Fields)
	case TypeRichText:
		r := &RichText{ID: e.Sys.ID}
		m, err = r, e.DecodeFields(&r.Fields)
	default:
		return nil, xerrors.Wrapf(ErrUnknownType, "content type %q", ct)
	}
	if err != nil {
		return nil, xerrors.Wrapf(err, "decode %s entry %s", e.ContentType(), e.Sys.ID)
	}
	return m, nil
}
