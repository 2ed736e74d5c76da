package cms

import (
	"encoding/json"
	"strings"
)

// Mode selects published (Delivery API) or draft (Preview API) content.
type Mode int

const (
	ModePublished Mode = iota
	ModePreview
)

func (m Mode) String() string {
	if m == ModePreview {
		return "preview"
	}
	return "published"
}

// Content type ids used by the site.
const (
	TypePage       = "page"
	TypeMarketPage = "marketPage"
	TypeNavigation = "navigation"
)

// IncludeDepth is how many levels of linked entries the store inlines.
const IncludeDepth = 10

type sysRef struct {
	Sys struct {
		ID       string `json:"id"`
		Type     string `json:"type,omitempty"`
		LinkType string `json:"linkType,omitempty"`
	} `json:"sys"`
}

// Sys is the metadata block every entry and asset carries.
type Sys struct {
	ID          string  `json:"id"`
	Type        string  `json:"type,omitempty"`
	LinkType    string  `json:"linkType,omitempty"`
	ContentType *sysRef `json:"contentType,omitempty"`
	CreatedAt   string  `json:"createdAt,omitempty"`
	UpdatedAt   string  `json:"updatedAt,omitempty"`
}

// ContentTypeID is the entry discriminator, or "" for assets and links.
func (s Sys) ContentTypeID() string {
	if s.ContentType == nil {
		return ""
	}
	return s.ContentType.Sys.ID
}

// Entry is an untyped entry. Fields stays raw until a consumer knows the
// shape from the discriminator.
type Entry struct {
	Sys    Sys             `json:"sys"`
	Fields json.RawMessage `json:"fields"`
}

// ContentType is shorthand for e.Sys.ContentTypeID().
func (e Entry) ContentType() string { return e.Sys.ContentTypeID() }

// DecodeFields unmarshals the raw fields into v.
func (e Entry) DecodeFields(v any) error {
	if len(e.Fields) == 0 {
		return json.Unmarshal([]byte("{}"), v)
	}
	return json.Unmarshal(e.Fields, v)
}

// TypedEntry is an entry whose fields shape is known.
type TypedEntry[T any] struct {
	Sys    Sys `json:"sys"`
	Fields T   `json:"fields"`
}

type ImageDetails struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

type FileDetails struct {
	Size  int64         `json:"size"`
	Image *ImageDetails `json:"image,omitempty"`
}

type AssetFile struct {
	URL         string      `json:"url"`
	FileName    string      `json:"fileName,omitempty"`
	ContentType string      `json:"contentType,omitempty"`
	Details     FileDetails `json:"details"`
}

type Asset struct {
	Sys    Sys `json:"sys"`
	Fields struct {
		Title       string     `json:"title,omitempty"`
		Description string     `json:"description,omitempty"`
		File        *AssetFile `json:"file,omitempty"`
	} `json:"fields"`
}

// URL returns the asset file URL with protocol-relative "//host" URLs
// promoted to https. nil and file-less assets return "".
func (a *Asset) URL() string {
	if a == nil || a.Fields.File == nil || a.Fields.File.URL == "" {
		return ""
	}
	u := a.Fields.File.URL
	if strings.HasPrefix(u, "//") {
		return "https:" + u
	}
	return u
}

// Alt is the best available alternative text.
func (a *Asset) Alt() string {
	if a == nil {
		return ""
	}
	if a.Fields.Description != "" {
		return a.Fields.Description
	}
	return a.Fields.Title
}

type PageFields struct {
	Title          string  `json:"title"`
	Slug           string  `json:"slug"`
	SEOTitle       string  `json:"seoTitle,omitempty"`
	SEODescription string  `json:"seoDescription,omitempty"`
	Favicon        *Asset  `json:"favicon,omitempty"`
	OGImage        *Asset  `json:"ogImage,omitempty"`
	Modules        []Entry `json:"modules,omitempty"`
}

// SearchConfig seeds the listing filter on a market page.
type SearchConfig struct {
	City     string `json:"city,omitempty"`
	MinPrice int    `json:"minPrice,omitempty"`
	MaxPrice int    `json:"maxPrice,omitempty"`
	MinBeds  int    `json:"minBeds,omitempty"`
}

type MarketPageFields struct {
	MarketName          string          `json:"marketName"`
	Slug                string          `json:"slug"`
	HeroModule          *Entry          `json:"heroModule,omitempty"`
	IntroRichText       json.RawMessage `json:"introRichText,omitempty"`
	DefaultSearchConfig *SearchConfig   `json:"defaultSearchConfig,omitempty"`
}

type NavLink struct {
	Label string `json:"label" yaml:"label"`
	Href  string `json:"href" yaml:"href"`
}

type NavigationFields struct {
	InternalName string    `json:"internalName"`
	HeaderLinks  []NavLink `json:"headerLinks,omitempty"`
	FooterLinks  []NavLink `json:"footerLinks,omitempty"`
}

type (
	Page       = TypedEntry[PageFields]
	MarketPage = TypedEntry[MarketPageFields]
	Navigation = TypedEntry[NavigationFields]
)

// entriesResponse is the collection envelope of GET /entries.
type entriesResponse struct {
	Items    []json.RawMessage `json:"items"`
	Total    int               `json:"total"`
	Skip     int               `json:"skip"`
	Limit    int               `json:"limit"`
	Includes struct {
		Entry []json.RawMessage `json:"Entry,omitempty"`
		Asset []json.RawMessage `json:"Asset,omitempty"`
	} `json:"includes"`
}
