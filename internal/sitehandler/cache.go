package sitehandler

import (
	"path"
	"strings"
)

type cacheClass int

const (
	cacheOther cacheClass = iota
	cacheHTML
	cacheAsset
)

// embedded static files carry no content hash in their names, so assets get
// a bounded max-age instead of immutable
var extCacheClass = map[string]cacheClass{
	".html":  cacheHTML,
	".css":   cacheAsset,
	".js":    cacheAsset,
	".svg":   cacheAsset,
	".png":   cacheAsset,
	".jpg":   cacheAsset,
	".jpeg":  cacheAsset,
	".webp":  cacheAsset,
	".ico":   cacheAsset,
	".woff2": cacheAsset,
}

func (o *Options) cacheControl(name string) string {
	switch extCacheClass[strings.ToLower(path.Ext(name))] {
	case cacheHTML:
		return o.HTMLCacheControl
	case cacheAsset:
		return o.AssetCacheControl
	}
	return o.OtherCacheControl
}
