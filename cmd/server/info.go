package main

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/keithlinneman/rentwise-web/internal/cms"
	"github.com/keithlinneman/rentwise-web/internal/listings"
	"github.com/keithlinneman/rentwise-web/internal/version"
)

type listingsInfo struct {
	Source   listings.Source `json:"source"`
	Version  string          `json:"version,omitempty"`
	SHA256   string          `json:"sha256,omitempty"`
	Count    int             `json:"count"`
	Signed   bool            `json:"signed"`
	LoadedAt time.Time       `json:"loaded_at,omitzero"`
}

type infoResponse struct {
	Build            version.Info `json:"build"`
	CMSConfigured    bool         `json:"cms_configured"`
	PreviewAvailable bool         `json:"preview_available"`
	Listings         listingsInfo `json:"listings"`
	ServerTime       time.Time    `json:"server_time"`
}

// infoHandler reports build identity, CMS mode and the active listing feed
// on the ops listener.
func infoHandler(vi version.Info, store *listings.Store, c *cms.Client) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := infoResponse{
			Build:            vi,
			CMSConfigured:    c.Configured(),
			PreviewAvailable: c.PreviewAvailable(),
			ServerTime:       time.Now().UTC().Truncate(time.Second),
		}
		if snap, ok := store.Get(); ok {
			resp.Listings = listingsInfo{
				Source:   snap.Meta.Source,
				Version:  snap.Meta.Version,
				SHA256:   snap.Meta.SHA256,
				Count:    snap.Catalog.Len(),
				Signed:   snap.Meta.Signed,
				LoadedAt: snap.LoadedAt.UTC().Truncate(time.Second),
			}
		}
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		_ = json.NewEncoder(w).Encode(resp)
	})
}
