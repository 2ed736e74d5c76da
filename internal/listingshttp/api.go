package listingshttp

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/keithlinneman/rentwise-web/internal/fallback"
	"github.com/keithlinneman/rentwise-web/internal/listings"
	"github.com/keithlinneman/rentwise-web/internal/log"
	"github.com/keithlinneman/rentwise-web/internal/pathutil"
)

// CatalogSource is satisfied by *listings.Store.
type CatalogSource interface {
	Get() (*listings.Snapshot, bool)
}

// API serves the read-only listing endpoints.
type API struct {
	store    CatalogSource
	defaults *fallback.Defaults
	logger   log.Logger
}

func NewAPI(store CatalogSource, defaults *fallback.Defaults, logger log.Logger) *API {
	if logger == nil {
		logger = log.Nop()
	}
	return &API{
		store:    store,
		defaults: defaults,
		logger:   logger,
	}
}

func (api *API) RegisterRoutes(r chi.Router) {
	r.Get("/api/listings", api.HandleListings)
	r.Get("/api/listings/{id}", api.HandleListing)
	r.Get("/api/markets", api.HandleMarkets)
	r.Get("/api/cities", api.HandleCities)
}

// HandleListings filters the catalog by the browse query parameters.
func (api *API) HandleListings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	cat, meta, ok := api.catalog()
	if !ok {
		api.writeError(ctx, w, http.StatusServiceUnavailable, "no listings loaded")
		return
	}

	crit, err := listings.CriteriaFromQuery(r.URL.Query())
	if err != nil {
		api.writeError(ctx, w, http.StatusBadRequest, err.Error())
		return
	}

	ls := cat.Filter(crit)
	if ls == nil {
		ls = []listing{}
	}
	api.logger.Debug(ctx, "served listings",
		"count", len(ls),
		"filtered", !crit.IsEmpty(),
	)
	api.writeJSON(ctx, w, http.StatusOK, ListingsResponse{
		Count:    len(ls),
		Listings: ls,
		Version:  meta.Version,
		LoadedAt: meta.loadedAt,
	})
}

func (api *API) HandleListing(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id := chi.URLParam(r, "id")
	if !pathutil.ValidSlug(id) {
		api.writeError(ctx, w, http.StatusNotFound, "listing not found")
		return
	}
	cat, _, ok := api.catalog()
	if !ok {
		api.writeError(ctx, w, http.StatusServiceUnavailable, "no listings loaded")
		return
	}
	l, found := cat.ByID(id)
	if !found {
		api.writeError(ctx, w, http.StatusNotFound, "listing not found")
		return
	}
	api.writeJSON(ctx, w, http.StatusOK, l)
}

// HandleMarkets lists the known markets with their current listing counts.
// Counts are zero while no catalog is loaded.
func (api *API) HandleMarkets(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	cat, _, _ := api.catalog()
	out := make([]MarketSummary, 0)
	if api.defaults != nil {
		for _, m := range api.defaults.Markets {
			out = append(out, MarketSummary{
				Slug:     m.Slug,
				Name:     m.Name,
				State:    m.State,
				Image:    m.Image,
				Href:     "/market/" + m.Slug,
				Listings: cat.CityCount(m.Name),
			})
		}
	}
	api.writeJSON(ctx, w, http.StatusOK, MarketsResponse{Markets: out})
}

func (api *API) HandleCities(w http.ResponseWriter, r *http.Request) {
	cat, _, _ := api.catalog()
	cities := cat.Cities()
	if cities == nil {
		cities = []string{}
	}
	api.writeJSON(r.Context(), w, http.StatusOK, CitiesResponse{Cities: cities})
}

type listing = listings.Listing

type snapMeta struct {
	Version  string
	loadedAt time.Time
}

func (api *API) catalog() (*listings.Catalog, snapMeta, bool) {
	if api.store == nil {
		return nil, snapMeta{}, false
	}
	snap, ok := api.store.Get()
	if !ok || snap == nil {
		return nil, snapMeta{}, false
	}
	return snap.Catalog, snapMeta{Version: snap.Meta.Version, loadedAt: snap.LoadedAt.UTC().Truncate(time.Second)}, true
}

func (api *API) writeError(ctx context.Context, w http.ResponseWriter, status int, msg string) {
	api.writeJSON(ctx, w, status, ErrorResponse{Error: msg})
}

func (api *API) writeJSON(ctx context.Context, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		api.logger.Warn(ctx, "failed to encode JSON response", "error", err)
	}
}
