package listingshttp

import (
	"time"

	"github.com/keithlinneman/rentwise-web/internal/listings"
)

type ListingsResponse struct {
	Count    int                `json:"count"`
	Listings []listings.Listing `json:"listings"`
	Version  string             `json:"version,omitempty"`
	LoadedAt time.Time          `json:"loaded_at,omitzero"`
}

type MarketSummary struct {
	Slug     string `json:"slug"`
	Name     string `json:"name"`
	State    string `json:"state"`
	Image    string `json:"image,omitempty"`
	Href     string `json:"href"`
	Listings int    `json:"listings"`
}

type MarketsResponse struct {
	Markets []MarketSummary `json:"markets"`
}

type CitiesResponse struct {
	Cities []string `json:"cities"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
