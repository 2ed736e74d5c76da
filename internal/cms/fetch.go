package cms

import (
	"context"
	"errors"
	"net/url"
)

// fetchEntries queries one content type and decodes every item as T.
func fetchEntries[T any](ctx context.Context, c *Client, mode Mode, contentType string, q url.Values) ([]TypedEntry[T], error) {
	resp, err := c.getEntries(ctx, mode, contentType, q, false)
	if err != nil {
		return nil, err
	}
	return decodeItems[T](resp)
}

// fetchOne asks for a single entry and returns ErrNotFound when none matched.
func fetchOne[T any](ctx context.Context, c *Client, mode Mode, contentType string, q url.Values) (*TypedEntry[T], error) {
	resp, err := c.getEntries(ctx, mode, contentType, q, true)
	if err != nil {
		return nil, err
	}
	items, err := decodeItems[T](resp)
	if err != nil {
		return nil, err
	}
	return &items[0], nil
}

func (c *Client) FetchPage(ctx context.Context, slug string, mode Mode) (*Page, error) {
	return fetchOne[PageFields](ctx, c, mode, TypePage, url.Values{"fields.slug": {slug}})
}

func (c *Client) FetchMarketPage(ctx context.Context, slug string, mode Mode) (*MarketPage, error) {
	return fetchOne[MarketPageFields](ctx, c, mode, TypeMarketPage, url.Values{"fields.slug": {slug}})
}

func (c *Client) FetchAllMarketPages(ctx context.Context, mode Mode) ([]MarketPage, error) {
	return fetchEntries[MarketPageFields](ctx, c, mode, TypeMarketPage, url.Values{"order": {"fields.marketName"}})
}

func (c *Client) FetchNavigation(ctx context.Context, mode Mode) (*Navigation, error) {
	return fetchOne[NavigationFields](ctx, c, mode, TypeNavigation, url.Values{})
}

// report logs a failed fetch. Not-configured is expected in local runs and
// not-found is a content decision, so both stay at debug.
func (c *Client) report(ctx context.Context, err error, contentType string, mode Mode, kv ...any) {
	kv = append(kv, "content_type", contentType, "mode", mode.String())
	switch {
	case errors.Is(err, ErrNotConfigured), errors.Is(err, ErrNotFound):
		c.logger.Debug(ctx, "cms content unavailable, using fallback", append(kv, "reason", err.Error())...)
	case errors.Is(err, context.Canceled):
		c.logger.Debug(ctx, "cms fetch canceled", kv...)
	default:
		c.logger.Error(ctx, err, "cms fetch failed, using fallback", kv...)
	}
}

// Page returns the page with slug, or nil on any failure.
func (c *Client) Page(ctx context.Context, slug string, mode Mode) *Page {
	p, err := c.FetchPage(ctx, slug, mode)
	if err != nil {
		c.report(ctx, err, TypePage, mode, "slug", slug)
		return nil
	}
	return p
}

// MarketPage returns the market page with slug, or nil on any failure.
func (c *Client) MarketPage(ctx context.Context, slug string, mode Mode) *MarketPage {
	p, err := c.FetchMarketPage(ctx, slug, mode)
	if err != nil {
		c.report(ctx, err, TypeMarketPage, mode, "slug", slug)
		return nil
	}
	return p
}

// AllMarketPages returns every market page ordered by name, or an empty
// slice on any failure.
func (c *Client) AllMarketPages(ctx context.Context, mode Mode) []MarketPage {
	ps, err := c.FetchAllMarketPages(ctx, mode)
	if err != nil {
		c.report(ctx, err, TypeMarketPage, mode)
		return []MarketPage{}
	}
	return ps
}

// Navigation returns the navigation entry, or nil on any failure.
func (c *Client) Navigation(ctx context.Context, mode Mode) *Navigation {
	n, err := c.FetchNavigation(ctx, mode)
	if err != nil {
		c.report(ctx, err, TypeNavigation, mode)
		return nil
	}
	return n
}
