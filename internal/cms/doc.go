// Package cms is a read-only client for the headless content store
// (Contentful Delivery and Preview APIs).
//
// Two layers are exposed. The Fetch* functions return typed entries and
// distinguish ErrNotConfigured, ErrNotFound, *StatusError and transport
// failures. The wrappers (Page, MarketPage, AllMarketPages, Navigation)
// collapse every failure into nil after logging and counting it, which is
// what page rendering wants: any content failure degrades to defaults.
// Callers that need the distinction check Client.Configured first or use
// the Fetch* layer.
//
// Linked entries and assets in a response are inlined from the response's
// includes before decoding, so typed field structs see nested objects
// rather than link stubs.
package cms
