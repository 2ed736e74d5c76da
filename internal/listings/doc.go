// Package listings owns rental listing data: the mock generator, the filter
// used by the browse page and API, the immutable Catalog built from a feed,
// and the Store/Watcher pair that hot-swaps catalogs at runtime.
//
// The core components are:
//   - [Generate]: deterministic mock listings for a seed
//   - [Criteria] and [Filter]: AND-combined listing filters
//   - [Catalog]: read-only view with id, city and featured lookups
//   - [Store]: the active catalog behind an atomic.Pointer for lock-free reads
//   - [Loader] and [Watcher]: fetch feeds from S3 by the hash published in SSM,
//     validate and swap them into the Store
//   - [FileWatcher]: reload a local feed file on change
package listings
