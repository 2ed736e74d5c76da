// Package modules decodes the page-module union carried by CMS pages.
//
// A page lists its modules as linked entries. Each entry's content type
// selects one of four variants (Hero, PromoStrip, CardGrid, RichText).
// Entries of any other type are skipped with a warning so the rest of the
// page still renders in order.
package modules
