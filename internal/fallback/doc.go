// Package fallback holds the built-in page content and the rules for
// choosing between it and CMS content.
//
// Selection is per object: a section either comes entirely from the CMS or
// entirely from the defaults, with a couple of documented field backfills
// (hero background image, hero CTA, card placeholder image).
package fallback
