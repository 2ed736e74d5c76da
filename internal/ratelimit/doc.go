// Package ratelimit is a per-client token bucket limiter for the public
// listener.
//
// It is single-instance and in-memory. It blunts a single address hammering
// the listing search or the CMS-backed pages (each page view may fan out to
// several CMS calls) and gives a counter and one log line per offender.
// Distributed floods belong to the CDN or WAF in front of the site.
package ratelimit
