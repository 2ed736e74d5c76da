// Package health holds liveness and readiness probes and the handlers that
// serve them on the ops listener.
//
// Readiness for this site means a listing catalog is loaded and the process
// is not draining. CMS reachability is deliberately not a readiness input:
// every page renders from built-in defaults when the CMS is down.
package health
