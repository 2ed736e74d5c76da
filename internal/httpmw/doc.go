// Package httpmw provides the middleware stack for the public site.
//
// Order is fixed in httpserver.NewHandler, outermost first: security
// headers, recover, request id, client ip, rate limit, otel, content
// headers, preview state, metrics, request logger, then the chi router with
// compression, route annotation, access log and body limit.
//
// Query strings and user agents are kept out of log lines. The listing
// filter lives in the query string and is recorded on the span instead.
package httpmw
