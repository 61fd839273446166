// Package http provides the HTTP transport for galleria: the chi router,
// request handlers, bearer-token auth middleware, and the single place
// where the domain error taxonomy is mapped to HTTP status codes.
package http
