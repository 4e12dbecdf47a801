// package server contains the router, middleware, and handlers for the
// playlist sync service's HTTP surface.
package server

import (
	"net/http"
)

// Middleware wraps an http.Handler and returns a new http.Handler with
// additional behavior (logging, recovery, CORS, etc.).
type Middleware func(http.Handler) http.Handler

// Handler is an http.Handler that knows which routes it serves, so a
// handler can encapsulate its own route definitions.
type Handler interface {
	http.Handler
	Routes() []string // path patterns in http.ServeMux form, e.g. "GET /api/sync/status"
}

// Router registers handlers and middleware and serves as the top-level
// http.Handler for the service.
type Router interface {
	Use(middleware ...Middleware)
	Handle(pattern string, handler http.Handler)
	Handler(handler Handler)
	ServeHTTP(w http.ResponseWriter, r *http.Request)
}
