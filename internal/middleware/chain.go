package middleware

import "net/http"

// Chain applies middleware in the order given, first outermost.
//
// Example:
//
//	handler := Chain(mux,
//	    RequestLogging,       // runs first
//	    RequireBearer(token), // runs second
//	)
func Chain(h http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}
