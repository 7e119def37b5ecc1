package api

import (
	"log"
	"net/http"
	"runtime/debug"
)

// Handler adapts handlers that return errors into http.Handler.
type Handler func(w http.ResponseWriter, r *http.Request) error

// ServeHTTP implements http.Handler.
func (handler Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := handler(w, r); err != nil {
		WriteError(w, r, err)
	}
}

// RecovererMiddleware converts panics into 500 responses. In development
// mode the captured stack trace is included in the response body.
func RecovererMiddleware(includeStack bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if recovered := recover(); recovered != nil {
					log.Printf("panic recovered: %v", recovered)
					var stack string
					if includeStack {
						stack = string(debug.Stack())
					}
					writeErrorBody(w, 500, ErrorBody{
						Message: "Internal server error",
						Stack:   stack,
					}, false)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
