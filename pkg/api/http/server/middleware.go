package server

import (
	"net/http"

	"github.com/rs/zerolog/log"
)

// loggingMiddleware shims in a handler middleware that logs requests.
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Debug().Str("method", r.Method).Str("uri", r.RequestURI).Int64("length", r.ContentLength).Msg("request")
		next.ServeHTTP(w, r)
	})
}
