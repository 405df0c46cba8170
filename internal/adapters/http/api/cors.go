package api

import (
	"net/http"

	"github.com/gorilla/handlers"
)

// WithCORS allows browser dashboards on origins to call the API. An empty
// origin list leaves next unchanged.
func WithCORS(origins []string, next http.Handler) http.Handler {
	if len(origins) == 0 {
		return next
	}
	return handlers.CORS(
		handlers.AllowedOrigins(origins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type", BatchIDHeader}),
	)(next)
}
