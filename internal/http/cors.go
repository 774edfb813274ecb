package http

import (
	"net/http"
	"slices"

	"github.com/go-chi/cors"
)

// CORSMiddleware allows browser clients from the configured origins. Cookies
// and credentials are only allowed for an explicit list; "*" opens the API
// to anyone but without credentials.
func CORSMiddleware(allowOrigins []string) func(http.Handler) http.Handler {
	wildcard := len(allowOrigins) == 0 || slices.Contains(allowOrigins, "*")
	if len(allowOrigins) == 0 {
		allowOrigins = []string{"*"}
	}

	return cors.Handler(cors.Options{
		AllowedOrigins:   allowOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: !wildcard,
		MaxAge:           300,
	})
}
