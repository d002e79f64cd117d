package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

type CORSConfig struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	AllowCredentials bool
}

// CORS answers preflights and decorates responses for allowed origins. An
// empty origin list allows any origin.
func CORS(config CORSConfig) Middleware {
	origins := config.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   config.AllowedMethods,
		AllowedHeaders:   config.AllowedHeaders,
		ExposedHeaders:   []string{"X-Request-ID", "Content-Disposition"},
		AllowCredentials: config.AllowCredentials,
		MaxAge:           300,
	})

	return func(f http.HandlerFunc) http.HandlerFunc {
		return c.Handler(f).ServeHTTP
	}
}
