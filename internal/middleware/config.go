package middleware

import (
	"net/http"

	"github.com/templui/repcycle/internal/config"
	"github.com/templui/repcycle/internal/ctxkeys"
)

// Config puts the sanitized configuration into the request context.
func Config(cfg *config.Config) func(http.Handler) http.Handler {
	safe := cfg.Sanitized()
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(ctxkeys.WithConfig(r.Context(), safe)))
		})
	}
}
