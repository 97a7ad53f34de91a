package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/templui/repcycle/internal/ctxkeys"
	"github.com/templui/repcycle/internal/service"
)

// AuthMiddleware resolves the session token (Bearer header first, then the
// auth cookie) and adds the session user to the context. Requests without a
// valid session continue anonymously.
func AuthMiddleware(authService *service.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, fromCookie := sessionToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			user, err := authService.CurrentSession(r.Context(), token)
			if err != nil {
				slog.Error("failed to resolve session", "error", err, "path", r.URL.Path)
				next.ServeHTTP(w, r)
				return
			}
			if user == nil {
				if fromCookie {
					authService.ClearJWTCookie(w)
				}
				next.ServeHTTP(w, r)
				return
			}

			if rw, ok := w.(*responseWriter); ok {
				rw.userID = user.ID
			}
			ctx := ctxkeys.WithUser(r.Context(), user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuth rejects anonymous requests with 401.
func RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ctxkeys.User(r.Context()) == nil {
			writeJSONError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		next.ServeHTTP(w, r)
	}
}

// RequireGuest rejects requests that already carry a session.
func RequireGuest(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ctxkeys.User(r.Context()) != nil {
			writeJSONError(w, http.StatusConflict, "already signed in")
			return
		}
		next.ServeHTTP(w, r)
	}
}

func sessionToken(r *http.Request) (token string, fromCookie bool) {
	if bearer, ok := bearerToken(r); ok {
		return bearer, false
	}
	cookie, err := r.Cookie(service.AuthCookieName)
	if err != nil {
		return "", false
	}
	return cookie.Value, true
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
