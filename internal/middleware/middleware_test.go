package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/templui/repcycle/internal/ctxkeys"
	"github.com/templui/repcycle/internal/db/dbtest"
	"github.com/templui/repcycle/internal/metrics"
	"github.com/templui/repcycle/internal/repository"
	"github.com/templui/repcycle/internal/service"
)

func newAuthService(t *testing.T) *service.AuthService {
	users := repository.NewUserRepository(dbtest.New(t))
	email := service.NewEmailService("", "noreply@example.com", "http://localhost", "repcycle", true)
	return service.NewAuthService(users, email, metrics.NewTestManager(), "test-secret", time.Hour, false)
}

func whoAmI(w http.ResponseWriter, r *http.Request) {
	user := ctxkeys.User(r.Context())
	if user == nil {
		_, _ = w.Write([]byte("anonymous"))
		return
	}
	_, _ = w.Write([]byte(user.Email))
}

func TestAuthMiddleware(t *testing.T) {
	auth := newAuthService(t)
	session, err := auth.SignUp(context.Background(), "lifter@example.com", "correct horse battery")
	require.NoError(t, err)

	handler := AuthMiddleware(auth)(http.HandlerFunc(whoAmI))

	tests := []struct {
		name        string
		setup       func(r *http.Request)
		body        string
		clearCookie bool
	}{
		{name: "anonymous", setup: func(*http.Request) {}, body: "anonymous"},
		{name: "bearer", setup: func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+session.Token) }, body: "lifter@example.com"},
		{name: "cookie", setup: func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: service.AuthCookieName, Value: session.Token})
		}, body: "lifter@example.com"},
		{name: "bad cookie", setup: func(r *http.Request) {
			r.AddCookie(&http.Cookie{Name: service.AuthCookieName, Value: "garbage"})
		}, body: "anonymous", clearCookie: true},
		{name: "bad bearer", setup: func(r *http.Request) { r.Header.Set("Authorization", "Bearer garbage") }, body: "anonymous"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/auth/session", nil)
			tt.setup(req)
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.body, rec.Body.String())
			cleared := false
			for _, c := range rec.Result().Cookies() {
				if c.Name == service.AuthCookieName && c.Value == "" {
					cleared = true
				}
			}
			assert.Equal(t, tt.clearCookie, cleared)
		})
	}
}

func TestRequireAuth(t *testing.T) {
	handler := RequireAuth(whoAmI)

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/api/goals", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"authentication required"}`, rec.Body.String())
}

func TestCSRFProtection(t *testing.T) {
	handler := CSRFProtection(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, ctxkeys.CSRFToken(r.Context()))
		w.WriteHeader(http.StatusNoContent)
	}))

	// a GET hands out the token cookie
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/goals", nil))
	require.Equal(t, http.StatusNoContent, rec.Code)
	var csrfCookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == csrfCookieName {
			csrfCookie = c
		}
	}
	require.NotNil(t, csrfCookie)

	tests := []struct {
		name   string
		setup  func(r *http.Request)
		status int
	}{
		{name: "form without token", setup: func(r *http.Request) {
			r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			r.AddCookie(csrfCookie)
		}, status: http.StatusForbidden},
		{name: "form with header token", setup: func(r *http.Request) {
			r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			r.Header.Set(csrfHeader, csrfCookie.Value)
			r.AddCookie(csrfCookie)
		}, status: http.StatusNoContent},
		{name: "json body", setup: func(r *http.Request) {
			r.Header.Set("Content-Type", "application/json; charset=utf-8")
		}, status: http.StatusNoContent},
		{name: "bearer", setup: func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer token")
		}, status: http.StatusNoContent},
		{name: "plain text", setup: func(r *http.Request) {
			r.Header.Set("Content-Type", "text/plain")
		}, status: http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/cycles/advance", strings.NewReader(""))
			tt.setup(req)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestRecovery(t *testing.T) {
	m := metrics.NewTestManager()
	handler := Recovery(m)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	require.NotPanics(t, func() {
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/goals", nil))
	})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "internal server error", body["error"])
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CounterPanics))
}

func TestMetrics_UsesRoutePattern(t *testing.T) {
	m := metrics.NewTestManager()
	mux := http.NewServeMux()
	mux.HandleFunc("DELETE /api/goals/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	handler := Chain(mux, RequestLogging, Metrics(m))

	for _, id := range []string{"a", "b"} {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/goals/"+id, nil))
		assert.Equal(t, http.StatusNoContent, rec.Code)
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.CounterRequests.WithLabelValues("DELETE", "DELETE /api/goals/{id}", "204")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.GaugeRequests))
}

func TestSecurityHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	SecurityHeaders(http.HandlerFunc(whoAmI)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
}
