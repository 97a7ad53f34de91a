package handler

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/templui/repcycle/internal/config"
	"github.com/templui/repcycle/internal/ctxkeys"
	"github.com/templui/repcycle/internal/model"
	"github.com/templui/repcycle/internal/service"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
	"golang.org/x/oauth2/google"
)

const (
	oauthStateCookie = "oauth_state"

	googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"
	githubUserURL     = "https://api.github.com/user"
	githubEmailsURL   = "https://api.github.com/user/emails"
)

var errNoOAuthEmail = errors.New("provider returned no email")

type authHandler struct {
	authService       *service.AuthService
	googleOAuthConfig *oauth2.Config
	githubOAuthConfig *oauth2.Config
	appURL            string
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	User *model.SessionUser `json:"user"`
}

func NewAuthHandler(authService *service.AuthService, cfg *config.Config) *authHandler {
	return &authHandler{
		authService: authService,
		appURL:      cfg.AppURL,
		googleOAuthConfig: &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.AppURL + "/auth/google/callback",
			Scopes:       []string{"https://www.googleapis.com/auth/userinfo.email"},
			Endpoint:     google.Endpoint,
		},
		githubOAuthConfig: &oauth2.Config{
			ClientID:     cfg.GitHubClientID,
			ClientSecret: cfg.GitHubClientSecret,
			RedirectURL:  cfg.AppURL + "/auth/github/callback",
			Scopes:       []string{"user:email"},
			Endpoint:     github.Endpoint,
		},
	}
}

func (h *authHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	session, err := h.authService.SignUp(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}

	h.authService.SetJWTCookie(w, session.Token, session.ExpiresAt)
	writeJSON(w, http.StatusCreated, session)
}

func (h *authHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	session, err := h.authService.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}

	h.authService.SetJWTCookie(w, session.Token, session.ExpiresAt)
	writeJSON(w, http.StatusOK, session)
}

func (h *authHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	h.authService.ClearJWTCookie(w)
	if user := ctxkeys.User(r.Context()); user != nil {
		h.authService.SignOut(r.Context(), user.ID)
	}
	w.WriteHeader(http.StatusNoContent)
}

// Session reports the signed-in user, or {"user": null}.
func (h *authHandler) Session(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, sessionResponse{User: ctxkeys.User(r.Context())})
}

func (h *authHandler) GoogleAuth(w http.ResponseWriter, r *http.Request) {
	h.beginOAuth(w, r, h.googleOAuthConfig)
}

func (h *authHandler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	h.finishOAuth(w, r, "google", h.googleOAuthConfig, googleEmail)
}

func (h *authHandler) GitHubAuth(w http.ResponseWriter, r *http.Request) {
	h.beginOAuth(w, r, h.githubOAuthConfig)
}

func (h *authHandler) GitHubCallback(w http.ResponseWriter, r *http.Request) {
	h.finishOAuth(w, r, "github", h.githubOAuthConfig, githubEmail)
}

func (h *authHandler) beginOAuth(w http.ResponseWriter, r *http.Request, oauthConfig *oauth2.Config) {
	state := generateOAuthState()

	cfg := ctxkeys.Config(r.Context())
	isProduction := cfg != nil && cfg.IsProduction()

	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/",
		HttpOnly: true,
		Secure:   isProduction,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   600,
	})

	http.Redirect(w, r, oauthConfig.AuthCodeURL(state, oauth2.AccessTypeOffline), http.StatusTemporaryRedirect)
}

type emailFetcher func(ctx context.Context, client *http.Client) (string, error)

func (h *authHandler) finishOAuth(w http.ResponseWriter, r *http.Request, provider string, oauthConfig *oauth2.Config, fetchEmail emailFetcher) {
	state := r.URL.Query().Get("state")
	cookie, err := r.Cookie(oauthStateCookie)
	if err != nil || cookie.Value != state || state == "" {
		slog.Warn("oauth state validation failed", "provider", provider, "error", err)
		h.oauthFailed(w, r)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:   oauthStateCookie,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})

	code := r.URL.Query().Get("code")
	if code == "" {
		slog.Warn("oauth callback missing code", "provider", provider)
		h.oauthFailed(w, r)
		return
	}

	ctx := r.Context()
	token, err := oauthConfig.Exchange(ctx, code)
	if err != nil {
		slog.Error("oauth token exchange failed", "provider", provider, "error", err)
		h.oauthFailed(w, r)
		return
	}

	email, err := fetchEmail(ctx, oauthConfig.Client(ctx, token))
	if err != nil {
		slog.Error("failed to get oauth user email", "provider", provider, "error", err)
		h.oauthFailed(w, r)
		return
	}

	session, err := h.authService.AuthenticateOAuth(ctx, email, provider)
	if err != nil {
		slog.Error("oauth authentication failed", "provider", provider, "error", err)
		h.oauthFailed(w, r)
		return
	}

	h.authService.SetJWTCookie(w, session.Token, session.ExpiresAt)
	slog.Info("user logged in with oauth", "provider", provider, "user_id", session.User.ID)

	http.Redirect(w, r, h.appURL+"/", http.StatusSeeOther)
}

func (h *authHandler) oauthFailed(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, h.appURL+"/?auth_error=oauth", http.StatusSeeOther)
}

func googleEmail(ctx context.Context, client *http.Client) (string, error) {
	var userInfo struct {
		Email string `json:"email"`
	}
	if err := getJSON(ctx, client, googleUserInfoURL, &userInfo); err != nil {
		return "", err
	}
	if userInfo.Email == "" {
		return "", errNoOAuthEmail
	}
	return userInfo.Email, nil
}

// githubEmail falls back to the primary address when the profile email is private.
func githubEmail(ctx context.Context, client *http.Client) (string, error) {
	var userInfo struct {
		Email string `json:"email"`
	}
	if err := getJSON(ctx, client, githubUserURL, &userInfo); err != nil {
		return "", err
	}
	if userInfo.Email != "" {
		return userInfo.Email, nil
	}

	var emails []struct {
		Email   string `json:"email"`
		Primary bool   `json:"primary"`
	}
	if err := getJSON(ctx, client, githubEmailsURL, &emails); err != nil {
		return "", err
	}
	for _, e := range emails {
		if e.Primary {
			return e.Email, nil
		}
	}
	return "", errNoOAuthEmail
}

func getJSON(ctx context.Context, client *http.Client, url string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			slog.Error("failed to close response body", "error", closeErr)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: unexpected status %d", url, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

// generateOAuthState creates a random state token for OAuth CSRF protection
func generateOAuthState() string {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		panic("failed to generate oauth state: " + err.Error())
	}
	return base64.RawURLEncoding.EncodeToString(bytes)
}
