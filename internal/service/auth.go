package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/templui/repcycle/internal/metrics"
	"github.com/templui/repcycle/internal/model"
	"github.com/templui/repcycle/internal/repository"
	"github.com/templui/repcycle/internal/validation"
	"golang.org/x/crypto/bcrypt"
)

const AuthCookieName = "auth_token"

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailAlreadyExists = errors.New("email already exists")
	ErrPasswordlessLogin  = errors.New("this account signs in with Google or GitHub")
	ErrInvalidToken       = errors.New("invalid token")
)

type SessionEventType int

const (
	SessionSignedIn SessionEventType = iota + 1
	SessionSignedOut
)

func (t SessionEventType) String() string {
	switch t {
	case SessionSignedIn:
		return "signed_in"
	case SessionSignedOut:
		return "signed_out"
	default:
		return "unknown"
	}
}

type SessionEvent struct {
	Type   SessionEventType
	UserID string
}

type AuthService struct {
	userRepository repository.UserRepository
	emailService   *EmailService
	metrics        *metrics.Manager
	jwtSecret      string
	jwtExpiry      time.Duration
	isProduction   bool

	mu        sync.RWMutex
	listeners map[int]func(SessionEvent)
	nextID    int
}

func NewAuthService(
	userRepository repository.UserRepository,
	emailService *EmailService,
	m *metrics.Manager,
	jwtSecret string,
	jwtExpiry time.Duration,
	isProduction bool,
) *AuthService {
	return &AuthService{
		userRepository: userRepository,
		emailService:   emailService,
		metrics:        m,
		jwtSecret:      jwtSecret,
		jwtExpiry:      jwtExpiry,
		isProduction:   isProduction,
		listeners:      make(map[int]func(SessionEvent)),
	}
}

func (s *AuthService) SignUp(ctx context.Context, email, password string) (*model.Session, error) {
	email = validation.NormalizeEmail(email)

	if err := validation.ValidateEmail(email); err != nil {
		return nil, s.reject("invalid_email", err)
	}
	if err := validation.ValidatePassword(password); err != nil {
		return nil, s.reject("weak_password", err)
	}

	hash, err := s.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: &hash,
		CreatedAt:    time.Now().UTC(),
	}
	err = s.userRepository.Create(ctx, user)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, s.reject("duplicate_email", ErrEmailAlreadyExists)
		}
		return nil, remoteError("create user", err)
	}

	slog.Info("user signed up", "user_id", user.ID, "email", user.Email)

	if err := s.emailService.SendWelcomeEmail(ctx, user.Email); err != nil {
		slog.Warn("failed to send welcome email", "error", err, "user_id", user.ID)
	}

	return s.startSession(user)
}

func (s *AuthService) SignIn(ctx context.Context, email, password string) (*model.Session, error) {
	email = validation.NormalizeEmail(email)

	user, err := s.userRepository.ByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, s.reject("bad_credentials", ErrInvalidCredentials)
		}
		return nil, remoteError("load user", err)
	}

	if !user.HasPassword() {
		return nil, s.reject("passwordless", ErrPasswordlessLogin)
	}

	if err := s.ComparePassword(password, *user.PasswordHash); err != nil {
		return nil, s.reject("bad_credentials", ErrInvalidCredentials)
	}

	slog.Info("user signed in", "user_id", user.ID)
	return s.startSession(user)
}

// SignOut notifies listeners; JWTs are stateless, so the caller clears the cookie.
func (s *AuthService) SignOut(ctx context.Context, userID string) {
	slog.Info("user signed out", "user_id", userID)
	s.emit(SessionEvent{Type: SessionSignedOut, UserID: userID})
}

// CurrentSession resolves a token to its user. A missing, invalid or expired
// token, or a token for a deleted user, yields nil without error.
func (s *AuthService) CurrentSession(ctx context.Context, token string) (*model.SessionUser, error) {
	if token == "" {
		return nil, nil
	}

	claims, err := s.VerifyJWT(token)
	if err != nil {
		return nil, nil
	}

	userID, _ := claims["user_id"].(string)
	if userID == "" {
		return nil, nil
	}

	user, err := s.userRepository.ByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, nil
		}
		return nil, remoteError("load session user", err)
	}

	return user.SessionUser(), nil
}

// OnSessionChange registers fn for sign-in and sign-out events. The returned
// func unregisters it.
func (s *AuthService) OnSessionChange(fn func(SessionEvent)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// AuthenticateOAuth signs in the user owning a provider-verified email,
// creating a passwordless account on first use.
func (s *AuthService) AuthenticateOAuth(ctx context.Context, email, provider string) (*model.Session, error) {
	email = validation.NormalizeEmail(email)

	if err := validation.ValidateEmail(email); err != nil {
		return nil, s.reject("invalid_email", err)
	}

	user, err := s.userRepository.ByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, repository.ErrUserNotFound) {
			return nil, remoteError("load user", err)
		}

		user = &model.User{
			ID:        uuid.NewString(),
			Email:     email,
			CreatedAt: time.Now().UTC(),
		}
		if err := s.userRepository.Create(ctx, user); err != nil {
			return nil, remoteError("create user", err)
		}

		slog.Info("new OAuth user created", "user_id", user.ID, "email", email, "provider", provider)
		if err := s.emailService.SendWelcomeEmail(ctx, user.Email); err != nil {
			slog.Warn("failed to send welcome email", "error", err, "user_id", user.ID)
		}
	}

	slog.Info("user authenticated via OAuth", "user_id", user.ID, "provider", provider)
	return s.startSession(user)
}

func (s *AuthService) HashPassword(password string) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashedBytes), nil
}

func (s *AuthService) ComparePassword(password, hash string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}

func (s *AuthService) GenerateJWT(user *model.User, expiresAt time.Time) (string, error) {
	claims := jwt.MapClaims{
		"user_id": user.ID,
		"email":   user.Email,
		"exp":     expiresAt.Unix(),
		"iat":     time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.jwtSecret))
}

func (s *AuthService) VerifyJWT(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if ok && token.Valid {
		return claims, nil
	}

	return nil, ErrInvalidToken
}

func (s *AuthService) SetJWTCookie(w http.ResponseWriter, token string, expiry time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     AuthCookieName,
		Value:    token,
		Expires:  expiry,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.isProduction,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *AuthService) ClearJWTCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     AuthCookieName,
		Value:    "",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.isProduction,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *AuthService) startSession(user *model.User) (*model.Session, error) {
	expiresAt := time.Now().Add(s.jwtExpiry)
	token, err := s.GenerateJWT(user, expiresAt)
	if err != nil {
		return nil, fmt.Errorf("failed to sign session token: %w", err)
	}

	s.emit(SessionEvent{Type: SessionSignedIn, UserID: user.ID})

	return &model.Session{
		User:      *user.SessionUser(),
		Token:     token,
		ExpiresAt: expiresAt,
	}, nil
}

func (s *AuthService) reject(reason string, err error) *AuthError {
	s.metrics.CounterAuthRejections.WithLabelValues(reason).Inc()
	return authError(err)
}

func (s *AuthService) emit(event SessionEvent) {
	s.mu.RLock()
	listeners := make([]func(SessionEvent), 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	s.mu.RUnlock()

	for _, fn := range listeners {
		fn(event)
	}
}
