package service

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/templui/repcycle/internal/repository"
)

const testPassword = "correct horse battery"

func newAuth(f *fixture) *AuthService {
	email := NewEmailService("", "noreply@example.com", "http://localhost:8090", "repcycle", true)
	return NewAuthService(f.users, email, f.metrics, "test-secret", time.Hour, false)
}

func TestAuthService_SignUpAndSignIn(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	auth := newAuth(f)

	session, err := auth.SignUp(ctx, "  Lifter@Example.com ", testPassword)
	require.NoError(t, err)
	assert.Equal(t, "lifter@example.com", session.User.Email)
	assert.NotEmpty(t, session.Token)
	assert.WithinDuration(t, time.Now().Add(time.Hour), session.ExpiresAt, time.Minute)

	current, err := auth.CurrentSession(ctx, session.Token)
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, session.User, *current)

	again, err := auth.SignIn(ctx, "lifter@example.com", testPassword)
	require.NoError(t, err)
	assert.Equal(t, session.User.ID, again.User.ID)
}

func TestAuthService_Rejections(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	auth := newAuth(f)

	_, err := auth.SignUp(ctx, "lifter@example.com", testPassword)
	require.NoError(t, err)

	tests := []struct {
		name string
		call func() error
		is   error
	}{
		{"duplicate", func() error { _, err := auth.SignUp(ctx, "LIFTER@example.com", testPassword); return err }, ErrEmailAlreadyExists},
		{"wrong password", func() error { _, err := auth.SignIn(ctx, "lifter@example.com", "nope nope nope"); return err }, ErrInvalidCredentials},
		{"unknown email", func() error { _, err := auth.SignIn(ctx, "ghost@example.com", testPassword); return err }, ErrInvalidCredentials},
		{"bad email", func() error { _, err := auth.SignUp(ctx, "not-an-email", testPassword); return err }, nil},
		{"weak password", func() error { _, err := auth.SignUp(ctx, "new@example.com", "short"); return err }, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			var authErr *AuthError
			require.ErrorAs(t, err, &authErr)
			assert.NotEmpty(t, authErr.Message)
			if tt.is != nil {
				assert.ErrorIs(t, err, tt.is)
			}
		})
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(f.metrics.CounterAuthRejections.WithLabelValues("bad_credentials")))
}

func TestAuthService_CurrentSessionInvalid(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	auth := newAuth(f)

	for _, token := range []string{"", "garbage", "a.b.c"} {
		user, err := auth.CurrentSession(ctx, token)
		require.NoError(t, err)
		assert.Nil(t, user)
	}

	other := NewAuthService(f.users, nil, f.metrics, "other-secret", time.Hour, false)
	session, err := auth.SignUp(ctx, "lifter@example.com", testPassword)
	require.NoError(t, err)
	user, err := other.CurrentSession(ctx, session.Token)
	require.NoError(t, err)
	assert.Nil(t, user, "token signed with another secret")

	require.NoError(t, f.users.Delete(ctx, session.User.ID))
	user, err = auth.CurrentSession(ctx, session.Token)
	require.NoError(t, err)
	assert.Nil(t, user, "user deleted after sign-in")
}

func TestAuthService_OnSessionChange(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	auth := newAuth(f)

	var events []SessionEvent
	unsubscribe := auth.OnSessionChange(func(e SessionEvent) { events = append(events, e) })

	session, err := auth.SignUp(ctx, "lifter@example.com", testPassword)
	require.NoError(t, err)
	auth.SignOut(ctx, session.User.ID)

	unsubscribe()
	auth.SignOut(ctx, session.User.ID)

	assert.Equal(t, []SessionEvent{
		{Type: SessionSignedIn, UserID: session.User.ID},
		{Type: SessionSignedOut, UserID: session.User.ID},
	}, events)
}

func TestAuthService_AuthenticateOAuth(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	auth := newAuth(f)

	first, err := auth.AuthenticateOAuth(ctx, "Athlete@Example.com", "google")
	require.NoError(t, err)

	user, err := f.users.ByEmail(ctx, "athlete@example.com")
	require.NoError(t, err)
	assert.False(t, user.HasPassword())

	second, err := auth.AuthenticateOAuth(ctx, "athlete@example.com", "github")
	require.NoError(t, err)
	assert.Equal(t, first.User.ID, second.User.ID)

	_, err = auth.SignIn(ctx, "athlete@example.com", testPassword)
	assert.ErrorIs(t, err, ErrPasswordlessLogin)
}

func TestAuthService_Cookies(t *testing.T) {
	f := newFixture(t)
	auth := newAuth(f)

	rec := httptest.NewRecorder()
	auth.SetJWTCookie(rec, "tok", time.Now().Add(time.Hour))
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, AuthCookieName, cookies[0].Name)
	assert.Equal(t, "tok", cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)

	rec = httptest.NewRecorder()
	auth.ClearJWTCookie(rec)
	cookies = rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Empty(t, cookies[0].Value)
	assert.Negative(t, cookies[0].MaxAge)
}

func TestUserService_UpdatePasswordAndDelete(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	auth := newAuth(f)
	users := NewUserService(f.users, auth, NewEmailService("", "", "", "repcycle", true))
	stores := NewGoalStores(f.goals, f.metrics)
	auth.OnSessionChange(stores.HandleSessionChange)

	session, err := auth.SignUp(ctx, "lifter@example.com", testPassword)
	require.NoError(t, err)
	userID := session.User.ID

	err = users.UpdatePassword(ctx, userID, "wrong", "another strong one")
	assert.ErrorIs(t, err, ErrInvalidCurrentPassword)

	err = users.UpdatePassword(ctx, userID, testPassword, "short")
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)

	require.NoError(t, users.UpdatePassword(ctx, userID, testPassword, "another strong one"))
	_, err = auth.SignIn(ctx, "lifter@example.com", "another strong one")
	require.NoError(t, err)

	_, err = stores.For(userID).CreateGoal(ctx, 1, GoalInput{Exercise: "Squat"})
	require.NoError(t, err)

	require.NoError(t, users.DeleteAccount(ctx, userID))

	goals, err := f.goals.Goals(ctx, repository.GoalFilter{UserID: userID})
	require.NoError(t, err)
	assert.Empty(t, goals, "goals cascade with the user")

	err = users.DeleteAccount(ctx, userID)
	assert.True(t, IsNotFound(err))
}
