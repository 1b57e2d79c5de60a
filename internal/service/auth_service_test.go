package service

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rafaelguerrae/TeamSync/internal/auth"
	"github.com/rafaelguerrae/TeamSync/internal/event"
	"github.com/rafaelguerrae/TeamSync/internal/model"
	"github.com/rafaelguerrae/TeamSync/internal/repository"
	"github.com/rafaelguerrae/TeamSync/pkg/apierror"
)

type authFixture struct {
	service *AuthService
	users   *repository.MemoryUserRepository
	bus     *event.InMemoryBus
	access  *auth.Codec
	refresh *auth.Codec
	clock   time.Time
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()

	f := &authFixture{
		users: repository.NewMemoryStore().Users(),
		bus:   event.NewBus(),
		clock: time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC),
	}
	now := func() time.Time { return f.clock }

	var err error
	f.access, err = auth.NewCodec(auth.KindAccess, "access-secret", auth.AccessTokenTTL, auth.WithClock(now))
	require.NoError(t, err)
	f.refresh, err = auth.NewCodec(auth.KindRefresh, "refresh-secret", auth.RefreshTokenTTL, auth.WithClock(now))
	require.NoError(t, err)

	f.service = NewAuthService(f.users, f.access, f.refresh, f.bus)
	f.service.now = now
	return f
}

func (f *authFixture) signUp(t *testing.T, email string, password string) model.PublicUser {
	t.Helper()

	user, err := f.service.SignUp(context.Background(), model.SignUpRequest{Email: email, Password: password})
	require.NoError(t, err)
	return user
}

func TestAuthService_SignUp(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("stores a hashed password and defaults profile fields", func(t *testing.T) {
		f := newAuthFixture(t)

		user := f.signUp(t, "  A@B.com ", "secret1")
		require.Equal(t, "a@b.com", user.Email)
		require.Equal(t, "a", user.Alias)
		require.Equal(t, "a", user.Name)

		stored, err := f.users.FindByID(ctx, user.ID)
		require.NoError(t, err)
		require.NotEqual(t, "secret1", stored.PasswordHash)
		require.True(t, auth.VerifyPassword("secret1", stored.PasswordHash))
	})

	t.Run("duplicate email conflicts", func(t *testing.T) {
		f := newAuthFixture(t)
		f.signUp(t, "a@b.com", "secret1")

		_, err := f.service.SignUp(ctx, model.SignUpRequest{Email: "A@b.com", Password: "secret2"})
		require.ErrorIs(t, err, model.ErrDuplicateEmail)
	})

	t.Run("validation", func(t *testing.T) {
		f := newAuthFixture(t)

		tests := map[string]model.SignUpRequest{
			"missing email":  {Password: "secret1"},
			"invalid email":  {Email: "not-an-email", Password: "secret1"},
			"short password": {Email: "a@b.com", Password: "12345"},
		}
		for name, req := range tests {
			t.Run(name, func(t *testing.T) {
				_, err := f.service.SignUp(ctx, req)
				var apiErr *apierror.APIError
				require.ErrorAs(t, err, &apiErr)
				require.Equal(t, 400, apiErr.HTTPStatus)
			})
		}
	})
}

func TestAuthService_SignIn(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := newAuthFixture(t)
	user := f.signUp(t, "a@b.com", "secret1")

	t.Run("valid credentials start a session", func(t *testing.T) {
		session, err := f.service.SignIn(ctx, model.SignInRequest{Email: "a@b.com", Password: "secret1"}, "")
		require.NoError(t, err)
		require.NotEmpty(t, session.AccessToken)
		require.NotEmpty(t, session.RefreshToken)
		require.NotNil(t, session.User)
		require.Equal(t, user, *session.User)
		require.Equal(t, f.clock.Add(auth.AccessTokenTTL), session.AccessExpiresAt)
		require.Equal(t, f.clock.Add(auth.RefreshTokenTTL), session.RefreshExpiresAt)

		claims, err := f.service.VerifyAccess(session.AccessToken)
		require.NoError(t, err)
		require.Equal(t, user.ID, claims.UserID)
		require.Equal(t, "a@b.com", claims.Email)

		refreshClaims, err := f.refresh.Verify(session.RefreshToken)
		require.NoError(t, err)
		require.Equal(t, strconv.FormatInt(user.ID, 10), refreshClaims.Subject)
	})

	t.Run("unknown email and wrong password are indistinguishable", func(t *testing.T) {
		_, errUnknown := f.service.SignIn(ctx, model.SignInRequest{Email: "nobody@b.com", Password: "secret1"}, "")
		_, errWrong := f.service.SignIn(ctx, model.SignInRequest{Email: "a@b.com", Password: "wrong-password"}, "")

		require.ErrorIs(t, errUnknown, model.ErrInvalidCredentials)
		require.ErrorIs(t, errWrong, model.ErrInvalidCredentials)
		require.Equal(t, errUnknown.Error(), errWrong.Error())
	})
}

func TestAuthService_Refresh(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := newAuthFixture(t)
	f.signUp(t, "a@b.com", "secret1")
	session, err := f.service.SignIn(ctx, model.SignInRequest{Email: "a@b.com", Password: "secret1"}, "")
	require.NoError(t, err)

	t.Run("rotates both tokens", func(t *testing.T) {
		rotated, err := f.service.Refresh(ctx, session.RefreshToken)
		require.NoError(t, err)
		require.NotEqual(t, session.AccessToken, rotated.AccessToken)
		require.NotEqual(t, session.RefreshToken, rotated.RefreshToken)
		require.Nil(t, rotated.User)

		claims, err := f.service.VerifyAccess(rotated.AccessToken)
		require.NoError(t, err)
		require.Equal(t, session.User.ID, claims.UserID)
	})

	t.Run("missing token", func(t *testing.T) {
		_, err := f.service.Refresh(ctx, "")
		require.ErrorIs(t, err, model.ErrMissingRefreshCookie)
	})

	t.Run("access token is not a refresh token", func(t *testing.T) {
		_, err := f.service.Refresh(ctx, session.AccessToken)
		require.ErrorIs(t, err, model.ErrInvalidOrExpiredToken)
	})

	t.Run("refresh token is not an access token", func(t *testing.T) {
		_, err := f.service.VerifyAccess(session.RefreshToken)
		require.ErrorIs(t, err, model.ErrInvalidOrExpiredToken)
	})

	t.Run("deleted user cannot refresh", func(t *testing.T) {
		other := newAuthFixture(t)
		user := other.signUp(t, "gone@b.com", "secret1")
		s, err := other.service.SignIn(ctx, model.SignInRequest{Email: "gone@b.com", Password: "secret1"}, "")
		require.NoError(t, err)
		require.NoError(t, other.users.Delete(ctx, user.ID))

		_, err = other.service.Refresh(ctx, s.RefreshToken)
		require.ErrorIs(t, err, model.ErrInvalidOrExpiredToken)
	})
}

func TestAuthService_RefreshExpiry(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := newAuthFixture(t)
	f.signUp(t, "a@b.com", "secret1")
	session, err := f.service.SignIn(ctx, model.SignInRequest{Email: "a@b.com", Password: "secret1"}, "")
	require.NoError(t, err)

	f.clock = f.clock.Add(auth.AccessTokenTTL)
	_, err = f.service.VerifyAccess(session.AccessToken)
	require.ErrorIs(t, err, model.ErrInvalidOrExpiredToken)

	rotated, err := f.service.Refresh(ctx, session.RefreshToken)
	require.NoError(t, err)
	_, err = f.service.VerifyAccess(rotated.AccessToken)
	require.NoError(t, err)

	f.clock = f.clock.Add(auth.RefreshTokenTTL)
	_, err = f.service.Refresh(ctx, session.RefreshToken)
	require.ErrorIs(t, err, model.ErrInvalidOrExpiredToken)
}

func TestAuthService_PublishesEvents(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	f := newAuthFixture(t)
	events, unsubscribe := f.bus.Subscribe()
	defer unsubscribe()

	user := f.signUp(t, "a@b.com", "secret1")
	session, err := f.service.SignIn(ctx, model.SignInRequest{Email: "a@b.com", Password: "secret1"},
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	require.NoError(t, err)
	f.service.SignOut(ctx, session.RefreshToken)

	signedUp := <-events
	require.Equal(t, event.TypeUserSignedUp, signedUp.Type)

	signedIn := <-events
	require.Equal(t, event.TypeSessionSignedIn, signedIn.Type)
	require.Equal(t, user.ID, signedIn.ActorID)
	payload, ok := signedIn.Payload.(map[string]any)
	require.True(t, ok)
	require.Equal(t, "Chrome on Windows", payload["device"])

	signedOut := <-events
	require.Equal(t, event.TypeSessionSignedOut, signedOut.Type)
	require.Equal(t, user.ID, signedOut.ActorID)
}
