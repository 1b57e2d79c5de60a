package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/mileusna/useragent"

	"github.com/rafaelguerrae/TeamSync/internal/auth"
	"github.com/rafaelguerrae/TeamSync/internal/event"
	"github.com/rafaelguerrae/TeamSync/internal/model"
	"github.com/rafaelguerrae/TeamSync/internal/util"
)

// timingDigest is compared against when the email is unknown so that a
// missing account costs the same bcrypt work as a wrong password.
var timingDigest = sync.OnceValue(func() string {
	digest, err := auth.HashPassword("teamsync-timing-equalizer")
	if err != nil {
		return ""
	}
	return digest
})

type AuthService struct {
	users   UserStore
	access  *auth.Codec
	refresh *auth.Codec
	bus     event.Bus
	now     func() time.Time
}

func NewAuthService(users UserStore, access *auth.Codec, refresh *auth.Codec, bus event.Bus) *AuthService {
	if bus == nil {
		bus = event.Nop{}
	}
	return &AuthService{
		users:   users,
		access:  access,
		refresh: refresh,
		bus:     bus,
		now:     time.Now,
	}
}

// RefreshTTL is the lifetime the transport should give the refresh cookie.
func (s *AuthService) RefreshTTL() time.Duration {
	return s.refresh.TTL()
}

// SignUp registers an account. It never starts a session.
func (s *AuthService) SignUp(ctx context.Context, req model.SignUpRequest) (model.PublicUser, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return model.PublicUser{}, err
	}
	if err := validatePassword(req.Password); err != nil {
		return model.PublicUser{}, err
	}

	rawAlias := req.Alias
	if strings.TrimSpace(rawAlias) == "" {
		rawAlias = emailLocalPart(email)
	}
	alias, err := requireAlias(rawAlias)
	if err != nil {
		return model.PublicUser{}, err
	}
	name := util.CleanText(req.Name, maxNameRunes)
	if name == "" {
		name = alias
	}

	digest, err := auth.HashPassword(req.Password)
	if err != nil {
		return model.PublicUser{}, err
	}

	now := s.now().UTC()
	user, err := s.users.Create(ctx, model.User{
		Email:        email,
		Name:         name,
		Alias:        alias,
		Image:        strings.TrimSpace(req.Image),
		PasswordHash: digest,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return model.PublicUser{}, err
	}

	s.bus.Publish(event.New(event.TypeUserSignedUp, user.ID, map[string]any{"email": user.Email}))
	return user.Public(), nil
}

// SignIn checks the credentials and starts a session. Unknown email and wrong
// password both return model.ErrInvalidCredentials.
func (s *AuthService) SignIn(ctx context.Context, req model.SignInRequest, userAgent string) (model.Session, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		return model.Session{}, model.ErrInvalidCredentials
	}

	user, err := s.users.FindByEmail(ctx, email)
	if errors.Is(err, model.ErrUserNotFound) {
		auth.VerifyPassword(req.Password, timingDigest())
		return model.Session{}, model.ErrInvalidCredentials
	}
	if err != nil {
		return model.Session{}, err
	}

	if !auth.VerifyPassword(req.Password, user.PasswordHash) {
		return model.Session{}, model.ErrInvalidCredentials
	}

	session, err := s.issue(auth.Identity{Subject: strconv.FormatInt(user.ID, 10), Email: user.Email})
	if err != nil {
		return model.Session{}, err
	}
	public := user.Public()
	session.User = &public

	s.bus.Publish(event.New(event.TypeSessionSignedIn, user.ID, map[string]any{"device": deviceLabel(userAgent)}))
	return session, nil
}

// Refresh exchanges a valid refresh token for a new access token and a rotated
// refresh token carrying the same identity. The previous refresh token is not
// tracked and remains valid until it expires.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (model.Session, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return model.Session{}, model.ErrMissingRefreshCookie
	}

	claims, err := s.refresh.Verify(refreshToken)
	if err != nil {
		return model.Session{}, model.ErrInvalidOrExpiredToken
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return model.Session{}, model.ErrInvalidOrExpiredToken
	}
	if _, err := s.users.FindByID(ctx, userID); err != nil {
		if errors.Is(err, model.ErrUserNotFound) {
			return model.Session{}, model.ErrInvalidOrExpiredToken
		}
		return model.Session{}, err
	}

	session, err := s.issue(claims.Identity())
	if err != nil {
		return model.Session{}, err
	}

	s.bus.Publish(event.New(event.TypeSessionRefreshed, userID, nil))
	return session, nil
}

// SignOut records the end of a session. The transport clears the cookie; no
// server-side state exists to revoke. actorID is zero when the caller's
// refresh cookie was missing or unreadable.
func (s *AuthService) SignOut(_ context.Context, refreshToken string) {
	var actorID int64
	if claims, err := s.refresh.Verify(refreshToken); err == nil {
		actorID, _ = strconv.ParseInt(claims.Subject, 10, 64)
	}
	s.bus.Publish(event.New(event.TypeSessionSignedOut, actorID, nil))
}

// VerifyAccess resolves a bearer token to the caller's claims.
func (s *AuthService) VerifyAccess(token string) (*model.AuthClaims, error) {
	claims, err := s.access.Verify(token)
	if err != nil {
		return nil, model.ErrInvalidOrExpiredToken
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || userID <= 0 {
		slog.Debug("access token subject is not a user id", "subject", claims.Subject)
		return nil, model.ErrInvalidOrExpiredToken
	}

	return &model.AuthClaims{UserID: userID, Email: claims.Email, TokenID: claims.ID}, nil
}

func (s *AuthService) issue(id auth.Identity) (model.Session, error) {
	accessToken, accessClaims, err := s.access.Mint(id)
	if err != nil {
		return model.Session{}, fmt.Errorf("mint access token: %w", err)
	}
	refreshToken, refreshClaims, err := s.refresh.Mint(id)
	if err != nil {
		return model.Session{}, fmt.Errorf("mint refresh token: %w", err)
	}

	return model.Session{
		AccessToken:      accessToken,
		AccessExpiresAt:  accessClaims.ExpiresAt.Time,
		RefreshToken:     refreshToken,
		RefreshExpiresAt: refreshClaims.ExpiresAt.Time,
	}, nil
}

func deviceLabel(userAgent string) string {
	if strings.TrimSpace(userAgent) == "" {
		return "unknown"
	}

	ua := useragent.Parse(userAgent)
	switch {
	case ua.Name != "" && ua.OS != "":
		return ua.Name + " on " + ua.OS
	case ua.Name != "":
		return ua.Name
	default:
		return "unknown"
	}
}
