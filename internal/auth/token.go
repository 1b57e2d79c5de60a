package auth

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

const (
	AccessTokenTTL  = 15 * time.Minute
	RefreshTokenTTL = 7 * 24 * time.Hour
)

// ErrInvalidToken is the only verification failure callers ever see. The
// concrete reason (signature, expiry, structure, kind) is logged at debug level.
var ErrInvalidToken = errors.New("invalid token")

type Identity struct {
	Subject string
	Email   string
}

type Claims struct {
	Email string `json:"email"`
	Kind  Kind   `json:"typ"`
	jwt.RegisteredClaims
}

func (c Claims) Identity() Identity {
	return Identity{Subject: c.Subject, Email: c.Email}
}

// Codec mints and verifies one kind of token with its own secret and ttl.
// Two codecs with different secrets never accept each other's tokens, and the
// typ claim is checked as well in case both were configured with one secret.
type Codec struct {
	kind   Kind
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
	logger *slog.Logger
}

type Option func(*Codec)

func WithIssuer(issuer string) Option {
	return func(c *Codec) {
		c.issuer = strings.TrimSpace(issuer)
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Codec) {
		if now != nil {
			c.now = now
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Codec) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func NewCodec(kind Kind, secret string, ttl time.Duration, opts ...Option) (*Codec, error) {
	if kind != KindAccess && kind != KindRefresh {
		return nil, fmt.Errorf("unknown token kind %q", kind)
	}
	if strings.TrimSpace(secret) == "" {
		return nil, fmt.Errorf("%s token secret is required", kind)
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("%s token ttl must be positive", kind)
	}

	codec := &Codec{
		kind:   kind,
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(codec)
	}

	return codec, nil
}

func (c *Codec) Kind() Kind {
	return c.kind
}

func (c *Codec) TTL() time.Duration {
	return c.ttl
}

// Mint signs a fresh token for id. Every token gets its own jti, so two tokens
// minted in the same second for the same identity still differ.
func (c *Codec) Mint(id Identity) (string, Claims, error) {
	if strings.TrimSpace(id.Subject) == "" {
		return "", Claims{}, errors.New("token subject is required")
	}

	now := c.now()
	claims := Claims{
		Email: id.Email,
		Kind:  c.kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   id.Subject,
			Issuer:    c.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", Claims{}, fmt.Errorf("sign %s token: %w", c.kind, err)
	}

	return signed, claims, nil
}

// Verify accepts a token only when the HS256 signature matches, exp is present
// and strictly in the future, and the typ claim matches this codec's kind.
func (c *Codec) Verify(tokenString string) (Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithStrictDecoding(),
		jwt.WithTimeFunc(c.now),
	}
	if c.issuer != "" {
		opts = append(opts, jwt.WithIssuer(c.issuer))
	}

	var claims Claims
	token, err := jwt.NewParser(opts...).ParseWithClaims(strings.TrimSpace(tokenString), &claims, func(*jwt.Token) (any, error) {
		return c.secret, nil
	})
	if err != nil {
		c.reject(rejectReason(err))
		return Claims{}, ErrInvalidToken
	}
	if !token.Valid {
		c.reject("invalid")
		return Claims{}, ErrInvalidToken
	}
	if claims.Kind != c.kind {
		c.reject("kind")
		return Claims{}, ErrInvalidToken
	}
	if strings.TrimSpace(claims.Subject) == "" {
		c.reject("subject")
		return Claims{}, ErrInvalidToken
	}

	return claims, nil
}

func (c *Codec) reject(reason string) {
	c.logger.Debug("token rejected", "kind", string(c.kind), "reason", reason)
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired), errors.Is(err, jwt.ErrTokenRequiredClaimMissing):
		return "expired"
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return "signature"
	case errors.Is(err, jwt.ErrTokenMalformed):
		return "malformed"
	case errors.Is(err, jwt.ErrTokenUnverifiable):
		return "unverifiable"
	default:
		return "invalid"
	}
}
