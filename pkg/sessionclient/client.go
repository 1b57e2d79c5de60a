// Package sessionclient is the Go client for a TeamSync session. It keeps the
// access token in memory, sends it as a Bearer header, and renews it through
// the refresh cookie with at most one refresh in flight per client.
package sessionclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"
)

const (
	DefaultRefreshTimeout = 5 * time.Second
	refreshCookieName     = "refresh_token"
	refreshFlight         = "refresh"
)

type User struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Alias string `json:"alias"`
	Image string `json:"image"`
}

type SignUpRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name,omitempty"`
	Alias    string `json:"alias,omitempty"`
	Image    string `json:"image,omitempty"`
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type Client struct {
	baseURL        *url.URL
	http           *http.Client
	cache          *Cache
	flights        singleflight.Group
	refreshTimeout time.Duration
	logger         *slog.Logger
	closed         atomic.Bool
}

type Option func(*Client)

// WithHTTPClient sets the transport. A client without a cookie jar is copied
// and given one, since refresh depends on the cookie.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.cache = NewCache(now)
	}
}

// WithRefreshTimeout bounds each refresh call. A timeout counts as a failed
// refresh.
func WithRefreshTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.refreshTimeout = d
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base URL %q must be absolute", baseURL)
	}

	c := &Client{
		baseURL:        u,
		http:           &http.Client{Timeout: 30 * time.Second},
		cache:          NewCache(nil),
		refreshTimeout: DefaultRefreshTimeout,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.http.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("create cookie jar: %w", err)
		}
		hc := *c.http
		hc.Jar = jar
		c.http = &hc
	}

	return c, nil
}

// Authenticated reports whether a non-expired access token is cached.
func (c *Client) Authenticated() bool {
	return c.cache.Valid()
}

func (c *Client) AccessTokenExpiresAt() time.Time {
	return c.cache.ExpiresAt()
}

// URL resolves path against the base URL.
func (c *Client) URL(path string) string {
	return c.baseURL.String() + "/" + strings.TrimLeft(path, "/")
}

// SignIn exchanges credentials for a session. The access token lands in the
// cache and the refresh cookie in the jar.
func (c *Client) SignIn(ctx context.Context, email string, password string) (User, error) {
	if c.closed.Load() {
		return User{}, ErrClosed
	}

	var out struct {
		AccessToken string `json:"accessToken"`
		User        User   `json:"user"`
	}
	if err := c.post(ctx, "/signin", map[string]string{"email": email, "password": password}, &out); err != nil {
		c.cache.Clear()
		return User{}, err
	}
	if !c.cache.Set(out.AccessToken) {
		return User{}, fmt.Errorf("%w: server returned an unreadable access token", ErrUnauthenticated)
	}

	return out.User, nil
}

// SignUp registers an account. It does not sign in.
func (c *Client) SignUp(ctx context.Context, req SignUpRequest) (User, error) {
	if c.closed.Load() {
		return User{}, ErrClosed
	}

	var user User
	if err := c.post(ctx, "/signup", req, &user); err != nil {
		return User{}, err
	}
	return user, nil
}

// SignOut ends the session locally before telling the server. The refresh
// cookie still rides along on the /signout call and is dropped from the jar
// afterwards. The local session is over even when the returned error is non-nil.
func (c *Client) SignOut(ctx context.Context) error {
	c.cache.Clear()
	defer c.forgetRefreshCookie()

	ctx, cancel := context.WithTimeout(ctx, c.refreshTimeout)
	defer cancel()

	if err := c.post(ctx, "/signout", nil, nil); err != nil {
		c.logger.Debug("sign-out request failed", "error", err)
		return fmt.Errorf("notify server of sign-out: %w", err)
	}
	return nil
}

// EnsureFreshToken returns a valid access token, refreshing it first when the
// cached one is missing or expired. Concurrent callers share one refresh.
func (c *Client) EnsureFreshToken(ctx context.Context) (string, error) {
	if c.closed.Load() {
		return "", ErrClosed
	}
	if token, ok := c.cache.Token(); ok {
		return token, nil
	}

	ch := c.flights.DoChan(refreshFlight, func() (any, error) {
		if token, ok := c.cache.Token(); ok {
			return token, nil
		}
		return c.refresh()
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// refresh runs detached from any single caller's context so one cancelled
// caller does not fail the refresh for everyone waiting on it.
func (c *Client) refresh() (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), c.refreshTimeout)
	defer cancel()

	var out struct {
		AccessToken string `json:"accessToken"`
	}
	if err := c.post(ctx, "/refresh-token", nil, &out); err != nil {
		c.cache.Clear()
		c.logger.Debug("token refresh failed", "error", err)
		return "", fmt.Errorf("%w: refresh failed: %w", ErrUnauthenticated, err)
	}
	if !c.cache.Set(out.AccessToken) {
		return "", fmt.Errorf("%w: server returned an unreadable access token", ErrUnauthenticated)
	}

	token, ok := c.cache.Token()
	if !ok {
		return "", fmt.Errorf("%w: refreshed token already expired", ErrUnauthenticated)
	}
	return token, nil
}

// Do sends req with a fresh Bearer token. On a 401 it refreshes once and
// retries once, provided the body can be replayed through req.GetBody. A
// second 401 yields ErrUnauthenticated.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	token, err := c.EnsureFreshToken(req.Context())
	if err != nil {
		return nil, err
	}

	resp, err := c.send(req, token)
	if err != nil || resp.StatusCode != http.StatusUnauthorized {
		return resp, err
	}

	c.cache.Invalidate(token)
	if req.Body != nil && req.Body != http.NoBody && req.GetBody == nil {
		return resp, nil
	}
	drain(resp)

	token, err = c.EnsureFreshToken(req.Context())
	if err != nil {
		return nil, err
	}

	retry := req.Clone(req.Context())
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, fmt.Errorf("replay request body: %w", err)
		}
		retry.Body = body
	}

	resp, err = c.send(retry, token)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		drain(resp)
		c.cache.Invalidate(token)
		return nil, ErrUnauthenticated
	}
	return resp, nil
}

// GetJSON issues an authenticated GET and decodes the envelope's data into out.
func (c *Client) GetJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL(path), nil)
	if err != nil {
		return err
	}

	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	return decodeResponse(resp, out)
}

// Close ends the client. Later calls fail with ErrClosed.
func (c *Client) Close() {
	if c.closed.Swap(true) {
		return
	}
	c.cache.Clear()
	c.http.CloseIdleConnections()
}

func (c *Client) send(req *http.Request, token string) (*http.Response, error) {
	out := req.Clone(req.Context())
	out.Header.Set("Authorization", "Bearer "+token)
	return c.http.Do(out)
}

func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	var reader io.Reader = http.NoBody
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL(path), reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	return decodeResponse(resp, out)
}

func (c *Client) forgetRefreshCookie() {
	c.http.Jar.SetCookies(c.baseURL, []*http.Cookie{{
		Name:   refreshCookieName,
		Path:   "/",
		MaxAge: -1,
	}})
}

func decodeResponse(resp *http.Response, out any) error {
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		if resp.StatusCode >= 300 {
			return &ResponseError{StatusCode: resp.StatusCode}
		}
		return fmt.Errorf("decode response: %w", err)
	}

	if resp.StatusCode >= 300 || !env.Success {
		respErr := &ResponseError{StatusCode: resp.StatusCode}
		if env.Error != nil {
			respErr.Code = env.Error.Code
			respErr.Message = env.Error.Message
		}
		return respErr
	}

	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode response data: %w", err)
	}
	return nil
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()
}
