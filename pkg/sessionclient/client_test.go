package sessionclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeServer mimics the session endpoints. Each refresh mints a new access
// token and rotates the cookie.
type fakeServer struct {
	t   *testing.T
	srv *httptest.Server

	refreshCalls  atomic.Int32
	signOutCalls  atomic.Int32
	signOutCookie atomic.Bool
	rejectAll     atomic.Bool
	refreshDelay  time.Duration
	refreshStatus int

	mu       sync.Mutex
	current  string
	rejected map[string]bool
	seen     []string
}

func newFakeServer(t *testing.T) *fakeServer {
	t.Helper()

	f := &fakeServer{t: t, rejected: map[string]bool{}}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /signin", f.signIn)
	mux.HandleFunc("POST /signup", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusCreated, map[string]any{"success": true, "data": User{ID: 2, Email: "new@b.com"}})
	})
	mux.HandleFunc("POST /refresh-token", f.refresh)
	mux.HandleFunc("POST /signout", func(w http.ResponseWriter, r *http.Request) {
		f.signOutCalls.Add(1)
		if cookie, err := r.Cookie(refreshCookieName); err == nil && cookie.Value != "" {
			f.signOutCookie.Store(true)
		}
		http.SetCookie(w, &http.Cookie{Name: refreshCookieName, Path: "/", MaxAge: -1, Secure: true, HttpOnly: true})
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": map[string]bool{"signedOut": true}})
	})
	mux.HandleFunc("/data", f.data)

	f.srv = httptest.NewTLSServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeServer) mint() string {
	f.mu.Lock()
	defer f.mu.Unlock()

	// Each new token outlives the previous one by an hour.
	f.current = signedToken(f.t, time.Now().Add(15*time.Minute).Add(time.Duration(len(f.seen))*time.Hour))
	f.seen = append(f.seen, f.current)
	return f.current
}

func (f *fakeServer) signIn(w http.ResponseWriter, r *http.Request) {
	var body map[string]string
	_ = json.NewDecoder(r.Body).Decode(&body)
	if body["password"] != "secret1" {
		writeJSON(w, http.StatusUnauthorized, map[string]any{
			"success": false,
			"error":   map[string]string{"code": "UNAUTHORIZED", "message": "Invalid credentials"},
		})
		return
	}

	http.SetCookie(w, &http.Cookie{Name: refreshCookieName, Value: "r-0", Path: "/", Secure: true, HttpOnly: true})
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": map[string]any{
		"accessToken": f.mint(),
		"user":        User{ID: 1, Email: body["email"]},
	}})
}

func (f *fakeServer) refresh(w http.ResponseWriter, r *http.Request) {
	n := f.refreshCalls.Add(1)

	if f.refreshDelay > 0 {
		select {
		case <-time.After(f.refreshDelay):
		case <-r.Context().Done():
			return
		}
	}

	if _, err := r.Cookie(refreshCookieName); err != nil || f.refreshStatus == http.StatusUnauthorized {
		writeJSON(w, http.StatusUnauthorized, map[string]any{
			"success": false,
			"error":   map[string]string{"code": "UNAUTHORIZED", "message": "Invalid or expired token"},
		})
		return
	}

	http.SetCookie(w, &http.Cookie{Name: refreshCookieName, Value: "r-" + strconv.Itoa(int(n)), Path: "/", Secure: true, HttpOnly: true})
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": map[string]string{"accessToken": f.mint()}})
}

func (f *fakeServer) data(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	token := r.Header.Get("Authorization")
	ok := token == "Bearer "+f.current && !f.rejected[f.current] && !f.rejectAll.Load()
	f.mu.Unlock()

	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"success": false})
		return
	}

	body, _ := io.ReadAll(r.Body)
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": map[string]string{"token": token, "body": string(body)}})
}

// revokeCurrent makes /data reject the current access token before it expires.
func (f *fakeServer) revokeCurrent() {
	f.mu.Lock()
	f.rejected[f.current] = true
	f.mu.Unlock()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func newClient(t *testing.T, f *fakeServer, opts ...Option) *Client {
	t.Helper()

	opts = append([]Option{WithHTTPClient(f.srv.Client())}, opts...)
	c, err := New(f.srv.URL, opts...)
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func TestNew_RejectsRelativeURL(t *testing.T) {
	t.Parallel()

	_, err := New("/api")
	require.Error(t, err)
}

func TestClient_SignInCachesToken(t *testing.T) {
	t.Parallel()
	f := newFakeServer(t)
	c := newClient(t, f)

	user, err := c.SignIn(t.Context(), "a@b.com", "secret1")
	require.NoError(t, err)
	require.Equal(t, "a@b.com", user.Email)
	require.True(t, c.Authenticated())

	token, err := c.EnsureFreshToken(t.Context())
	require.NoError(t, err)
	require.Equal(t, f.current, token)
	require.Zero(t, f.refreshCalls.Load(), "a valid cached token needs no refresh")
}

func TestClient_SignInFailure(t *testing.T) {
	t.Parallel()
	f := newFakeServer(t)
	c := newClient(t, f)

	_, err := c.SignIn(t.Context(), "a@b.com", "wrong")

	var respErr *ResponseError
	require.ErrorAs(t, err, &respErr)
	require.Equal(t, http.StatusUnauthorized, respErr.StatusCode)
	require.Equal(t, "UNAUTHORIZED", respErr.Code)
	require.False(t, c.Authenticated())
}

func TestClient_SignUpDoesNotSignIn(t *testing.T) {
	t.Parallel()
	f := newFakeServer(t)
	c := newClient(t, f)

	user, err := c.SignUp(t.Context(), SignUpRequest{Email: "new@b.com", Password: "secret1"})
	require.NoError(t, err)
	require.Equal(t, int64(2), user.ID)
	require.False(t, c.Authenticated())
}

func TestClient_ConcurrentCallersShareOneRefresh(t *testing.T) {
	t.Parallel()
	f := newFakeServer(t)
	f.refreshDelay = 100 * time.Millisecond

	now := time.Now()
	clock := &atomic.Pointer[time.Time]{}
	clock.Store(&now)
	c := newClient(t, f, WithClock(func() time.Time { return *clock.Load() }))

	_, err := c.SignIn(t.Context(), "a@b.com", "secret1")
	require.NoError(t, err)

	later := now.Add(time.Hour)
	clock.Store(&later)
	require.False(t, c.Authenticated())

	const callers = 5
	var wg sync.WaitGroup
	tokens := make([]string, callers)
	errs := make([]error, callers)
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, c.URL("/data"), nil)
			if err != nil {
				errs[i] = err
				return
			}
			var out map[string]string
			resp, err := c.Do(req)
			if err != nil {
				errs[i] = err
				return
			}
			errs[i] = decodeResponse(resp, &out)
			tokens[i] = out["token"]
		}()
	}
	wg.Wait()

	require.Equal(t, int32(1), f.refreshCalls.Load())
	for i := range callers {
		require.NoError(t, errs[i])
		require.Equal(t, tokens[0], tokens[i])
	}
	require.Equal(t, "Bearer "+f.current, tokens[0])
}

func TestClient_RefreshFailureClearsCache(t *testing.T) {
	t.Parallel()
	f := newFakeServer(t)
	f.refreshStatus = http.StatusUnauthorized
	c := newClient(t, f)

	_, err := c.EnsureFreshToken(t.Context())
	require.ErrorIs(t, err, ErrUnauthenticated)
	require.False(t, c.Authenticated())

	req, err := http.NewRequestWithContext(t.Context(), http.MethodGet, c.URL("/data"), nil)
	require.NoError(t, err)
	_, err = c.Do(req)
	require.ErrorIs(t, err, ErrUnauthenticated)
}

func TestClient_RefreshTimeoutIsAFailure(t *testing.T) {
	t.Parallel()
	f := newFakeServer(t)
	f.refreshDelay = 2 * time.Second
	c := newClient(t, f, WithRefreshTimeout(50*time.Millisecond))

	start := time.Now()
	_, err := c.EnsureFreshToken(t.Context())
	require.ErrorIs(t, err, ErrUnauthenticated)
	require.Less(t, time.Since(start), time.Second)
	require.False(t, c.Authenticated())
}

func TestClient_RetriesOnceAfterUnauthorized(t *testing.T) {
	t.Parallel()
	f := newFakeServer(t)
	c := newClient(t, f)

	_, err := c.SignIn(t.Context(), "a@b.com", "secret1")
	require.NoError(t, err)
	f.revokeCurrent()

	req, err := http.NewRequestWithContext(t.Context(), http.MethodPost, c.URL("/data"), bytes.NewReader([]byte(`{"n":1}`)))
	require.NoError(t, err)

	resp, err := c.Do(req)
	require.NoError(t, err)

	var out map[string]string
	require.NoError(t, decodeResponse(resp, &out))
	require.Equal(t, `{"n":1}`, out["body"], "the body is replayed on retry")
	require.Equal(t, int32(1), f.refreshCalls.Load())
	require.Equal(t, "Bearer "+f.current, out["token"])
}

func TestClient_SecondUnauthorizedGivesUp(t *testing.T) {
	t.Parallel()
	f := newFakeServer(t)
	c := newClient(t, f)

	_, err := c.SignIn(t.Context(), "a@b.com", "secret1")
	require.NoError(t, err)
	f.rejectAll.Store(true)

	req, err := http.NewRequestWithContext(t.Context(), http.MethodGet, c.URL("/data"), nil)
	require.NoError(t, err)

	resp, err := c.Do(req)
	require.ErrorIs(t, err, ErrUnauthenticated)
	require.Nil(t, resp)
	require.Equal(t, int32(1), f.refreshCalls.Load(), "one refresh, one retry, then give up")
	require.False(t, c.Authenticated())
}

func TestClient_SignOutIsOptimistic(t *testing.T) {
	t.Parallel()
	f := newFakeServer(t)
	c := newClient(t, f)

	_, err := c.SignIn(t.Context(), "a@b.com", "secret1")
	require.NoError(t, err)

	require.NoError(t, c.SignOut(t.Context()))
	require.False(t, c.Authenticated())
	require.Equal(t, int32(1), f.signOutCalls.Load())
	require.True(t, f.signOutCookie.Load(), "sign-out must carry the refresh cookie")
	require.Empty(t, c.http.Jar.Cookies(c.baseURL))

	_, err = c.EnsureFreshToken(t.Context())
	require.ErrorIs(t, err, ErrUnauthenticated, "the refresh cookie is gone")
}

func TestClient_SignOutWithServerDown(t *testing.T) {
	t.Parallel()
	f := newFakeServer(t)
	c := newClient(t, f)

	_, err := c.SignIn(t.Context(), "a@b.com", "secret1")
	require.NoError(t, err)
	f.srv.Close()

	err = c.SignOut(t.Context())
	require.Error(t, err)
	require.False(t, c.Authenticated())
	require.Empty(t, c.http.Jar.Cookies(c.baseURL), "the refresh cookie is dropped even when the call fails")
}

func TestClient_Close(t *testing.T) {
	t.Parallel()
	f := newFakeServer(t)
	c := newClient(t, f)

	_, err := c.SignIn(t.Context(), "a@b.com", "secret1")
	require.NoError(t, err)

	c.Close()
	c.Close()
	require.False(t, c.Authenticated())

	_, err = c.EnsureFreshToken(t.Context())
	require.True(t, errors.Is(err, ErrClosed))
}
