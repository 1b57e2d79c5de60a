package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rafaelguerrae/TeamSync/internal/model"
)

type stubVerifier map[string]*model.AuthClaims

func (s stubVerifier) VerifyAccess(token string) (*model.AuthClaims, error) {
	claims, ok := s[token]
	if !ok {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

func TestRequireAuth(t *testing.T) {
	t.Parallel()

	mw := NewAuthMiddleware(stubVerifier{"good": {UserID: 42, Email: "a@b.com"}})

	var seen *model.AuthClaims
	handler := mw.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = ClaimsFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	t.Run("valid bearer token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
		req.Header.Set("Authorization", "Bearer good")
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		require.Equal(t, http.StatusNoContent, rec.Code)
		require.NotNil(t, seen)
		require.Equal(t, int64(42), seen.UserID)
	})

	t.Run("scheme is case-insensitive", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
		req.Header.Set("Authorization", "bearer good")
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("every rejection has the same body", func(t *testing.T) {
		headers := []string{"", "Bearer", "Bearer ", "Basic good", "Token good", "Bearer forged", "good"}

		var bodies []string
		for _, header := range headers {
			req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			require.Equal(t, http.StatusUnauthorized, rec.Code, "header %q", header)
			bodies = append(bodies, rec.Body.String())
		}

		for _, body := range bodies[1:] {
			require.Equal(t, bodies[0], body)
		}
		require.JSONEq(t, `{"success":false,"error":{"code":"UNAUTHORIZED","message":"Invalid or expired token"}}`, bodies[0])
	})
}
