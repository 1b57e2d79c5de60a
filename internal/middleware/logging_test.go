package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLogging_RecordsErrorCodeWithoutSecrets(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	handler := Logging(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeUnauthorized(w)
	}))

	req := httptest.NewRequest(http.MethodPost, "/refresh-token", nil)
	req.Header.Set("Authorization", "Bearer super-secret-access")
	req.AddCookie(&http.Cookie{Name: "refresh_token", Value: "super-secret-refresh"})
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.NotEmpty(t, rec.Header().Get(requestIDHeader))

	line := buf.String()
	require.Contains(t, line, `"error_code":"UNAUTHORIZED"`)
	require.Contains(t, line, `"status":401`)
	require.NotContains(t, line, "super-secret")
}

func TestLogging_KeepsIncomingRequestID(t *testing.T) {
	handler := Logging(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(requestIDHeader, "req-123")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)
	require.Equal(t, "req-123", rec.Header().Get(requestIDHeader))
}
