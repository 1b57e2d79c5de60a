package middleware

import (
	"net/http"
	"time"

	"github.com/rafaelguerrae/TeamSync/internal/model"
)

const defaultRequestTimeout = 30 * time.Second

var timeoutBody = failureBody(model.RequestTimedOut)

// Timeout answers 503 with the error envelope once d elapses. Handlers write
// into a buffer, so a refresh cookie set by a handler that timed out is
// discarded along with its body.
func Timeout(d time.Duration) func(http.Handler) http.Handler {
	if d <= 0 {
		d = defaultRequestTimeout
	}

	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, timeoutBody)
	}
}
