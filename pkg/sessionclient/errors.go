package sessionclient

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthenticated means no usable access token could be obtained. The
	// caller should sign in again.
	ErrUnauthenticated = errors.New("sessionclient: unauthenticated")
	ErrClosed          = errors.New("sessionclient: client closed")
)

// ResponseError is a non-2xx reply carrying the server's error envelope.
type ResponseError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *ResponseError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("sessionclient: unexpected status %d", e.StatusCode)
	}
	return fmt.Sprintf("sessionclient: %d %s: %s", e.StatusCode, e.Code, e.Message)
}
