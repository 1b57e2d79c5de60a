package model

type APIResponse struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Error   *APIError `json:"error,omitempty"`
}

type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// Fixed bodies written outside of handlers.
var (
	// SessionRejected is sent for every missing, malformed, expired or forged
	// access token and refresh cookie.
	SessionRejected = APIError{Code: "UNAUTHORIZED", Message: "Invalid or expired token"}

	RateLimited     = APIError{Code: "RATE_LIMITED", Message: "Too many requests"}
	RequestTimedOut = APIError{Code: "REQUEST_TIMEOUT", Message: "request timed out"}
	InternalFailure = APIError{Code: "INTERNAL_ERROR", Message: "Unexpected server error"}
)
