package model

import "errors"

var (
	// Session errors. The token and cookie variants are distinct internally
	// but share one outward response.
	ErrInvalidCredentials    = errors.New("invalid credentials")
	ErrInvalidOrExpiredToken = errors.New("invalid or expired token")
	ErrMissingRefreshCookie  = errors.New("missing refresh cookie")
	ErrUnauthenticated       = errors.New("unauthenticated")

	// User errors
	ErrUserNotFound   = errors.New("user not found")
	ErrDuplicateEmail = errors.New("email already registered")

	// Team errors
	ErrTeamNotFound       = errors.New("team not found")
	ErrTeamAliasTaken     = errors.New("team alias already taken")
	ErrAlreadyMember      = errors.New("user is already a member")
	ErrMembershipNotFound = errors.New("membership not found")

	ErrForbidden    = errors.New("forbidden")
	ErrInvalidInput = errors.New("invalid input")
)
