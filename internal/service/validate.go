package service

import (
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/rafaelguerrae/TeamSync/internal/util"
	"github.com/rafaelguerrae/TeamSync/pkg/apierror"
)

const (
	MinPasswordLength = 6
	// bcrypt only looks at the first 72 bytes.
	maxPasswordBytes = 72
	maxNameRunes     = 100
)

func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return "", apierror.BadRequest("email is required", "")
	}

	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", apierror.BadRequest("invalid email format", "")
	}
	return email, nil
}

func validatePassword(password string) error {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return apierror.BadRequest("password must be at least 6 characters long", "")
	}
	if len(password) > maxPasswordBytes {
		return apierror.BadRequest("password must be at most 72 bytes long", "")
	}
	return nil
}

func requireField(name string, value string) (string, error) {
	cleaned := util.CleanText(value, maxNameRunes)
	if cleaned == "" {
		return "", apierror.BadRequest(name+" is required", "")
	}
	return cleaned, nil
}

func requireAlias(value string) (string, error) {
	return util.NormalizeAlias(value)
}

// emailLocalPart is the default alias and display name for accounts created
// with only an email and password.
func emailLocalPart(email string) string {
	local, _, _ := strings.Cut(email, "@")
	return local
}
