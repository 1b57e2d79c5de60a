package util

import (
	"strings"
	"unicode"

	"github.com/rafaelguerrae/TeamSync/pkg/apierror"
)

const MaxAliasLength = 64

// CleanText strips control and invisible characters, trims surrounding
// space and truncates to maxRunes runes. maxRunes <= 0 disables truncation.
func CleanText(raw string, maxRunes int) string {
	builder := strings.Builder{}
	builder.Grow(len(raw))

	for _, char := range raw {
		if unicode.IsControl(char) || isInvisibleUnicode(char) {
			continue
		}
		builder.WriteRune(char)
	}

	cleaned := strings.TrimSpace(builder.String())
	if maxRunes > 0 {
		// Truncate by runes (not bytes) to avoid splitting multi-byte characters.
		if runes := []rune(cleaned); len(runes) > maxRunes {
			cleaned = strings.TrimSpace(string(runes[:maxRunes]))
		}
	}
	return cleaned
}

// NormalizeAlias turns raw into a lowercase handle made of letters, digits,
// '.', '_' and '-'. Runs of any other character collapse into one '-'.
func NormalizeAlias(raw string) (string, error) {
	cleaned := strings.ToLower(CleanText(raw, 0))
	if cleaned == "" {
		return "", apierror.BadRequest("alias is required", "")
	}

	builder := strings.Builder{}
	builder.Grow(len(cleaned))
	dash := false
	for _, char := range cleaned {
		if isAliasRune(char) {
			builder.WriteRune(char)
			dash = false
			continue
		}
		if !dash {
			builder.WriteByte('-')
			dash = true
		}
	}

	alias := strings.Trim(builder.String(), "-.")
	if runes := []rune(alias); len(runes) > MaxAliasLength {
		alias = strings.Trim(string(runes[:MaxAliasLength]), "-.")
	}
	if alias == "" {
		return "", apierror.BadRequest("alias must contain letters or digits", raw)
	}
	return alias, nil
}

func isAliasRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '.' || r == '_' || r == '-'
}

// isInvisibleUnicode returns true for zero-width, formatting, and other
// invisible Unicode characters.
func isInvisibleUnicode(r rune) bool {
	switch r {
	case
		'\u200B', // Zero-Width Space
		'\u200C', // Zero-Width Non-Joiner
		'\u200D', // Zero-Width Joiner
		'\u2060', // Word Joiner
		'\uFEFF', // Zero-Width No-Break Space / BOM
		'\uFFF9', // Interlinear Annotation Anchor
		'\uFFFA', // Interlinear Annotation Separator
		'\uFFFB': // Interlinear Annotation Terminator
		return true
	}

	return unicode.Is(unicode.Cf, r)
}
