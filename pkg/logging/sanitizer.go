package logging

import (
	"regexp"
	"unicode/utf8"
)

const (
	// MaxContentLogLength is the maximum number of characters of user content to log
	MaxContentLogLength = 100
	// RedactedText is the replacement text for sensitive data
	RedactedText = "[REDACTED]"
)

var (
	// password=xxx, pwd=xxx, pass=xxx (until next delimiter)
	passwordPattern = regexp.MustCompile(`(?i)(password|pwd|pass)=[^;&\s]+`)

	// Bearer tokens (three base64 segments separated by dots)
	jwtPattern = regexp.MustCompile(`Bearer\s+[A-Za-z0-9-_]+\.[A-Za-z0-9-_]+\.[A-Za-z0-9-_]*`)

	// auth_token cookie values
	cookiePattern = regexp.MustCompile(`(?i)(auth_token)=[^;\s]+`)

	// user:pass@host in URLs (postgres://, redis://)
	connStringPattern = regexp.MustCompile(`://[^:/\s]+:[^@\s]+@[^/\s]+`)
)

// Redact removes credentials and tokens from s.
func Redact(s string) string {
	if s == "" {
		return ""
	}
	s = passwordPattern.ReplaceAllString(s, "${1}="+RedactedText)
	s = jwtPattern.ReplaceAllString(s, "Bearer "+RedactedText)
	s = cookiePattern.ReplaceAllString(s, "${1}="+RedactedText)
	s = connStringPattern.ReplaceAllString(s, "://"+RedactedText+"@"+RedactedText)
	return s
}

// SanitizeConnectionString removes credentials from a Postgres or Redis
// connection string before it is logged.
func SanitizeConnectionString(connStr string) string {
	return Redact(connStr)
}

type sanitizedError struct {
	msg string
	err error
}

func (e *sanitizedError) Error() string { return e.msg }
func (e *sanitizedError) Unwrap() error { return e.err }

// SanitizeError returns an error whose message has credentials removed.
// errors.Is and errors.As still see the original error.
func SanitizeError(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	clean := Redact(msg)
	if clean == msg {
		return err
	}
	return &sanitizedError{msg: clean, err: err}
}

// TruncateContent shortens user-supplied text for logging, cutting on a rune
// boundary so multi-byte characters are never split.
func TruncateContent(s string) string {
	return TruncateString(s, MaxContentLogLength)
}

// TruncateString truncates s to maxLen runes and adds an ellipsis if needed.
func TruncateString(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxLen]) + "..."
}
